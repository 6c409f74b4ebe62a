package service

import (
	"context"
	"fmt"
)

// StubPlatformClient acknowledges every post without calling anything. It is
// used for platforms that have no gateway integration yet; post ids are
// derived from the request id so a retried job gets the same id.
type StubPlatformClient struct {
	platform string
}

// NewStubPlatformClient creates a stub client for platform.
func NewStubPlatformClient(platform string) *StubPlatformClient {
	return &StubPlatformClient{platform: platform}
}

// Publish returns a deterministic provisional post id.
func (s *StubPlatformClient) Publish(ctx context.Context, input *PublishInput) (*PublishAck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	postID := fmt.Sprintf("stub-%s-%s", s.platform, input.RequestID)
	return &PublishAck{
		ExternalPostID: postID,
		Raw:            map[string]any{"external_post_id": postID, "stub": true},
	}, nil
}
