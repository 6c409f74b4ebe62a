// Package service provides the platform clients publish jobs call, the account
// credentials they call with and the verification of inbound platform callbacks.
package service

import (
	"context"

	"github.com/google/uuid"
)

// PublishInput is what a platform client needs to post one piece of content.
type PublishInput struct {
	RequestID   uuid.UUID
	Platform    string
	AccountRef  string
	AccessToken string
	ContentRef  string
	Caption     string
	Metadata    map[string]any
}

// PublishAck is a synchronous acknowledgment. ExternalPostID is provisional
// until the platform confirms the post through a callback.
type PublishAck struct {
	ExternalPostID string
	Raw            map[string]any
}

// PlatformClient posts content to one platform. Errors are classified with
// the job domain: transient errors are retried, permanent errors are not.
type PlatformClient interface {
	Publish(ctx context.Context, input *PublishInput) (*PublishAck, error)
}

// Credentials authorize calls on behalf of an account.
type Credentials struct {
	AccountRef  string
	AccessToken string
}

// AccountResolver looks up credentials for a platform account.
type AccountResolver interface {
	Resolve(ctx context.Context, platform, accountRef string) (*Credentials, error)
}

// SignatureVerifier checks callback signatures.
type SignatureVerifier interface {
	// Sign returns the signature header value for body.
	Sign(platform string, body []byte) (string, error)
	// Verify returns domain.ErrInvalidSignature when signature does not match body.
	Verify(platform string, body []byte, signature string) error
}
