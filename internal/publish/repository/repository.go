// Package repository persists publish requests in PostgreSQL and MySQL. Every
// status change is a conditional update on the current status.
package repository

import (
	"encoding/json"
	"fmt"

	"github.com/allisson/publishq/internal/publish/domain"
)

const timedOutMessage = "no platform confirmation received"

type rowScanner interface {
	Scan(dest ...any) error
}

// metadataArg encodes metadata as JSON text for jsonb and MySQL JSON columns.
func metadataArg(metadata map[string]any) (string, error) {
	if metadata == nil {
		return "{}", nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(b []byte) (map[string]any, error) {
	metadata := map[string]any{}
	if len(b) == 0 {
		return metadata, nil
	}
	if err := json.Unmarshal(b, &metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return metadata, nil
}

func collectCounts(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) (map[domain.PublishStatus]int64, error) {
	counts := make(map[domain.PublishStatus]int64)
	for rows.Next() {
		var (
			status domain.PublishStatus
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
