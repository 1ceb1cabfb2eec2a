package reportstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-grader/pkg/events"
)

const (
	defaultStreamMaxLen = 100_000
	defaultDedupTTL     = 24 * time.Hour
)

// StreamSink publishes event envelopes to a Redis stream. A marker key per
// idempotency key makes repeated appends no-ops.
type StreamSink struct {
	client   *redis.Client
	stream   string
	maxLen   int64
	dedupTTL time.Duration
	logger   *slog.Logger
}

var _ events.EventSink = (*StreamSink)(nil)

// NewStreamSink creates a sink publishing to the given stream.
func NewStreamSink(client *redis.Client, stream string) *StreamSink {
	return &StreamSink{
		client:   client,
		stream:   stream,
		maxLen:   defaultStreamMaxLen,
		dedupTTL: defaultDedupTTL,
		logger:   slog.Default().With("component", "reportstore_stream"),
	}
}

func (s *StreamSink) seenKey(idempotencyKey string) string {
	return s.stream + ":seen:" + idempotencyKey
}

// Append implements events.EventSink.
func (s *StreamSink) Append(ctx context.Context, envelope events.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	seen := s.seenKey(envelope.IdempotencyKey)
	fresh, err := s.client.SetNX(ctx, seen, 1, s.dedupTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to check event idempotency: %w", err)
	}
	if !fresh {
		return nil
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Values: map[string]any{
			"type":            envelope.Type,
			"idempotency_key": envelope.IdempotencyKey,
			"envelope":        payload,
		},
	}).Err()
	if err != nil {
		// Release the marker so a retry can publish.
		if delErr := s.client.Del(context.WithoutCancel(ctx), seen).Err(); delErr != nil {
			s.logger.Error("failed to release event marker, retries are deduplicated until it expires",
				"marker", seen,
				"idempotency_key", envelope.IdempotencyKey,
				"expires_in", s.dedupTTL,
				"error", delErr)
		}
		return fmt.Errorf("failed to publish event to %s: %w", s.stream, err)
	}
	return nil
}
