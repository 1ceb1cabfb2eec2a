// Package events provides the generic event infrastructure used to publish
// grading outcomes. It defines the Envelope wire type, the EventSink
// interface implemented by transports, and two in-process sinks.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Envelope wraps a domain event with the metadata every consumer relies on
// for routing and deduplication.
type Envelope struct {
	// ID uniquely identifies this emission.
	ID string `json:"id"`

	// Type identifies the event, e.g. "grading.submission_graded".
	Type string `json:"type"`

	// Source identifies the emitting component, e.g. "activity.grade_submission".
	Source string `json:"source"`

	// Version is the payload schema version.
	Version string `json:"version"`

	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey is deterministic across activity retries; consumers
	// must treat a repeated key as a duplicate.
	IdempotencyKey string `json:"idempotency_key"`

	TenantID   string `json:"tenant_id"`
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`

	Payload json.RawMessage `json:"payload"`
}

// EventSink receives envelopes for downstream consumers.
type EventSink interface {
	// Append adds an event to the sink. Implementations must treat an
	// already-seen idempotency key as a no-op. Callers never fail grading
	// because of a sink error.
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards every event.
type NoOpEventSink struct{}

// Append implements EventSink.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error { return nil }

// NewNoOpEventSink creates a sink that discards every event.
func NewNoOpEventSink() EventSink { return &NoOpEventSink{} }

// MemorySink keeps events in process, deduplicated by idempotency key.
// Used by the CLI when no broker is configured, and by tests.
type MemorySink struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	events []Envelope
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{seen: make(map[string]struct{})}
}

// Append implements EventSink.
func (m *MemorySink) Append(ctx context.Context, envelope Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.seen[envelope.IdempotencyKey]; dup {
		return nil
	}
	m.seen[envelope.IdempotencyKey] = struct{}{}
	m.events = append(m.events, envelope)
	return nil
}

// Events returns a copy of the accepted events in arrival order.
func (m *MemorySink) Events() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Envelope, len(m.events))
	copy(out, m.events)
	return out
}
