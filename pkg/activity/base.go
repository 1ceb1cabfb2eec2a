// Package activity provides the infrastructure shared by every Temporal
// activity in the grader: workflow context extraction, context-safe logging
// and best-effort event emission.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/log"

	"github.com/ahrav/go-grader/pkg/events"
)

// DefaultTenantID is used when no tenant has been configured.
var DefaultTenantID = uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

// WorkflowContext holds the execution metadata of the running activity.
type WorkflowContext struct {
	WorkflowID string
	RunID      string
	TenantID   uuid.UUID
	ActivityID string
}

// BaseActivities provides event emission and context extraction that work
// both inside a Temporal activity and in plain unit tests.
type BaseActivities struct {
	eventSink events.EventSink
	tenantID  uuid.UUID
}

// NewBaseActivities creates a BaseActivities. A nil sink disables events.
func NewBaseActivities(sink events.EventSink) BaseActivities {
	return BaseActivities{eventSink: sink, tenantID: DefaultTenantID}
}

// WithTenant returns a copy bound to the given tenant.
func (b BaseActivities) WithTenant(tenantID uuid.UUID) BaseActivities {
	if tenantID != uuid.Nil {
		b.tenantID = tenantID
	}
	return b
}

// GetWorkflowContext extracts workflow execution details from ctx. Outside
// an activity (where activity.GetInfo panics) it returns fixed test IDs.
func (b *BaseActivities) GetWorkflowContext(ctx context.Context) WorkflowContext {
	wfCtx := WorkflowContext{TenantID: b.tenantID}
	if wfCtx.TenantID == uuid.Nil {
		wfCtx.TenantID = DefaultTenantID
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				wfCtx.WorkflowID = "550e8400-e29b-41d4-a716-446655440000"
				wfCtx.RunID = "test-run-" + uuid.New().String()[:8]
				wfCtx.ActivityID = "test-activity"
			}
		}()

		info := activity.GetInfo(ctx)
		wfCtx.WorkflowID = info.WorkflowExecution.ID
		wfCtx.RunID = info.WorkflowExecution.RunID
		wfCtx.ActivityID = info.ActivityID
	}()

	return wfCtx
}

// EmitEventSafe appends an envelope to the sink, retrying once after a short
// delay. Failures are logged and never returned.
func (b *BaseActivities) EmitEventSafe(
	ctx context.Context,
	envelope events.Envelope,
	description string,
) {
	if b.eventSink == nil {
		return
	}

	const maxAttempts = 2
	const retryDelay = 200 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				SafeLogError(ctx, fmt.Sprintf("Event emission cancelled: %s", description),
					"event_type", envelope.Type)
				return
			}
		}

		if err := b.eventSink.Append(ctx, envelope); err != nil {
			lastErr = err
			continue
		}

		SafeLog(ctx, fmt.Sprintf("Event emitted: %s", description),
			"event_type", envelope.Type,
			"idempotency_key", envelope.IdempotencyKey)
		return
	}

	SafeLogError(ctx, fmt.Sprintf("Failed to emit %s after %d attempts", description, maxAttempts),
		"event_type", envelope.Type,
		"error", lastErr)
}

// RecordHeartbeat records a heartbeat; ignored outside an activity.
func (b *BaseActivities) RecordHeartbeat(ctx context.Context, details ...any) {
	RecordHeartbeat(ctx, details...)
}

// SafeLog logs at INFO through the activity logger. Outside an activity it
// falls back to the default slog logger.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	safeLog(ctx, slog.LevelInfo, msg, keyvals...)
}

// SafeLogWarn logs at WARN through the activity logger.
func SafeLogWarn(ctx context.Context, msg string, keyvals ...any) {
	safeLog(ctx, slog.LevelWarn, msg, keyvals...)
}

// SafeLogError logs at ERROR through the activity logger.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	safeLog(ctx, slog.LevelError, msg, keyvals...)
}

func safeLog(ctx context.Context, level slog.Level, msg string, keyvals ...any) {
	logger, ok := activityLogger(ctx)
	if !ok {
		slog.Default().Log(ctx, level, msg, keyvals...)
		return
	}
	switch level {
	case slog.LevelError:
		logger.Error(msg, keyvals...)
	case slog.LevelWarn:
		logger.Warn(msg, keyvals...)
	default:
		logger.Info(msg, keyvals...)
	}
}

// activityLogger returns the activity logger, or false when ctx does not
// belong to an activity.
func activityLogger(ctx context.Context) (logger log.Logger, ok bool) {
	defer func() {
		if recover() != nil {
			logger, ok = nil, false
		}
	}()
	return activity.GetLogger(ctx), true
}

// RecordHeartbeat records activity heartbeat details; ignored outside an
// activity.
func RecordHeartbeat(ctx context.Context, details ...any) {
	defer func() { _ = recover() }()
	activity.RecordHeartbeat(ctx, details...)
}
