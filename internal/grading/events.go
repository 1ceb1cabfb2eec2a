package grading

import (
	"context"
	"fmt"

	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/pkg/activity"
	"github.com/ahrav/go-grader/pkg/events"
)

// EventEmitter turns grading outcomes into domain events and hands them to
// the base activity sink. Emission is best-effort.
type EventEmitter struct{ base activity.BaseActivities }

// NewEventEmitter creates an EventEmitter.
func NewEventEmitter(base activity.BaseActivities) *EventEmitter {
	return &EventEmitter{base: base}
}

// EmitSubmissionGraded emits a SubmissionGraded event for a report.
func (e *EventEmitter) EmitSubmissionGraded(
	ctx context.Context,
	report domain.Report,
	grader string,
	wfCtx activity.WorkflowContext,
	clientIdemKey string,
) {
	domainEvent, err := domain.NewSubmissionGradedEvent(
		wfCtx.TenantID,
		wfCtx.WorkflowID,
		wfCtx.RunID,
		grader,
		report,
		clientIdemKey,
	)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to create SubmissionGraded event",
			"competition_id", report.Base().CompetitionID,
			"error", err)
		return
	}

	e.base.EmitEventSafe(ctx, convertDomainEventToEnvelope(domainEvent), "SubmissionGraded")
}

// EmitReportStored emits a ReportStored event.
func (e *EventEmitter) EmitReportStored(
	ctx context.Context,
	competitionID, key string,
	wfCtx activity.WorkflowContext,
	clientIdemKey string,
) {
	domainEvent, err := domain.NewReportStoredEvent(
		wfCtx.TenantID,
		wfCtx.WorkflowID,
		wfCtx.RunID,
		competitionID,
		key,
		clientIdemKey,
	)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to create ReportStored event",
			"key", key,
			"error", err)
		return
	}

	e.base.EmitEventSafe(ctx, convertDomainEventToEnvelope(domainEvent), "ReportStored")
}

// convertDomainEventToEnvelope maps a domain event onto the transport envelope.
func convertDomainEventToEnvelope(domainEvent domain.EventEnvelope) events.Envelope {
	return events.Envelope{
		ID:             domainEvent.IdempotencyKey,
		Type:           string(domainEvent.EventType),
		Source:         domainEvent.Producer,
		Version:        fmt.Sprintf("%d.0.0", domainEvent.Version),
		Timestamp:      domainEvent.OccurredAt,
		IdempotencyKey: domainEvent.IdempotencyKey,
		TenantID:       domainEvent.TenantID.String(),
		WorkflowID:     domainEvent.WorkflowID,
		RunID:          domainEvent.RunID,
		Payload:        domainEvent.Payload,
	}
}
