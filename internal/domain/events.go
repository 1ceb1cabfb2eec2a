package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event emitted by the grading system.
type EventType string

const (
	// EventTypeSubmissionGraded is emitted once per graded submission,
	// whether or not a score was produced.
	EventTypeSubmissionGraded EventType = "SubmissionGraded"

	// EventTypeReportStored is emitted after a report is persisted.
	EventTypeReportStored EventType = "ReportStored"
)

// EventEnvelope wraps grading events with workflow context and an
// idempotency key so retried activities never double-count a submission.
type EventEnvelope struct {
	IdempotencyKey string    `json:"idempotency_key" validate:"required"`
	EventType      EventType `json:"event_type"      validate:"required"`

	// Version enables payload schema evolution. Starts at 1.
	Version int `json:"version" validate:"required,min=1"`

	OccurredAt time.Time `json:"occurred_at" validate:"required"`
	TenantID   uuid.UUID `json:"tenant_id"   validate:"required"`
	WorkflowID string    `json:"workflow_id" validate:"required"`
	RunID      string    `json:"run_id"      validate:"required"`

	Payload json.RawMessage `json:"payload" validate:"required"`

	// Producer identifies the emitting component, e.g. "activity.grade_submission".
	Producer string `json:"producer" validate:"required"`
}

// Validate checks if the event envelope meets all requirements.
func (e *EventEnvelope) Validate() error { return validate.Struct(e) }

// SubmissionGradedPayload is the body of a SubmissionGraded event.
type SubmissionGradedPayload struct {
	CompetitionID   string     `json:"competition_id"   validate:"required"`
	Kind            ReportKind `json:"kind"             validate:"required,oneof=competition code"`
	Grader          string     `json:"grader"           validate:"required"`
	SubmissionPath  string     `json:"submission_path"`
	ValidSubmission bool       `json:"valid_submission"`

	// Score mirrors the report encoding: a string, or null when absent.
	Score *string `json:"score"`

	// Medal is "gold", "silver", "bronze" or empty.
	Medal       string `json:"medal,omitempty" validate:"omitempty,oneof=gold silver bronze"`
	AboveMedian bool   `json:"above_median"`
}

// Validate checks if the payload meets all requirements.
func (p *SubmissionGradedPayload) Validate() error { return validate.Struct(p) }

// ReportStoredPayload is the body of a ReportStored event.
type ReportStoredPayload struct {
	CompetitionID string `json:"competition_id" validate:"required"`
	Key           string `json:"key"            validate:"required"`
}

// Validate checks if the payload meets all requirements.
func (p *ReportStoredPayload) Validate() error { return validate.Struct(p) }

// NewEventEnvelope creates an EventEnvelope with required fields populated.
// The payload should be marshaled JSON for the specific event type.
func NewEventEnvelope(
	eventType EventType,
	tenantID uuid.UUID,
	workflowID, runID string,
	payload json.RawMessage,
	producer string,
) EventEnvelope {
	return EventEnvelope{
		EventType:  eventType,
		Version:    1,
		TenantID:   tenantID,
		WorkflowID: workflowID,
		RunID:      runID,
		Payload:    payload,
		Producer:   producer,
		OccurredAt: time.Now(),
	}
}

// GenerateIdempotencyKey creates a deterministic key for event deduplication:
// H(client_idem_key || suffix). Retries and replays produce the same key.
func GenerateIdempotencyKey(clientIdempotencyKey, eventSuffix string) string {
	hasher := sha256.New()
	hasher.Write([]byte(clientIdempotencyKey + eventSuffix))
	return hex.EncodeToString(hasher.Sum(nil))
}

// SubmissionGradedIdempotencyKey returns H(client_idem_key || ":graded:" || path).
func SubmissionGradedIdempotencyKey(clientIdempotencyKey, submissionPath string) string {
	return GenerateIdempotencyKey(clientIdempotencyKey, ":graded:"+submissionPath)
}

// NewSubmissionGradedEvent creates a SubmissionGraded event for a report.
func NewSubmissionGradedEvent(
	tenantID uuid.UUID,
	workflowID, runID string,
	grader string,
	report Report,
	clientIdempotencyKey string,
) (EventEnvelope, error) {
	base := report.Base()
	payload := SubmissionGradedPayload{
		CompetitionID:   base.CompetitionID,
		Kind:            report.Kind(),
		Grader:          grader,
		SubmissionPath:  base.SubmissionPath,
		ValidSubmission: base.ValidSubmission,
	}
	if cr, ok := report.(CompetitionReport); ok {
		if s, ok := cr.scoreString(); ok {
			payload.Score = &s
		}
		payload.Medal = medalName(cr.Ranking)
		payload.AboveMedian = cr.AboveMedian
	}

	envelope, err := newEvent(EventTypeSubmissionGraded, tenantID, workflowID, runID, &payload, payload.Validate, "activity.grade_submission")
	if err != nil {
		return EventEnvelope{}, err
	}
	envelope.IdempotencyKey = SubmissionGradedIdempotencyKey(clientIdempotencyKey, base.SubmissionPath)

	if err := envelope.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid event envelope: %w", err)
	}
	return envelope, nil
}

// NewReportStoredEvent creates a ReportStored event.
func NewReportStoredEvent(
	tenantID uuid.UUID,
	workflowID, runID string,
	competitionID, key string,
	clientIdempotencyKey string,
) (EventEnvelope, error) {
	payload := ReportStoredPayload{CompetitionID: competitionID, Key: key}

	envelope, err := newEvent(EventTypeReportStored, tenantID, workflowID, runID, &payload, payload.Validate, "activity.store_report")
	if err != nil {
		return EventEnvelope{}, err
	}
	envelope.IdempotencyKey = GenerateIdempotencyKey(clientIdempotencyKey, ":stored:"+key)

	if err := envelope.Validate(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid event envelope: %w", err)
	}
	return envelope, nil
}

func newEvent(
	eventType EventType,
	tenantID uuid.UUID,
	workflowID, runID string,
	payload any,
	validatePayload func() error,
	producer string,
) (EventEnvelope, error) {
	if err := validatePayload(); err != nil {
		return EventEnvelope{}, fmt.Errorf("invalid %s payload: %w", eventType, err)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return NewEventEnvelope(eventType, tenantID, workflowID, runID, payloadJSON, producer), nil
}

func medalName(r Ranking) string {
	switch {
	case r.GoldMedal:
		return "gold"
	case r.SilverMedal:
		return "silver"
	case r.BronzeMedal:
		return "bronze"
	default:
		return ""
	}
}
