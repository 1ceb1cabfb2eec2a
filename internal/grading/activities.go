package grading

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-grader/internal/domain"
	pkgactivity "github.com/ahrav/go-grader/pkg/activity"
)

// Activity names, used by workflows to schedule activities without
// importing this package's types.
const (
	GradeSubmissionActivity = "GradeSubmission"
	StoreReportActivity     = "StoreReport"
)

// Error types attached to Temporal application errors.
const (
	errTypeInvalidInput = "InvalidInput"
	errTypeContract     = "ContractViolation"
	errTypeStore        = "ReportStoreUnavailable"
)

// ReportSaver persists a graded report and returns its storage key.
type ReportSaver interface {
	Save(ctx context.Context, report domain.Report) (string, error)
}

// GradeSubmissionInput is the payload of the GradeSubmission activity.
type GradeSubmissionInput struct {
	CompetitionID string            `json:"competition_id" validate:"required"`
	Grader        string            `json:"grader"         validate:"required"`
	Kind          domain.ReportKind `json:"kind"           validate:"required,oneof=competition code"`

	SubmissionPath   string              `json:"submission_path"`
	SubmissionExists bool                `json:"submission_exists"`
	Input            domain.GradingInput `json:"input"`

	// Leaderboard is required for competition graders.
	Leaderboard domain.Leaderboard `json:"leaderboard"`

	ClientIdempotencyKey string `json:"client_idempotency_key" validate:"required"`
}

// Validate checks the input fields.
func (in *GradeSubmissionInput) Validate() error { return validate.Struct(in) }

// GradeSubmissionOutput carries exactly one report variant.
type GradeSubmissionOutput struct {
	Kind        domain.ReportKind             `json:"kind"`
	Competition *domain.CompetitionReport     `json:"competition,omitempty"`
	Code        *domain.CodeCompetitionReport `json:"code,omitempty"`
}

// Report returns the carried report, or nil when empty.
func (o *GradeSubmissionOutput) Report() domain.Report {
	switch {
	case o.Competition != nil:
		return *o.Competition
	case o.Code != nil:
		return *o.Code
	default:
		return nil
	}
}

// StoreReportInput is the payload of the StoreReport activity.
type StoreReportInput struct {
	Graded               GradeSubmissionOutput `json:"graded"`
	ClientIdempotencyKey string                `json:"client_idempotency_key" validate:"required"`
}

// StoreReportOutput reports where the report was stored. Key is empty when
// no store is configured.
type StoreReportOutput struct {
	Key string `json:"key"`
}

// Activities exposes grading as Temporal activities.
type Activities struct {
	pkgactivity.BaseActivities
	catalog *Catalog
	store   ReportSaver
	events  *EventEmitter
}

// NewActivities creates grading activities. store may be nil, in which
// case StoreReport is a no-op.
func NewActivities(base pkgactivity.BaseActivities, catalog *Catalog, store ReportSaver) *Activities {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Activities{
		BaseActivities: base,
		catalog:        catalog,
		store:          store,
		events:         NewEventEmitter(base),
	}
}

// GradeSubmission grades one submission with the named grader.
//
// Scoring-function failures never fail the activity; they yield an invalid
// report. Unknown graders, empty leaderboards, reports with no JSON form and
// other contract violations fail it with a non-retryable error.
func (a *Activities) GradeSubmission(ctx context.Context, input GradeSubmissionInput) (*GradeSubmissionOutput, error) {
	if err := input.Validate(); err != nil {
		return nil, nonRetryable(errTypeInvalidInput, err, "invalid input")
	}

	wfCtx := a.GetWorkflowContext(ctx)
	pkgactivity.SafeLog(ctx, "Starting GradeSubmission activity",
		"workflow_id", wfCtx.WorkflowID,
		"activity_id", wfCtx.ActivityID,
		"competition_id", input.CompetitionID,
		"grader", input.Grader,
		"kind", input.Kind)

	sub := Submission{
		CompetitionID: input.CompetitionID,
		Path:          input.SubmissionPath,
		Exists:        input.SubmissionExists,
		Input:         input.Input,
	}

	output, err := a.grade(ctx, input, sub)
	if err != nil {
		return nil, err
	}

	report := output.Report()
	if _, err := domain.EncodeReportJSON(report); err != nil {
		return nil, nonRetryable(errTypeContract, err, "graded report cannot be encoded")
	}
	a.events.EmitSubmissionGraded(ctx, report, input.Grader, wfCtx, input.ClientIdempotencyKey)

	pkgactivity.SafeLog(ctx, "GradeSubmission completed",
		"competition_id", input.CompetitionID,
		"valid_submission", report.Base().ValidSubmission)

	return output, nil
}

func (a *Activities) grade(ctx context.Context, input GradeSubmissionInput, sub Submission) (*GradeSubmissionOutput, error) {
	switch input.Kind {
	case domain.ReportKindCode:
		g, err := a.catalog.CodeGrader(input.Grader)
		if err != nil {
			return nil, nonRetryable(errTypeInvalidInput, err, "unknown grader")
		}
		a.RecordHeartbeat(ctx, "analyzing submission")
		report, err := g.Evaluate(ctx, sub)
		if err != nil {
			return nil, nonRetryable(errTypeContract, err, "failed to build code report")
		}
		return &GradeSubmissionOutput{Kind: domain.ReportKindCode, Code: &report}, nil

	default:
		g, err := a.catalog.Grader(input.Grader)
		if err != nil {
			return nil, nonRetryable(errTypeInvalidInput, err, "unknown grader")
		}
		a.RecordHeartbeat(ctx, "grading submission")
		report, err := g.Evaluate(ctx, sub, input.Leaderboard)
		if err != nil {
			return nil, nonRetryable(errTypeContract, err, "failed to grade submission")
		}
		return &GradeSubmissionOutput{Kind: domain.ReportKindCompetition, Competition: &report}, nil
	}
}

// StoreReport persists a graded report. Store failures are retryable; a
// report with no JSON form is not.
func (a *Activities) StoreReport(ctx context.Context, input StoreReportInput) (*StoreReportOutput, error) {
	if err := validate.Struct(&input); err != nil {
		return nil, nonRetryable(errTypeInvalidInput, err, "invalid input")
	}
	report := input.Graded.Report()
	if report == nil {
		return nil, nonRetryable(errTypeInvalidInput, errors.New("graded output carries no report"), "invalid input")
	}

	if a.store == nil {
		pkgactivity.SafeLogWarn(ctx, "No report store configured, skipping persistence",
			"competition_id", report.Base().CompetitionID)
		return &StoreReportOutput{}, nil
	}

	key, err := a.store.Save(ctx, report)
	if errors.Is(err, domain.ErrUnencodableReport) {
		return nil, nonRetryable(errTypeContract, err, fmt.Sprintf("failed to encode report for %s", report.Base().CompetitionID))
	}
	if err != nil {
		return nil, retryable(errTypeStore, err, fmt.Sprintf("failed to store report for %s", report.Base().CompetitionID))
	}

	wfCtx := a.GetWorkflowContext(ctx)
	a.events.EmitReportStored(ctx, report.Base().CompetitionID, key, wfCtx, input.ClientIdempotencyKey)

	pkgactivity.SafeLog(ctx, "StoreReport completed", "key", key)
	return &StoreReportOutput{Key: key}, nil
}

// nonRetryable wraps an error as a Temporal non-retryable application error.
func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

// retryable wraps an error as a Temporal retryable application error.
func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationError(msg, tag, cause)
}
