package workflow

import (
	"time"

	"github.com/go-playground/validator/v10"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-grader/internal/grading"
)

const (
	// DefaultActivityTimeout bounds a single grading attempt when the request
	// does not set one. Scoring functions are not bounded by the grader
	// itself, so this is what stops a hanging one.
	DefaultActivityTimeout = 10 * time.Minute

	// DefaultMaxAttempts applies to retryable failures only; grading
	// contract violations are never retried.
	DefaultMaxAttempts = 3
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// GradingRequest starts a GradingWorkflow.
type GradingRequest struct {
	Submission grading.GradeSubmissionInput `json:"submission"`

	// ActivityTimeoutSeconds overrides DefaultActivityTimeout when positive.
	ActivityTimeoutSeconds int `json:"activity_timeout_seconds" validate:"min=0"`

	// MaxAttempts overrides DefaultMaxAttempts when positive.
	MaxAttempts int32 `json:"max_attempts" validate:"min=0"`

	// SkipStore disables report persistence.
	SkipStore bool `json:"skip_store"`
}

// Validate checks the request fields.
func (r *GradingRequest) Validate() error { return validate.Struct(r) }

// GradingResult is returned by GradingWorkflow.
type GradingResult struct {
	Graded grading.GradeSubmissionOutput `json:"graded"`

	// ReportKey is empty when the report was not persisted.
	ReportKey string `json:"report_key"`
}

// GradingWorkflow grades one submission and persists its report.
func GradingWorkflow(ctx workflow.Context, req GradingRequest) (*GradingResult, error) {
	// Version gate for future changes to the activity sequence.
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "grading.v", workflow.DefaultVersion, currentVersion)

	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid grading request",
			"Validation",
			err,
		)
	}

	timeout := DefaultActivityTimeout
	if req.ActivityTimeoutSeconds > 0 {
		timeout = time.Duration(req.ActivityTimeoutSeconds) * time.Second
	}
	attempts := int32(DefaultMaxAttempts)
	if req.MaxAttempts > 0 {
		attempts = req.MaxAttempts
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		HeartbeatTimeout:    timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    attempts,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	var graded grading.GradeSubmissionOutput
	if err := workflow.ExecuteActivity(ctx, grading.GradeSubmissionActivity, req.Submission).Get(ctx, &graded); err != nil {
		return nil, err
	}
	result := &GradingResult{Graded: graded}

	if req.SkipStore {
		logger.Info("Report persistence skipped", "competition_id", req.Submission.CompetitionID)
		return result, nil
	}

	storeInput := grading.StoreReportInput{
		Graded:               graded,
		ClientIdempotencyKey: req.Submission.ClientIdempotencyKey,
	}
	var stored grading.StoreReportOutput
	if err := workflow.ExecuteActivity(ctx, grading.StoreReportActivity, storeInput).Get(ctx, &stored); err != nil {
		return nil, err
	}
	result.ReportKey = stored.Key

	logger.Info("Grading completed",
		"competition_id", req.Submission.CompetitionID,
		"report_key", stored.Key)
	return result, nil
}
