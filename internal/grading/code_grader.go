package grading

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahrav/go-grader/internal/domain"
)

// CodeAnalysisFunc analyzes an executed code submission. It follows the
// same failure contract as GradeFunc.
type CodeAnalysisFunc func(ctx context.Context, in domain.GradingInput) (domain.CodeAnalysis, error)

// CodeGrader wraps a CodeAnalysisFunc for code-execution competitions.
// There is no leaderboard and no medal ranking for these.
type CodeGrader struct {
	name   string
	fn     CodeAnalysisFunc
	logger *slog.Logger
	now    func() time.Time
}

// NewCodeGrader creates a CodeGrader.
func NewCodeGrader(name string, fn CodeAnalysisFunc, opts ...Option) (*CodeGrader, error) {
	if name == "" {
		return nil, ErrEmptyGraderName
	}
	if fn == nil {
		return nil, ErrNilGradeFunc
	}
	o := buildOptions(opts)
	return &CodeGrader{
		name:   name,
		fn:     fn,
		logger: o.logger.With("grader", name),
		now:    o.now,
	}, nil
}

// Name returns the grader name.
func (g *CodeGrader) Name() string { return g.name }

// Analyze runs the analysis function. ok is false when the submission was
// rejected or the function failed; both are logged.
func (g *CodeGrader) Analyze(ctx context.Context, in domain.GradingInput) (domain.CodeAnalysis, bool) {
	return invoke(ctx, g.logger, g.fn, in)
}

// Evaluate analyzes a submission and builds its report.
func (g *CodeGrader) Evaluate(ctx context.Context, sub Submission) (domain.CodeCompetitionReport, error) {
	var (
		analysis domain.CodeAnalysis
		ok       bool
	)
	if sub.Exists {
		analysis, ok = g.Analyze(ctx, sub.Input)
	}

	base := domain.ReportBase{
		CompetitionID:    sub.CompetitionID,
		SubmissionExists: sub.Exists,
		ValidSubmission:  ok,
		CreatedAt:        g.now(),
		SubmissionPath:   sub.Path,
	}
	return domain.NewCodeCompetitionReport(base, analysis)
}
