// Package grading invokes externally supplied scoring functions and turns
// their results into reports.
//
// A Grader wraps one scoring function. Whatever the function does (return a
// score, reject the submission, fail, or panic) Grade hands back either a
// rounded score or nil; only leaderboard and report contract violations
// surface as errors. The package also exposes the Temporal activities that
// run grading inside a workflow.
package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"time"

	"github.com/ahrav/go-grader/internal/domain"
)

// ErrEmptyGraderName indicates a grader constructed without a name.
var ErrEmptyGraderName = errors.New("grader name must not be empty")

// ErrNilGradeFunc indicates a grader constructed without a scoring function.
var ErrNilGradeFunc = errors.New("grade function must not be nil")

// GradeFunc is the scoring function contract. It receives the whole
// GradingInput, ignores the fields it has no use for, and either returns a
// score, an error wrapping domain.ErrInvalidSubmission for a malformed
// candidate, or any other error for a fault of its own.
type GradeFunc func(ctx context.Context, in domain.GradingInput) (domain.Score, error)

// Option configures a Grader or CodeGrader.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

// WithLogger sets the logger used for grading diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the clock used to timestamp reports.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger: slog.Default().With("component", "grader"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Grader binds a name to a scoring function. It holds no mutable state and
// is safe for concurrent use whenever the scoring function is.
type Grader struct {
	name   string
	fn     GradeFunc
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Grader.
func New(name string, fn GradeFunc, opts ...Option) (*Grader, error) {
	if name == "" {
		return nil, ErrEmptyGraderName
	}
	if fn == nil {
		return nil, ErrNilGradeFunc
	}
	o := buildOptions(opts)
	return &Grader{
		name:   name,
		fn:     fn,
		logger: o.logger.With("grader", name),
		now:    o.now,
	}, nil
}

// Name returns the grader name.
func (g *Grader) Name() string { return g.name }

// Grade runs the scoring function and normalizes its outcome.
//
// Float scores are rounded to domain.ScorePrecision places; integral and
// non-finite scores are returned unchanged, so a NaN score stays a (NaN)
// score. A rejected submission is logged at WARN, a scoring-function error
// or panic at ERROR with the function's source location; both return nil.
// Grade never returns an error and never panics.
func (g *Grader) Grade(ctx context.Context, in domain.GradingInput) *domain.Score {
	score, ok := invoke(ctx, g.logger, g.fn, in)
	if !ok {
		return nil
	}
	rounded := score.Rounded(domain.ScorePrecision)
	return &rounded
}

// IsLowerBetter derives the scoring polarity of a leaderboard.
func (g *Grader) IsLowerBetter(lb domain.Leaderboard) (bool, error) {
	return lb.IsLowerBetter()
}

// RankScore ranks an optional score against a leaderboard.
func (g *Grader) RankScore(score *float64, lb domain.Leaderboard) (domain.Ranking, error) {
	return domain.RankScore(score, lb)
}

// Submission describes one candidate to grade.
type Submission struct {
	CompetitionID string
	Path          string

	// Exists is false when the candidate produced no submission file; the
	// scoring function is not invoked in that case.
	Exists bool

	Input domain.GradingInput
}

// Evaluate grades a submission and ranks it against the leaderboard. The
// report is valid iff a score was produced. Errors are contract
// violations: an empty leaderboard or an invalid report.
func (g *Grader) Evaluate(ctx context.Context, sub Submission, lb domain.Leaderboard) (domain.CompetitionReport, error) {
	lowerIsBetter, err := g.IsLowerBetter(lb)
	if err != nil {
		return domain.CompetitionReport{}, err
	}

	var score *domain.Score
	if sub.Exists {
		score = g.Grade(ctx, sub.Input)
	} else {
		g.logger.WarnContext(ctx, "submission not found",
			"competition_id", sub.CompetitionID,
			"submission_path", sub.Path)
	}

	ranking, err := g.RankScore(domain.ScoreValue(score), lb)
	if err != nil {
		return domain.CompetitionReport{}, err
	}

	base := domain.ReportBase{
		CompetitionID:    sub.CompetitionID,
		SubmissionExists: sub.Exists,
		ValidSubmission:  score != nil,
		CreatedAt:        g.now(),
		SubmissionPath:   sub.Path,
	}
	return domain.NewScoredCompetitionReport(base, score, ranking, lowerIsBetter)
}

// invoke calls fn and absorbs every failure mode. ok is false when no
// result was produced.
func invoke[T any, F ~func(context.Context, domain.GradingInput) (T, error)](
	ctx context.Context,
	logger *slog.Logger,
	fn F,
	in domain.GradingInput,
) (result T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "scoring function panicked",
				"grade_fn", funcLocation(fn),
				"panic", fmt.Sprint(r),
				"inputs", in.Populated())
			var zero T
			result, ok = zero, false
		}
	}()

	v, err := fn(ctx, in)
	switch {
	case err == nil:
		return v, true
	case errors.Is(err, domain.ErrInvalidSubmission):
		logger.WarnContext(ctx, "invalid submission", "error", err)
	default:
		logger.ErrorContext(ctx, "unexpected error during grading",
			"grade_fn", funcLocation(fn),
			"error", err)
	}

	var zero T
	return zero, false
}

// funcLocation returns "file:line" of the function's entry point, or its
// identity when the runtime cannot resolve it.
func funcLocation(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Sprintf("%v", fn)
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return fmt.Sprintf("%v", fn)
	}
	file, line := f.FileLine(f.Entry())
	if file == "" {
		return f.Name()
	}
	return fmt.Sprintf("%s:%d", file, line)
}
