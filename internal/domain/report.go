package domain

import (
	"fmt"
	"time"
)

// ReportKind tags the report variant.
type ReportKind string

const (
	// ReportKindCompetition marks a scored, leaderboard-ranked report.
	ReportKindCompetition ReportKind = "competition"

	// ReportKindCode marks a code-execution report. No medals apply.
	ReportKindCode ReportKind = "code"
)

// String returns the string representation of the report kind.
func (k ReportKind) String() string { return string(k) }

// Report is the sealed sum of CompetitionReport and CodeCompetitionReport.
type Report interface {
	Kind() ReportKind
	Base() ReportBase
	ToDict() map[string]any
	isReport()
}

// ReportBase holds the fields every report variant shares.
type ReportBase struct {
	CompetitionID    string `validate:"required"`
	SubmissionExists bool
	ValidSubmission  bool
	CreatedAt        time.Time `validate:"required"`
	SubmissionPath   string
}

// normalize pins CreatedAt to UTC with microsecond precision, which is
// exactly what the ISO-8601 encoding keeps.
func (b ReportBase) normalize() ReportBase {
	b.CreatedAt = b.CreatedAt.UTC().Truncate(time.Microsecond)
	return b
}

// CompetitionReport is the graded outcome of a scored competition.
// Values are immutable by convention: constructors copy pointer payloads and
// every method has a value receiver.
type CompetitionReport struct {
	ReportBase

	// Score is nil when no usable score was produced.
	Score *float64

	// ScoreIsIntegral marks a score the scoring function returned as an
	// integer; it is encoded without a fractional part.
	ScoreIsIntegral bool

	Ranking

	AnyMedal      bool
	IsLowerBetter bool
}

// NewCompetitionReport assembles a report from a score and its ranking.
// When score is nil all medal flags are cleared; thresholds are kept since
// they depend only on the leaderboard.
func NewCompetitionReport(base ReportBase, score *float64, ranking Ranking, lowerIsBetter bool) (CompetitionReport, error) {
	r := CompetitionReport{
		ReportBase:    base.normalize(),
		Ranking:       ranking,
		IsLowerBetter: lowerIsBetter,
	}
	if score != nil {
		v := *score
		r.Score = &v
	} else {
		r.GoldMedal, r.SilverMedal, r.BronzeMedal, r.AboveMedian = false, false, false, false
	}
	r.AnyMedal = r.Ranking.AnyMedal()

	if err := r.Validate(); err != nil {
		return CompetitionReport{}, err
	}
	return r, nil
}

// NewScoredCompetitionReport is NewCompetitionReport for a grader Score,
// keeping whether the score is integral.
func NewScoredCompetitionReport(base ReportBase, score *Score, ranking Ranking, lowerIsBetter bool) (CompetitionReport, error) {
	r, err := NewCompetitionReport(base, ScoreValue(score), ranking, lowerIsBetter)
	if err != nil {
		return CompetitionReport{}, err
	}
	r.ScoreIsIntegral = score != nil && score.IsIntegral()
	return r, nil
}

// Kind implements Report.
func (r CompetitionReport) Kind() ReportKind { return ReportKindCompetition }

// Base implements Report.
func (r CompetitionReport) Base() ReportBase { return r.ReportBase }

func (r CompetitionReport) isReport() {}

// Validate checks structural requirements and the no-score invariant.
func (r CompetitionReport) Validate() error {
	if err := validate.Struct(r.ReportBase); err != nil {
		return err
	}
	if r.Score == nil && (r.AnyMedal || r.GoldMedal || r.SilverMedal || r.BronzeMedal || r.AboveMedian) {
		return fmt.Errorf("%w: medal flags set without a score", ErrInvalidScore)
	}
	return nil
}

// Equal compares two reports field by field, the score by value and the
// timestamp by instant.
func (r CompetitionReport) Equal(o CompetitionReport) bool {
	if (r.Score == nil) != (o.Score == nil) {
		return false
	}
	if r.Score != nil && *r.Score != *o.Score {
		return false
	}
	return r.ReportBase.equal(o.ReportBase) &&
		r.Ranking == o.Ranking &&
		r.AnyMedal == o.AnyMedal &&
		r.IsLowerBetter == o.IsLowerBetter
}

// CodeAnalysis summarizes static and dynamic analysis of an executed code
// submission. Every field is optional.
type CodeAnalysis struct {
	DefinedClasses       *string `json:"defined_classes"`
	InitializedClasses   *string `json:"initialized_classes"`
	DefinedClassMethods  *string `json:"defined_class_methods"`
	ExecutedClassMethods *string `json:"executed_class_methods"`
	DefinedFunctions     *string `json:"defined_functions"`
	ExecutedFunctions    *string `json:"executed_functions"`
	TestMetric           *string `json:"test_metric"`
}

func (c CodeAnalysis) clone() CodeAnalysis {
	return CodeAnalysis{
		DefinedClasses:       cloneStringPtr(c.DefinedClasses),
		InitializedClasses:   cloneStringPtr(c.InitializedClasses),
		DefinedClassMethods:  cloneStringPtr(c.DefinedClassMethods),
		ExecutedClassMethods: cloneStringPtr(c.ExecutedClassMethods),
		DefinedFunctions:     cloneStringPtr(c.DefinedFunctions),
		ExecutedFunctions:    cloneStringPtr(c.ExecutedFunctions),
		TestMetric:           cloneStringPtr(c.TestMetric),
	}
}

func (c CodeAnalysis) equal(o CodeAnalysis) bool {
	return eqStringPtr(c.DefinedClasses, o.DefinedClasses) &&
		eqStringPtr(c.InitializedClasses, o.InitializedClasses) &&
		eqStringPtr(c.DefinedClassMethods, o.DefinedClassMethods) &&
		eqStringPtr(c.ExecutedClassMethods, o.ExecutedClassMethods) &&
		eqStringPtr(c.DefinedFunctions, o.DefinedFunctions) &&
		eqStringPtr(c.ExecutedFunctions, o.ExecutedFunctions) &&
		eqStringPtr(c.TestMetric, o.TestMetric)
}

// CodeCompetitionReport is the graded outcome of a code-execution
// competition. It carries analysis strings instead of medals.
type CodeCompetitionReport struct {
	ReportBase
	CodeAnalysis
}

// NewCodeCompetitionReport assembles a code-execution report.
func NewCodeCompetitionReport(base ReportBase, analysis CodeAnalysis) (CodeCompetitionReport, error) {
	r := CodeCompetitionReport{
		ReportBase:   base.normalize(),
		CodeAnalysis: analysis.clone(),
	}
	if err := r.Validate(); err != nil {
		return CodeCompetitionReport{}, err
	}
	return r, nil
}

// Kind implements Report.
func (r CodeCompetitionReport) Kind() ReportKind { return ReportKindCode }

// Base implements Report.
func (r CodeCompetitionReport) Base() ReportBase { return r.ReportBase }

func (r CodeCompetitionReport) isReport() {}

// Validate checks structural requirements.
func (r CodeCompetitionReport) Validate() error { return validate.Struct(r.ReportBase) }

// Equal compares two code reports, the timestamp by instant.
func (r CodeCompetitionReport) Equal(o CodeCompetitionReport) bool {
	return r.ReportBase.equal(o.ReportBase) && r.CodeAnalysis.equal(o.CodeAnalysis)
}

func (b ReportBase) equal(o ReportBase) bool {
	return b.CompetitionID == o.CompetitionID &&
		b.SubmissionExists == o.SubmissionExists &&
		b.ValidSubmission == o.ValidSubmission &&
		b.CreatedAt.Equal(o.CreatedAt) &&
		b.SubmissionPath == o.SubmissionPath
}

func eqStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
