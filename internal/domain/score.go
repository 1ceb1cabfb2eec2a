// Package domain defines the grading data model: the inputs handed to
// scoring functions, leaderboards and their medal thresholds, and the
// immutable report records produced for every graded submission.
//
// Everything here is pure. Invoking scoring functions, persisting reports
// and orchestrating grading runs live in the grading, reportstore and
// workflow packages.
package domain

import (
	"math"
	"strconv"
)

// ScorePrecision is the number of decimal places float scores are rounded to
// after a scoring function returns.
const ScorePrecision = 5

// Score is the numeric result of a scoring function. Integral scores carry
// through grading unchanged; float scores are rounded to ScorePrecision.
type Score struct {
	value    float64
	integral bool
}

// FloatScore creates a floating-point score.
func FloatScore(v float64) Score { return Score{value: v} }

// IntScore creates an integral score. Integral scores are never rounded.
func IntScore(v int64) Score { return Score{value: float64(v), integral: true} }

// Float64 returns the score as a float64 for ranking and persistence.
func (s Score) Float64() float64 { return s.value }

// IsIntegral reports whether the scoring function produced an integer.
func (s Score) IsIntegral() bool { return s.integral }

// Rounded returns the score rounded to the given number of decimal places.
// Rounding is performed on the exact binary value with ties to even, so
// 0.123455 (stored as 0.12345499999...) rounds down to 0.12345.
// Integral and non-finite scores are returned unchanged.
func (s Score) Rounded(places int) Score {
	if s.integral || math.IsNaN(s.value) || math.IsInf(s.value, 0) {
		return s
	}
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(s.value, 'f', places, 64), 64)
	if err != nil {
		return s
	}
	return Score{value: rounded}
}

// String renders integral scores as integers and float scores the way the
// report codec does.
func (s Score) String() string {
	if s.integral {
		return strconv.FormatInt(int64(s.value), 10)
	}
	return formatPyFloat(s.value)
}

// ScoreValue returns the float value of an optional score as an optional
// float64, the form ranking and reports take.
func ScoreValue(s *Score) *float64 {
	if s == nil {
		return nil
	}
	v := s.value
	return &v
}
