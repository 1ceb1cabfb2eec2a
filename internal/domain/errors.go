package domain

import "errors"

// ErrInvalidSubmission is the signal a scoring function returns (wrapped or
// bare) when the candidate submission itself is malformed. Graders turn it
// into a no-score outcome instead of a fault.
var ErrInvalidSubmission = errors.New("invalid submission")

// ErrEmptyLeaderboard indicates that a leaderboard has no entries.
var ErrEmptyLeaderboard = errors.New("leaderboard must contain at least one entry")

// ErrPositionOutOfBounds indicates a 1-based rank position outside the leaderboard.
var ErrPositionOutOfBounds = errors.New("position out of bounds in the leaderboard")

// ErrMissingScoreColumn indicates that tabular leaderboard data has no `score` column.
var ErrMissingScoreColumn = errors.New("leaderboard must have a `score` column")

// ErrInvalidScore indicates a report whose score and medal flags disagree.
var ErrInvalidScore = errors.New("invalid score")

// ErrMissingField indicates that a report mapping lacks a required key.
var ErrMissingField = errors.New("missing report field")

// ErrInvalidField indicates that a report mapping holds a value of the wrong type.
var ErrInvalidField = errors.New("invalid report field")

// ErrUnknownReportKind indicates a mapping that matches no report variant.
var ErrUnknownReportKind = errors.New("unknown report kind")

// ErrUnencodableReport indicates a report that has no JSON form, such as one
// with a non-finite threshold. Retrying cannot change the outcome.
var ErrUnencodableReport = errors.New("report cannot be encoded as JSON")

// InvalidSubmission builds an error that wraps ErrInvalidSubmission with a
// human-readable reason. Scoring functions use it to reject candidate output.
func InvalidSubmission(reason string) error {
	return &invalidSubmissionError{reason: reason}
}

type invalidSubmissionError struct{ reason string }

func (e *invalidSubmissionError) Error() string {
	return ErrInvalidSubmission.Error() + ": " + e.reason
}

func (e *invalidSubmissionError) Unwrap() error { return ErrInvalidSubmission }
