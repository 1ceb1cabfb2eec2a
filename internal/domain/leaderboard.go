package domain

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
)

// scoreColumn is the only column a leaderboard table must carry.
const scoreColumn = "score"

// LeaderboardEntry is one competing entry on a leaderboard.
type LeaderboardEntry struct {
	TeamName       string  `json:"team_name,omitempty"`
	Score          float64 `json:"score"`
	SubmissionDate string  `json:"submission_date,omitempty"`
}

// Leaderboard is the reference distribution a candidate score is ranked
// against. Entries must be sorted best-to-worst (index 0 is the best entry);
// keeping that order is the caller's responsibility.
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// NewLeaderboard builds a leaderboard from scores already sorted best-to-worst.
func NewLeaderboard(scores ...float64) Leaderboard {
	entries := make([]LeaderboardEntry, len(scores))
	for i, s := range scores {
		entries[i] = LeaderboardEntry{Score: s}
	}
	return Leaderboard{Entries: entries}
}

// Len returns the number of competing entries.
func (l Leaderboard) Len() int { return len(l.Entries) }

// Scores returns the score column in leaderboard order.
func (l Leaderboard) Scores() []float64 {
	scores := make([]float64, len(l.Entries))
	for i, e := range l.Entries {
		scores[i] = e.Score
	}
	return scores
}

// IsLowerBetter derives the scoring polarity: lower is better iff the
// top-ranked score is strictly less than the bottom-ranked score.
func (l Leaderboard) IsLowerBetter() (bool, error) {
	if len(l.Entries) == 0 {
		return false, ErrEmptyLeaderboard
	}
	return l.Entries[0].Score < l.Entries[len(l.Entries)-1].Score, nil
}

// ScoreAt returns the score at a 1-based rank position.
func (l Leaderboard) ScoreAt(position int) (float64, error) {
	if position < 1 || position > len(l.Entries) {
		return 0, fmt.Errorf("%w: position %d, %d entries", ErrPositionOutOfBounds, position, len(l.Entries))
	}
	return l.Entries[position-1].Score, nil
}

// Median returns the statistical median of all non-NaN scores.
func (l Leaderboard) Median() (float64, error) {
	if len(l.Entries) == 0 {
		return 0, ErrEmptyLeaderboard
	}

	scores := make([]float64, 0, len(l.Entries))
	for _, e := range l.Entries {
		if !math.IsNaN(e.Score) {
			scores = append(scores, e.Score)
		}
	}
	if len(scores) == 0 {
		return math.NaN(), nil
	}

	slices.Sort(scores)
	mid := len(scores) / 2
	if len(scores)%2 == 1 {
		return scores[mid], nil
	}
	return (scores[mid-1] + scores[mid]) / 2, nil
}

// LoadLeaderboardCSV reads a leaderboard CSV. The document must have a
// `score` column; `teamName` / `team_name` and `submissionDate` /
// `submission_date` columns are picked up when present. Row order is kept.
func LoadLeaderboardCSV(r io.Reader) (Leaderboard, error) {
	table, err := ReadTableCSV(r)
	if err != nil {
		return Leaderboard{}, err
	}

	scoreIdx := table.ColumnIndex(scoreColumn)
	if scoreIdx < 0 {
		return Leaderboard{}, ErrMissingScoreColumn
	}
	teamIdx := firstColumn(table, "teamName", "team_name")
	dateIdx := firstColumn(table, "submissionDate", "submission_date")

	entries := make([]LeaderboardEntry, 0, table.Len())
	for i, row := range table.Rows {
		if scoreIdx >= len(row) {
			return Leaderboard{}, fmt.Errorf("leaderboard row %d: missing score", i+1)
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(row[scoreIdx]), 64)
		if err != nil {
			return Leaderboard{}, fmt.Errorf("leaderboard row %d: %w", i+1, err)
		}
		entry := LeaderboardEntry{Score: score}
		if teamIdx >= 0 && teamIdx < len(row) {
			entry.TeamName = row[teamIdx]
		}
		if dateIdx >= 0 && dateIdx < len(row) {
			entry.SubmissionDate = row[dateIdx]
		}
		entries = append(entries, entry)
	}

	return Leaderboard{Entries: entries}, nil
}

func firstColumn(t *Table, names ...string) int {
	for _, n := range names {
		if idx := t.ColumnIndex(n); idx >= 0 {
			return idx
		}
	}
	return -1
}
