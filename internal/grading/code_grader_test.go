package grading

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-grader/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestCodeGrader_Evaluate(t *testing.T) {
	tests := []struct {
		name      string
		sub       Submission
		fn        CodeAnalysisFunc
		wantValid bool
		wantLog   string
	}{
		{
			name: "analysis succeeds",
			sub:  Submission{CompetitionID: "code-comp", Exists: true, Path: "/code/main.py"},
			fn: func(context.Context, domain.GradingInput) (domain.CodeAnalysis, error) {
				return domain.CodeAnalysis{DefinedClasses: strPtr("Model"), TestMetric: strPtr("0.9")}, nil
			},
			wantValid: true,
		},
		{
			name: "analysis rejects submission",
			sub:  Submission{CompetitionID: "code-comp", Exists: true},
			fn: func(context.Context, domain.GradingInput) (domain.CodeAnalysis, error) {
				return domain.CodeAnalysis{}, domain.InvalidSubmission("syntax error")
			},
			wantLog: `"level":"WARN"`,
		},
		{
			name: "analysis panics",
			sub:  Submission{CompetitionID: "code-comp", Exists: true},
			fn: func(context.Context, domain.GradingInput) (domain.CodeAnalysis, error) {
				panic(errors.New("sandbox crashed"))
			},
			wantLog: "sandbox crashed",
		},
		{
			name: "no submission",
			sub:  Submission{CompetitionID: "code-comp"},
			fn: func(context.Context, domain.GradingInput) (domain.CodeAnalysis, error) {
				panic("must not be called")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			g, err := NewCodeGrader("runner", tt.fn,
				WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
				WithClock(func() time.Time { return fixedNow }))
			require.NoError(t, err)

			report, err := g.Evaluate(context.Background(), tt.sub)
			require.NoError(t, err)

			assert.Equal(t, tt.wantValid, report.ValidSubmission)
			assert.Equal(t, tt.sub.Exists, report.SubmissionExists)
			assert.Equal(t, domain.ReportKindCode, report.Kind())
			if tt.wantValid {
				require.NotNil(t, report.DefinedClasses)
				assert.Equal(t, "Model", *report.DefinedClasses)
			} else {
				assert.Nil(t, report.DefinedClasses)
			}
			if tt.wantLog != "" {
				assert.Contains(t, buf.String(), tt.wantLog)
			}
		})
	}
}

func TestNewCodeGrader(t *testing.T) {
	_, err := NewCodeGrader("", func(context.Context, domain.GradingInput) (domain.CodeAnalysis, error) {
		return domain.CodeAnalysis{}, nil
	})
	assert.ErrorIs(t, err, ErrEmptyGraderName)

	_, err = NewCodeGrader("runner", nil)
	assert.ErrorIs(t, err, ErrNilGradeFunc)
}
