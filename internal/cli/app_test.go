package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-grader/internal/configuration"
	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/internal/grading"
	"github.com/ahrav/go-grader/internal/reportstore"
	"github.com/ahrav/go-grader/internal/workflow"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(context.Background(), append([]string{"grader"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// writeLeaderboard writes a higher-is-better leaderboard scoring n down to 1.
func writeLeaderboard(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("teamName,score\n")
	for i := n; i >= 1; i-- {
		fmt.Fprintf(&b, "team-%d,%d\n", i, i)
	}
	return writeFile(t, "leaderboard.csv", b.String())
}

func sampleReport(t *testing.T) domain.CompetitionReport {
	t.Helper()
	score := 0.95
	r, err := domain.NewCompetitionReport(domain.ReportBase{
		CompetitionID:    "spaceship-titanic",
		SubmissionExists: true,
		ValidSubmission:  true,
		CreatedAt:        time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC),
		SubmissionPath:   "/data/submission.csv",
	}, &score, domain.Ranking{GoldMedal: true, GoldThreshold: 0.9, SilverThreshold: 0.8, BronzeThreshold: 0.7, MedianThreshold: 0.5, AboveMedian: true}, false)
	require.NoError(t, err)
	return r
}

func TestRankCommand(t *testing.T) {
	lb := writeLeaderboard(t, 50)

	tests := []struct {
		name       string
		score      string
		wantGold   bool
		wantSilver bool
		wantBronze bool
		wantMedian bool
	}{
		{name: "gold", score: "48", wantGold: true, wantMedian: true},
		{name: "silver", score: "41", wantSilver: true, wantMedian: true},
		{name: "bronze", score: "35.5", wantBronze: true, wantMedian: true},
		{name: "above median only", score: "26", wantMedian: true},
		{name: "below median", score: "3"},
		{name: "no score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := []string{"rank", "--leaderboard", lb}
			if tt.score != "" {
				args = append(args, "--score", tt.score)
			}
			out, err := runApp(t, args...)
			require.NoError(t, err)

			var res rankResult
			require.NoError(t, json.Unmarshal([]byte(out), &res))
			assert.Equal(t, 50, res.Entries)
			assert.False(t, res.IsLowerBetter)
			assert.Equal(t, tt.wantGold, res.GoldMedal)
			assert.Equal(t, tt.wantSilver, res.SilverMedal)
			assert.Equal(t, tt.wantBronze, res.BronzeMedal)
			assert.Equal(t, tt.wantGold || tt.wantSilver || tt.wantBronze, res.AnyMedal)
			assert.Equal(t, 46.0, res.GoldThreshold)
			assert.Equal(t, 41.0, res.SilverThreshold)
			assert.Equal(t, 31.0, res.BronzeThreshold)
			assert.Equal(t, 25.5, res.MedianThreshold)
			if tt.score == "" {
				assert.Nil(t, res.Score)
				assert.False(t, res.AboveMedian)
			} else {
				require.NotNil(t, res.Score)
				assert.Equal(t, tt.wantMedian, res.AboveMedian)
			}
		})
	}
}

func TestRankCommand_YAML(t *testing.T) {
	out, err := runApp(t, "--format", "yaml", "rank", "--leaderboard", writeLeaderboard(t, 50), "--score", "48")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, true, res["gold_medal"])
	assert.Equal(t, 50, res["entries"])
}

func TestRankCommand_Errors(t *testing.T) {
	lb := writeLeaderboard(t, 10)

	_, err := runApp(t, "rank", "--leaderboard", lb, "--score", "abc")
	assert.ErrorContains(t, err, "invalid score")

	_, err = runApp(t, "rank", "--leaderboard", filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorContains(t, err, "opening leaderboard")

	noScore := writeFile(t, "bad.csv", "teamName,points\na,1\n")
	_, err = runApp(t, "rank", "--leaderboard", noScore)
	assert.ErrorIs(t, err, domain.ErrMissingScoreColumn)

	_, err = runApp(t, "--format", "xml", "rank", "--leaderboard", lb)
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestReportCommand_File(t *testing.T) {
	b, err := json.Marshal(sampleReport(t))
	require.NoError(t, err)
	path := writeFile(t, "report.json", string(b))

	out, err := runApp(t, "report", "--file", path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "spaceship-titanic", got["competition_id"])
	assert.Equal(t, "0.95", got["score"])
	assert.Equal(t, true, got["gold_medal"])
	assert.Equal(t, "2024-03-14T15:09:26+00:00", got["created_at"])
}

func TestReportCommand_Errors(t *testing.T) {
	_, err := runApp(t, "report")
	assert.ErrorContains(t, err, "either --file or --key is required")

	_, err = runApp(t, "report", "--file", "a.json", "--key", "k")
	assert.ErrorContains(t, err, "mutually exclusive")

	bad := writeFile(t, "report.json", `{"competition_id": "x"}`)
	_, err = runApp(t, "report", "--file", bad)
	assert.ErrorContains(t, err, "decoding report")

	_, err = runApp(t, "report", "--key", "grading:report:x:y")
	assert.ErrorContains(t, err, "report store disabled")
}

func TestReportCommands_Store(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	t.Setenv(configuration.EnvPrefix+"_REDIS_ENABLED", "true")
	t.Setenv(configuration.EnvPrefix+"_REDIS_ADDR", server.Addr())

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	key, err := reportstore.New(client, 0).Save(context.Background(), sampleReport(t))
	require.NoError(t, err)

	out, err := runApp(t, "report", "--key", key)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "/data/submission.csv", got["submission_path"])

	_, err = runApp(t, "report", "--key", "grading:report:spaceship-titanic:missing")
	assert.ErrorIs(t, err, reportstore.ErrNotFound)

	out, err = runApp(t, "reports", "--competition", "spaceship-titanic", "--limit", "5")
	require.NoError(t, err)
	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "0.95", list[0]["score"])
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in      string
		want    *float64
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "  ", want: nil},
		{in: "0.5", want: ptr(0.5)},
		{in: " -3 ", want: ptr(-3)},
		{in: "1e-3", want: ptr(0.001)},
		{in: "high", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseScore(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func ptr(v float64) *float64 { return &v }

func TestApplyRequestDefaults(t *testing.T) {
	cfg := configuration.GradingConfig{ActivityTimeout: 90 * time.Second, MaxAttempts: 4}

	req := &workflow.GradingRequest{}
	applyRequestDefaults(req, cfg)
	assert.Equal(t, 90, req.ActivityTimeoutSeconds)
	assert.Equal(t, int32(4), req.MaxAttempts)
	assert.NotEmpty(t, req.Submission.ClientIdempotencyKey)

	req = &workflow.GradingRequest{
		Submission:             grading.GradeSubmissionInput{ClientIdempotencyKey: "client-1"},
		ActivityTimeoutSeconds: 30,
		MaxAttempts:            1,
	}
	applyRequestDefaults(req, cfg)
	assert.Equal(t, 30, req.ActivityTimeoutSeconds)
	assert.Equal(t, int32(1), req.MaxAttempts)
	assert.Equal(t, "client-1", req.Submission.ClientIdempotencyKey)
	assert.Equal(t, "grading-client-1", workflowID(req))
}

func TestReadGradingRequest(t *testing.T) {
	path := writeFile(t, "request.json", `{
  "submission": {
    "competition_id": "spaceship-titanic",
    "grader": "accuracy",
    "submission_path": "/data/submission.csv",
    "submission_exists": true,
    "client_idempotency_key": "client-1"
  },
  "max_attempts": 2,
  "skip_store": true
}`)

	req, err := readGradingRequest(path)
	require.NoError(t, err)
	assert.Equal(t, "spaceship-titanic", req.Submission.CompetitionID)
	assert.Equal(t, "accuracy", req.Submission.Grader)
	assert.True(t, req.Submission.SubmissionExists)
	assert.Equal(t, int32(2), req.MaxAttempts)
	assert.True(t, req.SkipStore)

	_, err = readGradingRequest(writeFile(t, "bad.json", "{"))
	assert.ErrorContains(t, err, "decoding grading request")
}
