package domain

import (
	"encoding/json"
	"maps"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompetitionReport_ToDict(t *testing.T) {
	r, err := NewCompetitionReport(sampleBase(), ptr(0.95), goldRanking(), false)
	require.NoError(t, err)

	d := r.ToDict()

	assert.Equal(t, "0.95", d["score"])
	assert.Equal(t, 0.9, d["gold_threshold"])
	assert.Equal(t, 0.5, d["median_threshold"])
	assert.Equal(t, true, d["any_medal"])
	assert.Equal(t, true, d["gold_medal"])
	assert.Equal(t, false, d["silver_medal"])
	assert.Equal(t, false, d["is_lower_better"])
	assert.Equal(t, "spaceship-titanic", d["competition_id"])
	assert.Equal(t, "2024-03-14T15:09:26.535897+00:00", d["created_at"])
	assert.Equal(t, "/data/submission.csv", d["submission_path"])
	assert.Len(t, d, 16)
}

func TestCompetitionReport_ToDictNilScore(t *testing.T) {
	r, err := NewCompetitionReport(sampleBase(), nil, goldRanking(), false)
	require.NoError(t, err)

	d := r.ToDict()
	v, ok := d["score"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestCompetitionReport_IntegralScoreEncodesAsFloat(t *testing.T) {
	r, err := NewCompetitionReport(sampleBase(), ptr(5), Ranking{}, false)
	require.NoError(t, err)
	assert.Equal(t, "5.0", r.ToDict()["score"])
}

func TestCompetitionReport_IntegralScoreKeepsIntegerForm(t *testing.T) {
	score := IntScore(5)
	r, err := NewScoredCompetitionReport(sampleBase(), &score, Ranking{}, false)
	require.NoError(t, err)
	assert.True(t, r.ScoreIsIntegral)

	d := r.ToDict()
	assert.Equal(t, "5", d["score"])

	decoded, err := CompetitionReportFromDict(d)
	require.NoError(t, err)
	assert.True(t, decoded.ScoreIsIntegral)
	assert.True(t, decoded.Equal(r))
	assert.Equal(t, "5", decoded.ToDict()["score"])

	d["score"] = "5.0"
	decoded, err = CompetitionReportFromDict(d)
	require.NoError(t, err)
	assert.False(t, decoded.ScoreIsIntegral)
	assert.Equal(t, "5.0", decoded.ToDict()["score"])
}

func TestNewScoredCompetitionReport_FloatAndNil(t *testing.T) {
	score := FloatScore(0.5)
	r, err := NewScoredCompetitionReport(sampleBase(), &score, Ranking{}, false)
	require.NoError(t, err)
	assert.False(t, r.ScoreIsIntegral)
	assert.Equal(t, "0.5", r.ToDict()["score"])

	r, err = NewScoredCompetitionReport(sampleBase(), nil, Ranking{}, false)
	require.NoError(t, err)
	assert.Nil(t, r.Score)
	assert.False(t, r.ScoreIsIntegral)
}

func TestFormatISOTime(t *testing.T) {
	whole := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "2024-01-02T03:04:05+00:00", formatISOTime(whole))

	offset := time.Date(2024, 1, 2, 5, 4, 5, 1000, time.FixedZone("", 2*60*60))
	assert.Equal(t, "2024-01-02T03:04:05.000001+00:00", formatISOTime(offset))
}

func TestParseISOTime(t *testing.T) {
	want := time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC)

	for _, s := range []string{
		"2024-01-02T03:04:05.123456+00:00",
		"2024-01-02T03:04:05.123456Z",
		"2024-01-02T05:04:05.123456+02:00",
		"2024-01-02T03:04:05.123456",
		"2024-01-02 03:04:05.123456",
		"2024-01-02T03:04:05.123456789+00:00",
	} {
		got, err := parseISOTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), "%s parsed as %s", s, got)
	}

	_, err := parseISOTime("yesterday")
	assert.Error(t, err)
}

func TestCompetitionReport_DictRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		score *float64
		rank  Ranking
		lower bool
	}{
		{name: "gold", score: ptr(0.95), rank: goldRanking()},
		{name: "no score", score: nil, rank: goldRanking()},
		{name: "lower is better", score: ptr(0.12345), rank: Ranking{BronzeMedal: true, GoldThreshold: 0.01}, lower: true},
		{name: "long float", score: ptr(0.1 + 0.2), rank: Ranking{}},
		{name: "tiny float", score: ptr(1e-7), rank: Ranking{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewCompetitionReport(sampleBase(), tt.score, tt.rank, tt.lower)
			require.NoError(t, err)

			decoded, err := CompetitionReportFromDict(r.ToDict())
			require.NoError(t, err)
			assert.True(t, r.Equal(decoded), "want %+v, got %+v", r, decoded)
		})
	}
}

func TestCompetitionReport_JSONRoundTrip(t *testing.T) {
	r, err := NewCompetitionReport(sampleBase(), ptr(0.87654), goldRanking(), false)
	require.NoError(t, err)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"score":"0.87654"`)

	var decoded CompetitionReport
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.True(t, r.Equal(decoded))
}

func TestCompetitionReportFromDict_DoesNotMutateInput(t *testing.T) {
	r, err := NewCompetitionReport(sampleBase(), ptr(0.5), Ranking{}, true)
	require.NoError(t, err)

	d := r.ToDict()
	before := maps.Clone(d)

	_, err = CompetitionReportFromDict(d)
	require.NoError(t, err)
	assert.Equal(t, before, d)
}

func TestCompetitionReportFromDict_Errors(t *testing.T) {
	r, err := NewCompetitionReport(sampleBase(), ptr(0.5), Ranking{}, false)
	require.NoError(t, err)

	missing := r.ToDict()
	delete(missing, "gold_threshold")
	_, err = CompetitionReportFromDict(missing)
	require.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "gold_threshold")

	badScore := r.ToDict()
	badScore["score"] = "not-a-number"
	_, err = CompetitionReportFromDict(badScore)
	assert.ErrorIs(t, err, ErrInvalidField)

	badTime := r.ToDict()
	badTime["created_at"] = "soon"
	_, err = CompetitionReportFromDict(badTime)
	assert.ErrorIs(t, err, ErrInvalidField)

	badID := r.ToDict()
	badID["competition_id"] = 42
	_, err = CompetitionReportFromDict(badID)
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestCompetitionReportFromDict_Coercion(t *testing.T) {
	r, err := NewCompetitionReport(sampleBase(), ptr(0.5), Ranking{}, false)
	require.NoError(t, err)

	d := r.ToDict()
	d["score"] = 0.5
	d["gold_threshold"] = "0.9"
	d["gold_medal"] = 1
	d["above_median"] = ""
	d["submission_exists"] = nil

	decoded, err := CompetitionReportFromDict(d)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, *decoded.Score, 0)
	assert.InDelta(t, 0.9, decoded.GoldThreshold, 0)
	assert.True(t, decoded.GoldMedal)
	assert.False(t, decoded.AboveMedian)
	assert.False(t, decoded.SubmissionExists)
}

func TestCodeCompetitionReport_RoundTrip(t *testing.T) {
	classes := "Model"
	metric := "accuracy=0.91"
	r, err := NewCodeCompetitionReport(sampleBase(), CodeAnalysis{DefinedClasses: &classes, TestMetric: &metric})
	require.NoError(t, err)

	d := r.ToDict()
	assert.Equal(t, "Model", d["defined_classes"])
	assert.Nil(t, d["executed_functions"])
	assert.Len(t, d, 12)

	decoded, err := CodeCompetitionReportFromDict(d)
	require.NoError(t, err)
	assert.True(t, r.Equal(decoded))

	b, err := json.Marshal(r)
	require.NoError(t, err)

	var fromJSON CodeCompetitionReport
	require.NoError(t, json.Unmarshal(b, &fromJSON))
	assert.True(t, r.Equal(fromJSON))
}

func TestDecodeReport(t *testing.T) {
	comp, err := NewCompetitionReport(sampleBase(), ptr(0.5), Ranking{}, false)
	require.NoError(t, err)
	code, err := NewCodeCompetitionReport(sampleBase(), CodeAnalysis{})
	require.NoError(t, err)

	got, err := DecodeReport(comp.ToDict())
	require.NoError(t, err)
	assert.Equal(t, ReportKindCompetition, got.Kind())

	got, err = DecodeReport(code.ToDict())
	require.NoError(t, err)
	assert.Equal(t, ReportKindCode, got.Kind())

	b, err := json.Marshal(code)
	require.NoError(t, err)
	got, err = DecodeReportJSON(b)
	require.NoError(t, err)
	decodedCode, ok := got.(CodeCompetitionReport)
	require.True(t, ok)
	assert.True(t, code.Equal(decodedCode))

	_, err = DecodeReport(map[string]any{"competition_id": "x"})
	assert.ErrorIs(t, err, ErrUnknownReportKind)

	_, err = DecodeReportJSON([]byte("null"))
	assert.ErrorIs(t, err, ErrInvalidField)

	_, err = DecodeReportJSON([]byte("{"))
	assert.Error(t, err)
}

func TestEncodeReportJSON(t *testing.T) {
	r, err := NewCompetitionReport(sampleBase(), ptr(0.95), goldRanking(), false)
	require.NoError(t, err)

	b, err := EncodeReportJSON(r)
	require.NoError(t, err)
	decoded, err := DecodeReportJSON(b)
	require.NoError(t, err)
	assert.True(t, r.Equal(decoded.(CompetitionReport)))
}

func TestEncodeReportJSON_NonFiniteThreshold(t *testing.T) {
	ranking := goldRanking()
	ranking.GoldThreshold = math.NaN()
	ranking.MedianThreshold = math.Inf(1)
	r, err := NewCompetitionReport(sampleBase(), ptr(0.95), ranking, false)
	require.NoError(t, err)

	_, err = EncodeReportJSON(r)
	require.ErrorIs(t, err, ErrUnencodableReport)
}
