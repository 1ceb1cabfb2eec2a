package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBase() ReportBase {
	return ReportBase{
		CompetitionID:    "spaceship-titanic",
		SubmissionExists: true,
		ValidSubmission:  true,
		CreatedAt:        time.Date(2024, 3, 14, 15, 9, 26, 535897932, time.UTC),
		SubmissionPath:   "/data/submission.csv",
	}
}

func goldRanking() Ranking {
	return Ranking{
		GoldMedal:       true,
		AboveMedian:     true,
		GoldThreshold:   0.9,
		SilverThreshold: 0.8,
		BronzeThreshold: 0.7,
		MedianThreshold: 0.5,
	}
}

func TestNewCompetitionReport(t *testing.T) {
	score := 0.95
	r, err := NewCompetitionReport(sampleBase(), &score, goldRanking(), false)
	require.NoError(t, err)

	assert.Equal(t, ReportKindCompetition, r.Kind())
	assert.True(t, r.AnyMedal)
	assert.True(t, r.GoldMedal)
	require.NotNil(t, r.Score)
	assert.InDelta(t, 0.95, *r.Score, 0)

	score = 0.1
	assert.InDelta(t, 0.95, *r.Score, 0, "report must not alias the caller's score")

	assert.Equal(t, time.UTC, r.CreatedAt.Location())
	assert.Equal(t, 535897000, r.CreatedAt.Nanosecond())
}

func TestNewCompetitionReport_NilScoreClearsFlags(t *testing.T) {
	base := sampleBase()
	base.ValidSubmission = false

	r, err := NewCompetitionReport(base, nil, goldRanking(), false)
	require.NoError(t, err)

	assert.Nil(t, r.Score)
	assert.False(t, r.AnyMedal)
	assert.False(t, r.GoldMedal)
	assert.False(t, r.AboveMedian)
	assert.InDelta(t, 0.9, r.GoldThreshold, 0)
}

func TestNewCompetitionReport_RequiresFields(t *testing.T) {
	base := sampleBase()
	base.CompetitionID = ""
	_, err := NewCompetitionReport(base, nil, Ranking{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CompetitionID")

	base = sampleBase()
	base.CreatedAt = time.Time{}
	_, err = NewCompetitionReport(base, nil, Ranking{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CreatedAt")
}

func TestCompetitionReport_ValidateRejectsMedalWithoutScore(t *testing.T) {
	r := CompetitionReport{ReportBase: sampleBase(), Ranking: Ranking{SilverMedal: true}}
	assert.ErrorIs(t, r.Validate(), ErrInvalidScore)
}

func TestCompetitionReport_Equal(t *testing.T) {
	a, err := NewCompetitionReport(sampleBase(), ptr(0.95), goldRanking(), false)
	require.NoError(t, err)

	shifted := sampleBase()
	shifted.CreatedAt = shifted.CreatedAt.In(time.FixedZone("UTC+2", 2*60*60))
	b, err := NewCompetitionReport(shifted, ptr(0.95), goldRanking(), false)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	c, err := NewCompetitionReport(sampleBase(), ptr(0.94), goldRanking(), false)
	require.NoError(t, err)
	assert.False(t, a.Equal(c))

	d, err := NewCompetitionReport(sampleBase(), nil, goldRanking(), false)
	require.NoError(t, err)
	assert.False(t, a.Equal(d))
}

func TestNewCodeCompetitionReport(t *testing.T) {
	classes := "Model,Trainer"
	r, err := NewCodeCompetitionReport(sampleBase(), CodeAnalysis{DefinedClasses: &classes})
	require.NoError(t, err)

	assert.Equal(t, ReportKindCode, r.Kind())
	require.NotNil(t, r.DefinedClasses)
	assert.Equal(t, "Model,Trainer", *r.DefinedClasses)
	assert.Nil(t, r.TestMetric)

	classes = "changed"
	assert.Equal(t, "Model,Trainer", *r.DefinedClasses)

	other, err := NewCodeCompetitionReport(sampleBase(), CodeAnalysis{})
	require.NoError(t, err)
	assert.False(t, r.Equal(other))
	assert.True(t, r.Equal(r))
}
