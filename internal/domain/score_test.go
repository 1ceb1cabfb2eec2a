package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_Rounded(t *testing.T) {
	tests := []struct {
		name  string
		score Score
		want  float64
	}{
		{name: "rounds up", score: FloatScore(0.123456), want: 0.12346},
		{name: "binary tie rounds down", score: FloatScore(0.123455), want: 0.12345},
		{name: "rounds up past one", score: FloatScore(1.000005), want: 1.00001},
		{name: "tiny value", score: FloatScore(0.000015), want: 0.00002},
		{name: "already short", score: FloatScore(0.5), want: 0.5},
		{name: "negative", score: FloatScore(-2.718281828), want: -2.71828},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.score.Rounded(ScorePrecision)
			assert.False(t, got.IsIntegral())
			assert.InDelta(t, tt.want, got.Float64(), 0)
		})
	}
}

func TestScore_RoundedLeavesIntegralAndNonFinite(t *testing.T) {
	i := IntScore(1234567)
	assert.Equal(t, i, i.Rounded(ScorePrecision))

	nan := FloatScore(math.NaN()).Rounded(ScorePrecision)
	assert.True(t, math.IsNaN(nan.Float64()))

	inf := FloatScore(math.Inf(1)).Rounded(ScorePrecision)
	assert.True(t, math.IsInf(inf.Float64(), 1))
}

func TestScore_String(t *testing.T) {
	assert.Equal(t, "5", IntScore(5).String())
	assert.Equal(t, "5.0", FloatScore(5).String())
	assert.Equal(t, "0.85", FloatScore(0.85).String())
}

func TestScoreValue(t *testing.T) {
	assert.Nil(t, ScoreValue(nil))

	s := IntScore(3)
	v := ScoreValue(&s)
	if assert.NotNil(t, v) {
		assert.InDelta(t, 3, *v, 0)
	}
}

func TestFormatPyFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{in: 0.5, want: "0.5"},
		{in: 5, want: "5.0"},
		{in: -3, want: "-3.0"},
		{in: 0, want: "0.0"},
		{in: math.Copysign(0, -1), want: "-0.0"},
		{in: 0.1 + 0.2, want: "0.30000000000000004"},
		{in: 0.0001, want: "0.0001"},
		{in: 0.00001, want: "1e-05"},
		{in: 123456789, want: "123456789.0"},
		{in: 1e16, want: "1e+16"},
		{in: 1.5e300, want: "1.5e+300"},
		{in: math.NaN(), want: "nan"},
		{in: math.Inf(1), want: "inf"},
		{in: math.Inf(-1), want: "-inf"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatPyFloat(tt.in))
		})
	}
}
