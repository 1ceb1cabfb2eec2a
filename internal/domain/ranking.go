package domain

// Leaderboard size bands for medal thresholds, following the public
// Kaggle progression rules. These are policy constants.
const (
	smallCompetitionTeams  = 100
	mediumCompetitionTeams = 250
	largeCompetitionTeams  = 1000

	fixedGoldPosition     = 10
	fixedSilverPosition   = 50
	fixedBronzePosition   = 100
	largeGoldPositionRate = 0.002
)

// MedalThresholds holds the scores a candidate must meet or beat for each
// medal, plus the leaderboard median. Thresholds depend only on the
// leaderboard, never on the candidate.
type MedalThresholds struct {
	Gold   float64 `json:"gold_threshold"`
	Silver float64 `json:"silver_threshold"`
	Bronze float64 `json:"bronze_threshold"`
	Median float64 `json:"median_threshold"`
}

// Ranking is the fixed-shape result of ranking a score against a
// leaderboard: three mutually exclusive medal flags, an independent
// above-median flag, and the four thresholds.
type Ranking struct {
	GoldMedal   bool `json:"gold_medal"`
	SilverMedal bool `json:"silver_medal"`
	BronzeMedal bool `json:"bronze_medal"`
	AboveMedian bool `json:"above_median"`

	GoldThreshold   float64 `json:"gold_threshold"`
	SilverThreshold float64 `json:"silver_threshold"`
	BronzeThreshold float64 `json:"bronze_threshold"`
	MedianThreshold float64 `json:"median_threshold"`
}

// AnyMedal reports whether any of gold, silver or bronze was awarded.
func (r Ranking) AnyMedal() bool { return r.GoldMedal || r.SilverMedal || r.BronzeMedal }

// Thresholds returns the threshold half of the ranking.
func (r Ranking) Thresholds() MedalThresholds {
	return MedalThresholds{
		Gold:   r.GoldThreshold,
		Silver: r.SilverThreshold,
		Bronze: r.BronzeThreshold,
		Median: r.MedianThreshold,
	}
}

// MedalPositions holds the 1-based leaderboard positions whose scores
// become the gold, silver and bronze thresholds.
type MedalPositions struct {
	Gold   int
	Silver int
	Bronze int
}

// MedalPositionsFor selects the threshold positions for a leaderboard of n
// entries. Fractional positions are truncated the way a float-to-int
// conversion does, then floored at 1.
func MedalPositionsFor(n int) (MedalPositions, error) {
	teams := float64(n)
	switch {
	case n < 1:
		return MedalPositions{}, ErrEmptyLeaderboard
	case n < smallCompetitionTeams:
		return MedalPositions{
			Gold:   atLeastOne(teams * 0.1),
			Silver: atLeastOne(teams * 0.2),
			Bronze: atLeastOne(teams * 0.4),
		}, nil
	case n < mediumCompetitionTeams:
		return MedalPositions{
			Gold:   fixedGoldPosition,
			Silver: atLeastOne(teams * 0.2),
			Bronze: atLeastOne(teams * 0.4),
		}, nil
	case n < largeCompetitionTeams:
		return MedalPositions{
			Gold:   fixedGoldPosition + int(teams*largeGoldPositionRate),
			Silver: fixedSilverPosition,
			Bronze: fixedBronzePosition,
		}, nil
	default:
		return MedalPositions{
			Gold:   fixedGoldPosition + int(teams*largeGoldPositionRate),
			Silver: atLeastOne(teams * 0.05),
			Bronze: atLeastOne(teams * 0.1),
		}, nil
	}
}

func atLeastOne(position float64) int { return max(1, int(position)) }

// ComputeThresholds returns the medal and median thresholds for a leaderboard.
func ComputeThresholds(lb Leaderboard) (MedalThresholds, error) {
	positions, err := MedalPositionsFor(lb.Len())
	if err != nil {
		return MedalThresholds{}, err
	}

	var t MedalThresholds
	if t.Gold, err = lb.ScoreAt(positions.Gold); err != nil {
		return MedalThresholds{}, err
	}
	if t.Silver, err = lb.ScoreAt(positions.Silver); err != nil {
		return MedalThresholds{}, err
	}
	if t.Bronze, err = lb.ScoreAt(positions.Bronze); err != nil {
		return MedalThresholds{}, err
	}
	if t.Median, err = lb.Median(); err != nil {
		return MedalThresholds{}, err
	}
	return t, nil
}

// RankScore ranks an optional candidate score against a leaderboard.
//
// With a nil score every flag is false and only the thresholds are filled.
// Otherwise medals are awarded in priority order gold, silver, bronze using
// meets-or-beats comparison in the leaderboard's direction; AboveMedian uses
// a strict comparison and is independent of the medal flags.
//
// A NaN score fails every comparison, so it earns no medal and is not above
// the median. Errors are contract violations (an empty leaderboard) and
// must not be treated as a no-score outcome.
func RankScore(score *float64, lb Leaderboard) (Ranking, error) {
	lowerIsBetter, err := lb.IsLowerBetter()
	if err != nil {
		return Ranking{}, err
	}

	t, err := ComputeThresholds(lb)
	if err != nil {
		return Ranking{}, err
	}

	r := Ranking{
		GoldThreshold:   t.Gold,
		SilverThreshold: t.Silver,
		BronzeThreshold: t.Bronze,
		MedianThreshold: t.Median,
	}
	if score == nil {
		return r, nil
	}

	s := *score
	meets := func(threshold float64) bool {
		if lowerIsBetter {
			return s <= threshold
		}
		return s >= threshold
	}

	r.GoldMedal = meets(t.Gold)
	r.SilverMedal = !r.GoldMedal && meets(t.Silver)
	r.BronzeMedal = !r.GoldMedal && !r.SilverMedal && meets(t.Bronze)
	if lowerIsBetter {
		r.AboveMedian = s < t.Median
	} else {
		r.AboveMedian = s > t.Median
	}

	return r, nil
}
