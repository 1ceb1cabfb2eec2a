package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	urfave "github.com/urfave/cli/v3"

	"github.com/ahrav/go-grader/internal/domain"
)

const (
	leaderboardFlag = "leaderboard"
	scoreFlag       = "score"
)

func rankCommand() *urfave.Command {
	return &urfave.Command{
		Name:  "rank",
		Usage: "Rank a score against a leaderboard",
		UsageText: `grader rank --leaderboard leaderboard.csv --score 0.91234
   grader --format yaml rank --leaderboard leaderboard.csv`,
		Action: cmdRank,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:     leaderboardFlag,
				Usage:    "Path to the leaderboard CSV (needs a score column, sorted best to worst)",
				Required: true,
			},
			&urfave.StringFlag{
				Name:  scoreFlag,
				Usage: "Candidate score; omit to print thresholds only",
			},
		},
	}
}

type rankResult struct {
	Entries       int      `json:"entries"         yaml:"entries"`
	IsLowerBetter bool     `json:"is_lower_better" yaml:"is_lower_better"`
	Score         *float64 `json:"score"           yaml:"score"`

	GoldMedal   bool `json:"gold_medal"   yaml:"gold_medal"`
	SilverMedal bool `json:"silver_medal" yaml:"silver_medal"`
	BronzeMedal bool `json:"bronze_medal" yaml:"bronze_medal"`
	AnyMedal    bool `json:"any_medal"    yaml:"any_medal"`
	AboveMedian bool `json:"above_median" yaml:"above_median"`

	GoldThreshold   float64 `json:"gold_threshold"   yaml:"gold_threshold"`
	SilverThreshold float64 `json:"silver_threshold" yaml:"silver_threshold"`
	BronzeThreshold float64 `json:"bronze_threshold" yaml:"bronze_threshold"`
	MedianThreshold float64 `json:"median_threshold" yaml:"median_threshold"`
}

func cmdRank(ctx context.Context, cmd *urfave.Command) error {
	app, err := getConfig(ctx)
	if err != nil {
		return err
	}

	score, err := parseScore(cmd.String(scoreFlag))
	if err != nil {
		return err
	}

	path := cmd.String(leaderboardFlag)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening leaderboard: %w", err)
	}
	defer f.Close()

	lb, err := domain.LoadLeaderboardCSV(f)
	if err != nil {
		return fmt.Errorf("loading leaderboard %s: %w", path, err)
	}

	res, err := rank(score, lb)
	if err != nil {
		return err
	}
	app.Logger.Debug("ranked score", "leaderboard", path, "entries", res.Entries, "any_medal", res.AnyMedal)
	return app.encode(res)
}

func rank(score *float64, lb domain.Leaderboard) (*rankResult, error) {
	lowerIsBetter, err := lb.IsLowerBetter()
	if err != nil {
		return nil, err
	}
	r, err := domain.RankScore(score, lb)
	if err != nil {
		return nil, fmt.Errorf("ranking score: %w", err)
	}
	return &rankResult{
		Entries:         lb.Len(),
		IsLowerBetter:   lowerIsBetter,
		Score:           score,
		GoldMedal:       r.GoldMedal,
		SilverMedal:     r.SilverMedal,
		BronzeMedal:     r.BronzeMedal,
		AnyMedal:        r.AnyMedal(),
		AboveMedian:     r.AboveMedian,
		GoldThreshold:   r.GoldThreshold,
		SilverThreshold: r.SilverThreshold,
		BronzeThreshold: r.BronzeThreshold,
		MedianThreshold: r.MedianThreshold,
	}, nil
}

// parseScore returns nil for an empty string.
func parseScore(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid score %q: %w", s, err)
	}
	return &v, nil
}
