package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	urfave "github.com/urfave/cli/v3"

	"github.com/ahrav/go-grader/internal/configuration"
	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/internal/reportstore"
)

const reportListLimitDefault = 20

const (
	reportFileFlag  = "file"
	reportKeyFlag   = "key"
	competitionFlag = "competition"
	reportLimitFlag = "limit"
)

func reportCommand() *urfave.Command {
	return &urfave.Command{
		Name:  "report",
		Usage: "Decode and print a grading report",
		UsageText: `grader report --file report.json
   grader report --key grading:report:spaceship-titanic:0f3a9c1d2e4b5a67`,
		Action: cmdReport,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:  reportFileFlag,
				Usage: "Path to a report JSON document",
			},
			&urfave.StringFlag{
				Name:  reportKeyFlag,
				Usage: "Key of a report in the report store",
			},
		},
	}
}

func reportsCommand() *urfave.Command {
	return &urfave.Command{
		Name:   "reports",
		Usage:  "List stored reports of a competition, newest first",
		Action: cmdReports,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:     competitionFlag,
				Usage:    "Competition ID",
				Required: true,
			},
			&urfave.IntFlag{
				Name:  reportLimitFlag,
				Usage: "Limits number of reports returned",
				Value: reportListLimitDefault,
			},
		},
	}
}

func cmdReport(ctx context.Context, cmd *urfave.Command) error {
	app, err := getConfig(ctx)
	if err != nil {
		return err
	}

	file, key := cmd.String(reportFileFlag), cmd.String(reportKeyFlag)
	var report domain.Report
	switch {
	case file != "" && key != "":
		return errors.New("--file and --key are mutually exclusive")
	case file != "":
		if report, err = readReportFile(file); err != nil {
			return err
		}
	case key != "":
		store, closeStore, err := openStore(ctx, app.Config)
		if err != nil {
			return err
		}
		defer closeStore()
		if report, err = store.Get(ctx, key); err != nil {
			return fmt.Errorf("fetching report %s: %w", key, err)
		}
	default:
		return errors.New("either --file or --key is required")
	}

	return app.encode(report.ToDict())
}

func cmdReports(ctx context.Context, cmd *urfave.Command) error {
	app, err := getConfig(ctx)
	if err != nil {
		return err
	}

	limit := int64(cmd.Int(reportLimitFlag))
	if limit <= 0 {
		limit = reportListLimitDefault
	}

	store, closeStore, err := openStore(ctx, app.Config)
	if err != nil {
		return err
	}
	defer closeStore()

	competitionID := cmd.String(competitionFlag)
	reports, err := store.List(ctx, competitionID, limit)
	if err != nil {
		return fmt.Errorf("listing reports of %s: %w", competitionID, err)
	}

	list := make([]map[string]any, len(reports))
	for i, r := range reports {
		list[i] = r.ToDict()
	}
	return app.encode(list)
}

func readReportFile(path string) (domain.Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	report, err := domain.DecodeReportJSON(b)
	if err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", path, err)
	}
	return report, nil
}

func openStore(ctx context.Context, cfg *configuration.Config) (*reportstore.Store, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, nil, errors.New("report store disabled, set redis.enabled")
	}
	rdb, err := reportstore.NewClient(ctx, reportstore.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, err
	}
	return reportstore.New(rdb, cfg.Redis.ReportTTL), func() { _ = rdb.Close() }, nil
}
