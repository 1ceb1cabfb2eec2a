// Package cli implements the grader command line: ranking scores against a
// leaderboard, inspecting stored reports, submitting grading workflows and
// running the grading worker.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-grader/internal/configuration"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// Global flag names.
const (
	configFlag   = "config"
	logLevelFlag = "log-level"
	formatFlag   = "format"
)

var (
	version = "v0.0.1-default"
	commit  = ""
)

type appConfigKey struct{}

type appConfig struct {
	Config *configuration.Config
	Logger *slog.Logger
	Format string
	Out    io.Writer
}

func getConfig(ctx context.Context) (*appConfig, error) {
	cfg, ok := ctx.Value(appConfigKey{}).(*appConfig)
	if !ok {
		return nil, errors.New("cli not initialized")
	}
	return cfg, nil
}

// Execute creates and runs the CLI application.
func Execute() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// newApp builds a fresh command tree; urfave flags keep parsed state, so
// trees are never shared between runs.
func newApp() *urfave.Command {
	return &urfave.Command{
		Name:            "grader",
		Version:         fmt.Sprintf("%s (%s)", version, commit),
		Usage:           "Grade competition submissions and rank them against leaderboards",
		HideHelpCommand: true,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:    configFlag,
				Usage:   "Path to the YAML config file (optional)",
				Sources: urfave.EnvVars(configuration.EnvPrefix + "_CONFIG"),
			},
			&urfave.StringFlag{
				Name:  logLevelFlag,
				Usage: "Overrides the configured log level [debug, info, warn, error]",
			},
			&urfave.StringFlag{
				Name:  formatFlag,
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
		},
		Commands: []*urfave.Command{
			rankCommand(),
			reportCommand(),
			reportsCommand(),
			submitCommand(),
			workerCommand(),
		},
		Before: before,
	}
}

func before(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
	cfg, err := configuration.Load(cmd.String(configFlag))
	if err != nil {
		return ctx, err
	}
	if lvl := cmd.String(logLevelFlag); lvl != "" {
		cfg.LogLevel = lvl
	}

	root := cmd.Root()
	errOut := root.ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}
	out := root.Writer
	if out == nil {
		out = os.Stdout
	}

	logger := cfg.NewLogger(errOut)
	slog.SetDefault(logger)

	format := formatJSON
	switch f := cmd.String(formatFlag); f {
	case formatYAML, "yml":
		format = formatYAML
	case formatJSON, "":
	default:
		return ctx, fmt.Errorf("unsupported output format: %s", f)
	}

	return context.WithValue(ctx, appConfigKey{}, &appConfig{
		Config: cfg,
		Logger: logger,
		Format: format,
		Out:    out,
	}), nil
}

func (c *appConfig) encode(v any) error {
	if c.Format == formatYAML {
		e := yaml.NewEncoder(c.Out)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(c.Out)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
