package cli

import (
	"context"

	urfave "github.com/urfave/cli/v3"

	"github.com/ahrav/go-grader/internal/grading"
	"github.com/ahrav/go-grader/internal/worker"
)

func workerCommand() *urfave.Command {
	return &urfave.Command{
		Name:   "worker",
		Usage:  "Run the grading worker until interrupted",
		Action: cmdWorker,
	}
}

func cmdWorker(ctx context.Context, _ *urfave.Command) error {
	app, err := getConfig(ctx)
	if err != nil {
		return err
	}
	return worker.Run(ctx, app.Config, grading.DefaultRegistry, app.Logger)
}
