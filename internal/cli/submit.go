package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	urfave "github.com/urfave/cli/v3"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"

	"github.com/ahrav/go-grader/internal/configuration"
	"github.com/ahrav/go-grader/internal/workflow"
)

const workflowIDPrefix = "grading-"

const (
	requestFileFlag = "request"
	waitFlag        = "wait"
)

func submitCommand() *urfave.Command {
	return &urfave.Command{
		Name:      "submit",
		Usage:     "Start a grading workflow",
		UsageText: `grader submit --request request.json --wait`,
		Action:    cmdSubmit,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:     requestFileFlag,
				Usage:    "Path to a grading request JSON document",
				Required: true,
			},
			&urfave.BoolFlag{
				Name:  waitFlag,
				Usage: "Waits for the workflow and prints its result",
			},
		},
	}
}

type submitResult struct {
	WorkflowID string                  `json:"workflow_id"      yaml:"workflow_id"`
	RunID      string                  `json:"run_id"           yaml:"run_id"`
	Result     *workflow.GradingResult `json:"result,omitempty" yaml:"result,omitempty"`
}

func cmdSubmit(ctx context.Context, cmd *urfave.Command) error {
	app, err := getConfig(ctx)
	if err != nil {
		return err
	}

	req, err := readGradingRequest(cmd.String(requestFileFlag))
	if err != nil {
		return err
	}
	applyRequestDefaults(req, app.Config.Grading)
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid grading request: %w", err)
	}

	c, err := dialTemporal(app.Config.Temporal, app.Logger)
	if err != nil {
		return err
	}
	defer c.Close()

	opts := client.StartWorkflowOptions{
		ID:        workflowID(req),
		TaskQueue: app.Config.Temporal.TaskQueue,
	}
	run, err := c.ExecuteWorkflow(ctx, opts, workflow.GradingWorkflow, *req)
	if err != nil {
		return fmt.Errorf("starting grading workflow: %w", err)
	}
	app.Logger.Info("Grading workflow started",
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
		"competition_id", req.Submission.CompetitionID)

	res := submitResult{WorkflowID: run.GetID(), RunID: run.GetRunID()}
	if cmd.Bool(waitFlag) {
		var result workflow.GradingResult
		if err := run.Get(ctx, &result); err != nil {
			return fmt.Errorf("grading workflow %s failed: %w", run.GetID(), err)
		}
		res.Result = &result
	}
	return app.encode(res)
}

func readGradingRequest(path string) (*workflow.GradingRequest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading grading request: %w", err)
	}
	var req workflow.GradingRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return nil, fmt.Errorf("decoding grading request %s: %w", path, err)
	}
	return &req, nil
}

// applyRequestDefaults fills the attempt bounds the request leaves unset
// from the grading config.
func applyRequestDefaults(req *workflow.GradingRequest, cfg configuration.GradingConfig) {
	if req.ActivityTimeoutSeconds <= 0 && cfg.ActivityTimeout > 0 {
		req.ActivityTimeoutSeconds = int(cfg.ActivityTimeout.Seconds())
	}
	if req.MaxAttempts <= 0 && cfg.MaxAttempts > 0 {
		req.MaxAttempts = cfg.MaxAttempts
	}
	if req.Submission.ClientIdempotencyKey == "" {
		req.Submission.ClientIdempotencyKey = uuid.NewString()
	}
}

// workflowID derives the workflow ID from the client idempotency key, so a
// resubmitted request maps onto the same workflow.
func workflowID(req *workflow.GradingRequest) string {
	return workflowIDPrefix + req.Submission.ClientIdempotencyKey
}

func dialTemporal(cfg configuration.TemporalConfig, logger *slog.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    log.NewStructuredLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to temporal at %s: %w", cfg.HostPort, err)
	}
	return c, nil
}
