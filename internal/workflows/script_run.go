package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/terramind/internal/core/domain"
)

// TaskQueue is the default queue served by cmd/worker.
const TaskQueue = "script-runs"

// ScriptRunInput is the input for the script run workflow.
type ScriptRunInput struct {
	Code string
	// Timeout bounds the activity; the worker's own executor timeout should be shorter.
	Timeout time.Duration
}

// ScriptRunWorkflow executes one script on a worker, exactly once.
func ScriptRunWorkflow(ctx workflow.Context, input ScriptRunInput) (*domain.ExecutionResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting script run workflow", "bytes", len(input.Code))

	timeout := input.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: timeout + 15*time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var res domain.ExecutionResult
	if err := workflow.ExecuteActivity(ctx, "ExecuteScript", input.Code).Get(ctx, &res); err != nil {
		logger.Warn("script run failed", "error", err)
		return nil, err
	}

	logger.Info("Script run completed", "exitCode", res.ExitCode)
	return &res, nil
}
