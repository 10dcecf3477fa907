package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/terramind/internal/core/domain"
	"github.com/samirrijal/terramind/internal/core/ports"
)

// ErrTypeTimeout marks an ApplicationError caused by a script timeout.
const ErrTypeTimeout = "ScriptExecutionTimeout"

// ScriptActivities holds the activity implementations for script runs.
type ScriptActivities struct {
	Runner ports.ScriptExecutor
}

// ExecuteScript runs code on the worker host. Failures are never retried:
// a script is re-run only when the user asks for it.
func (a *ScriptActivities) ExecuteScript(ctx context.Context, code string) (*domain.ExecutionResult, error) {
	logger := activity.GetLogger(ctx)

	res, err := a.Runner.Execute(ctx, code)
	if errors.Is(err, domain.ErrExecutionTimeout) {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeTimeout, err)
	}
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(fmt.Sprintf("execute script: %v", err), "ScriptExecutionFailed", err)
	}
	logger.Info("script finished", "exitCode", res.ExitCode, "duration", res.Duration)
	return res, nil
}
