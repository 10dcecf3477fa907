// Package temporal runs scripts on a remote worker through a Temporal workflow.
package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/terramind/internal/core/domain"
	"github.com/samirrijal/terramind/internal/workflows"
)

// Executor satisfies ports.ScriptExecutor by starting ScriptRunWorkflow and
// waiting for its result.
type Executor struct {
	client    client.Client
	taskQueue string
	timeout   time.Duration
}

// NewExecutor creates an Executor. timeout is the script time limit the
// workflow is given.
func NewExecutor(c client.Client, taskQueue string, timeout time.Duration) *Executor {
	if taskQueue == "" {
		taskQueue = workflows.TaskQueue
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Executor{client: c, taskQueue: taskQueue, timeout: timeout}
}

// Dial connects to the Temporal frontend.
func Dial(hostPort, namespace string) (client.Client, error) {
	c, err := client.Dial(client.Options{HostPort: hostPort, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("temporal client: %w", err)
	}
	return c, nil
}

func (e *Executor) Execute(ctx context.Context, code string) (*domain.ExecutionResult, error) {
	opts := client.StartWorkflowOptions{
		ID:                       "script-run-" + uuid.NewString(),
		TaskQueue:                e.taskQueue,
		WorkflowExecutionTimeout: e.timeout + 30*time.Second,
	}
	run, err := e.client.ExecuteWorkflow(ctx, opts, workflows.ScriptRunWorkflow,
		workflows.ScriptRunInput{Code: code, Timeout: e.timeout})
	if err != nil {
		return nil, fmt.Errorf("start script workflow: %w", err)
	}

	var res domain.ExecutionResult
	if err := run.Get(ctx, &res); err != nil {
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) && appErr.Type() == workflows.ErrTypeTimeout {
			return nil, fmt.Errorf("%w (workflow %s)", domain.ErrExecutionTimeout, run.GetID())
		}
		var timeoutErr *temporal.TimeoutError
		if errors.As(err, &timeoutErr) {
			return nil, fmt.Errorf("%w (workflow %s)", domain.ErrExecutionTimeout, run.GetID())
		}
		return nil, fmt.Errorf("script workflow %s: %w", run.GetID(), err)
	}
	return &res, nil
}
