package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/terramind/internal/core/domain"
)

type fakeRunner struct {
	calls int
	fn    func(code string) (*domain.ExecutionResult, error)
}

func (f *fakeRunner) Execute(_ context.Context, code string) (*domain.ExecutionResult, error) {
	f.calls++
	return f.fn(code)
}

func TestScriptRunWorkflow_Success(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	runner := &fakeRunner{fn: func(code string) (*domain.ExecutionResult, error) {
		return &domain.ExecutionResult{Stdout: "ran: " + code, ExitCode: 0, TileURL: "https://x/{z}/{x}/{y}"}, nil
	}}
	env.RegisterActivity(&ScriptActivities{Runner: runner})

	env.ExecuteWorkflow(ScriptRunWorkflow, ScriptRunInput{Code: "print(1)", Timeout: time.Second})
	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("unexpected workflow error: %v", err)
	}
	var res domain.ExecutionResult
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatal(err)
	}
	if res.Stdout != "ran: print(1)" || res.TileURL != "https://x/{z}/{x}/{y}" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestScriptRunWorkflow_TimeoutNotRetried(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	runner := &fakeRunner{fn: func(string) (*domain.ExecutionResult, error) {
		return nil, domain.ErrExecutionTimeout
	}}
	env.RegisterActivity(&ScriptActivities{Runner: runner})

	env.ExecuteWorkflow(ScriptRunWorkflow, ScriptRunInput{Code: "while True: pass"})
	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	err := env.GetWorkflowError()
	if err == nil {
		t.Fatal("expected workflow error")
	}
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) || appErr.Type() != ErrTypeTimeout {
		t.Errorf("expected %s application error, got %v", ErrTypeTimeout, err)
	}
	if runner.calls != 1 {
		t.Errorf("expected exactly one attempt, got %d", runner.calls)
	}
}
