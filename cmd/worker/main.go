package main

import (
	"log"
	"log/slog"
	"time"

	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/terramind/internal/adapters/executor"
	temporaladapter "github.com/samirrijal/terramind/internal/adapters/temporal"
	"github.com/samirrijal/terramind/internal/pkg/config"
	"github.com/samirrijal/terramind/internal/pkg/logging"
	"github.com/samirrijal/terramind/internal/workflows"
)

func main() {
	cfg, err := config.Load("terramind-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	runner, err := executor.NewLocal(executor.Config{
		Interpreter:    cfg.Execution.Interpreter,
		Timeout:        time.Duration(cfg.Execution.Timeout) * time.Second,
		PreludePath:    cfg.Execution.PreludePath,
		TileURLPattern: cfg.Execution.TileURLPattern,
		WorkDir:        cfg.Execution.WorkDir,
		MaxOutputBytes: cfg.Execution.MaxOutputBytes,
	})
	if err != nil {
		log.Fatalf("executor: %v", err)
	}

	c, err := temporaladapter.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	w.RegisterWorkflow(workflows.ScriptRunWorkflow)
	w.RegisterActivity(&workflows.ScriptActivities{Runner: runner})

	slog.Info("script worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
