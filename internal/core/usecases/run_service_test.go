package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/samirrijal/terramind/internal/core/domain"
	"github.com/samirrijal/terramind/internal/core/mapsync"
	"github.com/samirrijal/terramind/internal/core/usecases"
)

const pointCollection = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[10,20]}}]}`

func newRunService(exec *mockExecutor, pub *mockPublisher) *usecases.RunService {
	store := mapsync.NewSessionStore(mapsync.NewSynchronizer(mapsync.DefaultOptions()), mapsync.SessionLimits{})
	if pub == nil {
		return usecases.NewRunService(exec, store, nil)
	}
	return usecases.NewRunService(exec, store, pub)
}

func hasLayer(state domain.MapState, id string) bool {
	for _, l := range state.Layers {
		if l, ok := l.(mapsync.Layer); ok && l.ID == id {
			return true
		}
	}
	return false
}

func TestRunService_VectorRun(t *testing.T) {
	var gotCode string
	exec := &mockExecutor{executeFn: func(_ context.Context, code string) (*domain.ExecutionResult, error) {
		gotCode = code
		return &domain.ExecutionResult{Stdout: "loading...\n" + pointCollection + "\n"}, nil
	}}
	pub := &mockPublisher{}
	svc := newRunService(exec, pub)

	out, err := svc.Run(context.Background(), "s1", "print(fc)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCode != "print(fc)" {
		t.Errorf("executor got %q", gotCode)
	}
	if out.Payload.Kind != domain.PayloadVector {
		t.Fatalf("expected vector payload, got %s", out.Payload.Kind)
	}
	if out.RunID == "" {
		t.Error("expected run id")
	}
	if len(out.Commands) == 0 {
		t.Error("expected map commands")
	}
	if _, ok := out.Map.Sources[mapsync.VectorSourceID]; !ok {
		t.Errorf("expected %s source in map state", mapsync.VectorSourceID)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.SessionID != "s1" || ev.RunID != out.RunID || ev.Kind != domain.PayloadVector {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestRunService_RasterReplacesVector(t *testing.T) {
	outputs := []string{
		pointCollection,
		"Tile URL: https://earthengine.googleapis.com/v1/maps/abc/tiles/{z}/{x}/{y}\n",
	}
	i := 0
	exec := &mockExecutor{executeFn: func(context.Context, string) (*domain.ExecutionResult, error) {
		res := &domain.ExecutionResult{Stdout: outputs[i]}
		i++
		return res, nil
	}}
	svc := newRunService(exec, nil)

	if _, err := svc.Run(context.Background(), "s1", "a"); err != nil {
		t.Fatal(err)
	}
	out, err := svc.Run(context.Background(), "s1", "b")
	if err != nil {
		t.Fatal(err)
	}
	if out.Payload.Kind != domain.PayloadRaster {
		t.Fatalf("expected raster, got %s", out.Payload.Kind)
	}
	if _, ok := out.Map.Sources[mapsync.VectorSourceID]; ok {
		t.Error("vector source must be removed by a raster run")
	}
	if !hasLayer(out.Map, mapsync.RasterID) {
		t.Error("expected raster layer")
	}
}

func TestRunService_NonZeroExitIsAResult(t *testing.T) {
	exec := &mockExecutor{executeFn: func(context.Context, string) (*domain.ExecutionResult, error) {
		return &domain.ExecutionResult{Stderr: "Traceback", ExitCode: 1}, nil
	}}
	out, err := newRunService(exec, nil).Run(context.Background(), "s1", "boom()")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Result.ExitCode != 1 || out.Payload.Kind != domain.PayloadNone {
		t.Errorf("unexpected outcome: exit=%d kind=%s", out.Result.ExitCode, out.Payload.Kind)
	}
}

func TestRunService_Errors(t *testing.T) {
	timeout := &mockExecutor{executeFn: func(context.Context, string) (*domain.ExecutionResult, error) {
		return nil, fmt.Errorf("run: %w", domain.ErrExecutionTimeout)
	}}
	_, err := newRunService(timeout, nil).Run(context.Background(), "s1", "sleep()")
	if !errors.Is(err, domain.ErrExecutionTimeout) {
		t.Errorf("expected timeout, got %v", err)
	}

	_, err = newRunService(&mockExecutor{}, nil).Execute(context.Background(), " \n")
	if !errors.Is(err, usecases.ErrEmptyCode) {
		t.Errorf("expected ErrEmptyCode, got %v", err)
	}

	nilResult := &mockExecutor{executeFn: func(context.Context, string) (*domain.ExecutionResult, error) {
		return nil, nil
	}}
	if _, err := newRunService(nilResult, nil).Execute(context.Background(), "x"); err == nil {
		t.Error("expected error for nil result")
	}
}

func TestRunService_PublishFailureIsNotFatal(t *testing.T) {
	pub := &mockPublisher{err: errors.New("nats down")}
	svc := newRunService(&mockExecutor{}, pub)
	if _, err := svc.Run(context.Background(), "s1", "x"); err != nil {
		t.Fatalf("publish errors must not fail the run: %v", err)
	}
}

func TestRunService_Clear(t *testing.T) {
	exec := &mockExecutor{executeFn: func(context.Context, string) (*domain.ExecutionResult, error) {
		return &domain.ExecutionResult{Stdout: pointCollection}, nil
	}}
	svc := newRunService(exec, nil)
	if _, err := svc.Run(context.Background(), "s1", "x"); err != nil {
		t.Fatal(err)
	}

	out, err := svc.Clear(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Map.Sources) != 0 || len(out.Map.Layers) != 0 {
		t.Errorf("expected empty map, got %+v", out.Map)
	}

	state, ok := svc.MapState("s1")
	if !ok || len(state.Sources) != 0 {
		t.Errorf("unexpected state after clear: %+v ok=%v", state, ok)
	}
	if _, ok := svc.MapState("unknown"); ok {
		t.Error("unknown session must report no state")
	}
}

func TestRunService_ClearUnknownSession(t *testing.T) {
	pub := &mockPublisher{}
	svc := newRunService(&mockExecutor{}, pub)

	_, err := svc.Clear(context.Background(), "never-ran")
	if !errors.Is(err, usecases.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, ok := svc.MapState("never-ran"); ok {
		t.Error("clear must not create the session")
	}
	if len(pub.events) != 0 {
		t.Errorf("no event expected, got %d", len(pub.events))
	}
}
