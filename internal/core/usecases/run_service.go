package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/terramind/internal/core/classify"
	"github.com/samirrijal/terramind/internal/core/domain"
	"github.com/samirrijal/terramind/internal/core/mapsync"
	"github.com/samirrijal/terramind/internal/core/ports"
	"github.com/samirrijal/terramind/internal/pkg/metrics"
	"github.com/samirrijal/terramind/internal/pkg/telemetry"
)

// RunOutcome is everything one pipeline run produced.
type RunOutcome struct {
	RunID    string                  `json:"run_id"`
	Result   *domain.ExecutionResult `json:"result,omitempty"`
	Payload  domain.Payload          `json:"payload"`
	Commands []domain.MapCommand     `json:"commands"`
	Map      domain.MapState         `json:"map"`
}

// RunService executes scripts and keeps each session's map in step with the output.
type RunService struct {
	exec   ports.ScriptExecutor
	maps   *mapsync.SessionStore
	events ports.EventPublisher
}

// NewRunService creates a new RunService. events may be nil.
func NewRunService(exec ports.ScriptExecutor, maps *mapsync.SessionStore, events ports.EventPublisher) *RunService {
	return &RunService{exec: exec, maps: maps, events: events}
}

// Execute runs code without touching any map.
func (s *RunService) Execute(ctx context.Context, code string) (_ *domain.ExecutionResult, err error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptyCode
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanExecute, attribute.Int("script.bytes", len(code)))
	defer func() { telemetry.EndSpan(span, err) }()

	start := time.Now()
	res, err := s.exec.Execute(ctx, code)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, domain.ErrExecutionTimeout):
		metrics.ScriptDuration.WithLabelValues("timeout").Observe(elapsed.Seconds())
		return nil, err
	case err != nil:
		metrics.ScriptDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		return nil, fmt.Errorf("execute script: %w", err)
	case res == nil:
		return nil, errors.New("execute script: executor returned no result")
	case res.ExitCode != 0:
		metrics.ScriptDuration.WithLabelValues("nonzero").Observe(elapsed.Seconds())
	default:
		metrics.ScriptDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
	}
	if res.Duration == 0 {
		res.Duration = elapsed
	}
	span.SetAttributes(attribute.Int("script.exit_code", res.ExitCode))
	return res, nil
}

// Run executes code, classifies the output and applies it to the session's map.
func (s *RunService) Run(ctx context.Context, sessionID, code string) (_ *RunOutcome, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRun, attribute.String("session.id", sessionID))
	defer func() { telemetry.EndSpan(span, err) }()

	res, err := s.Execute(ctx, code)
	if err != nil {
		return nil, err
	}

	payload := classify.Classify(*res)
	metrics.ScriptRuns.WithLabelValues(string(payload.Kind), payload.Source).Inc()
	span.SetAttributes(attribute.String("payload.kind", string(payload.Kind)))

	out, err := s.apply(sessionID, payload)
	if err != nil {
		return nil, err
	}
	out.Result = res

	s.publish(ctx, &domain.RunEvent{
		RunID:      out.RunID,
		SessionID:  sessionID,
		Kind:       payload.Kind,
		Source:     payload.Source,
		ExitCode:   res.ExitCode,
		DurationMS: res.Duration.Milliseconds(),
		Commands:   out.Commands,
		Time:       time.Now().UTC(),
	})
	return out, nil
}

// Clear removes every run layer from the session's map. Unknown sessions
// yield ErrSessionNotFound and are not created.
func (s *RunService) Clear(ctx context.Context, sessionID string) (*RunOutcome, error) {
	cmds, state, ok, err := s.maps.Clear(sessionID)
	metrics.MapSessions.Set(float64(s.maps.Len()))
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sync map: %w", err)
	}
	out := &RunOutcome{
		RunID:    uuid.NewString(),
		Payload:  domain.NonePayload(),
		Commands: cmds,
		Map:      state,
	}
	s.publish(ctx, &domain.RunEvent{
		RunID:     out.RunID,
		SessionID: sessionID,
		Kind:      domain.PayloadNone,
		Source:    "clear",
		Commands:  out.Commands,
		Time:      time.Now().UTC(),
	})
	return out, nil
}

// MapState returns the session's current map.
func (s *RunService) MapState(sessionID string) (domain.MapState, bool) {
	return s.maps.State(sessionID)
}

func (s *RunService) apply(sessionID string, payload domain.Payload) (*RunOutcome, error) {
	cmds, state, err := s.maps.Apply(sessionID, payload)
	metrics.MapSessions.Set(float64(s.maps.Len()))
	if err != nil {
		return nil, fmt.Errorf("sync map: %w", err)
	}
	return &RunOutcome{
		RunID:    uuid.NewString(),
		Payload:  payload,
		Commands: cmds,
		Map:      state,
	}, nil
}

func (s *RunService) publish(ctx context.Context, ev *domain.RunEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishRunCompleted(ctx, ev); err != nil {
		slog.WarnContext(ctx, "publish run event failed", "run_id", ev.RunID, "error", err)
	}
}
