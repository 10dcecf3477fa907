package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/terramind/internal/core/domain"
)

// ---- Mock collaborators ----

type mockBoundaryRepo struct {
	allFn func(ctx context.Context) (*geojson.FeatureCollection, error)
	calls int
}

func (m *mockBoundaryRepo) All(ctx context.Context) (*geojson.FeatureCollection, error) {
	m.calls++
	if m.allFn != nil {
		return m.allFn(ctx)
	}
	return geojson.NewFeatureCollection(), nil
}

type mockExecutor struct {
	executeFn func(ctx context.Context, code string) (*domain.ExecutionResult, error)
}

func (m *mockExecutor) Execute(ctx context.Context, code string) (*domain.ExecutionResult, error) {
	if m.executeFn != nil {
		return m.executeFn(ctx, code)
	}
	return &domain.ExecutionResult{}, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []*domain.RunEvent
	err    error
}

func (m *mockPublisher) PublishRunCompleted(_ context.Context, ev *domain.RunEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

var errMiss = errors.New("miss")

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errMiss
	}
	return v, nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
