package ports

import (
	"context"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"

	"github.com/samirrijal/terramind/internal/core/domain"
)

// ScriptExecutor runs a script and captures its output. A non-zero exit
// status is reported in the result, not as an error.
type ScriptExecutor interface {
	Execute(ctx context.Context, code string) (*domain.ExecutionResult, error)
}

// LanguageModel is the subset of an llm-sdk model the services call.
type LanguageModel interface {
	Generate(ctx context.Context, input *llmsdk.LanguageModelInput) (*llmsdk.ModelResponse, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, event *domain.RunEvent) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
