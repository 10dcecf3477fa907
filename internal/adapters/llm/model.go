// Package llm builds the language model used for script generation and
// border-query extraction.
package llm

import (
	"fmt"
	"strings"

	"github.com/hoangvvo/llm-sdk/sdk-go/anthropic"
	"github.com/hoangvvo/llm-sdk/sdk-go/google"
	"github.com/hoangvvo/llm-sdk/sdk-go/openai"

	"github.com/samirrijal/terramind/internal/core/ports"
)

// Settings selects a provider and model.
type Settings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// New returns a model for the configured provider. Supported providers are
// openai (any chat-completions compatible endpoint), anthropic and google.
func New(s Settings) (ports.LanguageModel, error) {
	if s.Model == "" {
		return nil, fmt.Errorf("llm: model is required")
	}
	switch strings.ToLower(s.Provider) {
	case "", "openai":
		return openai.NewOpenAIChatModel(s.Model, openai.OpenAIChatModelOptions{
			BaseURL: s.BaseURL,
			APIKey:  s.APIKey,
		}), nil
	case "anthropic":
		return anthropic.NewAnthropicModel(s.Model, anthropic.AnthropicModelOptions{
			BaseURL: s.BaseURL,
			APIKey:  s.APIKey,
		}), nil
	case "google":
		return google.NewGoogleModel(s.Model, google.GoogleModelOptions{
			BaseURL: s.BaseURL,
			APIKey:  s.APIKey,
		}), nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", s.Provider)
	}
}
