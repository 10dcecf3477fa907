package llm_test

import (
	"testing"

	"github.com/samirrijal/terramind/internal/adapters/llm"
)

func TestNew(t *testing.T) {
	for _, provider := range []string{"", "openai", "OpenAI", "anthropic", "google"} {
		m, err := llm.New(llm.Settings{Provider: provider, Model: "m", APIKey: "k"})
		if err != nil {
			t.Errorf("provider %q: %v", provider, err)
			continue
		}
		if m == nil {
			t.Errorf("provider %q: nil model", provider)
		}
	}
}

func TestNew_Rejects(t *testing.T) {
	if _, err := llm.New(llm.Settings{Provider: "openai"}); err == nil {
		t.Error("expected error for missing model")
	}
	if _, err := llm.New(llm.Settings{Provider: "bogus", Model: "m"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
