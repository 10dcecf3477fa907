package usecases

import (
	"encoding/json"
	"errors"
	"strings"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
)

// decodeObject parses model text as a JSON object, first as-is, then with
// Markdown fences stripped, then as the outermost {...} slice.
func decodeObject(text string) (map[string]any, error) {
	var lastErr error = errors.New("empty response")
	for _, candidate := range []string{text, stripFences(text), outermostObject(text)} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
			lastErr = err
			continue
		}
		if obj == nil {
			lastErr = errors.New("response is JSON null")
			continue
		}
		return obj, nil
	}
	return nil, lastErr
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

func outermostObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// responseText joins the text parts of a model response.
func responseText(resp *llmsdk.ModelResponse) string {
	var b strings.Builder
	for _, p := range resp.Content {
		if p.TextPart != nil {
			b.WriteString(p.TextPart.Text)
		}
	}
	return b.String()
}

func textPart(s string) llmsdk.Part {
	return llmsdk.Part{TextPart: &llmsdk.TextPart{Text: s}}
}

func userMessage(s string) llmsdk.Message {
	return llmsdk.Message{UserMessage: &llmsdk.UserMessage{Content: []llmsdk.Part{textPart(s)}}}
}

func assistantMessage(s string) llmsdk.Message {
	return llmsdk.Message{AssistantMessage: &llmsdk.AssistantMessage{Content: []llmsdk.Part{textPart(s)}}}
}

func ptr[T any](v T) *T { return &v }
