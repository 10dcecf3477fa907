package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/hoangvvo/llm-sdk/sdk-go/llmsdktest"

	"github.com/samirrijal/terramind/internal/core/domain"
	"github.com/samirrijal/terramind/internal/core/usecases"
)

func textResponse(text string) llmsdktest.MockGenerateResult {
	return llmsdktest.NewMockGenerateResultResponse(llmsdk.ModelResponse{
		Content: []llmsdk.Part{llmsdk.NewTextPart(text, nil)},
	})
}

func toolResponse(args map[string]any) llmsdktest.MockGenerateResult {
	return llmsdktest.NewMockGenerateResultResponse(llmsdk.ModelResponse{
		Content: []llmsdk.Part{llmsdk.NewToolCallPart("call_1", usecases.ScriptToolName, args, nil)},
	})
}

func TestScriptService_ToolCall(t *testing.T) {
	model := llmsdktest.NewMockLanguageModel()
	model.EnqueueGenerateResult(toolResponse(map[string]any{
		"code":        "print('ndvi')",
		"explanation": "computes NDVI",
		"context":     "ndvi over sentinel-2",
	}))

	svc := usecases.NewScriptService(model, usecases.GenerationOptions{Temperature: 0.2})
	got, err := svc.Generate(context.Background(), domain.GenerationRequest{
		UserPrompt:      "show NDVI",
		PreviousCode:    "print('old')",
		PreviousContext: "earlier work",
		Metadata:        map[string]any{"project": "p1"},
		ChatHistory: []domain.ConversationTurn{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Code != "print('ndvi')" || got.Explanation != "computes NDVI" || got.Context != "ndvi over sentinel-2" {
		t.Errorf("unexpected script: %+v", got)
	}

	inputs := model.TrackedGenerateInputs()
	if len(inputs) != 1 {
		t.Fatalf("expected 1 model call, got %d", len(inputs))
	}
	in := inputs[0]

	if in.ToolChoice == nil || in.ToolChoice.Tool == nil || in.ToolChoice.Tool.ToolName != usecases.ScriptToolName {
		t.Errorf("tool choice not forced to %s", usecases.ScriptToolName)
	}
	if len(in.Tools) != 1 || in.Tools[0].Name != usecases.ScriptToolName {
		t.Errorf("expected single %s tool, got %+v", usecases.ScriptToolName, in.Tools)
	}
	if in.MaxTokens == nil || *in.MaxTokens != 900 {
		t.Errorf("expected max tokens 900, got %v", in.MaxTokens)
	}
	if in.SystemPrompt == nil || !strings.Contains(*in.SystemPrompt, `"project":"p1"`) ||
		!strings.Contains(*in.SystemPrompt, "earlier work") {
		t.Errorf("system prompt missing metadata or previous context")
	}

	// history (2) + previous code + prompt
	if len(in.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(in.Messages))
	}
	if in.Messages[0].UserMessage == nil || in.Messages[1].AssistantMessage == nil {
		t.Error("history roles not preserved")
	}
	code := in.Messages[2].AssistantMessage
	if code == nil || !strings.Contains(code.Content[0].TextPart.Text, "print('old')") {
		t.Error("previous code not sent as assistant message")
	}
	last := in.Messages[3].UserMessage
	if last == nil || last.Content[0].TextPart.Text != "show NDVI" {
		t.Error("user prompt must be the last message")
	}
}

func TestScriptService_TextFallback(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"raw", `{"code":"x=1","explanation":"e","context":"c"}`},
		{"fenced", "```json\n{\"code\":\"x=1\",\"explanation\":\"e\",\"context\":\"c\"}\n```"},
		{"prose", `Sure! {"code":"x=1","explanation":"e","context":"c"} Hope this helps.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := llmsdktest.NewMockLanguageModel()
			model.EnqueueGenerateResult(textResponse(tt.text))

			got, err := usecases.NewScriptService(model, usecases.GenerationOptions{}).
				Generate(context.Background(), domain.GenerationRequest{UserPrompt: "p"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Code != "x=1" {
				t.Errorf("expected code x=1, got %q", got.Code)
			}
		})
	}
}

func TestScriptService_InvalidResponses(t *testing.T) {
	tests := []struct {
		name   string
		result llmsdktest.MockGenerateResult
	}{
		{"missing explanation", toolResponse(map[string]any{"code": "x", "context": "c"})},
		{"non-string code", toolResponse(map[string]any{"code": 1, "explanation": "e", "context": "c"})},
		{"blank code", toolResponse(map[string]any{"code": "  ", "explanation": "e", "context": "c"})},
		{"not json", textResponse("I cannot help with that")},
		{"json missing field", textResponse(`{"code":"x"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := llmsdktest.NewMockLanguageModel()
			model.EnqueueGenerateResult(tt.result)

			_, err := usecases.NewScriptService(model, usecases.GenerationOptions{}).
				Generate(context.Background(), domain.GenerationRequest{UserPrompt: "p"})
			if !errors.Is(err, usecases.ErrInvalidGeneration) {
				t.Fatalf("expected ErrInvalidGeneration, got %v", err)
			}
			var de *usecases.DetailError
			if !errors.As(err, &de) || de.Details == nil {
				t.Errorf("expected raw payload in details, got %v", err)
			}
			if n := len(model.TrackedGenerateInputs()); n != 1 {
				t.Errorf("expected exactly one model call, got %d", n)
			}
		})
	}
}

func TestScriptService_UpstreamError(t *testing.T) {
	model := llmsdktest.NewMockLanguageModel()
	model.EnqueueGenerateResult(llmsdktest.NewMockGenerateResultError(errors.New("503 from provider")))

	_, err := usecases.NewScriptService(model, usecases.GenerationOptions{}).
		Generate(context.Background(), domain.GenerationRequest{UserPrompt: "p"})
	if !errors.Is(err, usecases.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestScriptService_EmptyPrompt(t *testing.T) {
	model := llmsdktest.NewMockLanguageModel()
	_, err := usecases.NewScriptService(model, usecases.GenerationOptions{}).
		Generate(context.Background(), domain.GenerationRequest{UserPrompt: "   "})
	if !errors.Is(err, usecases.ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
	if len(model.TrackedGenerateInputs()) != 0 {
		t.Error("model must not be called for an empty prompt")
	}
}
