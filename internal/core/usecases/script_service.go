package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/terramind/internal/core/domain"
	"github.com/samirrijal/terramind/internal/core/ports"
	"github.com/samirrijal/terramind/internal/pkg/metrics"
	"github.com/samirrijal/terramind/internal/pkg/telemetry"
)

// ScriptToolName is the function the model must call to answer.
const ScriptToolName = "myResponse"

// GenerationOptions are the sampling settings for script generation.
type GenerationOptions struct {
	Temperature float64
	MaxTokens   int64
}

// ScriptService turns a chat turn into an Earth Engine script.
type ScriptService struct {
	model ports.LanguageModel
	opts  GenerationOptions
}

// NewScriptService creates a new ScriptService.
func NewScriptService(model ports.LanguageModel, opts GenerationOptions) *ScriptService {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 900
	}
	return &ScriptService{model: model, opts: opts}
}

// Generate asks the model for a script. The answer is rejected unless it
// carries code, explanation and context as strings.
func (s *ScriptService) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedScript, error) {
	if strings.TrimSpace(req.UserPrompt) == "" {
		return nil, ErrEmptyPrompt
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanGenerate,
		attribute.Int("chat.turns", len(req.ChatHistory)),
		attribute.Bool("chat.has_code", req.PreviousCode != ""))
	script, err := s.generate(ctx, req)
	telemetry.EndSpan(span, err)
	return script, err
}

func (s *ScriptService) generate(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedScript, error) {
	resp, err := s.model.Generate(ctx, s.buildInput(req))
	if err != nil {
		metrics.GenerationFailures.WithLabelValues("upstream").Inc()
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	for _, p := range resp.Content {
		if p.ToolCallPart == nil || p.ToolCallPart.ToolName != ScriptToolName {
			continue
		}
		script, err := scriptFromFields(p.ToolCallPart.Args)
		if err != nil {
			metrics.GenerationFailures.WithLabelValues("tool_args").Inc()
			raw, _ := json.Marshal(p.ToolCallPart.Args)
			return nil, withDetails(err, string(raw))
		}
		return script, nil
	}

	// Some models ignore tool_choice and answer in prose.
	text := responseText(resp)
	obj, err := decodeObject(text)
	if err != nil {
		metrics.GenerationFailures.WithLabelValues("unparseable").Inc()
		slog.WarnContext(ctx, "script generation returned non-JSON text", "error", err, "length", len(text))
		return nil, withDetails(fmt.Errorf("%w: %v", ErrInvalidGeneration, err), text)
	}
	script, err := scriptFromFields(obj)
	if err != nil {
		metrics.GenerationFailures.WithLabelValues("missing_field").Inc()
		return nil, withDetails(err, text)
	}
	return script, nil
}

func (s *ScriptService) buildInput(req domain.GenerationRequest) *llmsdk.LanguageModelInput {
	var system strings.Builder
	system.WriteString(scriptSystemPrompt)
	if len(req.Metadata) > 0 {
		if b, err := json.Marshal(req.Metadata); err == nil {
			system.WriteString("\n\nProject/session metadata: ")
			system.Write(b)
		}
	}
	if req.PreviousContext != "" {
		system.WriteString("\n\nPrevious context: ")
		system.WriteString(req.PreviousContext)
	}

	msgs := make([]llmsdk.Message, 0, len(req.ChatHistory)+2)
	for _, turn := range req.ChatHistory {
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		if turn.Role == "assistant" {
			msgs = append(msgs, assistantMessage(turn.Content))
		} else {
			msgs = append(msgs, userMessage(turn.Content))
		}
	}
	if req.PreviousCode != "" {
		msgs = append(msgs, assistantMessage("Current code:\n"+req.PreviousCode))
	}
	msgs = append(msgs, userMessage(req.UserPrompt))

	return &llmsdk.LanguageModelInput{
		SystemPrompt: ptr(system.String()),
		Messages:     msgs,
		Tools:        []llmsdk.Tool{scriptTool},
		ToolChoice:   &llmsdk.ToolChoiceOption{Tool: &llmsdk.ToolChoiceTool{ToolName: ScriptToolName}},
		Temperature:  ptr(s.opts.Temperature),
		MaxTokens:    ptr(s.opts.MaxTokens),
	}
}

func scriptFromFields(fields map[string]any) (*domain.GeneratedScript, error) {
	var out domain.GeneratedScript
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"code", &out.Code},
		{"explanation", &out.Explanation},
		{"context", &out.Context},
	} {
		v, ok := fields[f.name].(string)
		if !ok {
			return nil, fmt.Errorf("%w: missing or non-string field %q", ErrInvalidGeneration, f.name)
		}
		*f.dst = v
	}
	if strings.TrimSpace(out.Code) == "" {
		return nil, fmt.Errorf("%w: empty code", ErrInvalidGeneration)
	}
	return &out, nil
}

var scriptTool = llmsdk.Tool{
	Name:        ScriptToolName,
	Description: "Return the code, explanation, and context for a geospatial analysis task.",
	Parameters: llmsdk.JSONSchema{
		"type": "object",
		"properties": map[string]any{
			"code":        map[string]any{"type": "string", "description": "The Python code to run."},
			"explanation": map[string]any{"type": "string", "description": "Explanation of the code."},
			"context":     map[string]any{"type": "string", "description": "Compressed one-sentence summary of the session so far."},
		},
		"required":             []string{"code", "explanation", "context"},
		"additionalProperties": false,
	},
}

const scriptSystemPrompt = `You are an expert assistant for Google Earth Engine Python scripting.
- Always answer by calling the provided function with three fields: code, explanation, and context.
- code: a stepwise, commented, minimal, headless Python script for Google Earth Engine. Assume ee is already initialized; never include authentication code.
- If the output is an image, print the tile URL from getMapId(vis) on a line starting with "Tile URL:" and the region's bounding box on a line starting with "Bounding box:". Never call getInfo() on images unless the user asks for metadata.
- If the output is vector data, print it as a single-line GeoJSON FeatureCollection.
- If the user names a point (city, coordinates or place), analyse a rectangle or buffer around it (for example 0.1 degrees or 5 km), never the bare point.
- The printed bounding box must be a rectangle with four distinct corners that covers a visible area suitable for recentering the map.
- Do not use folium, display() or any notebook-specific visualization. Only use print statements for output.
- If the user gives a single date for filtering an image collection, set the end date to one month after it.
- For Sentinel-1, use COPERNICUS/S1_GRD, filter for IW mode and check that both VV and VH bands exist before using them.
- For Sentinel-2, use COPERNICUS/S2_HARMONIZED and mask clouds with the QA60 band. Never use deprecated assets.
- Select a single band before applying a palette.
- For NDVI, compute (B8 - B4) / (B8 + B4), print the image count after filtering, and visualize the median with a white-green palette.
- For flood mapping, buffer the place by 10 km, use at least 7 days of data, compute the VH/VV ratio as a single band and visualize it with a blue-white-green palette.
- For country boundaries, use a current public dataset such as FAO/GAUL/2015/level0 or USDOS/LSIB_SIMPLE/2017 and print the bounding box of the country.
- explanation: a short, clear summary of what the code does.
- context: a compressed, one-sentence summary of the session so far. If previous context is provided, update it.`
