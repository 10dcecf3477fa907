package domain

import (
	"encoding/json"
	"time"

	"github.com/paulmach/orb/geojson"
)

// ExecutionResult is the captured outcome of one script run.
type ExecutionResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
	// TileURL and BBox are set when the runner itself recognised a structured
	// response in the script output. BBox is kept raw; the classifier validates it.
	TileURL  string          `json:"tile_url,omitempty"`
	BBox     json.RawMessage `json:"bbox,omitempty"`
	// Truncated is set when stdout or stderr hit the runner's output cap.
	// Stdout then holds only the captured prefix.
	Truncated bool          `json:"truncated,omitempty"`
	Duration  time.Duration `json:"-"`
}

// PayloadKind tags the active variant of a Payload.
type PayloadKind string

const (
	PayloadNone   PayloadKind = "none"
	PayloadRaster PayloadKind = "raster"
	PayloadVector PayloadKind = "vector"
)

// Payload is the classified form of an ExecutionResult. Exactly one of
// Raster and Vector is set, or neither when Kind is PayloadNone.
type Payload struct {
	Kind   PayloadKind    `json:"kind"`
	Raster *RasterPayload `json:"raster,omitempty"`
	Vector *VectorPayload `json:"vector,omitempty"`
	// Source names the classification step that matched.
	Source string `json:"source,omitempty"`
}

// RasterPayload describes a tile pyramid to overlay.
type RasterPayload struct {
	TileURL string       `json:"tile_url"`
	BBox    *BoundingBox `json:"bbox,omitempty"`
}

// VectorPayload holds geometry to draw.
type VectorPayload struct {
	Collection *geojson.FeatureCollection `json:"feature_collection"`
}

// NonePayload is the "nothing to render" outcome.
func NonePayload() Payload {
	return Payload{Kind: PayloadNone}
}

// ConversationTurn is one message of a chat session.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationRequest carries everything the script generator needs for one turn.
type GenerationRequest struct {
	UserPrompt      string             `json:"userPrompt"`
	PreviousCode    string             `json:"previousCode,omitempty"`
	ChatHistory     []ConversationTurn `json:"chatHistory,omitempty"`
	Metadata        map[string]any     `json:"metadata,omitempty"`
	PreviousContext string             `json:"previousContext,omitempty"`
}

// GeneratedScript is the validated generator output.
type GeneratedScript struct {
	Code        string `json:"code"`
	Explanation string `json:"explanation"`
	Context     string `json:"context"`
}

// BorderQuery asks for a buffer around the shared border of two regions.
type BorderQuery struct {
	RegionA  string  `json:"region_a"`
	RegionB  string  `json:"region_b"`
	Distance float64 `json:"distance"`
	Units    string  `json:"units,omitempty"`
}

// MapCommand is one mutation of the browser map, replayed in order by the client.
type MapCommand struct {
	Op      string       `json:"op"` // remove_layer | remove_source | add_source | add_layer | fit_bounds
	ID      string       `json:"id,omitempty"`
	Spec    any          `json:"spec,omitempty"`
	Bounds  *BoundingBox `json:"bounds,omitempty"`
	Padding int          `json:"padding,omitempty"`
}

// MapState is a snapshot of the layers a session currently shows.
type MapState struct {
	Sources  map[string]any `json:"sources"`
	Layers   []any          `json:"layers"`
	Viewport *BoundingBox   `json:"viewport,omitempty"`
}

// RunEvent is published after every pipeline run.
type RunEvent struct {
	RunID      string       `json:"run_id"`
	SessionID  string       `json:"session_id"`
	Kind       PayloadKind  `json:"kind"`
	Source     string       `json:"source,omitempty"`
	ExitCode   int          `json:"exit_code"`
	DurationMS int64        `json:"duration_ms"`
	Commands   []MapCommand `json:"commands"`
	Time       time.Time    `json:"time"`
}
