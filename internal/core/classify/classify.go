// Package classify turns raw script output into something the map can render.
//
// Script output has no fixed schema, so classification is a fixed sequence of
// heuristics tried in order. The first heuristic that matches decides the
// outcome; a parse failure inside a heuristic only means "no match".
package classify

import (
	"strings"

	"github.com/samirrijal/terramind/internal/core/domain"
)

// Step names, reported in Payload.Source.
const (
	SourceEnvelope     = "envelope"
	SourceStdoutVector = "stdout_geojson"
	SourceStdoutTile   = "stdout_tile_object"
	SourceTileLines    = "tile_url_lines"
	SourceVectorLine   = "geojson_line"
	SourceRawTemplate  = "raw_template"
)

type step struct {
	name  string
	match func(r domain.ExecutionResult) (domain.Payload, bool)
}

var steps = []step{
	{SourceEnvelope, fromEnvelope},
	{SourceStdoutVector, fromStdoutVector},
	{SourceStdoutTile, fromStdoutTileObject},
	{SourceTileLines, fromTileLines},
	{SourceVectorLine, fromVectorLine},
	{SourceRawTemplate, fromRawTemplate},
}

// Classify returns the payload of the first matching step, or a none payload.
func Classify(r domain.ExecutionResult) domain.Payload {
	for _, s := range steps {
		if p, ok := s.match(r); ok {
			p.Source = s.name
			return p
		}
	}
	return domain.NonePayload()
}

func raster(tileURL string, bbox *domain.BoundingBox) domain.Payload {
	return domain.Payload{
		Kind:   domain.PayloadRaster,
		Raster: &domain.RasterPayload{TileURL: tileURL, BBox: bbox},
	}
}

func vector(v *domain.VectorPayload) domain.Payload {
	return domain.Payload{Kind: domain.PayloadVector, Vector: v}
}

// fromEnvelope uses the tile URL the runner already extracted. Only a flat
// four-number bbox is trusted here.
func fromEnvelope(r domain.ExecutionResult) (domain.Payload, bool) {
	tileURL := strings.TrimSpace(r.TileURL)
	if tileURL == "" {
		return domain.Payload{}, false
	}
	return raster(tileURL, flatBBox(r.BBox)), true
}

func fromStdoutVector(r domain.ExecutionResult) (domain.Payload, bool) {
	v, ok := decodeVector([]byte(r.Stdout))
	if !ok {
		return domain.Payload{}, false
	}
	return vector(v), true
}

func fromStdoutTileObject(r domain.ExecutionResult) (domain.Payload, bool) {
	tileURL, bbox, ok := tileObject([]byte(r.Stdout))
	if !ok {
		return domain.Payload{}, false
	}
	return raster(tileURL, bbox), true
}

func fromTileLines(r domain.ExecutionResult) (domain.Payload, bool) {
	tileURL, bbox, ok := scanTileLines(r.Stdout)
	if !ok {
		return domain.Payload{}, false
	}
	return raster(tileURL, bbox), true
}

func fromVectorLine(r domain.ExecutionResult) (domain.Payload, bool) {
	for _, line := range strings.Split(r.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		if v, ok := decodeVector([]byte(line)); ok {
			return vector(v), true
		}
	}
	return domain.Payload{}, false
}

func fromRawTemplate(r domain.ExecutionResult) (domain.Payload, bool) {
	if !IsTileTemplate(r.Stdout) {
		return domain.Payload{}, false
	}
	return raster(strings.TrimSpace(r.Stdout), nil), true
}

// IsTileTemplate reports whether s carries all of the {z}, {x} and {y} placeholders.
func IsTileTemplate(s string) bool {
	return strings.Contains(s, "{z}") && strings.Contains(s, "{x}") && strings.Contains(s, "{y}")
}
