package mapsync

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/terramind/internal/core/domain"
)

// ErrDuplicateID is returned when a source or layer id is added twice.
var ErrDuplicateID = errors.New("mapsync: id already present")

// RasterSource is a tiled raster source.
type RasterSource struct {
	Type     string   `json:"type"`
	Tiles    []string `json:"tiles"`
	TileSize int      `json:"tileSize"`
}

// GeoJSONSource is an inline GeoJSON source.
type GeoJSONSource struct {
	Type string                     `json:"type"`
	Data *geojson.FeatureCollection `json:"data"`
}

// Layer is one style layer drawn from a source.
type Layer struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source"`
	Paint  map[string]any `json:"paint,omitempty"`
	Filter []any          `json:"filter,omitempty"`
}

// Surface is the only way the synchronizer touches a map.
type Surface interface {
	// RemoveIfPresent drops the layer and the source registered under id.
	RemoveIfPresent(id string)
	AddRaster(id string, src RasterSource, layer Layer) error
	AddVector(id string, src GeoJSONSource, layers []Layer) error
	FitBounds(bbox domain.BoundingBox, padding int)
}

// StyleSurface is an in-memory map style. Every mutation is also queued as a
// MapCommand so a browser can replay it against a live map.
type StyleSurface struct {
	sources  map[string]any
	layers   []Layer
	viewport *domain.BoundingBox
	pending  []domain.MapCommand
}

// NewStyleSurface returns an empty surface.
func NewStyleSurface() *StyleSurface {
	return &StyleSurface{sources: make(map[string]any)}
}

func (s *StyleSurface) RemoveIfPresent(id string) {
	for i, l := range s.layers {
		if l.ID == id {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			s.emit(domain.MapCommand{Op: "remove_layer", ID: id})
			break
		}
	}
	if _, ok := s.sources[id]; ok {
		delete(s.sources, id)
		s.emit(domain.MapCommand{Op: "remove_source", ID: id})
	}
}

func (s *StyleSurface) AddRaster(id string, src RasterSource, layer Layer) error {
	if err := s.addSource(id, src); err != nil {
		return err
	}
	return s.addLayer(layer)
}

func (s *StyleSurface) AddVector(id string, src GeoJSONSource, layers []Layer) error {
	if err := s.addSource(id, src); err != nil {
		return err
	}
	for _, l := range layers {
		if err := s.addLayer(l); err != nil {
			return err
		}
	}
	return nil
}

func (s *StyleSurface) FitBounds(bbox domain.BoundingBox, padding int) {
	b := bbox
	s.viewport = &b
	s.emit(domain.MapCommand{Op: "fit_bounds", Bounds: &b, Padding: padding})
}

func (s *StyleSurface) addSource(id string, src any) error {
	if _, ok := s.sources[id]; ok {
		return fmt.Errorf("source %s: %w", id, ErrDuplicateID)
	}
	s.sources[id] = src
	s.emit(domain.MapCommand{Op: "add_source", ID: id, Spec: src})
	return nil
}

func (s *StyleSurface) addLayer(l Layer) error {
	if _, ok := s.sources[l.Source]; !ok {
		return fmt.Errorf("layer %s references missing source %s", l.ID, l.Source)
	}
	for _, existing := range s.layers {
		if existing.ID == l.ID {
			return fmt.Errorf("layer %s: %w", l.ID, ErrDuplicateID)
		}
	}
	s.layers = append(s.layers, l)
	s.emit(domain.MapCommand{Op: "add_layer", ID: l.ID, Spec: l})
	return nil
}

func (s *StyleSurface) emit(c domain.MapCommand) {
	s.pending = append(s.pending, c)
}

// Flush returns the commands queued since the last Flush.
func (s *StyleSurface) Flush() []domain.MapCommand {
	out := s.pending
	s.pending = nil
	if out == nil {
		out = []domain.MapCommand{}
	}
	return out
}

// Snapshot returns the current sources, layers and viewport.
func (s *StyleSurface) Snapshot() domain.MapState {
	st := domain.MapState{
		Sources: make(map[string]any, len(s.sources)),
		Layers:  make([]any, 0, len(s.layers)),
	}
	for id, src := range s.sources {
		st.Sources[id] = src
	}
	for _, l := range s.layers {
		st.Layers = append(st.Layers, l)
	}
	if s.viewport != nil {
		v := *s.viewport
		st.Viewport = &v
	}
	return st
}
