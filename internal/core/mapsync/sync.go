// Package mapsync keeps a map surface in step with the latest classified
// script output.
package mapsync

import (
	"github.com/paulmach/orb"

	"github.com/samirrijal/terramind/internal/core/domain"
	"github.com/samirrijal/terramind/internal/pkg/geospatial"
)

// Reserved source and layer ids. A run only ever owns these.
const (
	RasterID       = "gee-raster"
	VectorSourceID = "query-results"
	VectorFillID   = "query-results"
	VectorBorderID = "query-results-border"
	VectorLinesID  = "query-results-lines"
	VectorPointsID = "query-results-points"
)

// removal order: layers that read from query-results go before the source.
var reservedIDs = []string{VectorPointsID, VectorLinesID, VectorBorderID, VectorFillID, RasterID}

// Options tunes rendering and viewport fitting.
type Options struct {
	TileSize        int
	RasterPadding   int
	VectorPadding   int
	MinExtentMeters float64
}

// DefaultOptions returns the stock rendering options.
func DefaultOptions() Options {
	return Options{TileSize: 256, RasterPadding: 40, VectorPadding: 50, MinExtentMeters: 500}
}

// Synchronizer applies payloads to a Surface.
type Synchronizer struct {
	opts Options
}

// NewSynchronizer fills zero-valued options with defaults.
func NewSynchronizer(opts Options) *Synchronizer {
	def := DefaultOptions()
	if opts.TileSize <= 0 {
		opts.TileSize = def.TileSize
	}
	if opts.RasterPadding <= 0 {
		opts.RasterPadding = def.RasterPadding
	}
	if opts.VectorPadding <= 0 {
		opts.VectorPadding = def.VectorPadding
	}
	if opts.MinExtentMeters <= 0 {
		opts.MinExtentMeters = def.MinExtentMeters
	}
	return &Synchronizer{opts: opts}
}

// Sync removes every reserved layer and source, then draws p. It returns the
// rectangle the viewport was fitted to, or nil when fitting was skipped.
func (s *Synchronizer) Sync(surface Surface, p domain.Payload) (*domain.BoundingBox, error) {
	for _, id := range reservedIDs {
		surface.RemoveIfPresent(id)
	}

	switch {
	case p.Kind == domain.PayloadRaster && p.Raster != nil:
		return s.syncRaster(surface, p.Raster)
	case p.Kind == domain.PayloadVector && p.Vector != nil:
		return s.syncVector(surface, p.Vector)
	}
	return nil, nil
}

func (s *Synchronizer) syncRaster(surface Surface, r *domain.RasterPayload) (*domain.BoundingBox, error) {
	src := RasterSource{Type: "raster", Tiles: []string{r.TileURL}, TileSize: s.opts.TileSize}
	layer := Layer{
		ID:     RasterID,
		Type:   "raster",
		Source: RasterID,
		Paint:  map[string]any{"raster-opacity": 1.0},
	}
	if err := surface.AddRaster(RasterID, src, layer); err != nil {
		return nil, err
	}
	if r.BBox == nil {
		return nil, nil
	}
	return s.fit(surface, *r.BBox, s.opts.RasterPadding), nil
}

func (s *Synchronizer) syncVector(surface Surface, v *domain.VectorPayload) (*domain.BoundingBox, error) {
	src := GeoJSONSource{Type: "geojson", Data: v.Collection}
	if err := surface.AddVector(VectorSourceID, src, vectorLayers()); err != nil {
		return nil, err
	}
	extent, ok := Extent(v.Collection)
	if !ok {
		return nil, nil
	}
	return s.fit(surface, extent, s.opts.VectorPadding), nil
}

func (s *Synchronizer) fit(surface Surface, b domain.BoundingBox, padding int) *domain.BoundingBox {
	target, ok := s.FitTarget(b)
	if !ok {
		return nil
	}
	surface.FitBounds(target, padding)
	return &target
}

// FitTarget returns the rectangle to fit for b. Valid boxes pass through
// unchanged; zero-width or zero-height boxes grow to the minimum extent around
// their centre; anything else is rejected.
func (s *Synchronizer) FitTarget(b domain.BoundingBox) (domain.BoundingBox, bool) {
	switch {
	case b.Valid():
		return b, true
	case b.Degenerate():
		c := b.Center()
		r := geospatial.Around(orb.Point{c.Lon, c.Lat}, s.opts.MinExtentMeters)
		out := domain.BoundingBox{
			MinX: min(b.MinX, r.Min.Lon()),
			MinY: min(b.MinY, r.Min.Lat()),
			MaxX: max(b.MaxX, r.Max.Lon()),
			MaxY: max(b.MaxY, r.Max.Lat()),
		}
		if !out.Valid() {
			return domain.BoundingBox{}, false
		}
		return out, true
	}
	return domain.BoundingBox{}, false
}

func geometryFilter(kind string) []any {
	return []any{"==", []any{"geometry-type"}, kind}
}

func vectorLayers() []Layer {
	return []Layer{
		{
			ID: VectorFillID, Type: "fill", Source: VectorSourceID,
			Paint:  map[string]any{"fill-color": "#10b981", "fill-opacity": 0.6},
			Filter: geometryFilter("Polygon"),
		},
		{
			ID: VectorBorderID, Type: "line", Source: VectorSourceID,
			Paint:  map[string]any{"line-color": "#059669", "line-width": 2.0},
			Filter: geometryFilter("Polygon"),
		},
		{
			ID: VectorLinesID, Type: "line", Source: VectorSourceID,
			Paint:  map[string]any{"line-color": "#3b82f6", "line-width": 3.0},
			Filter: geometryFilter("LineString"),
		},
		{
			ID: VectorPointsID, Type: "circle", Source: VectorSourceID,
			Paint: map[string]any{
				"circle-radius":       6.0,
				"circle-color":        "#ef4444",
				"circle-stroke-width": 2.0,
				"circle-stroke-color": "#ffffff",
			},
			Filter: geometryFilter("Point"),
		},
	}
}
