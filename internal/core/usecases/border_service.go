package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-geos"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/terramind/internal/core/domain"
	"github.com/samirrijal/terramind/internal/core/ports"
	"github.com/samirrijal/terramind/internal/pkg/geospatial"
	"github.com/samirrijal/terramind/internal/pkg/metrics"
	"github.com/samirrijal/terramind/internal/pkg/telemetry"
)

// BorderOptions tunes border resolution.
type BorderOptions struct {
	ExtractTemperature float64
	ExtractMaxTokens   int64
	// QuadSegments is the number of segments per quarter circle in buffer caps.
	QuadSegments int
	// CacheTTL is in seconds; zero disables result caching.
	CacheTTL int
}

// BorderService buffers the shared border of two named regions.
type BorderService struct {
	regions ports.BoundaryRepository
	model   ports.LanguageModel
	cache   ports.CacheService
	opts    BorderOptions
}

// NewBorderService creates a new BorderService. model may be nil when only
// structured queries are served.
func NewBorderService(regions ports.BoundaryRepository, model ports.LanguageModel, cache ports.CacheService, opts BorderOptions) *BorderService {
	if opts.QuadSegments <= 0 {
		opts.QuadSegments = 8
	}
	if opts.ExtractMaxTokens <= 0 {
		opts.ExtractMaxTokens = 100
	}
	return &BorderService{regions: regions, model: model, cache: cache, opts: opts}
}

// ResolveText extracts a BorderQuery from free text with the language model,
// then resolves it.
func (s *BorderService) ResolveText(ctx context.Context, text string) (*geojson.Feature, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidBorderQuery)
	}
	if s.model == nil {
		return nil, fmt.Errorf("%w: no language model configured", ErrUpstream)
	}
	q, err := s.extract(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, *q)
}

func (s *BorderService) extract(ctx context.Context, text string) (_ *domain.BorderQuery, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanExtract)
	defer func() { telemetry.EndSpan(span, err) }()

	resp, err := s.model.Generate(ctx, &llmsdk.LanguageModelInput{
		SystemPrompt: ptr(extractSystemPrompt),
		Messages:     []llmsdk.Message{userMessage(fmt.Sprintf(extractUserPrompt, text))},
		Temperature:  ptr(s.opts.ExtractTemperature),
		MaxTokens:    ptr(s.opts.ExtractMaxTokens),
	})
	if err != nil {
		metrics.BorderFailures.WithLabelValues("upstream").Inc()
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	raw := responseText(resp)
	obj, err := decodeObject(raw)
	if err != nil {
		metrics.BorderFailures.WithLabelValues("unparseable").Inc()
		return nil, withDetails(fmt.Errorf("%w: failed to parse model response", ErrInvalidBorderQuery), raw)
	}

	q := domain.BorderQuery{
		RegionA: firstString(obj, "stateA", "regionA", "region_a"),
		RegionB: firstString(obj, "stateB", "regionB", "region_b"),
		Units:   firstString(obj, "units", "unit"),
	}
	q.Distance, _ = number(obj["distance"])
	if q.RegionA == "" || q.RegionB == "" || q.Distance == 0 {
		metrics.BorderFailures.WithLabelValues("extraction").Inc()
		return nil, withDetails(fmt.Errorf("%w: model did not extract required parameters", ErrInvalidBorderQuery), obj)
	}
	return &q, nil
}

// Resolve buffers the border shared by q.RegionA and q.RegionB.
func (s *BorderService) Resolve(ctx context.Context, q domain.BorderQuery) (_ *geojson.Feature, err error) {
	q.RegionA = strings.TrimSpace(q.RegionA)
	q.RegionB = strings.TrimSpace(q.RegionB)
	if q.Units == "" {
		q.Units = geospatial.DefaultUnit
	}
	meters, err := validateBorderQuery(q)
	if err != nil {
		metrics.BorderFailures.WithLabelValues("invalid_query").Inc()
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanBorder,
		attribute.String("border.region_a", q.RegionA),
		attribute.String("border.region_b", q.RegionB),
		attribute.Float64("border.meters", meters))
	defer func() { telemetry.EndSpan(span, err) }()

	cacheKey := fmt.Sprintf("border:%s:%s:%.3f", strings.ToLower(q.RegionA), strings.ToLower(q.RegionB), meters)
	if s.cache != nil && s.opts.CacheTTL > 0 {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			if f, err := geojson.UnmarshalFeature(data); err == nil {
				metrics.CacheHits.WithLabelValues("border").Inc()
				return f, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("border").Inc()
	}

	fc, err := s.regions.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load boundaries: %w", err)
	}
	a, b := findRegion(fc, q.RegionA), findRegion(fc, q.RegionB)
	if a == nil || b == nil {
		metrics.BorderFailures.WithLabelValues("region_not_found").Inc()
		return nil, withDetails(ErrRegionNotFound, map[string]any{
			"region_a": q.RegionA, "found_a": a != nil,
			"region_b": q.RegionB, "found_b": b != nil,
		})
	}

	polygon, err := bufferSharedBorder(a.Geometry, b.Geometry, meters, s.opts.QuadSegments)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoSharedBorder):
			metrics.BorderFailures.WithLabelValues("no_shared_border").Inc()
		case errors.Is(err, ErrBufferNotPolygon):
			metrics.BorderFailures.WithLabelValues("buffer_not_polygon").Inc()
		default:
			metrics.BorderFailures.WithLabelValues("geometry").Inc()
		}
		return nil, err
	}

	f := geojson.NewFeature(polygon)
	f.Properties = geojson.Properties{
		"region_a": q.RegionA,
		"region_b": q.RegionB,
		"distance": q.Distance,
		"units":    q.Units,
	}

	if s.cache != nil && s.opts.CacheTTL > 0 {
		if data, err := f.MarshalJSON(); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.opts.CacheTTL)
		}
	}
	return f, nil
}

func validateBorderQuery(q domain.BorderQuery) (float64, error) {
	if q.RegionA == "" || q.RegionB == "" {
		return 0, withDetails(fmt.Errorf("%w: two region names are required", ErrInvalidBorderQuery), q)
	}
	if !(q.Distance > 0) || math.IsInf(q.Distance, 0) {
		return 0, withDetails(fmt.Errorf("%w: distance must be a positive number", ErrInvalidBorderQuery), q)
	}
	meters, err := geospatial.ToMeters(q.Distance, q.Units)
	if err != nil {
		return 0, withDetails(fmt.Errorf("%w: %v", ErrInvalidBorderQuery, err), q)
	}
	return meters, nil
}

// findRegion returns the first feature whose name fields equal name, ignoring case.
func findRegion(fc *geojson.FeatureCollection, name string) *geojson.Feature {
	if fc == nil {
		return nil
	}
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if domain.RegionMatches(f.Properties, name) {
			return f
		}
	}
	return nil
}

// bufferSharedBorder intersects the boundaries of a and b, joins the shared
// coordinates into a line and buffers it by meters in a local planar projection.
func bufferSharedBorder(a, b orb.Geometry, meters float64, quadSegs int) (orb.Polygon, error) {
	ga, err := toGEOS(a)
	if err != nil {
		return nil, err
	}
	gb, err := toGEOS(b)
	if err != nil {
		return nil, err
	}
	shared := ga.Boundary().Intersection(gb.Boundary())
	if shared == nil || shared.IsEmpty() {
		return nil, ErrNoSharedBorder
	}
	sharedGeom, err := fromGEOS(shared)
	if err != nil {
		return nil, err
	}
	// A line needs two points; regions meeting at one vertex share no border.
	pts := sharedPoints(sharedGeom)
	if len(pts) < 2 {
		return nil, withDetails(ErrNoSharedBorder, map[string]any{"shared_points": len(pts)})
	}

	var border orb.Geometry = orb.LineString(pts)
	proj := geospatial.NewLocalProjection(border.Bound().Center())

	planar, err := toGEOS(proj.ToPlanar(border))
	if err != nil {
		return nil, err
	}
	buffered, err := fromGEOS(planar.Buffer(meters, quadSegs))
	if err != nil {
		return nil, err
	}
	polygon, ok := proj.ToGeographic(buffered).(orb.Polygon)
	if !ok || len(polygon) == 0 {
		return nil, withDetails(ErrBufferNotPolygon, map[string]any{"geometry_type": buffered.GeoJSONType()})
	}
	return polygon, nil
}

// sharedPoints lists every coordinate of g in order, dropping consecutive duplicates.
func sharedPoints(g orb.Geometry) []orb.Point {
	var out []orb.Point
	add := func(ps ...orb.Point) {
		for _, p := range ps {
			if len(out) > 0 && out[len(out)-1] == p {
				continue
			}
			out = append(out, p)
		}
	}
	var walk func(orb.Geometry)
	walk = func(g orb.Geometry) {
		switch g := g.(type) {
		case orb.Point:
			add(g)
		case orb.MultiPoint:
			add(g...)
		case orb.LineString:
			add(g...)
		case orb.MultiLineString:
			for _, ls := range g {
				add(ls...)
			}
		case orb.Polygon:
			for _, r := range g {
				add(r...)
			}
		case orb.MultiPolygon:
			for _, p := range g {
				walk(p)
			}
		case orb.Collection:
			for _, c := range g {
				walk(c)
			}
		}
	}
	walk(g)
	return out
}

func toGEOS(g orb.Geometry) (*geos.Geom, error) {
	data, err := json.Marshal(geojson.NewGeometry(g))
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}
	geom, err := geos.NewGeomFromGeoJSON(string(data))
	if err != nil {
		return nil, fmt.Errorf("geos: %w", err)
	}
	return geom, nil
}

func fromGEOS(g *geos.Geom) (orb.Geometry, error) {
	gj, err := geojson.UnmarshalGeometry([]byte(g.ToGeoJSON(-1)))
	if err != nil {
		return nil, fmt.Errorf("decode geos output: %w", err)
	}
	return gj.Geometry(), nil
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := obj[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

const extractSystemPrompt = "You are a helpful assistant that extracts region names and buffer parameters from user queries. Always return valid JSON."

const extractUserPrompt = `Extract the two regions and the buffer distance from this query. Return JSON only: {"stateA": string, "stateB": string, "distance": number, "units": string}

- Use the regions' proper names with normal capitalization (e.g. "Virginia", "West Virginia").
- units is one of miles, kilometers, meters, feet, nauticalmiles, degrees; default to miles.

Query: %q`
