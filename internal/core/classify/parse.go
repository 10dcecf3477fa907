package classify

import (
	"encoding/json"
	"regexp"
	"sort"

	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/terramind/internal/core/domain"
)

var (
	tileLineRe = regexp.MustCompile(`(?im)^\s*Tile URL:\s*(\S+)`)
	bboxLineRe = regexp.MustCompile(`(?im)^\s*Bounding box:\s*(.+?)\s*$`)
)

// tileKeys are the field names that carry a tile URL template in a JSON object.
// url_format is what Earth Engine's getMapId returns.
var tileKeys = []string{"tile_url", "tileUrl", "tile_url_template", "url_format"}

var bboxKeys = []string{"bbox", "bounding_box", "boundingBox"}

// decodeVector accepts a Feature, a FeatureCollection, or any object with a
// features member, and normalises it to a FeatureCollection. The variant is
// decided by the top-level shape alone; members that cannot be read as
// features are left out of the collection.
func decodeVector(data []byte) (*domain.VectorPayload, bool) {
	var shape struct {
		Type     string          `json:"type"`
		Features json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, false
	}
	hasFeatures := len(shape.Features) > 0 && string(shape.Features) != "null"

	fc := geojson.NewFeatureCollection()
	switch {
	case shape.Type == "Feature":
		if f := lenientFeature(data); f != nil {
			fc.Append(f)
		}
	case shape.Type == "FeatureCollection" || hasFeatures:
		// A features member that is not an array yields an empty collection.
		var raw []json.RawMessage
		_ = json.Unmarshal(shape.Features, &raw)
		for _, item := range raw {
			if f := lenientFeature(item); f != nil {
				fc.Append(f)
			}
		}
	default:
		return nil, false
	}
	return &domain.VectorPayload{Collection: fc}, true
}

// lenientFeature decodes one collection member. A missing type is taken to
// mean Feature and a bare geometry is wrapped in one; anything still
// unreadable returns nil.
func lenientFeature(data []byte) *geojson.Feature {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil
	}
	var typ string
	_ = json.Unmarshal(obj["type"], &typ)

	switch typ {
	case "Feature":
	case "":
		obj["type"] = json.RawMessage(`"Feature"`)
		var err error
		if data, err = json.Marshal(obj); err != nil {
			return nil
		}
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil || g.Geometry() == nil {
			return nil
		}
		return geojson.NewFeature(g.Geometry())
	}

	f, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return nil
	}
	return f
}

// tileObject looks for a tile URL field on a JSON object, then on its direct
// child objects in key order.
func tileObject(data []byte) (string, *domain.BoundingBox, bool) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", nil, false
	}
	if u, bbox, ok := tileFields(obj); ok {
		return u, bbox, true
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		child, ok := obj[k].(map[string]any)
		if !ok {
			continue
		}
		if u, bbox, ok := tileFields(child); ok {
			return u, bbox, true
		}
	}
	return "", nil, false
}

func tileFields(obj map[string]any) (string, *domain.BoundingBox, bool) {
	for _, k := range tileKeys {
		u, ok := obj[k].(string)
		if !ok || u == "" {
			continue
		}
		for _, bk := range bboxKeys {
			if v, ok := obj[bk]; ok {
				return u, bboxFromValue(v), true
			}
		}
		return u, nil, true
	}
	return "", nil, false
}

// scanTileLines reads the "Tile URL: ..." / "Bounding box: ..." print format.
func scanTileLines(stdout string) (string, *domain.BoundingBox, bool) {
	m := tileLineRe.FindStringSubmatch(stdout)
	if m == nil {
		return "", nil, false
	}
	var bbox *domain.BoundingBox
	if bm := bboxLineRe.FindStringSubmatch(stdout); bm != nil {
		var v any
		if err := json.Unmarshal([]byte(bm[1]), &v); err == nil {
			bbox = bboxFromValue(v)
		}
	}
	return m[1], bbox, true
}

// flatBBox decodes a raw [minX, minY, maxX, maxY] array.
func flatBBox(raw json.RawMessage) *domain.BoundingBox {
	if len(raw) == 0 {
		return nil
	}
	var v []float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	b, err := domain.NewBoundingBox(v)
	if err != nil {
		return nil
	}
	return &b
}

// bboxFromValue accepts a flat four-number array, a ring of coordinate pairs,
// or a polygon (list of rings, first ring used).
func bboxFromValue(v any) *domain.BoundingBox {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	if nums, ok := numbers(arr); ok {
		b, err := domain.NewBoundingBox(nums)
		if err != nil {
			return nil
		}
		return &b
	}
	if first, ok := arr[0].([]any); ok && len(first) > 0 {
		if _, nested := first[0].([]any); nested {
			return ringBBox(first)
		}
	}
	return ringBBox(arr)
}

// ringBBox takes the min/max over a ring's vertices, dropping a closing
// duplicate of the first vertex.
func ringBBox(ring []any) *domain.BoundingBox {
	pts := make([][2]float64, 0, len(ring))
	for _, item := range ring {
		pair, ok := item.([]any)
		if !ok || len(pair) < 2 {
			return nil
		}
		nums, ok := numbers(pair[:2])
		if !ok {
			return nil
		}
		pts = append(pts, [2]float64{nums[0], nums[1]})
	}
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) == 0 {
		return nil
	}
	b := domain.BoundingBox{MinX: pts[0][0], MinY: pts[0][1], MaxX: pts[0][0], MaxY: pts[0][1]}
	for _, p := range pts[1:] {
		b.MinX = min(b.MinX, p[0])
		b.MaxX = max(b.MaxX, p[0])
		b.MinY = min(b.MinY, p[1])
		b.MaxY = max(b.MaxY, p[1])
	}
	if !b.Finite() {
		return nil
	}
	return &b
}

func numbers(arr []any) ([]float64, bool) {
	out := make([]float64, len(arr))
	for i, item := range arr {
		f, ok := item.(float64)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}
