package mapsync

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/terramind/internal/core/domain"
)

// Extent walks every coordinate of every feature. ok is false when the
// collection holds no coordinates at all.
func Extent(fc *geojson.FeatureCollection) (domain.BoundingBox, bool) {
	var w extentWalker
	if fc != nil {
		for _, f := range fc.Features {
			if f != nil {
				w.geometry(f.Geometry)
			}
		}
	}
	return w.box, w.seen
}

type extentWalker struct {
	box  domain.BoundingBox
	seen bool
}

func (w *extentWalker) point(p orb.Point) {
	if !w.seen {
		w.box = domain.BoundingBox{MinX: p[0], MinY: p[1], MaxX: p[0], MaxY: p[1]}
		w.seen = true
		return
	}
	w.box.MinX = min(w.box.MinX, p[0])
	w.box.MinY = min(w.box.MinY, p[1])
	w.box.MaxX = max(w.box.MaxX, p[0])
	w.box.MaxY = max(w.box.MaxY, p[1])
}

func (w *extentWalker) points(ps []orb.Point) {
	for _, p := range ps {
		w.point(p)
	}
}

func (w *extentWalker) geometry(g orb.Geometry) {
	switch g := g.(type) {
	case orb.Point:
		w.point(g)
	case orb.MultiPoint:
		w.points(g)
	case orb.LineString:
		w.points(g)
	case orb.Ring:
		w.points(g)
	case orb.MultiLineString:
		for _, ls := range g {
			w.points(ls)
		}
	case orb.Polygon:
		for _, r := range g {
			w.points(r)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			for _, r := range p {
				w.points(r)
			}
		}
	case orb.Collection:
		for _, child := range g {
			w.geometry(child)
		}
	case orb.Bound:
		w.point(g.Min)
		w.point(g.Max)
	}
}
