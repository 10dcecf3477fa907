package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// LocalProjection is an equirectangular projection centred on an origin,
// giving planar coordinates in meters. Accurate enough for buffers of a few
// hundred kilometers.
type LocalProjection struct {
	origin orb.Point
	cosLat float64
}

// NewLocalProjection centres a projection on the given lon/lat point.
func NewLocalProjection(origin orb.Point) LocalProjection {
	return LocalProjection{origin: origin, cosLat: math.Cos(toRad(origin.Lat()))}
}

// Forward maps lon/lat to meters east/north of the origin.
func (p LocalProjection) Forward(pt orb.Point) orb.Point {
	return orb.Point{
		toRad(pt.Lon()-p.origin.Lon()) * p.cosLat * EarthRadiusMeters,
		toRad(pt.Lat()-p.origin.Lat()) * EarthRadiusMeters,
	}
}

// Inverse maps meters east/north of the origin back to lon/lat.
func (p LocalProjection) Inverse(pt orb.Point) orb.Point {
	return orb.Point{
		p.origin.Lon() + toDeg(pt.X()/(p.cosLat*EarthRadiusMeters)),
		p.origin.Lat() + toDeg(pt.Y()/EarthRadiusMeters),
	}
}

// ToPlanar returns a projected copy of g.
func (p LocalProjection) ToPlanar(g orb.Geometry) orb.Geometry {
	return project.Geometry(orb.Clone(g), p.Forward)
}

// ToGeographic returns an unprojected copy of g.
func (p LocalProjection) ToGeographic(g orb.Geometry) orb.Geometry {
	return project.Geometry(orb.Clone(g), p.Inverse)
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
