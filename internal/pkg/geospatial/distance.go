package geospatial

import (
	"math"

	"github.com/paulmach/orb"
)

// Distance is the great-circle distance in meters between two lon/lat points.
func Distance(a, b orb.Point) float64 {
	dLat := toRad(b.Lat() - a.Lat())
	dLon := toRad(b.Lon() - a.Lon())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat()))*math.Cos(toRad(b.Lat()))*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Around returns the lon/lat rectangle reaching radiusMeters north, south,
// east and west of center.
func Around(center orb.Point, radiusMeters float64) orb.Bound {
	dLat := toDeg(radiusMeters / EarthRadiusMeters)
	dLon := dLat / math.Cos(toRad(center.Lat()))

	return orb.Bound{
		Min: orb.Point{center.Lon() - dLon, center.Lat() - dLat},
		Max: orb.Point{center.Lon() + dLon, center.Lat() + dLat},
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
