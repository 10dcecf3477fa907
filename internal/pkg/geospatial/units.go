package geospatial

import (
	"fmt"
	"math"
	"strings"
)

// EarthRadiusMeters is the mean Earth radius used for planar approximations.
const EarthRadiusMeters = 6371008.8

// DefaultUnit is assumed when a distance comes without units.
const DefaultUnit = "miles"

var metersPerUnit = map[string]float64{
	"miles":          1609.344,
	"mile":           1609.344,
	"mi":             1609.344,
	"kilometers":     1000,
	"kilometer":      1000,
	"kilometres":     1000,
	"kilometre":      1000,
	"km":             1000,
	"meters":         1,
	"meter":          1,
	"metres":         1,
	"metre":          1,
	"m":              1,
	"feet":           0.3048,
	"foot":           0.3048,
	"ft":             0.3048,
	"nauticalmiles":  1852,
	"nautical miles": 1852,
	"nmi":            1852,
	"degrees":        EarthRadiusMeters * math.Pi / 180,
	"degree":         EarthRadiusMeters * math.Pi / 180,
	"deg":            EarthRadiusMeters * math.Pi / 180,
}

// ToMeters converts a distance in the named unit to meters. An empty unit
// means DefaultUnit.
func ToMeters(distance float64, unit string) (float64, error) {
	u := strings.ToLower(strings.TrimSpace(unit))
	if u == "" {
		u = DefaultUnit
	}
	f, ok := metersPerUnit[u]
	if !ok {
		return 0, fmt.Errorf("unknown distance unit %q", unit)
	}
	return distance * f, nil
}
