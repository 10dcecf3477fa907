package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox is an axis-aligned rectangle in geographic coordinates.
// It serialises as [minX, minY, maxX, maxY].
type BoundingBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// NewBoundingBox builds a box from a four-number slice.
func NewBoundingBox(v []float64) (BoundingBox, error) {
	if len(v) != 4 {
		return BoundingBox{}, fmt.Errorf("bounding box needs 4 numbers, got %d", len(v))
	}
	b := BoundingBox{MinX: v[0], MinY: v[1], MaxX: v[2], MaxY: v[3]}
	if !b.Finite() {
		return BoundingBox{}, fmt.Errorf("bounding box has non-finite values: %v", v)
	}
	return b, nil
}

// Finite reports whether all four values are finite numbers.
func (b BoundingBox) Finite() bool {
	for _, v := range b.Array() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Valid reports whether the box is finite with minX < maxX and minY < maxY.
func (b BoundingBox) Valid() bool {
	return b.Finite() && b.MinX < b.MaxX && b.MinY < b.MaxY
}

// Degenerate reports a finite box with zero width or height.
func (b BoundingBox) Degenerate() bool {
	return b.Finite() && b.MinX <= b.MaxX && b.MinY <= b.MaxY &&
		(b.MinX == b.MaxX || b.MinY == b.MaxY)
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() GeoPoint {
	return GeoPoint{Lat: (b.MinY + b.MaxY) / 2, Lon: (b.MinX + b.MaxX) / 2}
}

// Array returns the box as [minX, minY, maxX, maxY].
func (b BoundingBox) Array() [4]float64 {
	return [4]float64{b.MinX, b.MinY, b.MaxX, b.MaxY}
}

func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Array())
}

func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	bb, err := NewBoundingBox(v)
	if err != nil {
		return err
	}
	*b = bb
	return nil
}
