package ports

import (
	"context"

	"github.com/paulmach/orb/geojson"
)

// BoundaryRepository serves the reference dataset of named region polygons.
type BoundaryRepository interface {
	// All returns every region as one FeatureCollection.
	All(ctx context.Context) (*geojson.FeatureCollection, error)
}

// BoundaryWriter replaces the stored reference dataset.
type BoundaryWriter interface {
	ReplaceAll(ctx context.Context, fc *geojson.FeatureCollection) (int, error)
}
