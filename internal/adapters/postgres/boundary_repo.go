package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/terramind/internal/core/domain"
)

// BoundaryRepo implements ports.BoundaryRepository and ports.BoundaryWriter
// over the boundaries table.
type BoundaryRepo struct {
	db *DB
}

func NewBoundaryRepo(db *DB) *BoundaryRepo {
	return &BoundaryRepo{db: db}
}

// All returns every stored region as a FeatureCollection, ordered by name.
func (r *BoundaryRepo) All(ctx context.Context) (*geojson.FeatureCollection, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT name, properties, ST_AsGeoJSON(geom)
		FROM boundaries
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query boundaries: %w", err)
	}
	defer rows.Close()

	fc := geojson.NewFeatureCollection()
	for rows.Next() {
		var (
			name  string
			props []byte
			geom  []byte
		)
		if err := rows.Scan(&name, &props, &geom); err != nil {
			return nil, fmt.Errorf("scan boundary: %w", err)
		}

		g, err := geojson.UnmarshalGeometry(geom)
		if err != nil {
			return nil, fmt.Errorf("decode geometry of %q: %w", name, err)
		}
		f := geojson.NewFeature(g.Geometry())
		if len(props) > 0 {
			if err := json.Unmarshal(props, &f.Properties); err != nil {
				return nil, fmt.Errorf("decode properties of %q: %w", name, err)
			}
		}
		if f.Properties == nil {
			f.Properties = geojson.Properties{}
		}
		if _, ok := f.Properties["name"]; !ok {
			f.Properties["name"] = name
		}
		fc.Append(f)
	}
	return fc, rows.Err()
}

// ReplaceAll swaps the stored regions for the given collection in one
// transaction. Features without a name property are skipped.
func (r *BoundaryRepo) ReplaceAll(ctx context.Context, fc *geojson.FeatureCollection) (int, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM boundaries`); err != nil {
		return 0, fmt.Errorf("clear boundaries: %w", err)
	}

	batch := &pgx.Batch{}
	for _, f := range fc.Features {
		name := domain.RegionName(f.Properties)
		if name == "" || f.Geometry == nil {
			continue
		}
		props, err := json.Marshal(f.Properties)
		if err != nil {
			return 0, fmt.Errorf("encode properties of %q: %w", name, err)
		}
		geom, err := geojson.NewGeometry(f.Geometry).MarshalJSON()
		if err != nil {
			return 0, fmt.Errorf("encode geometry of %q: %w", name, err)
		}
		batch.Queue(`
			INSERT INTO boundaries (name, properties, geom)
			VALUES ($1, $2, ST_Multi(ST_SetSRID(ST_GeomFromGeoJSON($3), 4326)))`,
			name, props, string(geom))
	}

	n := batch.Len()
	if n > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("insert boundaries: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}
