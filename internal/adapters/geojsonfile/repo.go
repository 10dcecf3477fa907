// Package geojsonfile serves the reference boundary dataset from a GeoJSON
// file on disk or an HTTP(S) URL.
package geojsonfile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
)

const maxDownloadBytes = 64 << 20

// Repo implements ports.BoundaryRepository. The collection is read once and
// kept in memory; a failed read is retried on the next call.
type Repo struct {
	source string
	client *http.Client

	mu sync.Mutex
	fc *geojson.FeatureCollection
}

// New returns a repository reading from source, a path or an http(s) URL.
func New(source string) *Repo {
	return &Repo{source: source, client: &http.Client{Timeout: 30 * time.Second}}
}

func (r *Repo) All(ctx context.Context) (*geojson.FeatureCollection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fc != nil {
		return r.fc, nil
	}

	data, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.source, err)
	}
	r.fc = fc
	return fc, nil
}

func (r *Repo) read(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(r.source, "http://") && !strings.HasPrefix(r.source, "https://") {
		data, err := os.ReadFile(r.source)
		if err != nil {
			return nil, fmt.Errorf("read boundaries: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch boundaries: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch boundaries: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
}
