package geojsonfile_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/samirrijal/terramind/internal/adapters/geojsonfile"
)

const twoRegions = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"name":"A"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
 {"type":"Feature","properties":{"name":"B"},"geometry":{"type":"Polygon","coordinates":[[[1,0],[2,0],[2,1],[1,1],[1,0]]]}}
]}`

func TestRepo_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.geojson")
	if err := os.WriteFile(path, []byte(twoRegions), 0o600); err != nil {
		t.Fatal(err)
	}

	fc, err := geojsonfile.New(path).All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}
	if fc.Features[1].Properties["name"] != "B" {
		t.Errorf("unexpected second feature: %v", fc.Features[1].Properties)
	}
}

func TestRepo_URLIsFetchedOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Write([]byte(twoRegions))
	}))
	defer srv.Close()

	repo := geojsonfile.New(srv.URL)
	for i := 0; i < 3; i++ {
		if _, err := repo.All(context.Background()); err != nil {
			t.Fatalf("All: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 fetch, got %d", hits.Load())
	}
}

func TestRepo_Errors(t *testing.T) {
	if _, err := geojsonfile.New(filepath.Join(t.TempDir(), "missing.geojson")).All(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	if _, err := geojsonfile.New(srv.URL).All(context.Background()); err == nil {
		t.Error("expected error for 404")
	}

	path := filepath.Join(t.TempDir(), "bad.geojson")
	os.WriteFile(path, []byte("not json"), 0o600)
	if _, err := geojsonfile.New(path).All(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}
