package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/terramind/internal/core/domain"
)

func newShell(t *testing.T, cfg Config) *Local {
	t.Helper()
	cfg.Interpreter = "sh"
	if cfg.WorkDir == "" {
		cfg.WorkDir = t.TempDir()
	}
	l, err := NewLocal(cfg)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return l
}

func TestLocal_CapturesOutput(t *testing.T) {
	l := newShell(t, Config{})
	res, err := l.Execute(context.Background(), "echo hello; echo warn >&2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stdout != "hello\n" {
		t.Errorf("unexpected stdout %q", res.Stdout)
	}
	if res.Stderr != "warn\n" {
		t.Errorf("unexpected stderr %q", res.Stderr)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit 0, got %d", res.ExitCode)
	}
}

func TestLocal_NonZeroExitIsNotAnError(t *testing.T) {
	l := newShell(t, Config{})
	res, err := l.Execute(context.Background(), "echo broken >&2; exit 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit 3, got %d", res.ExitCode)
	}
}

func TestLocal_Timeout(t *testing.T) {
	l := newShell(t, Config{Timeout: 100 * time.Millisecond})
	_, err := l.Execute(context.Background(), "sleep 5")
	if !errors.Is(err, domain.ErrExecutionTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestLocal_RemovesScriptFile(t *testing.T) {
	dir := t.TempDir()
	l := newShell(t, Config{WorkDir: dir})
	if _, err := l.Execute(context.Background(), "true"); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected work dir to be empty, found %d entries", len(entries))
	}
}

func TestLocal_Prelude(t *testing.T) {
	prelude := filepath.Join(t.TempDir(), "prelude.sh")
	if err := os.WriteFile(prelude, []byte("GREETING=from-prelude"), 0o600); err != nil {
		t.Fatal(err)
	}
	l := newShell(t, Config{PreludePath: prelude})
	res, err := l.Execute(context.Background(), `echo "$GREETING"`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(res.Stdout) != "from-prelude" {
		t.Errorf("expected prelude variable, got %q", res.Stdout)
	}
}

func TestLocal_MissingPrelude(t *testing.T) {
	if _, err := NewLocal(Config{PreludePath: "/nonexistent/prelude.py"}); err == nil {
		t.Error("expected error for missing prelude")
	}
}

func TestLocal_AnnotatesTileURLAndBBox(t *testing.T) {
	l := newShell(t, Config{})
	script := `echo "Tile: https://earthengine.googleapis.com/v1/projects/p/maps/abc/tiles/{z}/{x}/{y}"
echo '{"bbox": [1, 2, 3, 4]}'`
	res, err := l.Execute(context.Background(), script)
	if err != nil {
		t.Fatal(err)
	}
	want := "https://earthengine.googleapis.com/v1/projects/p/maps/abc/tiles/{z}/{x}/{y}"
	if res.TileURL != want {
		t.Errorf("expected tile url %q, got %q", want, res.TileURL)
	}
	if string(res.BBox) != "[1, 2, 3, 4]" {
		t.Errorf("unexpected bbox %s", res.BBox)
	}
}

func TestLocal_TruncatesOutput(t *testing.T) {
	l := newShell(t, Config{MaxOutputBytes: 8})
	res, err := l.Execute(context.Background(), "echo 0123456789abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if res.Stdout != "01234567" {
		t.Errorf("stdout should hold only the captured prefix, got %q", res.Stdout)
	}
	if !res.Truncated {
		t.Error("expected Truncated to be set")
	}
	if !strings.Contains(res.Stderr, "[stdout truncated at 8 bytes]") {
		t.Errorf("expected truncation note on stderr, got %q", res.Stderr)
	}
}

func TestLocal_UntruncatedOutputIsNotFlagged(t *testing.T) {
	l := newShell(t, Config{MaxOutputBytes: 64})
	res, err := l.Execute(context.Background(), `echo '{"type":"FeatureCollection","features":[]}'`)
	if err != nil {
		t.Fatal(err)
	}
	if res.Truncated || strings.Contains(res.Stderr, "truncated") {
		t.Errorf("unexpected truncation: %+v", res)
	}
}
