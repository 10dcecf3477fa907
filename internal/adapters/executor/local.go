// Package executor runs scripts in a local interpreter subprocess.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/samirrijal/terramind/internal/core/domain"
)

// DefaultTileURLPattern matches Earth Engine map tile templates.
const DefaultTileURLPattern = `https://earthengine\.googleapis\.com/[^\s]+/\{z\}/\{x\}/\{y\}(\?token=[^\s]+)?`

// Config configures a Local executor.
type Config struct {
	// Interpreter is the command line used to run the script file, e.g. "python3".
	Interpreter string
	Timeout     time.Duration
	// PreludePath names a file whose contents are prepended to every script.
	PreludePath string
	// TileURLPattern is a regexp matched against stdout to fill TileURL.
	TileURLPattern string
	// WorkDir holds the temporary script files. Empty means os.TempDir().
	WorkDir string
	// MaxOutputBytes caps each of stdout and stderr. Zero means 4 MiB.
	MaxOutputBytes int
}

// Local writes each script to a temp file and runs it with the interpreter.
type Local struct {
	argv    []string
	timeout time.Duration
	prelude string
	tileRe  *regexp.Regexp
	workDir string
	maxOut  int
}

// NewLocal validates cfg and loads the prelude.
func NewLocal(cfg Config) (*Local, error) {
	argv := strings.Fields(cfg.Interpreter)
	if len(argv) == 0 {
		argv = []string{"python3"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.TileURLPattern == "" {
		cfg.TileURLPattern = DefaultTileURLPattern
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = 4 << 20
	}
	re, err := regexp.Compile(cfg.TileURLPattern)
	if err != nil {
		return nil, fmt.Errorf("tile url pattern: %w", err)
	}
	var prelude string
	if cfg.PreludePath != "" {
		b, err := os.ReadFile(cfg.PreludePath)
		if err != nil {
			return nil, fmt.Errorf("read prelude: %w", err)
		}
		prelude = string(b)
	}
	return &Local{
		argv:    argv,
		timeout: cfg.Timeout,
		prelude: prelude,
		tileRe:  re,
		workDir: cfg.WorkDir,
		maxOut:  cfg.MaxOutputBytes,
	}, nil
}

// Execute runs code. A non-zero exit status is returned in the result;
// exceeding the timeout returns domain.ErrExecutionTimeout.
func (l *Local) Execute(ctx context.Context, code string) (*domain.ExecutionResult, error) {
	f, err := os.CreateTemp(l.workDir, "script-*.py")
	if err != nil {
		return nil, fmt.Errorf("create script file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	source := code
	if l.prelude != "" {
		source = l.prelude + "\n" + code
	}
	if _, err := f.WriteString(source); err != nil {
		f.Close()
		return nil, fmt.Errorf("write script file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close script file: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	args := append(append([]string{}, l.argv[1:]...), path)
	cmd := exec.CommandContext(runCtx, l.argv[0], args...)
	cmd.WaitDelay = 2 * time.Second
	stdout := &cappedBuffer{limit: l.maxOut}
	stderr := &cappedBuffer{limit: l.maxOut}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		slog.WarnContext(ctx, "script timed out", "timeout", l.timeout)
		return nil, fmt.Errorf("%w after %s", domain.ErrExecutionTimeout, l.timeout)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	res := &domain.ExecutionResult{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.truncated || stderr.truncated,
		Duration:  elapsed,
	}
	if stdout.truncated {
		res.Stderr += fmt.Sprintf("\n[stdout truncated at %d bytes]", l.maxOut)
		slog.WarnContext(ctx, "script stdout truncated", "limit_bytes", l.maxOut)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run interpreter: %w", err)
		}
		res.ExitCode = exitErr.ExitCode()
	}
	l.annotate(res)
	return res, nil
}

// annotate fills TileURL and BBox from recognisable stdout content.
func (l *Local) annotate(res *domain.ExecutionResult) {
	if res.Stdout == "" {
		return
	}
	if m := l.tileRe.FindString(res.Stdout); m != "" {
		res.TileURL = m
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}
		if raw, ok := obj["bbox"]; ok {
			res.BBox = raw
		}
	}
}

// cappedBuffer keeps the first limit bytes written and discards the rest.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
