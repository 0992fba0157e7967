// Package runner executes an interactive tool once: it feeds a script to
// the process's stdin, captures stdout and stderr, and enforces a
// timeout that takes the whole process group down with it.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default values used when a Runner field is left zero.
const (
	DefaultTimeout   = 15 * time.Second
	DefaultMaxOutput = 1 << 20 // 1 MB

	// waitDelay bounds how long Wait keeps draining pipes after the
	// process was killed, in case a grandchild holds them open.
	waitDelay = 2 * time.Second
)

// ErrTimeout is matched by errors returned when a run exceeds its
// timeout.
var ErrTimeout = errors.New("timed out")

// TimeoutError reports a run that was killed after Timeout elapsed.
type TimeoutError struct {
	Binary  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s after %s", e.Binary, ErrTimeout, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout || target == context.DeadlineExceeded
}

// Runner executes Binary inside Dir.
type Runner struct {
	Binary    string
	Dir       string
	Timeout   time.Duration
	MaxOutput int // bytes, per stream
}

// Run starts Binary with no arguments, writes stdin to it and closes the
// pipe, then waits for the process to exit. Dir is created if it does
// not exist. A non-zero exit status is not an error; it is reported in
// Result.ExitCode.
func (r *Runner) Run(ctx context.Context, stdin []byte) (*Result, error) {
	if r.Binary == "" {
		return nil, fmt.Errorf("no binary configured")
	}

	dir, err := r.ensureDir()
	if err != nil {
		return nil, err
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runID := uuid.New().String()

	cmd := exec.CommandContext(runCtx, r.Binary)
	cmd.Dir = dir
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	outW := &limitWriter{buf: &stdout, limit: maxOutput}
	errW := &limitWriter{buf: &stderr, limit: maxOutput}
	cmd.Stdout = outW
	cmd.Stderr = errW

	runErr := cmd.Run()

	if runErr != nil && runCtx.Err() != nil {
		if ctx.Err() == nil || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Binary: r.Binary, Timeout: timeout}
		}
		return nil, fmt.Errorf("running %s: %w", r.Binary, ctx.Err())
	}

	truncated := outW.dropped || errW.dropped

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// Binary not found or other exec error.
			return nil, fmt.Errorf("executing %s: %w", r.Binary, runErr)
		}
	}

	return &Result{
		RunID:     runID,
		ExitCode:  exitCode,
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Truncated: truncated,
	}, nil
}

func (r *Runner) ensureDir() (string, error) {
	dir := r.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determining working directory: %w", err)
		}
		dir = wd
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating results directory: %w", err)
	}
	return dir, nil
}

// Resolve resolves name relative to Dir and validates it stays within
// Dir. It is used for files the tool reads or writes by name.
func (r *Runner) Resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty path")
	}

	var path string
	if filepath.IsAbs(name) {
		path = filepath.Clean(name)
	} else {
		path = filepath.Clean(filepath.Join(r.Dir, name))
	}

	rel, err := filepath.Rel(r.Dir, path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", name, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside results directory %q", name, r.Dir)
	}
	if rel == "." {
		return "", fmt.Errorf("path %q names the results directory itself", name)
	}
	return path, nil
}

// limitWriter writes up to limit bytes to buf, then discards the rest
// and records that it did.
type limitWriter struct {
	buf     *bytes.Buffer
	limit   int
	dropped bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if len(p) > remaining {
		w.dropped = true
		if remaining > 0 {
			w.buf.Write(p[:remaining])
		}
		// Report all bytes as consumed to avoid short write errors
		// from io.Copy.
		return len(p), nil
	}
	return w.buf.Write(p)
}
