// Package xfoil manages XFOIL sessions. A Manager owns one validated
// command script and at most one live XFOIL process; each Run feeds the
// script to a fresh process and classifies the transcript.
package xfoil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/deixis/xfman/internal/runner"
	"github.com/deixis/xfman/internal/script"
)

// DefaultBinary is the executable name resolved via PATH when Options
// leaves Binary empty.
const DefaultBinary = "xfoil"

var (
	// ErrBusy is returned by Run while another run on the same Manager
	// is in progress.
	ErrBusy = errors.New("xfoil: run already in progress")
	// ErrClosed is returned by Run after Close.
	ErrClosed = errors.New("xfoil: manager closed")
)

// Options configures a Manager.
type Options struct {
	Binary     string        // default DefaultBinary
	ResultsDir string        // XFOIL's working directory; default the current directory
	Timeout    time.Duration // default runner.DefaultTimeout
	MaxOutput  int           // bytes per stream; default runner.DefaultMaxOutput
}

// Result is the outcome of one Run.
type Result struct {
	RunID        string
	ExitCode     int
	Stdout       []byte
	Stderr       []byte
	Truncated    bool
	Unrecognized []Unrecognized
}

// Manager runs one script against XFOIL. It is safe for concurrent use,
// but only one run is live at a time.
type Manager struct {
	runner runner.Runner
	script script.Script

	mu     sync.Mutex
	cancel context.CancelFunc // non-nil while a run is live
	done   chan struct{}      // closed when the live run returns
	closed bool
	stdout []byte
	stderr []byte
}

// New returns a Manager for s. The results directory is created if it
// does not exist.
func New(opts Options, s script.Script) (*Manager, error) {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.ResultsDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining results directory: %w", err)
		}
		opts.ResultsDir = wd
	}
	if err := os.MkdirAll(opts.ResultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}
	return &Manager{
		runner: runner.Runner{
			Binary:    opts.Binary,
			Dir:       opts.ResultsDir,
			Timeout:   opts.Timeout,
			MaxOutput: opts.MaxOutput,
		},
		script: s,
	}, nil
}

// ResultsDir returns XFOIL's working directory.
func (m *Manager) ResultsDir() string { return m.runner.Dir }

// Run validates the script, runs XFOIL with it and classifies the
// outcome. timeout overrides the configured timeout when positive.
//
// The returned error matches exactly one of script.ErrMalformed,
// runner.ErrTimeout, ErrToolFailure or ErrCommandNotRecognized, or is an
// execution or cancellation error. Result is non-nil whenever XFOIL ran
// to completion, including on ErrToolFailure and
// ErrCommandNotRecognized.
func (m *Manager) Run(ctx context.Context, timeout time.Duration) (*Result, error) {
	if err := m.script.Validate(); err != nil {
		return nil, err
	}

	ctx, err := m.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer m.release()

	r := m.runner
	if timeout > 0 {
		r.Timeout = timeout
	}
	res, err := r.Run(ctx, m.script.Bytes())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.stdout, m.stderr = res.Stdout, res.Stderr
	m.mu.Unlock()

	out := &Result{
		RunID:        res.RunID,
		ExitCode:     res.ExitCode,
		Stdout:       res.Stdout,
		Stderr:       res.Stderr,
		Truncated:    res.Truncated,
		Unrecognized: UnrecognizedCommands(res.Stdout),
	}
	return out, Classify(res.ExitCode, res.Stdout)
}

// acquire marks a run as live, clears the previous run's output and
// derives the context Close cancels.
func (m *Manager) acquire(ctx context.Context) (context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.cancel != nil {
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.stdout, m.stderr = nil, nil
	return ctx, nil
}

func (m *Manager) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancel()
	m.cancel = nil
	close(m.done)
}

// Stdout returns the standard output captured by the last completed run.
func (m *Manager) Stdout() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.stdout)
}

// Stderr returns the standard error captured by the last completed run.
func (m *Manager) Stderr() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.stderr)
}

// Close kills a live XFOIL process, waits for its Run to return and
// rejects further runs. It is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
