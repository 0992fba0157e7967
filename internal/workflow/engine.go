// Package workflow provides the execution engine behind xfman's runs. It
// is consumed by both the MCP server and the CLI commands.
package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/deixis/xfman/internal/config"
	"github.com/deixis/xfman/internal/report"
	"github.com/deixis/xfman/internal/runner"
	"github.com/deixis/xfman/internal/script"
	"github.com/deixis/xfman/internal/xfoil"
	"github.com/google/uuid"
)

// Engine holds shared dependencies for all workflow operations.
type Engine struct {
	Config     *config.Config
	ResultsDir string // XFOIL's working directory
	Store      report.Store
}

// New returns an Engine for a loaded configuration, with results kept
// under the configured results directory. When that directory cannot
// hold them, results go to a temp directory and last for the process.
func New(loaded *config.LoadResult) *Engine {
	dir := loaded.Config.ResultsDir(loaded.Root)
	return &Engine{
		Config:     loaded.Config,
		ResultsDir: dir,
		Store:      report.NewLRUStore(16, newBackingStore(RunsDir(dir))),
	}
}

func newBackingStore(runsDir string) report.Store {
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		return report.NewDiskStore()
	}
	return report.NewDiskStoreAt(runsDir)
}

// RunsDir is where run results are persisted for a results directory.
func RunsDir(resultsDir string) string {
	return filepath.Join(resultsDir, config.DefaultRunsDir)
}

// Run feeds s to a fresh XFOIL process. The returned RunResult is always
// non-nil and has been saved to the store when one is configured; the
// error is the run's classified failure.
func (e *Engine) Run(ctx context.Context, s script.Script, timeout time.Duration) (*report.RunResult, error) {
	rr, err := e.run(ctx, report.Script, s, timeout)
	e.save(rr)
	return rr, err
}

// run executes s and fills a RunResult without saving it.
func (e *Engine) run(ctx context.Context, kind report.Kind, s script.Script, timeout time.Duration) (*report.RunResult, error) {
	rr := &report.RunResult{
		Kind:       kind,
		Started:    time.Now().UTC(),
		ResultsDir: e.ResultsDir,
		Script:     s.Commands(),
	}

	m, err := xfoil.New(e.options(), s)
	if err != nil {
		rr.ID = newRunID()
		fail(rr, err)
		return rr, err
	}
	defer m.Close()

	if timeout <= 0 {
		timeout = e.Config.Timeout()
	}
	res, runErr := m.Run(ctx, timeout)
	if res != nil {
		rr.ID = res.RunID
		rr.ExitCode = res.ExitCode
		rr.Stdout = string(res.Stdout)
		rr.Stderr = string(res.Stderr)
		rr.Truncated = res.Truncated
		for _, u := range res.Unrecognized {
			rr.Unrecognized = append(rr.Unrecognized, report.UnrecognizedCommand{Token: u.Token, Line: u.Line})
		}
	} else {
		rr.ID = newRunID()
	}

	if runErr != nil {
		fail(rr, runErr)
		return rr, runErr
	}
	rr.Status = report.Pass
	return rr, nil
}

func (e *Engine) options() xfoil.Options {
	return xfoil.Options{
		Binary:     e.Config.Binary(),
		ResultsDir: e.ResultsDir,
		Timeout:    e.Config.Timeout(),
		MaxOutput:  e.Config.MaxOutputBytes(),
	}
}

func (e *Engine) save(rr *report.RunResult) {
	if e.Store == nil {
		return
	}
	if err := e.Store.Save(rr); err != nil {
		// The run itself already finished; keep its outcome.
		rr.Error = joinMessages(rr.Error, "saving result: "+err.Error())
	}
}

// StatusOf maps a run error to the status recorded for it.
func StatusOf(err error) report.Status {
	switch {
	case err == nil:
		return report.Pass
	case errors.Is(err, script.ErrMalformed):
		return report.Malformed
	case errors.Is(err, runner.ErrTimeout):
		return report.Timeout
	case errors.Is(err, xfoil.ErrCommandNotRecognized):
		return report.Unrecognized
	case errors.Is(err, xfoil.ErrToolFailure):
		return report.ToolFailure
	default:
		return report.Errored
	}
}

func fail(rr *report.RunResult, err error) {
	rr.Status = StatusOf(err)
	rr.Error = err.Error()
}

func newRunID() string {
	return uuid.New().String()
}

func joinMessages(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
