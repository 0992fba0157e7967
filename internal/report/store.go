// Package report provides structured persistence and retrieval of
// XFOIL run results. Results are stored as typed structs and can be
// queried by diagnostic source or command token.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/deixis/xfman/internal/polar"
)

// Kind identifies the type of a run.
type Kind string

const (
	// Script is a run of a caller-supplied command script.
	Script Kind = "script"
	// Polar is an angle-of-attack sweep that produced a polar file.
	Polar Kind = "polar"
)

// Status classifies how a run ended.
type Status string

const (
	Pass         Status = "pass"
	Malformed    Status = "malformed"
	Timeout      Status = "timeout"
	ToolFailure  Status = "tool_failure"
	Unrecognized Status = "unrecognized"
	Errored      Status = "error"
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
	List() ([]string, error)
}

// RunResult holds the structured outcome of an XFOIL run.
type RunResult struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Status     Status    `json:"status"`
	Started    time.Time `json:"started"`
	ResultsDir string    `json:"results_dir"`
	Script     []string  `json:"script,omitempty"`
	ExitCode   int       `json:"exit_code"`
	Error      string    `json:"error,omitempty"`

	// Transcript fields.
	Stdout       string                `json:"stdout,omitempty"`
	Stderr       string                `json:"stderr,omitempty"`
	Truncated    bool                  `json:"truncated,omitempty"`
	Unrecognized []UnrecognizedCommand `json:"unrecognized,omitempty"`

	// Polar fields.
	PolarFile string       `json:"polar_file,omitempty"`
	Polar     *polar.Polar `json:"polar,omitempty"`
}

// Expect returns an error if the run's Kind does not match want.
func (r *RunResult) Expect(want Kind) error {
	if r.Kind != want {
		return fmt.Errorf("run %s is a %s run, not a %s run", r.ID, r.Kind, want)
	}
	return nil
}

// Passed reports whether the run succeeded.
func (r *RunResult) Passed() bool {
	return r.Status == Pass
}

// UnrecognizedCommand is a command XFOIL rejected, with the transcript
// line it was reported on.
type UnrecognizedCommand struct {
	Token string `json:"token"`
	Line  int    `json:"line"`
}

// Diagnostic is a uniform view over everything a run reported.
type Diagnostic struct {
	Source  string // "command", "exit", "stderr", "output", or a failure status
	Line    int    // transcript line, when known
	Symbol  string // offending command token (command diagnostics only)
	Message string
}

// Diagnostics flattens a run into diagnostics, in transcript order
// within each source.
func Diagnostics(r *RunResult) []Diagnostic {
	var out []Diagnostic

	switch r.Status {
	case Malformed, Timeout, Errored:
		out = append(out, Diagnostic{Source: string(r.Status), Message: r.Error})
	}

	for _, u := range r.Unrecognized {
		out = append(out, Diagnostic{
			Source:  "command",
			Line:    u.Line,
			Symbol:  u.Token,
			Message: u.Token + " command not recognized",
		})
	}
	if r.ExitCode != 0 {
		out = append(out, Diagnostic{
			Source:  "exit",
			Message: fmt.Sprintf("exit status %d", r.ExitCode),
		})
	}
	for i, line := range strings.Split(r.Stderr, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, Diagnostic{Source: "stderr", Line: i + 1, Message: line})
	}
	if r.Truncated {
		// The command scan only saw the captured part of stdout.
		out = append(out, Diagnostic{
			Source:  "output",
			Message: "transcript truncated at max_output; commands rejected past the cap were not scanned",
		})
	}

	return out
}

// BySource returns the diagnostics from one source. An empty source
// returns all of them.
func BySource(r *RunResult, source string) []Diagnostic {
	all := Diagnostics(r)
	if source == "" {
		return all
	}
	var out []Diagnostic
	for _, d := range all {
		if d.Source == source {
			out = append(out, d)
		}
	}
	return out
}

// ByToken returns the diagnostics naming a command token. Tokens are
// compared case-insensitively, as XFOIL does.
func ByToken(r *RunResult, token string) []Diagnostic {
	var out []Diagnostic
	for _, d := range Diagnostics(r) {
		if d.Symbol != "" && strings.EqualFold(d.Symbol, token) {
			out = append(out, d)
		}
	}
	return out
}

// TranscriptLines returns stdout lines from..to (1-based, inclusive),
// clamped to the transcript.
func TranscriptLines(r *RunResult, from, to int) []string {
	lines := strings.Split(strings.TrimRight(r.Stdout, "\n"), "\n")
	if from < 1 {
		from = 1
	}
	if to > len(lines) {
		to = len(lines)
	}
	if from > to {
		return nil
	}
	return lines[from-1 : to]
}
