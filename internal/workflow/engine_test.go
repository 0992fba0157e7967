package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/deixis/xfman/internal/config"
	"github.com/deixis/xfman/internal/report"
	"github.com/deixis/xfman/internal/runner"
	"github.com/deixis/xfman/internal/script"
	"github.com/deixis/xfman/internal/xfoil"
)

// polarStub reads the script, finds the file name XFOIL would be given
// after PACC and writes a small polar there. It refuses to run when the
// file already exists, as XFOIL would prompt.
const polarStub = `prev=""
file=""
while IFS= read -r line; do
  if [ "$prev" = "PACC" ]; then file="$line"; fi
  prev="$line"
done
[ -n "$file" ] || exit 9
[ -e "$file" ] && exit 7
cat > "$file" <<'EOF'
 Calculated polar for: NACA 0012

 Mach =   0.000     Re =     1.000 e 6     Ncrit =   9.000

   alpha    CL        CD       CDp       CM     Top_Xtr  Bot_Xtr
  ------ -------- --------- --------- -------- -------- --------
   0.000   0.0000   0.00540   0.00103   0.0000   0.7430   0.7430
   1.000   0.1095   0.00543   0.00106   0.0003   0.6913   0.7917
EOF
echo " XFOIL   c>  QUIT"`

func stubXfoil(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xfoil")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestEngine(t *testing.T, body string) *Engine {
	t.Helper()
	dir := t.TempDir()
	return &Engine{
		Config:     &config.Config{RawBinary: stubXfoil(t, body), RawTimeout: "10s"},
		ResultsDir: dir,
		Store:      report.NewLRUStore(4, report.NewDiskStoreAt(RunsDir(dir))),
	}
}

func TestNew_FromConfig(t *testing.T) {
	root := t.TempDir()
	e := New(&config.LoadResult{Config: &config.Config{RawResultsDir: "out"}, Root: root})
	if e.ResultsDir != filepath.Join(root, "out") {
		t.Errorf("ResultsDir = %q", e.ResultsDir)
	}
	if e.Store == nil {
		t.Error("Store is nil")
	}
}

func TestNew_UnwritableResultsDir(t *testing.T) {
	root := t.TempDir()
	// A regular file where the results directory should be.
	if err := os.WriteFile(filepath.Join(root, "out"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	e := New(&config.LoadResult{Config: &config.Config{RawResultsDir: "out"}, Root: root})

	rr := &report.RunResult{ID: "run-1", Status: report.Pass}
	if err := e.Store.Save(rr); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ids, err := e.Store.List()
	if err != nil || !slices.Equal(ids, []string{"run-1"}) {
		t.Errorf("List() = %v, %v, want [run-1]", ids, err)
	}
}

func TestRun_Pass(t *testing.T) {
	e := newTestEngine(t, `cat >/dev/null; echo " XFOIL   c>  QUIT"`)

	rr, err := e.Run(context.Background(), script.Wrap("NACA 0012"), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rr.Status != report.Pass || rr.Kind != report.Script || rr.ID == "" {
		t.Errorf("RunResult = %+v", rr)
	}
	if !slices.Equal(rr.Script, script.Wrap("NACA 0012").Commands()) {
		t.Errorf("Script = %q", rr.Script)
	}

	stored, err := e.Store.Load(rr.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stored.Status != report.Pass {
		t.Errorf("stored Status = %s", stored.Status)
	}
	if _, err := os.Stat(filepath.Join(RunsDir(e.ResultsDir), rr.ID+".json")); err != nil {
		t.Errorf("run not persisted: %v", err)
	}
}

func TestRun_Statuses(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		script  script.Script
		timeout time.Duration
		status  report.Status
		target  error
	}{
		{"malformed", "touch spawned", script.Script{}, 0, report.Malformed, script.ErrMalformed},
		{"tool failure", "cat >/dev/null; exit 2", script.Wrap(), 0, report.ToolFailure, xfoil.ErrToolFailure},
		{"unrecognized", "cat >/dev/null; echo 'XFOIL c> FOO command not recognized.'", script.Wrap("FOO"), 0, report.Unrecognized, xfoil.ErrCommandNotRecognized},
		{"timeout", "exec sleep 30", script.Wrap(), 200 * time.Millisecond, report.Timeout, runner.ErrTimeout},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := newTestEngine(t, c.body)
			rr, err := e.Run(context.Background(), c.script, c.timeout)
			if !errors.Is(err, c.target) {
				t.Fatalf("Run error = %v, want %v", err, c.target)
			}
			if rr == nil || rr.Status != c.status {
				t.Fatalf("RunResult = %+v, want status %s", rr, c.status)
			}
			if rr.ID == "" || rr.Error == "" {
				t.Errorf("RunResult = %+v, want an ID and an error message", rr)
			}
			if _, err := e.Store.Load(rr.ID); err != nil {
				t.Errorf("failed run not stored: %v", err)
			}
		})
	}
}

func TestRun_UnrecognizedRecorded(t *testing.T) {
	e := newTestEngine(t, "cat >/dev/null; echo banner; echo 'XFOIL c> FOO command not recognized.'; exit 1")
	rr, _ := e.Run(context.Background(), script.Wrap("FOO"), 0)
	want := []report.UnrecognizedCommand{{Token: "FOO", Line: 2}}
	if !slices.Equal(rr.Unrecognized, want) {
		t.Errorf("Unrecognized = %+v, want %+v", rr.Unrecognized, want)
	}
	if rr.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", rr.ExitCode)
	}
}

func TestStatusOf(t *testing.T) {
	cases := map[report.Status]error{
		report.Pass:         nil,
		report.Malformed:    &script.MalformedError{Reason: "x"},
		report.Timeout:      fmt.Errorf("wrapped: %w", &runner.TimeoutError{Binary: "xfoil", Timeout: time.Second}),
		report.ToolFailure:  &xfoil.ToolError{ExitCode: 1},
		report.Unrecognized: &xfoil.CommandNotRecognizedError{Token: "FOO"},
		report.Errored:      errors.New("executing xfoil: not found"),
	}
	for want, err := range cases {
		if got := StatusOf(err); got != want {
			t.Errorf("StatusOf(%v) = %s, want %s", err, got, want)
		}
	}
}

func TestPolar(t *testing.T) {
	e := newTestEngine(t, polarStub)

	// A stale polar file must not reach XFOIL.
	stale := filepath.Join(e.ResultsDir, "naca0012.txt")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	rr, err := e.Polar(context.Background(), PolarRequest{
		NACA:       "0012",
		Re:         1e6,
		AlphaStart: 0,
		AlphaEnd:   1,
		AlphaStep:  1,
		Output:     "naca0012.txt",
	}, 0)
	if err != nil {
		t.Fatalf("Polar: %v (stdout %q)", err, rr.Stdout)
	}
	if rr.Kind != report.Polar || rr.Status != report.Pass {
		t.Errorf("RunResult = %+v", rr)
	}
	if rr.PolarFile != stale {
		t.Errorf("PolarFile = %q, want %q", rr.PolarFile, stale)
	}
	if rr.Polar == nil || len(rr.Polar.Points) != 2 || rr.Polar.Points[1].CL != 0.1095 {
		t.Fatalf("Polar = %+v", rr.Polar)
	}

	stored, err := e.Store.Load(rr.ID)
	if err != nil || stored.Polar == nil {
		t.Errorf("stored polar run = %+v, %v", stored, err)
	}
}

func TestPolar_NoPolarWritten(t *testing.T) {
	e := newTestEngine(t, "cat >/dev/null")
	rr, err := e.Polar(context.Background(), PolarRequest{NACA: "0012", AlphaStart: 0, AlphaEnd: 2, AlphaStep: 1}, 0)
	if err == nil {
		t.Fatal("expected error when XFOIL writes no polar")
	}
	if rr == nil || rr.Status != report.Errored || !strings.Contains(rr.Error, "reading polar") {
		t.Errorf("RunResult = %+v", rr)
	}
	if rr.PolarFile != filepath.Join(e.ResultsDir, DefaultPolarFile) {
		t.Errorf("PolarFile = %q, want the default name", rr.PolarFile)
	}
}

func TestPolar_InvalidRequest(t *testing.T) {
	e := newTestEngine(t, "touch spawned")
	cases := []PolarRequest{
		{AlphaStep: 1},
		{NACA: "0012", AirfoilFile: "e387.dat", AlphaStep: 1},
		{NACA: "0012"},
		{NACA: "0012", AlphaStart: 5, AlphaEnd: 0, AlphaStep: 1},
		{NACA: "0012", AlphaStep: 1, Re: -1},
		{NACA: "0012", AlphaStep: 1, Mach: 1.2},
		{NACA: "0012", AlphaStep: 1, Output: "../escape.txt"},
		{NACA: "0012", AlphaStep: 1, Output: "."},
		{AirfoilFile: "/etc/passwd", AlphaStep: 1},
	}
	for _, req := range cases {
		rr, err := e.Polar(context.Background(), req, 0)
		if err == nil || !strings.Contains(err.Error(), "invalid polar request") {
			t.Errorf("Polar(%+v) error = %v, want invalid request", req, err)
		}
		if rr != nil {
			t.Errorf("Polar(%+v) returned a RunResult for an invalid request", req)
		}
	}
	if _, err := os.Stat(filepath.Join(e.ResultsDir, "spawned")); !os.IsNotExist(err) {
		t.Error("XFOIL was started for an invalid request")
	}
	if _, err := os.Stat(e.ResultsDir); err != nil {
		t.Errorf("results directory removed by an invalid request: %v", err)
	}
}

func TestPolarRequest_Script(t *testing.T) {
	viscous := PolarRequest{NACA: "2412", Re: 3e6, Mach: 0.2, AlphaStart: -4, AlphaEnd: 8, AlphaStep: 2}
	got := viscous.Script("", "out.txt", 150, 7).Body()
	want := []string{
		"NACA 2412",
		"OPER",
		"VISC 3e+06",
		"ITER 150",
		"VPAR", "N 7", "",
		"MACH 0.2",
		"PACC", "out.txt", "",
		"ASEQ -4 8 2",
	}
	if !slices.Equal(got, want) {
		t.Errorf("viscous Body() =\n%q\nwant\n%q", got, want)
	}

	inviscid := PolarRequest{AirfoilFile: "e387.dat", AlphaStart: 0, AlphaEnd: 4, AlphaStep: 1}
	got = inviscid.Script("e387.dat", "polar.txt", 100, 9).Body()
	want = []string{"LOAD e387.dat", "OPER", "PACC", "polar.txt", "", "ASEQ 0 4 1"}
	if !slices.Equal(got, want) {
		t.Errorf("inviscid Body() =\n%q\nwant\n%q", got, want)
	}
}
