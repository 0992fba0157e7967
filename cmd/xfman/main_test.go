package main

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/deixis/xfman/internal/polar"
	"github.com/deixis/xfman/internal/report"
)

func TestReadScript_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.xf")
	if err := os.WriteFile(path, []byte("NACA 0012\nOPER\nALFA 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := readScript([]string{path}, true)
	if err != nil {
		t.Fatalf("readScript: %v", err)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("wrapped script invalid: %v", err)
	}
	if !slices.Equal(s.Body(), []string{"NACA 0012", "OPER", "ALFA 2"}) {
		t.Errorf("Body() = %q", s.Body())
	}

	raw, err := readScript([]string{path}, false)
	if err != nil {
		t.Fatalf("readScript: %v", err)
	}
	if raw.Validate() == nil {
		t.Error("unwrapped body should be malformed")
	}
	if raw.Len() != 3 {
		t.Errorf("Len() = %d, want 3", raw.Len())
	}
}

func TestReadScript_Missing(t *testing.T) {
	if _, err := readScript([]string{filepath.Join(t.TempDir(), "nope")}, false); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestFormatRunCLI_Pass(t *testing.T) {
	rr := &report.RunResult{ID: "abc", Status: report.Pass, Stdout: " XFOIL   c>  QUIT"}
	got := formatRunCLI(rr, true)
	want := "ok      abc\n\n XFOIL   c>  QUIT\n"
	if got != want {
		t.Errorf("formatRunCLI =\n%q\nwant\n%q", got, want)
	}
}

func TestFormatRunCLI_Unrecognized(t *testing.T) {
	rr := &report.RunResult{
		ID:           "abc",
		Status:       report.Unrecognized,
		Error:        "FOO command not recognized.",
		Unrecognized: []report.UnrecognizedCommand{{Token: "FOO", Line: 3}},
		Truncated:    true,
	}
	got := formatRunCLI(rr, false)
	for _, want := range []string{"FAIL    abc (unrecognized)", "FOO command not recognized.", "line 3: FOO", "(output truncated)"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got:\n%s", want, got)
		}
	}
}

func TestFormatPolarCLI(t *testing.T) {
	p := &polar.Polar{
		Airfoil: "NACA 0012",
		Re:      1e6,
		Ncrit:   9,
		Columns: []string{"alpha", "CL"},
		Rows:    [][]float64{{0, 0}, {2, 0.2189}},
	}
	got := formatPolarCLI(p)
	want := "NACA 0012  Mach 0  Re 1e+06  Ncrit 9\n\n" +
		"    alpha       CL\n" +
		"   0.0000   0.0000\n" +
		"   2.0000   0.2189\n"
	if got != want {
		t.Errorf("formatPolarCLI =\n%q\nwant\n%q", got, want)
	}
}
