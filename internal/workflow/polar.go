package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deixis/xfman/internal/polar"
	"github.com/deixis/xfman/internal/report"
	"github.com/deixis/xfman/internal/runner"
	"github.com/deixis/xfman/internal/script"
)

// DefaultPolarFile is the polar file name used when a request names none.
const DefaultPolarFile = "polar.txt"

// PolarRequest describes an angle-of-attack sweep.
type PolarRequest struct {
	NACA        string  // NACA designation, e.g. "0012"; exclusive with AirfoilFile
	AirfoilFile string  // coordinate file inside the results directory
	Re          float64 // Reynolds number; 0 runs inviscid
	Mach        float64
	Iter        int     // viscous iteration limit; 0 uses the configured default
	Ncrit       float64 // 0 keeps the configured value, or XFOIL's default
	AlphaStart  float64
	AlphaEnd    float64
	AlphaStep   float64
	Output      string // polar file inside the results directory
}

// Validate reports requests XFOIL cannot run.
func (r *PolarRequest) Validate() error {
	switch {
	case r.NACA == "" && r.AirfoilFile == "":
		return errors.New("an airfoil is required: set naca or airfoil_file")
	case r.NACA != "" && r.AirfoilFile != "":
		return errors.New("naca and airfoil_file are mutually exclusive")
	case r.AlphaStep == 0:
		return errors.New("alpha step must not be zero")
	case (r.AlphaEnd-r.AlphaStart)*r.AlphaStep < 0:
		return fmt.Errorf("alpha step %g does not move from %g towards %g", r.AlphaStep, r.AlphaStart, r.AlphaEnd)
	case r.Re < 0:
		return fmt.Errorf("reynolds number must not be negative, got %g", r.Re)
	case r.Mach < 0 || r.Mach >= 1:
		return fmt.Errorf("mach number must be in [0, 1), got %g", r.Mach)
	case r.Iter < 0:
		return fmt.Errorf("iteration limit must not be negative, got %d", r.Iter)
	case r.Ncrit < 0:
		return fmt.Errorf("ncrit must not be negative, got %g", r.Ncrit)
	}
	return nil
}

// Script builds the XFOIL session for the sweep. airfoil and output are
// the names XFOIL sees, relative to its working directory.
func (r *PolarRequest) Script(airfoil, output string, iter int, ncrit float64) script.Script {
	b := script.NewBuilder()
	if r.NACA != "" {
		b.NACA(r.NACA)
	} else {
		b.Load(airfoil)
	}
	b.Oper()
	if r.Re > 0 {
		b.Visc(r.Re)
		b.Iter(iter)
		if ncrit > 0 {
			b.Ncrit(ncrit)
		}
	}
	if r.Mach > 0 {
		b.Mach(r.Mach)
	}
	b.PolarAccumulate(output)
	b.ASeq(r.AlphaStart, r.AlphaEnd, r.AlphaStep)
	return b.Build()
}

// Polar runs an angle-of-attack sweep and parses the polar file XFOIL
// writes. An invalid request returns a nil RunResult; otherwise the
// RunResult is always non-nil and saved, as with Run.
func (e *Engine) Polar(ctx context.Context, req PolarRequest, timeout time.Duration) (*report.RunResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid polar request: %w", err)
	}

	paths := &runner.Runner{Dir: e.ResultsDir}
	if req.Output == "" {
		req.Output = DefaultPolarFile
	}
	outPath, err := paths.Resolve(req.Output)
	if err != nil {
		return nil, fmt.Errorf("invalid polar request: %w", err)
	}
	output, err := filepath.Rel(e.ResultsDir, outPath)
	if err != nil {
		return nil, fmt.Errorf("invalid polar request: %w", err)
	}
	var airfoil string
	if req.AirfoilFile != "" {
		p, err := paths.Resolve(req.AirfoilFile)
		if err != nil {
			return nil, fmt.Errorf("invalid polar request: %w", err)
		}
		if airfoil, err = filepath.Rel(e.ResultsDir, p); err != nil {
			return nil, fmt.Errorf("invalid polar request: %w", err)
		}
	}

	// XFOIL prompts before appending to an existing polar file, which
	// would derail the script.
	if err := os.Remove(outPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("removing stale polar file: %w", err)
	}

	ncrit := req.Ncrit
	if ncrit == 0 {
		ncrit = e.Config.Polar.Ncrit
	}
	iter := req.Iter
	if iter == 0 {
		iter = e.Config.PolarIter()
	}
	s := req.Script(airfoil, output, iter, ncrit)

	rr, runErr := e.run(ctx, report.Polar, s, timeout)
	rr.PolarFile = outPath
	if runErr != nil {
		e.save(rr)
		return rr, runErr
	}

	p, err := polar.ParseFile(outPath)
	if err != nil {
		err = fmt.Errorf("reading polar: %w", err)
		fail(rr, err)
		e.save(rr)
		return rr, err
	}
	rr.Polar = p
	e.save(rr)
	return rr, nil
}
