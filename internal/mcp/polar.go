package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/xfman/internal/polar"
	"github.com/deixis/xfman/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type polarParams struct {
	NACA           string  `json:"naca,omitempty" jsonschema:"NACA 4- or 5-digit designation, e.g. 0012. Exclusive with airfoil_file."`
	AirfoilFile    string  `json:"airfoil_file,omitempty" jsonschema:"Airfoil coordinate file, relative to the results directory."`
	Re             float64 `json:"re,omitempty" jsonschema:"Reynolds number. 0 or omitted runs inviscid."`
	Mach           float64 `json:"mach,omitempty" jsonschema:"Freestream Mach number in [0, 1)."`
	Iter           int     `json:"iter,omitempty" jsonschema:"Viscous iteration limit. Defaults to the configured value (100)."`
	Ncrit          float64 `json:"ncrit,omitempty" jsonschema:"Transition amplification factor. Defaults to the configured value or XFOIL's 9."`
	AlphaStart     float64 `json:"alpha_start" jsonschema:"First angle of attack in degrees"`
	AlphaEnd       float64 `json:"alpha_end" jsonschema:"Last angle of attack in degrees"`
	AlphaStep      float64 `json:"alpha_step" jsonschema:"Angle increment in degrees; its sign must move from alpha_start towards alpha_end"`
	Output         string  `json:"output,omitempty" jsonschema:"Polar file name in the results directory. Default: polar.txt. An existing file is replaced."`
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty" jsonschema:"Kill XFOIL after this many seconds. Defaults to the configured timeout (15s)."`
}

func (h *handler) polarHandler(ctx context.Context, req *mcp.CallToolRequest, params polarParams) (*mcp.CallToolResult, any, error) {
	if params.TimeoutSeconds < 0 {
		return errorResult("timeout_seconds must not be negative")
	}

	rr, err := h.eng().Polar(ctx, workflow.PolarRequest{
		NACA:        params.NACA,
		AirfoilFile: params.AirfoilFile,
		Re:          params.Re,
		Mach:        params.Mach,
		Iter:        params.Iter,
		Ncrit:       params.Ncrit,
		AlphaStart:  params.AlphaStart,
		AlphaEnd:    params.AlphaEnd,
		AlphaStep:   params.AlphaStep,
		Output:      params.Output,
	}, seconds(params.TimeoutSeconds))
	if rr == nil {
		return errorResult(err.Error())
	}
	if !rr.Passed() {
		return textResult(formatRun(rr))
	}

	var b strings.Builder
	b.WriteString(formatRun(rr))
	fmt.Fprintf(&b, "Polar: %s\n", rr.PolarFile)
	b.WriteString(formatPolar(rr.Polar))
	return textResult(b.String())
}

func formatPolar(p *polar.Polar) string {
	var b strings.Builder

	if p.Airfoil != "" {
		fmt.Fprintf(&b, "Airfoil: %s\n", p.Airfoil)
	}
	fmt.Fprintf(&b, "Mach: %g  Re: %g  Ncrit: %g\n", p.Mach, p.Re, p.Ncrit)
	fmt.Fprintln(&b)

	if len(p.Rows) == 0 {
		fmt.Fprintln(&b, "No converged points.")
		return b.String()
	}
	for _, c := range p.Columns {
		fmt.Fprintf(&b, "%10s", c)
	}
	fmt.Fprintln(&b)
	for _, row := range p.Rows {
		for _, v := range row {
			fmt.Fprintf(&b, "%10.5f", v)
		}
		fmt.Fprintln(&b)
	}
	fmt.Fprintf(&b, "\n%d converged points.\n", len(p.Rows))
	return b.String()
}
