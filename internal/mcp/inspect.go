package mcp

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/deixis/xfman/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID  string `json:"run_id" jsonschema:"the run ID from an xf_run or xf_polar result"`
	Source string `json:"source,omitempty" jsonschema:"Only diagnostics from this source: command, exit, stderr, output, timeout, malformed or error"`
	Token  string `json:"token,omitempty" jsonschema:"Only diagnostics naming this rejected command token (case-insensitive)"`
	From   int    `json:"from,omitempty" jsonschema:"First transcript line to show (1-based)"`
	To     int    `json:"to,omitempty" jsonschema:"Last transcript line to show (inclusive). Defaults to the end of the transcript when from is set."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	if params.Source != "" && params.Token != "" {
		return errorResult("source and token are mutually exclusive")
	}

	result, err := h.eng().Store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	var diagnostics []report.Diagnostic
	if params.Token != "" {
		diagnostics = report.ByToken(result, params.Token)
	} else {
		diagnostics = report.BySource(result, params.Source)
	}

	return textResult(formatInspectOutput(result, params, diagnostics))
}

func formatInspectOutput(rr *report.RunResult, params inspectParams, diagnostics []report.Diagnostic) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s (%s, %s)\n", rr.ID, rr.Kind, rr.Status)
	fmt.Fprintf(&b, "Started: %s\n", rr.Started.Format("2006-01-02 15:04:05Z07:00"))
	fmt.Fprintf(&b, "Results: %s\n", rr.ResultsDir)
	fmt.Fprintln(&b)

	filter := "all"
	switch {
	case params.Token != "":
		filter = "token " + params.Token
	case params.Source != "":
		filter = "source " + params.Source
	}
	if len(diagnostics) == 0 {
		fmt.Fprintf(&b, "No diagnostics (%s).\n", filter)
	} else {
		fmt.Fprintf(&b, "Diagnostics (%s): %d\n", filter, len(diagnostics))
		for _, d := range diagnostics {
			if d.Line > 0 {
				fmt.Fprintf(&b, "  [%s] line %d: %s\n", d.Source, d.Line, d.Message)
			} else {
				fmt.Fprintf(&b, "  [%s] %s\n", d.Source, d.Message)
			}
		}
	}

	if params.From > 0 || params.To > 0 {
		from, to := params.From, params.To
		if to == 0 {
			to = math.MaxInt
		}
		lines := report.TranscriptLines(rr, from, to)
		fmt.Fprintln(&b)
		if len(lines) == 0 {
			fmt.Fprintln(&b, "Transcript: no lines in range.")
		} else {
			fmt.Fprintln(&b, "Transcript:")
			start := max(from, 1)
			for i, line := range lines {
				fmt.Fprintf(&b, "  %4d  %s\n", start+i, line)
			}
		}
	}

	if rr.Kind == report.Script && len(rr.Script) > 0 && params.From == 0 && params.To == 0 && params.Token == "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Script:")
		for i, c := range rr.Script {
			fmt.Fprintf(&b, "  %4d  %q\n", i+1, c)
		}
	}

	return b.String()
}
