package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deixis/xfman/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// tailLines is how much of a failed run's transcript is shown inline.
const tailLines = 20

type runParams struct {
	Commands       []string `json:"commands" jsonschema:"XFOIL commands, one per prompt line; use an empty string for a bare Enter"`
	Wrap           bool     `json:"wrap,omitempty" jsonschema:"Add the required PLOP, G, \"\" prefix and \"\", QUIT suffix around commands. Default: false."`
	TimeoutSeconds float64  `json:"timeout_seconds,omitempty" jsonschema:"Kill XFOIL after this many seconds. Defaults to the configured timeout (15s)."`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	if params.TimeoutSeconds < 0 {
		return errorResult("timeout_seconds must not be negative")
	}

	rr, _ := h.eng().Run(ctx, scriptFrom(params.Commands, params.Wrap), seconds(params.TimeoutSeconds))
	return textResult(formatRun(rr))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func formatRun(rr *report.RunResult) string {
	var b strings.Builder

	if rr.Passed() {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintf(&b, "Status: FAIL (%s)\n", rr.Status)
	}
	fmt.Fprintf(&b, "Run: %s\n", rr.ID)
	switch rr.Status {
	case report.Pass, report.ToolFailure, report.Unrecognized:
		fmt.Fprintf(&b, "Exit: %d\n", rr.ExitCode)
	}
	fmt.Fprintln(&b)

	if rr.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", rr.Error)
		fmt.Fprintln(&b)
	}

	if len(rr.Unrecognized) > 0 {
		fmt.Fprintln(&b, "Unrecognized commands:")
		for _, u := range rr.Unrecognized {
			fmt.Fprintf(&b, "  line %d: %s\n", u.Line, u.Token)
		}
		fmt.Fprintln(&b)
	}

	if !rr.Passed() && rr.Stdout != "" {
		n := strings.Count(strings.TrimRight(rr.Stdout, "\n"), "\n") + 1
		from := max(1, n-tailLines+1)
		fmt.Fprintf(&b, "Transcript (lines %d-%d of %d):\n", from, n, n)
		for _, line := range report.TranscriptLines(rr, from, n) {
			fmt.Fprintf(&b, "    %s\n", line)
		}
		fmt.Fprintln(&b)
	}
	if rr.Truncated {
		fmt.Fprintln(&b, "Output was truncated at the configured max_output; commands rejected past the cap were not scanned.")
		fmt.Fprintln(&b)
	}

	if !rr.Passed() {
		fmt.Fprintf(&b, "Inspect with xf_inspect(run_id=%q).\n", rr.ID)
	}
	return b.String()
}
