package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/xfman/internal/script"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type validateParams struct {
	Commands []string `json:"commands" jsonschema:"XFOIL commands, one per prompt line; use an empty string for a bare Enter"`
	Wrap     bool     `json:"wrap,omitempty" jsonschema:"Treat commands as a body and add the PLOP, G, \"\" prefix and \"\", QUIT suffix. Default: false."`
}

func (h *handler) validateHandler(ctx context.Context, req *mcp.CallToolRequest, params validateParams) (*mcp.CallToolResult, any, error) {
	s := scriptFrom(params.Commands, params.Wrap)
	if err := s.Validate(); err != nil {
		return textResult(fmt.Sprintf("Status: MALFORMED\n\n%v\n", err))
	}

	var b strings.Builder
	fmt.Fprintln(&b, "Status: VALID")
	fmt.Fprintf(&b, "Commands: %d (%d in body)\n", s.Len(), len(s.Body()))
	fmt.Fprintln(&b)
	for _, c := range s.Commands() {
		fmt.Fprintf(&b, "  %q\n", c)
	}
	return textResult(b.String())
}

// scriptFrom builds the script a tool call describes. Unwrapped lists
// are kept as given so a malformed one is still recorded by the run.
func scriptFrom(cmds []string, wrap bool) script.Script {
	if wrap {
		return script.Wrap(cmds...)
	}
	return script.Raw(cmds)
}
