// Package mcp provides the xfman MCP server, registering all tools and
// publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/xfman"
	"github.com/deixis/xfman/internal/config"
	"github.com/deixis/xfman/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu     sync.RWMutex
	engine *workflow.Engine // replaced when the client reports a root
}

// NewServer creates an MCP server with all xfman tools registered.
func NewServer(engine *workflow.Engine) *mcp.Server {
	h := &handler{engine: engine}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "xfman", Version: xfman.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "xf_validate",
		Description: `Check an XFOIL command list without running it.

A list must begin with PLOP, G, "" (disable graphics) and end with "", QUIT.
Set wrap=true to check the list as a body that xf_run would wrap.`,
	}, h.validateHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "xf_run",
		Description: `Run an XFOIL command list in a fresh XFOIL process and classify the outcome.

Each command is one line typed at the XFOIL prompt; "" is a bare Enter.
With wrap=true only the body is supplied and the required prefix and suffix are added.
Results are stored for drill-down via xf_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "xf_polar",
		Description: `Run an angle-of-attack sweep and return the polar table.

Give either a NACA designation or an airfoil coordinate file in the results directory.
Re=0 runs inviscid. Results are stored for drill-down via xf_inspect.`,
	}, h.polarHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "xf_inspect",
		Description: `Drill into a stored run from xf_run or xf_polar.

Filter diagnostics by source (command, exit, stderr, output, timeout, malformed, error)
or by a rejected command token, and read transcript lines by range.`,
	}, h.inspectHandler)

	return s
}

func (h *handler) eng() *workflow.Engine {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.engine
}

// updateWorkspaceFromRoots queries the client for MCP roots and rebuilds
// the engine from the configuration found at the first file root.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	loaded, err := config.Load(u.Path)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.engine = workflow.New(loaded)
	h.mu.Unlock()
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
