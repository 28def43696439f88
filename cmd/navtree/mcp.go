package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lthms/navtree/internal/hierarchy"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPCmd serves one index to MCP clients over stdio.
type MCPCmd struct {
	File    string `arg:"" name:"file" help:"Hierarchy index."`
	BaseURL string `name:"base-url" help:"Prefix for page links."`
}

// Run blocks until the client disconnects.
func (cmd *MCPCmd) Run(ctx context.Context, env *Env) error {
	base := cmd.BaseURL
	if base == "" {
		base = env.Config.Render.BaseURL
	}
	hs := &hierarchyServer{
		path:    cmd.File,
		baseURL: base,
		opts:    hierarchy.Options{CheckLinks: env.Config.Check.Links},
	}
	if _, err := hs.index(); err != nil {
		return err
	}

	slog.Debug("starting MCP server", "file", cmd.File)
	return hs.server().Run(ctx, &mcp.StdioTransport{})
}

// hierarchyServer answers tool calls from the index at path, reloading it
// when the file changes on disk.
type hierarchyServer struct {
	path    string
	baseURL string
	opts    hierarchy.Options

	mu      sync.Mutex
	idx     *hierarchy.Index
	modTime time.Time
}

func (hs *hierarchyServer) server() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "navtree",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "hierarchy_lookup",
		Description: "Look up a class in the documentation class hierarchy. Returns its page link, direct bases and subclasses, and all ancestors and descendants as JSON.",
	}, hs.handleLookup)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "hierarchy_search",
		Description: "Search class names in the documentation class hierarchy (case-insensitive substring). Returns a JSON array of names.",
	}, hs.handleSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "hierarchy_check",
		Description: "Validate the documentation class hierarchy index and return its findings as JSON.",
	}, hs.handleCheck)

	return server
}

// index returns the parsed index, reparsing the file if it changed.
func (hs *hierarchyServer) index() (*hierarchy.Index, error) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	fi, err := os.Stat(hs.path)
	if err != nil {
		return nil, fmt.Errorf("stat index: %w", err)
	}
	if hs.idx != nil && fi.ModTime().Equal(hs.modTime) {
		return hs.idx, nil
	}

	f, err := loadIndex(hs.path, hs.opts)
	if err != nil {
		return nil, err
	}
	hs.idx = hierarchy.NewIndex(f)
	hs.modTime = fi.ModTime()
	slog.Debug("index loaded", "file", hs.path, "classes", hs.idx.Len())
	return hs.idx, nil
}

type lookupArgs struct {
	Class string `json:"class" jsonschema:"Class name as listed in the index, e.g. aix3adb.cookietransport"`
}

func (hs *hierarchyServer) handleLookup(ctx context.Context, req *mcp.CallToolRequest, args lookupArgs) (*mcp.CallToolResult, any, error) {
	slog.Debug("hierarchy_lookup called", "class", args.Class)

	idx, err := hs.index()
	if err != nil {
		return nil, nil, err
	}
	res, err := lookupClass(idx, args.Class, hs.baseURL)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(res)
}

type searchArgs struct {
	Query string `json:"query" jsonschema:"Case-insensitive substring of the class name"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of names to return (default 50)"`
}

func (hs *hierarchyServer) handleSearch(ctx context.Context, req *mcp.CallToolRequest, args searchArgs) (*mcp.CallToolResult, any, error) {
	slog.Debug("hierarchy_search called", "query", args.Query, "limit", args.Limit)

	idx, err := hs.index()
	if err != nil {
		return nil, nil, err
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 50
	}
	return jsonResult(searchClasses(idx, args.Query, limit))
}

type checkArgs struct{}

// checkIssue is the JSON form of a validation finding.
type checkIssue struct {
	Severity string   `json:"severity"`
	Line     int      `json:"line,omitempty"`
	Path     []string `json:"path,omitempty"`
	Message  string   `json:"message"`
}

type checkReport struct {
	OK      bool         `json:"ok"`
	Entries int          `json:"entries"`
	Classes int          `json:"classes"`
	Issues  []checkIssue `json:"issues"`
}

func (hs *hierarchyServer) handleCheck(ctx context.Context, req *mcp.CallToolRequest, args checkArgs) (*mcp.CallToolResult, any, error) {
	slog.Debug("hierarchy_check called")

	r := checkFile(hs.path, hs.opts)
	if r.Err != nil {
		return jsonResult(checkReport{
			Issues: []checkIssue{{Severity: "error", Message: r.Err.Error()}},
		})
	}

	out := checkReport{
		OK:      r.Report.Err() == nil,
		Entries: r.Report.Nodes,
		Classes: r.Report.Classes,
		Issues:  []checkIssue{},
	}
	for _, is := range r.Report.Issues {
		out.Issues = append(out.Issues, checkIssue{
			Severity: is.Severity.String(),
			Line:     is.Line,
			Path:     is.Path,
			Message:  is.Msg,
		})
	}
	return jsonResult(out)
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}
