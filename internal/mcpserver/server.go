// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes stk playlist tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/stk/internal/bpl"
	"github.com/starford/stk/internal/playlistservice"
)

const formatURI = "stk://bpl-format"

// Server wraps the MCP server with stk tools.
type Server struct {
	mcp *server.MCPServer
	svc *playlistservice.Service
}

// New creates a new MCP server with all stk tools registered.
func New(svc *playlistservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"stk",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_playlists",
		mcp.WithDescription("List the catalogued playlists of the library with their format and entry count."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listPlaylists)

	s.mcp.AddTool(mcp.NewTool("read_playlist",
		mcp.WithDescription("Read and decode a playlist. Returns its entries with sections as JSON."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Library-relative path (e.g. lists/highway.bpl)")),
	), s.readPlaylist)

	s.mcp.AddTool(mcp.NewTool("write_playlist",
		mcp.WithDescription("Create or replace a playlist from recording paths, one per line. "+
			"The format follows the extension (.bpl/.xml, .ini, .txt). Read the format "+
			"contract via get_bpl_format or the "+formatURI+" resource first."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Library-relative path of the playlist")),
		mcp.WithString("recordings", mcp.Required(), mcp.Description("Recording paths separated by newlines")),
	), s.writePlaylist)

	s.mcp.AddTool(mcp.NewTool("find_recording",
		mcp.WithDescription("Find playlist entries whose recording path contains the query (case-insensitive)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Path fragment, e.g. a recording name")),
	), s.findRecording)

	s.mcp.AddTool(mcp.NewTool("playlists_containing",
		mcp.WithDescription("List every playlist that references the given recording."),
		mcp.WithString("recording", mcp.Required(), mcp.Description("Full recording path")),
	), s.playlistsContaining)

	s.mcp.AddTool(mcp.NewTool("operate_playlists",
		mcp.WithDescription("Combine two library playlists with a set operation: and, or, xor, sub."),
		mcp.WithString("op", mcp.Required(), mcp.Description("Operation"), mcp.Enum("and", "or", "xor", "sub")),
		mcp.WithString("first", mcp.Required(), mcp.Description("First playlist path")),
		mcp.WithString("second", mcp.Description("Second playlist path (empty playlist when omitted)")),
		mcp.WithBoolean("strict", mcp.Description("Compare exact path strings instead of normalized paths")),
		mcp.WithString("output", mcp.Description("Optional library path the result is written to")),
	), s.operatePlaylists)

	s.mcp.AddTool(mcp.NewTool("get_bpl_format",
		mcp.WithDescription("Returns the playlist format contract (XML, INI and TXT layouts, path comparison rules)."),
	), s.getBplFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Playlist Format Contract",
			mcp.WithResourceDescription("Layouts of the XML, INI and TXT playlist formats."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listPlaylists(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, total, err := s.svc.ListPlaylists(ctx, req.GetInt("limit", 50), req.GetInt("offset", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"playlists": rows, "total": total}), nil
}

func (s *Server) readPlaylist(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.GetPlaylist(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", path, err)), nil
	}
	return jsonResult(p), nil
}

func (s *Server) writePlaylist(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	recs, err := req.RequireString("recordings")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p := bpl.FromPaths(strings.Split(strings.ReplaceAll(recs, "\r\n", "\n"), "\n")...)
	_, created, err := s.svc.PutPlaylist(ctx, path, p.Entries(), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	verb := "updated"
	if created {
		verb = "created"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s (%d entries)", verb, path, p.Len())), nil
}

func (s *Server) findRecording(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.svc.FindRecording(ctx, query, 50)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(hits), nil
}

func (s *Server) playlistsContaining(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, err := req.RequireString("recording")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lists, err := s.svc.PlaylistsContaining(ctx, rec)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(lists) == 0 {
		return mcp.NewToolResultText("no playlist references this recording"), nil
	}
	return mcp.NewToolResultText(strings.Join(lists, "\n")), nil
}

func (s *Server) operatePlaylists(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	op, err := req.RequireString("op")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	first, err := req.RequireString("first")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Operate(ctx, playlistservice.OperateRequest{
		Op:     op,
		First:  first,
		Second: req.GetString("second", ""),
		Strict: req.GetBool("strict", false),
		Output: req.GetString("output", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) getBplFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(BplFormatContract), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     BplFormatContract,
		},
	}, nil
}
