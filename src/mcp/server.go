package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"cameio-cli/src/logger"
	"cameio-cli/src/service"
	"cameio-cli/src/store"
)

// Dashboard is the part of the dashboard API the tools read.
type Dashboard interface {
	BuildStatus(ctx context.Context, sess *service.Session, statusURL string) (*service.BuildStatusResponse, error)
	Versions(ctx context.Context, sess *service.Session, appID string) ([]service.Version, error)
}

// Sessions returns the logged in session.
type Sessions interface {
	Get(ctx context.Context) (*service.Session, error)
}

// Config wires the server.
type Config struct {
	Dashboard Dashboard
	Sessions  Sessions
	History   store.History
	// Project supplies the default app id; may be nil outside a project.
	Project store.Store
	Version string
	Log     logger.Logger
}

// Server is the MCP server for cameio.
type Server struct {
	mcpServer *server.MCPServer
	cfg       Config
}

// NewServer creates a new MCP server.
func NewServer(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = logger.NewSilentLogger()
	}
	s := server.NewMCPServer(
		"cameio",
		cfg.Version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		cfg:       cfg,
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	statusTool := mcp.NewTool("build_status",
		mcp.WithDescription("Poll a cameio package build once and return its status: 0 submitted, 1 queued, 2 building, 3 success, 4 failed. Successful builds include the package download URL."),
		mcp.WithString("status_url",
			mcp.Required(),
			mcp.Description("Build status URL returned when the build was submitted"),
		),
	)

	versionsTool := mcp.NewTool("list_versions",
		mcp.WithDescription("List the uploaded versions of an app, marking the active one."),
		mcp.WithString("app_id",
			mcp.Description("Dashboard app id (default: app_id of the current project)"),
		),
	)

	buildsTool := mcp.NewTool("list_builds",
		mcp.WithDescription("List recent build events recorded by this machine, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Max events (default: 20)"),
		),
	)

	s.mcpServer.AddTool(statusTool, s.handleBuildStatus)
	s.mcpServer.AddTool(versionsTool, s.handleListVersions)
	s.mcpServer.AddTool(buildsTool, s.handleListBuilds)
}

// Run serves the protocol on in and out until ctx is done.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcpServer).Listen(ctx, in, out)
}

func (s *Server) handleBuildStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	statusURL := request.GetString("status_url", "")
	if statusURL == "" {
		return mcp.NewToolResultError("status_url parameter is required"), nil
	}

	sess, err := s.cfg.Sessions.Get(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("login failed: %v", err)), nil
	}

	resp, err := s.cfg.Dashboard.BuildStatus(ctx, sess, statusURL)
	if err != nil {
		s.cfg.Log.Error("mcp build_status %s: %v", statusURL, err)
		return mcp.NewToolResultError(fmt.Sprintf("status request failed: %v", err)), nil
	}

	return jsonResult(toBuildStatus(statusURL, resp))
}

func (s *Server) handleListVersions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	appID := request.GetString("app_id", "")
	if appID == "" && s.cfg.Project != nil {
		appID = s.cfg.Project.GetString("app_id")
	}
	if appID == "" {
		return mcp.NewToolResultError("app_id parameter is required outside a project with an app_id"), nil
	}

	sess, err := s.cfg.Sessions.Get(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("login failed: %v", err)), nil
	}

	versions, err := s.cfg.Dashboard.Versions(ctx, sess, appID)
	if err != nil {
		s.cfg.Log.Error("mcp list_versions %s: %v", appID, err)
		return mcp.NewToolResultError(fmt.Sprintf("versions request failed: %v", err)), nil
	}

	return jsonResult(VersionList{AppID: appID, Versions: versions})
}

func (s *Server) handleListBuilds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 20)
	if s.cfg.History == nil {
		return mcp.NewToolResultError("build history is not configured"), nil
	}

	events, err := s.cfg.History.List(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}

	return jsonResult(toBuildList(events))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
