package mcp

import (
	"context"
	"net/http"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	srv "github.com/mark3labs/mcp-go/server"

	"github.com/Laisky/igloo-mcp/internal/igloo"
	"github.com/Laisky/igloo-mcp/internal/mcp/calllog"
	"github.com/Laisky/igloo-mcp/internal/mcp/ctxkeys"
	"github.com/Laisky/igloo-mcp/internal/mcp/tools"
	"github.com/Laisky/igloo-mcp/library/htmlmd"
	"github.com/Laisky/igloo-mcp/library/log"
)

type ctxKey string

// keyAuthorization carries the raw Authorization header into tool handlers.
const keyAuthorization ctxKey = "authorization"

const (
	serverName    = "igloo-mcp"
	serverVersion = "1.0.0"

	serverInstructions = "Use the search tool to locate Igloo content (wiki articles, blog posts, forum topics, calendar events, folders) and the fetch tool to read a page as markdown. " +
		"Long pages are truncated; pass the returned next_start_index back to fetch to continue reading. " +
		"Use search_members and get_member_profile to look up people in the member directory."
)

// Server wraps the MCP server state for the HTTP transport. Tools are bound at
// construction time; disabled tools are never registered, so clients see them
// neither in tools/list nor as callable methods.
type Server struct {
	handler    http.Handler
	logger     logSDK.Logger
	callLogger calllog.Recorder

	searchTool        tools.Tool
	fetchTool         tools.Tool
	memberSearchTool  tools.Tool
	memberProfileTool tools.Tool

	toolNames []string
}

// NewServer constructs a remote MCP server exposing the Igloo tools under a
// single streamable HTTP handler.
func NewServer(client *igloo.Client, converter *htmlmd.Converter, callLogger calllog.Recorder, serverSettings ServerSettings, toolsSettings ToolsSettings, logger logSDK.Logger) (*Server, error) {
	if client == nil {
		return nil, errors.New("igloo client is required")
	}
	if logger == nil {
		logger = log.Logger
	}
	if converter == nil {
		opts := []htmlmd.Option{}
		if serverSettings.MaxFetchChars > 0 {
			opts = append(opts, htmlmd.WithMaxChars(serverSettings.MaxFetchChars))
		}
		converter = htmlmd.New(opts...)
	}

	s := &Server{
		logger:     logger.Named("mcp"),
		callLogger: callLogger,
	}

	mcpServer := srv.NewMCPServer(
		serverName,
		serverVersion,
		srv.WithToolCapabilities(true),
		srv.WithInstructions(serverInstructions),
		srv.WithRecovery(),
		srv.WithHooks(newMCPHooks(logger.Named("mcp_hooks"))),
	)

	if toolsSettings.SearchEnabled {
		searchTool, err := tools.NewSearchTool(client, logger.Named("search_tool"), serverSettings.DefaultLimit, serverSettings.MaxLimit)
		if err != nil {
			return nil, errors.Wrap(err, "new search tool")
		}

		s.searchTool = searchTool
		mcpServer.AddTool(searchTool.Definition(), s.handleSearch)
		s.toolNames = append(s.toolNames, "search")
	}

	if toolsSettings.FetchEnabled {
		fetchTool, err := tools.NewFetchTool(client, converter, logger.Named("fetch_tool"))
		if err != nil {
			return nil, errors.Wrap(err, "new fetch tool")
		}

		s.fetchTool = fetchTool
		mcpServer.AddTool(fetchTool.Definition(), s.handleFetch)
		s.toolNames = append(s.toolNames, "fetch")
	}

	if toolsSettings.MemberSearchEnabled {
		memberSearchTool, err := tools.NewMemberSearchTool(client, logger.Named("member_search_tool"))
		if err != nil {
			return nil, errors.Wrap(err, "new member search tool")
		}

		s.memberSearchTool = memberSearchTool
		mcpServer.AddTool(memberSearchTool.Definition(), s.handleMemberSearch)
		s.toolNames = append(s.toolNames, "search_members")
	}

	if toolsSettings.MemberProfileEnabled {
		memberProfileTool, err := tools.NewMemberProfileTool(client, logger.Named("member_profile_tool"))
		if err != nil {
			return nil, errors.Wrap(err, "new member profile tool")
		}

		s.memberProfileTool = memberProfileTool
		mcpServer.AddTool(memberProfileTool.Definition(), s.handleMemberProfile)
		s.toolNames = append(s.toolNames, "get_member_profile")
	}

	streamable := srv.NewStreamableHTTPServer(
		mcpServer,
		srv.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			ctx = context.WithValue(ctx, keyAuthorization, r.Header.Get("Authorization"))
			ctx = context.WithValue(ctx, ctxkeys.Logger, s.logger)
			return ctx
		}),
	)

	// Normalization must run before the token guard so a key supplied via the
	// apikey query parameter satisfies the guard too.
	var handler http.Handler = withHTTPLogging(streamable, logger.Named("mcp_http"))
	handler = withAccessTokenGuard(handler, serverSettings.AuthToken, logger.Named("mcp_auth"))
	handler = withAuthorizationHeaderNormalization(handler, logger.Named("mcp_auth"))
	s.handler = handler

	return s, nil
}

// Handler returns the HTTP handler that should be mounted to serve MCP traffic.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// AvailableToolNames lists the tools registered at construction time, in
// registration order.
func (s *Server) AvailableToolNames() []string {
	names := make([]string, len(s.toolNames))
	copy(names, s.toolNames)
	return names
}
