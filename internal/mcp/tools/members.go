package tools

import (
	"context"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/igloo-mcp/internal/igloo"
)

// defaultMemberLimit caps member search results unless overridden.
const defaultMemberLimit = 10

// MemberSearchTool implements the search_members MCP tool.
type MemberSearchTool struct {
	directory MemberDirectory
	logger    logSDK.Logger
}

// NewMemberSearchTool constructs a MemberSearchTool with the provided dependencies.
func NewMemberSearchTool(directory MemberDirectory, logger logSDK.Logger) (*MemberSearchTool, error) {
	if directory == nil {
		return nil, errors.New("member directory is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &MemberSearchTool{directory: directory, logger: logger}, nil
}

// Definition returns the MCP metadata describing the tool.
func (t *MemberSearchTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"search_members",
		mcp.WithDescription("Search the community member directory by name, username, or email fragment."),
		mcp.WithString(
			"query",
			mcp.Required(),
			mcp.Description("Name, username, or email fragment to look up."),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description("Maximum members to return. Defaults to 10."),
		),
		mcp.WithString("format", mcp.Description("Response format: json (default) or text.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// Handle executes the search_members tool logic.
func (t *MemberSearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return mcp.NewToolResultError("query cannot be empty"), nil
	}

	limit := readIntArgWithDefault(req, "limit", defaultMemberLimit)

	start := time.Now().UTC()
	hits, err := t.directory.SearchMembers(ctx, query, limit)
	if err != nil {
		t.logger.Warn("member search failed", zap.Error(err), zap.Int("query_len", len(query)))
		return toolErrorFromErr(err), nil
	}

	t.logger.Debug("member search completed",
		zap.Int("hits", len(hits)),
		zap.Duration("duration", time.Since(start)),
	)

	if strings.EqualFold(readStringArg(req, "format"), formatText) {
		return mcp.NewToolResultText(igloo.FormatMemberSearchResults(query, hits)), nil
	}

	toolResult, err := mcp.NewToolResultJSON(map[string]any{"members": hits, "count": len(hits)})
	if err != nil {
		t.logger.Error("encode member search result", zap.Error(err))
		return mcp.NewToolResultError("failed to encode member search result"), nil
	}
	return toolResult, nil
}

// MemberProfileTool implements the get_member_profile MCP tool.
type MemberProfileTool struct {
	directory MemberDirectory
	logger    logSDK.Logger
}

// NewMemberProfileTool constructs a MemberProfileTool with the provided dependencies.
func NewMemberProfileTool(directory MemberDirectory, logger logSDK.Logger) (*MemberProfileTool, error) {
	if directory == nil {
		return nil, errors.New("member directory is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &MemberProfileTool{directory: directory, logger: logger}, nil
}

// Definition returns the MCP metadata describing the tool.
func (t *MemberProfileTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"get_member_profile",
		mcp.WithDescription("Load a community member's profile: contact details, role, department, manager, and office fields."),
		mcp.WithString(
			"user_id",
			mcp.Required(),
			mcp.Description("Numeric user ID, typically taken from a search_members hit."),
		),
		mcp.WithString("format", mcp.Description("Response format: json (default) or text.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// Handle executes the get_member_profile tool logic.
func (t *MemberProfileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return mcp.NewToolResultError("user_id cannot be empty"), nil
	}

	start := time.Now().UTC()
	detail, err := t.directory.MemberProfile(ctx, userID)
	if err != nil {
		t.logger.Warn("member profile failed", zap.Error(err), zap.String("user_id", userID))
		return toolErrorFromErr(err), nil
	}

	t.logger.Debug("member profile completed",
		zap.String("user_id", userID),
		zap.Int("profile_fields", len(detail.Profile)),
		zap.Duration("duration", time.Since(start)),
	)

	if strings.EqualFold(readStringArg(req, "format"), formatText) {
		return mcp.NewToolResultText(igloo.FormatMemberProfile(detail)), nil
	}

	toolResult, err := mcp.NewToolResultJSON(detail)
	if err != nil {
		t.logger.Error("encode member profile result", zap.Error(err))
		return mcp.NewToolResultError("failed to encode member profile result"), nil
	}
	return toolResult, nil
}
