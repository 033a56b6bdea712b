package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/igloo-mcp/internal/igloo"
)

// Fallback default and ceiling for the search tool's limit argument.
const (
	defaultSearchLimit = 10
	maxSearchLimit     = 200
)

// Response format argument values shared by the tools.
const (
	formatJSON = "json"
	formatText = "text"
)

// SearchTool implements the search MCP tool.
type SearchTool struct {
	searcher     ContentSearcher
	logger       logSDK.Logger
	defaultLimit int
	maxLimit     int
}

// NewSearchTool constructs a SearchTool with the provided dependencies.
// Non-positive limits fall back to package defaults.
func NewSearchTool(searcher ContentSearcher, logger logSDK.Logger, defaultLimit, maxLimit int) (*SearchTool, error) {
	if searcher == nil {
		return nil, errors.New("content searcher is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if defaultLimit <= 0 {
		defaultLimit = defaultSearchLimit
	}
	if maxLimit < defaultLimit {
		maxLimit = maxSearchLimit
	}

	return &SearchTool{
		searcher:     searcher,
		logger:       logger,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// Definition returns the MCP metadata describing the tool.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"search",
		mcp.WithDescription("Search content in the Igloo community. Returns normalized hits with stable IDs, canonical URLs, and an opaque page token for continuation."),
		mcp.WithString(
			"query",
			mcp.Required(),
			mcp.Description("Keyword expression to search for."),
		),
		mcp.WithArray(
			"applications",
			mcp.Description(fmt.Sprintf("Restrict hits to content applications: %s.", strings.Join(igloo.ApplicationNames(), ", "))),
			mcp.Items(stringItemSchema()),
		),
		mcp.WithArray(
			"parent_paths",
			mcp.Description("Restrict hits to pages under the given path prefixes, e.g. /knowledge-base."),
			mcp.Items(stringItemSchema()),
		),
		mcp.WithString(
			"updated_within",
			mcp.Description(fmt.Sprintf("Relative last-modified window: %s. Mutually exclusive with updated_from/updated_to.", strings.Join(igloo.UpdatedWithinValues(), ", "))),
		),
		mcp.WithString(
			"updated_from",
			mcp.Description("Start of an inclusive last-modified range, formatted as YYYY-MM-DD. Requires updated_to."),
		),
		mcp.WithString(
			"updated_to",
			mcp.Description("End of an inclusive last-modified range, formatted as YYYY-MM-DD. Requires updated_from."),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description(fmt.Sprintf("Maximum hits to return. Defaults to %d, capped at %d.", t.defaultLimit, t.maxLimit)),
		),
		mcp.WithString(
			"page_token",
			mcp.Description("Continuation token from a previous response to resume the traversal."),
		),
		mcp.WithBoolean("match_any", mcp.Description("Match any keyword instead of requiring all keywords.")),
		mcp.WithBoolean("include_archived", mcp.Description("Also return archived content.")),
		mcp.WithBoolean("exclude_microblog", mcp.Description("Drop microblog posts from the results.")),
		mcp.WithString("format", mcp.Description("Response format: json (default) or text.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// Handle executes the search tool logic using the configured dependencies.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return mcp.NewToolResultError("query cannot be empty"), nil
	}

	searchQuery, errResult := t.buildQuery(query, req)
	if errResult != nil {
		return errResult, nil
	}

	start := time.Now().UTC()
	t.logger.Debug("search started",
		zap.Int("query_len", len(query)),
		zap.Int("limit", searchQuery.Limit),
	)

	result, err := t.searcher.Search(ctx, searchQuery)
	if err != nil {
		t.logger.Warn("search failed", zap.Error(err), zap.Int("query_len", len(query)))
		return toolErrorFromErr(err), nil
	}

	t.logger.Debug("search completed",
		zap.Int("hits", len(result.Hits)),
		zap.Int("total_found", result.TotalFound),
		zap.Duration("duration", time.Since(start)),
	)

	if strings.EqualFold(readStringArg(req, "format"), formatText) {
		return mcp.NewToolResultText(igloo.FormatSearchResults(searchQuery, result)), nil
	}

	toolResult, err := mcp.NewToolResultJSON(result)
	if err != nil {
		t.logger.Error("encode search result", zap.Error(err))
		return mcp.NewToolResultError("failed to encode search result"), nil
	}
	return toolResult, nil
}

// buildQuery translates tool arguments into a search query. Argument
// parse failures return a structured validation result.
func (t *SearchTool) buildQuery(query string, req mcp.CallToolRequest) (igloo.SearchQuery, *mcp.CallToolResult) {
	searchQuery := igloo.SearchQuery{
		Term:             query,
		ParentPaths:      readStringListArg(req, "parent_paths"),
		PageToken:        strings.TrimSpace(readStringArg(req, "page_token")),
		MatchAny:         readBoolArg(req, "match_any"),
		IncludeArchived:  readBoolArg(req, "include_archived"),
		ExcludeMicroblog: readBoolArg(req, "exclude_microblog"),
	}

	for _, name := range readStringListArg(req, "applications") {
		app, err := igloo.ParseApplication(name)
		if err != nil {
			return igloo.SearchQuery{}, toolErrorResult(igloo.KindValidation, "applications: "+err.Error(), false)
		}
		searchQuery.Applications = append(searchQuery.Applications, app)
	}

	if window := strings.TrimSpace(readStringArg(req, "updated_within")); window != "" {
		parsed, err := igloo.ParseUpdatedWithin(window)
		if err != nil {
			return igloo.SearchQuery{}, toolErrorResult(igloo.KindValidation, "updated_within: "+err.Error(), false)
		}
		searchQuery.UpdatedWithin = parsed
	}

	var err error
	if searchQuery.UpdatedFrom, err = parseDateArg(readStringArg(req, "updated_from"), "updated_from"); err != nil {
		return igloo.SearchQuery{}, toolErrorFromErr(err)
	}
	if searchQuery.UpdatedTo, err = parseDateArg(readStringArg(req, "updated_to"), "updated_to"); err != nil {
		return igloo.SearchQuery{}, toolErrorFromErr(err)
	}

	limit := readIntArgWithDefault(req, "limit", t.defaultLimit)
	if limit <= 0 {
		return igloo.SearchQuery{}, toolErrorResult(igloo.KindValidation, "limit: must be a positive integer", false)
	}
	if limit > t.maxLimit {
		limit = t.maxLimit
	}
	searchQuery.Limit = limit

	return searchQuery, nil
}
