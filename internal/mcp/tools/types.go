// Package tools implements the MCP tools exposed by the Igloo adapter.
package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/igloo-mcp/internal/igloo"
)

// Tool exposes the capabilities required by the MCP server registration lifecycle.
type Tool interface {
	Definition() mcp.Tool
	Handle(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// ContentSearcher abstracts the community content search capability.
type ContentSearcher interface {
	Search(ctx context.Context, query igloo.SearchQuery) (*igloo.SearchResult, error)
}

// PageFetcher abstracts community page retrieval by URL or object ID.
type PageFetcher interface {
	FetchPage(ctx context.Context, req igloo.FetchRequest) (*igloo.PagePayload, error)
	FetchPages(ctx context.Context, urls []string) []igloo.PageResult
}

// MemberDirectory abstracts member search and profile lookups.
type MemberDirectory interface {
	SearchMembers(ctx context.Context, query string, limit int) ([]igloo.MemberHit, error)
	MemberProfile(ctx context.Context, userID string) (*igloo.MemberDetail, error)
}
