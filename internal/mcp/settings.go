// Package mcp provides the MCP server surface of the Igloo adapter.
package mcp

import (
	"strings"

	gconfig "github.com/Laisky/go-config/v2"

	"github.com/Laisky/igloo-mcp/library/htmlmd"
)

// ToolsSettings captures runtime configuration for enabling or disabling individual MCP tools.
type ToolsSettings struct {
	SearchEnabled        bool
	FetchEnabled         bool
	MemberSearchEnabled  bool
	MemberProfileEnabled bool
}

// LoadToolsSettingsFromConfig reads the MCP tools configuration and returns a ToolsSettings instance.
// By default, all tools are enabled unless explicitly disabled in the configuration.
func LoadToolsSettingsFromConfig() ToolsSettings {
	return ToolsSettings{
		SearchEnabled:        boolFromConfig("settings.mcp.tools.search.enabled", true),
		FetchEnabled:         boolFromConfig("settings.mcp.tools.fetch.enabled", true),
		MemberSearchEnabled:  boolFromConfig("settings.mcp.tools.search_members.enabled", true),
		MemberProfileEnabled: boolFromConfig("settings.mcp.tools.get_member_profile.enabled", true),
	}
}

// ServerSettings captures runtime configuration for the MCP server surface.
type ServerSettings struct {
	// AuthToken, when set, is the shared secret MCP clients must present
	// as a bearer token.
	AuthToken string
	// DefaultLimit is the search hit count used when the caller omits one.
	DefaultLimit int
	// MaxLimit caps the search hit count a caller may request.
	MaxLimit int
	// MaxFetchChars bounds how many Markdown characters fetch returns
	// before cutting the document.
	MaxFetchChars int
}

// LoadServerSettingsFromConfig reads the MCP server configuration.
func LoadServerSettingsFromConfig() ServerSettings {
	return ServerSettings{
		AuthToken:     strings.TrimSpace(gconfig.Shared.GetString("settings.mcp.auth_token")),
		DefaultLimit:  intFromConfig("settings.mcp.search.default_limit", 10),
		MaxLimit:      intFromConfig("settings.mcp.search.max_limit", 200),
		MaxFetchChars: intFromConfig("settings.mcp.fetch.max_chars", htmlmd.DefaultMaxChars),
	}
}

// boolFromConfig retrieves a boolean configuration value with a default fallback.
func boolFromConfig(key string, def bool) bool {
	value := gconfig.S.Get(key)
	switch v := value.(type) {
	case nil:
		return def
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		switch v {
		case "true", "True", "TRUE", "1", "yes", "Yes", "YES":
			return true
		case "false", "False", "FALSE", "0", "no", "No", "NO":
			return false
		default:
			return def
		}
	default:
		return def
	}
}

// intFromConfig retrieves an integer configuration value with a default
// fallback. Missing and non-positive values fall back.
func intFromConfig(key string, def int) int {
	if value := gconfig.Shared.GetInt(key); value > 0 {
		return value
	}
	return def
}
