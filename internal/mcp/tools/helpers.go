package tools

import (
	"context"
	"strings"
	"time"

	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/igloo-mcp/internal/igloo"
	"github.com/Laisky/igloo-mcp/internal/mcp/ctxkeys"
	"github.com/Laisky/igloo-mcp/library/log"
)

// dateArgLayout is the calendar date format accepted by tool arguments.
const dateArgLayout = "2006-01-02"

// toolLoggerFromContext returns a request-scoped logger when available.
func toolLoggerFromContext(ctx context.Context) logSDK.Logger {
	if ctxLogger := gmw.GetLogger(ctx); ctxLogger != nil {
		return ctxLogger
	}
	if ctxLogger, ok := ctx.Value(ctxkeys.Logger).(logSDK.Logger); ok && ctxLogger != nil {
		return ctxLogger
	}

	return log.Logger.Named("mcp_tools")
}

// toolErrorResult builds a structured MCP error response.
func toolErrorResult(kind igloo.Kind, message string, retryable bool) *mcp.CallToolResult {
	payload := map[string]any{
		"code":      string(kind),
		"message":   message,
		"retryable": retryable,
	}
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return mcp.NewToolResultError(message)
	}
	result.IsError = true
	return result
}

// toolErrorFromErr converts adapter errors into tool responses.
func toolErrorFromErr(err error) *mcp.CallToolResult {
	if err == nil {
		return nil
	}
	if typed, ok := igloo.AsError(err); ok {
		return toolErrorResult(typed.Kind, typed.Error(), typed.Retryable())
	}
	return toolErrorResult(igloo.KindTransient, "internal error", true)
}

// readStringArg extracts an optional string argument from the request.
func readStringArg(req mcp.CallToolRequest, key string) string {
	if req.Params.Arguments == nil {
		return ""
	}
	if raw, ok := req.Params.Arguments.(map[string]any); ok {
		if value, ok := raw[key].(string); ok {
			return value
		}
	}
	return ""
}

// readIntArg extracts an optional integer argument from the request.
func readIntArg(req mcp.CallToolRequest, key string) int {
	if req.Params.Arguments == nil {
		return 0
	}
	if raw, ok := req.Params.Arguments.(map[string]any); ok {
		switch value := raw[key].(type) {
		case int:
			return value
		case int64:
			return int(value)
		case float64:
			return int(value)
		}
	}
	return 0
}

// readIntArgWithDefault extracts an optional int argument with a default fallback.
func readIntArgWithDefault(req mcp.CallToolRequest, key string, def int) int {
	if req.Params.Arguments == nil {
		return def
	}
	if raw, ok := req.Params.Arguments.(map[string]any); ok {
		if _, exists := raw[key]; !exists {
			return def
		}
		switch value := raw[key].(type) {
		case int:
			return value
		case int64:
			return int(value)
		case float64:
			return int(value)
		}
	}
	return def
}

// readBoolArg extracts an optional bool argument from the request.
func readBoolArg(req mcp.CallToolRequest, key string) bool {
	if req.Params.Arguments == nil {
		return false
	}
	if raw, ok := req.Params.Arguments.(map[string]any); ok {
		if value, ok := raw[key].(bool); ok {
			return value
		}
	}
	return false
}

// readStringListArg extracts an optional list-of-strings argument. A plain
// string value is treated as a comma-separated list. Blank entries are
// dropped.
func readStringListArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return nil
	}

	var values []string
	switch arg := raw[key].(type) {
	case []any:
		for _, item := range arg {
			if text, ok := item.(string); ok {
				values = append(values, text)
			}
		}
	case []string:
		values = append(values, arg...)
	case string:
		values = strings.Split(arg, ",")
	default:
		return nil
	}

	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}

// stringItemSchema is the JSON schema for one string array element.
func stringItemSchema() map[string]any {
	return map[string]any{"type": "string"}
}

// parseDateArg parses a YYYY-MM-DD argument value in UTC. Empty input
// returns a zero time without error.
func parseDateArg(value, field string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, nil
	}
	ts, err := time.ParseInLocation(dateArgLayout, trimmed, time.UTC)
	if err != nil {
		return time.Time{}, igloo.NewValidationError(field, "must be a calendar date formatted as YYYY-MM-DD")
	}
	return ts, nil
}
