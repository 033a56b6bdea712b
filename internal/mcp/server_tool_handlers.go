package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/igloo-mcp/internal/mcp/calllog"
	"github.com/Laisky/igloo-mcp/internal/mcp/ctxkeys"
	"github.com/Laisky/igloo-mcp/library"
	"github.com/Laisky/igloo-mcp/library/log"
)

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apiKey := apiKeyFromContext(ctx)
	args := argumentsMap(req.Params.Arguments)
	if s.searchTool == nil {
		result := mcp.NewToolResultError("search is not configured")
		s.recordToolInvocation(ctx, "search", apiKey, args, time.Now().UTC(), 0, result, nil)
		return result, nil
	}

	start := time.Now().UTC()
	result, err := s.searchTool.Handle(ctx, req)
	duration := time.Since(start)
	s.recordToolInvocation(ctx, "search", apiKey, args, start, duration, result, err)
	if err != nil {
		return result, errors.WithStack(err)
	}
	return result, nil
}

// handleFetch executes the fetch MCP tool. The context carries request metadata,
// and the request supplies the target URL or object ID. It returns a structured
// response when the fetch succeeds or a tool error when processing fails.
func (s *Server) handleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apiKey := apiKeyFromContext(ctx)
	args := argumentsMap(req.Params.Arguments)
	if s.fetchTool == nil {
		result := mcp.NewToolResultError("fetch is not configured")
		s.recordToolInvocation(ctx, "fetch", apiKey, args, time.Now().UTC(), 0, result, nil)
		return result, nil
	}

	start := time.Now().UTC()
	result, err := s.fetchTool.Handle(ctx, req)
	duration := time.Since(start)
	s.recordToolInvocation(ctx, "fetch", apiKey, args, start, duration, result, err)
	if err != nil {
		return result, errors.WithStack(err)
	}
	return result, nil
}

func (s *Server) handleMemberSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apiKey := apiKeyFromContext(ctx)
	args := argumentsMap(req.Params.Arguments)
	if s.memberSearchTool == nil {
		result := mcp.NewToolResultError("member search is not configured")
		s.recordToolInvocation(ctx, "search_members", apiKey, args, time.Now().UTC(), 0, result, nil)
		return result, nil
	}

	start := time.Now().UTC()
	result, err := s.memberSearchTool.Handle(ctx, req)
	duration := time.Since(start)
	s.recordToolInvocation(ctx, "search_members", apiKey, args, start, duration, result, err)
	if err != nil {
		return result, errors.WithStack(err)
	}
	return result, nil
}

func (s *Server) handleMemberProfile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apiKey := apiKeyFromContext(ctx)
	args := argumentsMap(req.Params.Arguments)
	if s.memberProfileTool == nil {
		result := mcp.NewToolResultError("member profile is not configured")
		s.recordToolInvocation(ctx, "get_member_profile", apiKey, args, time.Now().UTC(), 0, result, nil)
		return result, nil
	}

	start := time.Now().UTC()
	result, err := s.memberProfileTool.Handle(ctx, req)
	duration := time.Since(start)
	s.recordToolInvocation(ctx, "get_member_profile", apiKey, args, start, duration, result, err)
	if err != nil {
		return result, errors.WithStack(err)
	}
	return result, nil
}

func extractAPIKey(authHeader string) string {
	return library.StripBearerPrefix(authHeader)
}

func apiKeyFromContext(ctx context.Context) string {
	authHeader, _ := ctx.Value(keyAuthorization).(string)
	return extractAPIKey(authHeader)
}

// LoggerFromContext retrieves the per-request logger from the MCP context.
// Falls back to a shared logger if none is present in context.
func LoggerFromContext(ctx context.Context) logSDK.Logger {
	if logger, ok := ctx.Value(ctxkeys.Logger).(logSDK.Logger); ok && logger != nil {
		return logger
	}
	return log.Logger.Named("mcp_fallback")
}

func (s *Server) recordToolInvocation(ctx context.Context, toolName string, apiKey string, args map[string]any, startedAt time.Time, duration time.Duration, result *mcp.CallToolResult, invokeErr error) {
	if s.callLogger == nil {
		if s.logger != nil {
			s.logger.Debug("call logger is nil, skipping record", zap.String("tool", toolName))
		}
		return
	}

	params := cloneArguments(args)
	params = redactToolArguments(params)
	status := calllog.StatusSuccess
	errorMessage := ""

	if invokeErr != nil {
		status = calllog.StatusError
		errorMessage = invokeErr.Error()
	}

	if result != nil && result.IsError {
		status = calllog.StatusError
		if msg := toolErrorMessage(result); msg != "" {
			if errorMessage == "" {
				errorMessage = msg
			} else {
				errorMessage = fmt.Sprintf("%s | %s", errorMessage, msg)
			}
		}
	}

	if duration < 0 {
		duration = 0
	}

	occurredAt := startedAt.UTC()
	if startedAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	input := calllog.RecordInput{
		ToolName:     toolName,
		APIKey:       apiKey,
		Status:       status,
		Duration:     duration,
		Parameters:   params,
		ErrorMessage: errorMessage,
		OccurredAt:   occurredAt,
	}

	if err := s.callLogger.Record(ctx, input); err != nil {
		logger := s.logger
		if logger == nil {
			logger = log.Logger.Named("mcp")
		}
		logger.Warn("record call log", zap.Error(err), zap.String("tool", toolName))
	}
}

func cloneArguments(args map[string]any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(args))
	for key, value := range args {
		cloned[key] = value
	}
	return cloned
}

func argumentsMap(raw any) map[string]any {
	switch value := raw.(type) {
	case nil:
		return nil
	case map[string]any:
		return value
	case map[string]string:
		result := make(map[string]any, len(value))
		for key, item := range value {
			result[key] = item
		}
		return result
	default:
		return map[string]any{"value": value}
	}
}

func toolErrorMessage(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	if !result.IsError {
		return ""
	}
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			txt := strings.TrimSpace(textContent.Text)
			if txt != "" {
				return txt
			}
		}
	}
	if result.StructuredContent != nil {
		return fmt.Sprint(result.StructuredContent)
	}
	return ""
}
