package calllog

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
)

// NewHTTPHandler builds an HTTP handler exposing the recent call log window.
func NewHTTPHandler(service *Service, logger logSDK.Logger) http.Handler {
	return &httpHandler{service: service, logger: logger}
}

type httpHandler struct {
	service *Service
	logger  logSDK.Logger
}

func (h *httpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The router may mount the handler under a configurable base path, so
	// only the route suffix is matched here.
	switch {
	case strings.HasSuffix(r.URL.Path, "/api/logs") && r.Method == http.MethodGet:
		h.handleList(w, r)
	default:
		h.notFound(w, r)
	}
}

func (h *httpHandler) handleList(w http.ResponseWriter, r *http.Request) {
	logger := h.logFromCtx(r.Context())

	if h.service == nil {
		h.writeErrorWithLogger(w, logger, http.StatusServiceUnavailable, "call log service unavailable")
		return
	}

	q := r.URL.Query()
	limit := parseIntDefault(q.Get("limit"), 50)
	tool := q.Get("tool")
	userPrefix := q.Get("user")

	from, _ := parseDateParam(q.Get("from"))
	to, hasTime := parseDateParam(q.Get("to"))
	if !to.IsZero() && !hasTime {
		to = to.AddDate(0, 0, 1)
	}

	logger.Debug("call log list request",
		zap.String("tool", tool),
		zap.String("user_prefix", userPrefix),
		zap.Int("limit", limit),
		zap.Time("from", from),
		zap.Time("to", to),
	)

	result, err := h.service.List(r.Context(), ListOptions{
		Limit:      limit,
		ToolName:   tool,
		UserPrefix: userPrefix,
		From:       from,
		To:         to,
	})
	if err != nil {
		logger.Warn("list call logs", zap.Error(err))
		h.writeErrorWithLogger(w, logger, http.StatusBadRequest, err.Error())
		return
	}

	entries := make([]map[string]any, 0, len(result.Entries))
	for _, entry := range result.Entries {
		entries = append(entries, map[string]any{
			"id":          entry.ID.String(),
			"tool":        entry.ToolName,
			"status":      entry.Status,
			"user_prefix": entry.KeyPrefix,
			"duration_ms": entry.DurationMillis,
			"parameters":  entry.Parameters,
			"error":       entry.ErrorMessage,
			"occurred_at": entry.OccurredAt,
		})
	}

	response := map[string]any{
		"data": entries,
		"filters": map[string]any{
			"tool":         tool,
			"user":         userPrefix,
			"from":         from,
			"to_exclusive": to,
		},
		"meta": map[string]any{
			"matched":     result.Total,
			"window_size": h.service.window,
		},
	}

	h.writeJSON(w, response)
}

func (h *httpHandler) notFound(w http.ResponseWriter, r *http.Request) {
	logger := h.logFromCtx(r.Context())
	h.writeErrorWithLogger(w, logger, http.StatusNotFound, "resource not found")
}

func (h *httpHandler) writeErrorWithLogger(w http.ResponseWriter, logger logSDK.Logger, status int, message string) {
	if status >= 500 {
		logger.Error("call log http error", zap.Int("status", status), zap.String("message", message))
	} else {
		logger.Warn("call log http warning", zap.Int("status", status), zap.String("message", message))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}

func (h *httpHandler) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

// logFromCtx extracts a context-aware logger, falling back to the handler's
// logger and then the shared logger.
func (h *httpHandler) logFromCtx(ctx context.Context) logSDK.Logger {
	if logger := gmw.GetLogger(ctx); logger != nil {
		return logger.Named("call_log_http")
	}
	if h.logger != nil {
		return h.logger
	}
	return logSDK.Shared.Named("call_log_http")
}

func parseIntDefault(value string, def int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return def
	}
	num, err := strconv.Atoi(trimmed)
	if err != nil {
		return def
	}
	return num
}

func parseDateParam(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}

	if ts, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return ts.UTC(), true
	}

	const dateLayout = "2006-01-02"
	if ts, err := time.ParseInLocation(dateLayout, trimmed, time.UTC); err == nil {
		return ts, false
	}

	return time.Time{}, false
}
