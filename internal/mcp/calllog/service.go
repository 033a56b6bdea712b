package calllog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	errors "github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/Laisky/igloo-mcp/library/log"
)

// Clock provides the current time in UTC.
type Clock func() time.Time

// defaultWindowSize bounds how many entries the service retains in memory.
const defaultWindowSize = 256

// Service emits one structured log line per tool invocation and retains a
// bounded window of recent entries. The adapter holds no database, so the
// log stream is the durable record and the window only feeds diagnostics.
type Service struct {
	logger logSDK.Logger
	clock  Clock

	mu      sync.Mutex
	entries []Entry
	window  int
}

var _ Recorder = (*Service)(nil)

// NewService builds a call log service. A nil logger falls back to the
// shared application logger and a nil clock to UTC wall time.
func NewService(logger logSDK.Logger, clock Clock) *Service {
	if logger == nil {
		logger = log.Logger.Named("call_log")
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	return &Service{logger: logger, clock: clock, window: defaultWindowSize}
}

// Record logs a tool invocation and appends it to the in-memory window.
func (s *Service) Record(ctx context.Context, input RecordInput) error {
	if s == nil {
		return errors.New("call log service is nil")
	}
	trimmedTool := strings.TrimSpace(input.ToolName)
	if trimmedTool == "" {
		return errors.New("tool name is required")
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = StatusSuccess
	}

	keyHash, keyPrefix := normalizeAPIKey(input.APIKey)

	occurred := input.OccurredAt
	if occurred.IsZero() {
		occurred = s.clock()
	}

	entry := Entry{
		ID:             gutils.UUID7Bytes(),
		ToolName:       trimmedTool,
		APIKeyHash:     keyHash,
		KeyPrefix:      keyPrefix,
		Status:         status,
		DurationMillis: input.Duration.Milliseconds(),
		Parameters:     cloneParameters(input.Parameters),
		ErrorMessage:   strings.TrimSpace(input.ErrorMessage),
		OccurredAt:     occurred,
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	if len(s.entries) > s.window {
		s.entries = append([]Entry(nil), s.entries[len(s.entries)-s.window:]...)
	}
	s.mu.Unlock()

	params, err := json.Marshal(entry.Parameters)
	if err != nil {
		return errors.Wrap(err, "marshal call log parameters")
	}

	fields := []zap.Field{
		zap.String("record_id", entry.ID.String()),
		zap.String("tool", entry.ToolName),
		zap.String("status", entry.Status),
		zap.Int64("duration_ms", entry.DurationMillis),
		zap.Time("occurred_at", entry.OccurredAt),
		zap.ByteString("parameters", params),
	}
	if keyPrefix != "" {
		fields = append(fields,
			zap.String("key_prefix", keyPrefix),
			zap.String("api_key_hash", keyHash),
		)
	}
	if entry.ErrorMessage != "" {
		fields = append(fields, zap.String("error_message", entry.ErrorMessage))
	}

	s.logger.Info("tool invocation", fields...)
	return nil
}

// ListOptions filters the entries returned by List.
type ListOptions struct {
	// Limit caps the number of entries returned; non-positive means all.
	Limit int
	// ToolName keeps only entries for the named tool.
	ToolName string
	// UserPrefix keeps only entries whose key prefix matches.
	UserPrefix string
	// From keeps entries that occurred at or after this instant.
	From time.Time
	// To keeps entries that occurred before this instant.
	To time.Time
}

// ListResult carries matching entries newest-first plus the total match count
// within the retained window.
type ListResult struct {
	Entries []Entry
	Total   int
}

// List returns retained entries matching the options, newest first.
func (s *Service) List(_ context.Context, opts ListOptions) (*ListResult, error) {
	if s == nil {
		return nil, errors.New("call log service is nil")
	}

	toolName, err := sanitizeOptionalText(opts.ToolName, maxToolNameLength, "tool name")
	if err != nil {
		return nil, errors.Wrap(err, "sanitize tool name")
	}
	userPrefix, err := sanitizeOptionalText(opts.UserPrefix, maxUserPrefixLength, "user prefix")
	if err != nil {
		return nil, errors.Wrap(err, "sanitize user prefix")
	}

	s.mu.Lock()
	snapshot := append([]Entry(nil), s.entries...)
	s.mu.Unlock()

	matched := make([]Entry, 0, len(snapshot))
	for i := len(snapshot) - 1; i >= 0; i-- {
		entry := snapshot[i]
		if toolName != "" && entry.ToolName != toolName {
			continue
		}
		if userPrefix != "" && entry.KeyPrefix != userPrefix {
			continue
		}
		if !opts.From.IsZero() && entry.OccurredAt.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && !entry.OccurredAt.Before(opts.To) {
			continue
		}
		matched = append(matched, entry)
	}

	total := len(matched)
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	return &ListResult{Entries: matched, Total: total}, nil
}

func cloneParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	cloned := make(map[string]any, len(params))
	for key, value := range params {
		cloned[key] = value
	}
	return cloned
}

// normalizeAPIKey reduces an API key to a SHA-256 hash plus a short prefix
// so raw credentials never reach the log stream.
func normalizeAPIKey(apiKey string) (hash string, prefix string) {
	trimmed := strings.TrimSpace(apiKey)
	if trimmed == "" {
		return "", ""
	}

	hashed := sha256.Sum256([]byte(trimmed))
	hash = hex.EncodeToString(hashed[:])

	const prefixLength = 7
	if len(trimmed) > prefixLength {
		prefix = trimmed[:prefixLength]
	} else {
		prefix = trimmed
	}

	return hash, prefix
}
