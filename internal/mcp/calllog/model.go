// Package calllog records MCP tool invocations as structured log entries
// and keeps a bounded in-memory window for diagnostics.
package calllog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status values for recorded tool invocations.
const (
	// StatusSuccess marks a successful tool invocation.
	StatusSuccess = "success"
	// StatusError marks a failed tool invocation.
	StatusError = "error"
)

// RecordInput captures the details of a tool invocation to be recorded.
type RecordInput struct {
	ToolName     string
	APIKey       string
	Status       string
	Duration     time.Duration
	Parameters   map[string]any
	ErrorMessage string
	OccurredAt   time.Time
}

// Entry is one recorded tool invocation. Only a hash and a short prefix
// of the caller's API key are retained.
type Entry struct {
	ID             uuid.UUID
	ToolName       string
	APIKeyHash     string
	KeyPrefix      string
	Status         string
	DurationMillis int64
	Parameters     map[string]any
	ErrorMessage   string
	OccurredAt     time.Time
}

// Recorder accepts tool invocation records.
type Recorder interface {
	Record(ctx context.Context, input RecordInput) error
}
