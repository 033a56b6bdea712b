package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Laisky/igloo-mcp/internal/igloo"
	"github.com/Laisky/igloo-mcp/library/htmlmd"
	"github.com/Laisky/igloo-mcp/library/log"
)

const guidePageHTML = `<html><head><title>Guide</title></head><body><main><h1>Guide</h1><p>Body text for the install guide.</p></main></body></html>`

type stubFetcher struct {
	payload  *igloo.PagePayload
	err      error
	batch    []igloo.PageResult
	lastReq  igloo.FetchRequest
	lastURLs []string
	calls    int
}

func (s *stubFetcher) FetchPage(_ context.Context, req igloo.FetchRequest) (*igloo.PagePayload, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func (s *stubFetcher) FetchPages(_ context.Context, urls []string) []igloo.PageResult {
	s.calls++
	s.lastURLs = urls
	return s.batch
}

func mustFetchTool(t *testing.T, fetcher PageFetcher) *FetchTool {
	t.Helper()

	tool, err := NewFetchTool(fetcher, htmlmd.New(), log.Logger.Named("test_fetch"))
	require.NoError(t, err)
	return tool
}

func guidePayload() *igloo.PagePayload {
	return &igloo.PagePayload{
		URL:      "https://corp.example.com/wiki/guide",
		Title:    "Guide",
		Modified: "2025-09-01T10:30:00Z",
		HTML:     guidePageHTML,
	}
}

func TestNewFetchToolValidation(t *testing.T) {
	logger := log.Logger.Named("test_fetch")

	_, err := NewFetchTool(nil, htmlmd.New(), logger)
	require.Error(t, err)

	_, err = NewFetchTool(&stubFetcher{}, nil, logger)
	require.Error(t, err)

	_, err = NewFetchTool(&stubFetcher{}, htmlmd.New(), nil)
	require.Error(t, err)
}

func TestFetchToolDefinition(t *testing.T) {
	tool := mustFetchTool(t, &stubFetcher{})
	definition := tool.Definition()

	require.Equal(t, "fetch", definition.Name)
	require.Empty(t, definition.InputSchema.Required)
	require.Contains(t, definition.InputSchema.Properties, "url")
	require.Contains(t, definition.InputSchema.Properties, "id")
	require.Contains(t, definition.InputSchema.Properties, "urls")
	require.Contains(t, definition.InputSchema.Properties, "start_index")
}

func TestFetchToolArgumentValidation(t *testing.T) {
	cases := []struct {
		name    string
		args    map[string]any
		message string
	}{
		{
			name:    "no target",
			args:    nil,
			message: "provide url, id, or urls",
		},
		{
			name:    "urls with url",
			args:    map[string]any{"urls": []any{"https://corp.example.com/a"}, "url": "https://corp.example.com/b"},
			message: "urls cannot be combined",
		},
		{
			name:    "urls with start index",
			args:    map[string]any{"urls": []any{"https://corp.example.com/a"}, "start_index": float64(10)},
			message: "start_index cannot be combined",
		},
		{
			name:    "negative start index",
			args:    map[string]any{"url": "https://corp.example.com/a", "start_index": float64(-5)},
			message: "start_index",
		},
		{
			name:    "bad format",
			args:    map[string]any{"url": "https://corp.example.com/a", "format": "xml"},
			message: "format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &stubFetcher{}
			tool := mustFetchTool(t, fetcher)

			result, err := tool.Handle(context.Background(), toolRequest(tc.args))
			require.NoError(t, err)

			payload := decodeToolError(t, result)
			require.Equal(t, "VALIDATION", payload["code"])
			require.Contains(t, payload["message"], tc.message)
			require.Zero(t, fetcher.calls)
		})
	}
}

func TestFetchToolRejectsOversizedBatch(t *testing.T) {
	urls := make([]any, maxBatchPages+1)
	for i := range urls {
		urls[i] = "https://corp.example.com/page"
	}

	fetcher := &stubFetcher{}
	tool := mustFetchTool(t, fetcher)

	result, err := tool.Handle(context.Background(), toolRequest(map[string]any{"urls": urls}))
	require.NoError(t, err)

	payload := decodeToolError(t, result)
	require.Equal(t, "VALIDATION", payload["code"])
	require.Zero(t, fetcher.calls)
}

func TestFetchToolConvertsPage(t *testing.T) {
	fetcher := &stubFetcher{payload: guidePayload()}
	tool := mustFetchTool(t, fetcher)

	result, err := tool.Handle(context.Background(), toolRequest(map[string]any{
		"url": "https://corp.example.com/wiki/guide",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, igloo.FetchRequest{URL: "https://corp.example.com/wiki/guide"}, fetcher.lastReq)

	var payload igloo.FetchResult
	require.NoError(t, json.Unmarshal([]byte(toolResultText(t, result)), &payload))
	require.Equal(t, "https://corp.example.com/wiki/guide", payload.URL)
	require.Equal(t, "Guide", payload.Title)
	require.Equal(t, "2025-09-01T10:30:00Z", payload.Modified)
	require.Contains(t, payload.Markdown, "# Guide")
	require.Contains(t, payload.Markdown, "Body text for the install guide.")
	require.Equal(t, len(payload.Markdown), payload.TotalChars)
	require.False(t, payload.Truncated)
}

func TestFetchToolPassesStartIndex(t *testing.T) {
	fetcher := &stubFetcher{payload: guidePayload()}
	tool := mustFetchTool(t, fetcher)

	result, err := tool.Handle(context.Background(), toolRequest(map[string]any{
		"id":          "12345",
		"start_index": float64(1000000),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, igloo.FetchRequest{ID: "12345", StartIndex: 1000000}, fetcher.lastReq)

	var payload igloo.FetchResult
	require.NoError(t, json.Unmarshal([]byte(toolResultText(t, result)), &payload))
	require.Empty(t, payload.Markdown)
	require.Positive(t, payload.TotalChars)
	require.Equal(t, 1000000, payload.StartIndex)
	require.False(t, payload.Truncated)
}

func TestFetchToolMaxCharsTruncates(t *testing.T) {
	fetcher := &stubFetcher{payload: guidePayload()}
	tool := mustFetchTool(t, fetcher)

	result, err := tool.Handle(context.Background(), toolRequest(map[string]any{
		"url":       "https://corp.example.com/wiki/guide",
		"max_chars": float64(10),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var payload igloo.FetchResult
	require.NoError(t, json.Unmarshal([]byte(toolResultText(t, result)), &payload))
	require.True(t, payload.Truncated)
	require.LessOrEqual(t, len(payload.Markdown), 10)
	require.Positive(t, payload.NextStartIndex)
	require.Greater(t, payload.TotalChars, len(payload.Markdown))
}

func TestFetchToolTextFormat(t *testing.T) {
	fetcher := &stubFetcher{payload: guidePayload()}
	tool := mustFetchTool(t, fetcher)

	result, err := tool.Handle(context.Background(), toolRequest(map[string]any{
		"url":    "https://corp.example.com/wiki/guide",
		"format": "text",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := toolResultText(t, result)
	require.Contains(t, text, "# Fetched Content")
	require.Contains(t, text, "URL: https://corp.example.com/wiki/guide")
	require.Contains(t, text, "# Guide")
}

func TestFetchToolMapsFetchError(t *testing.T) {
	fetcher := &stubFetcher{err: igloo.NewError(igloo.KindNotFound, "object 12345 has no canonical page")}
	tool := mustFetchTool(t, fetcher)

	result, err := tool.Handle(context.Background(), toolRequest(map[string]any{"id": "12345"}))
	require.NoError(t, err)

	payload := decodeToolError(t, result)
	require.Equal(t, "NOT_FOUND", payload["code"])
	require.Equal(t, false, payload["retryable"])
}

func TestFetchToolBatch(t *testing.T) {
	fetcher := &stubFetcher{batch: []igloo.PageResult{
		{URL: "https://corp.example.com/one", Payload: *guidePayload()},
		{URL: "https://corp.example.com/broken", Err: igloo.NewError(igloo.KindTransient, "server error 500")},
		{URL: "https://corp.example.com/two", Payload: *guidePayload()},
	}}
	tool := mustFetchTool(t, fetcher)

	result, err := tool.Handle(context.Background(), toolRequest(map[string]any{
		"urls": []any{"https://corp.example.com/one", "https://corp.example.com/broken", "https://corp.example.com/two"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, []string{
		"https://corp.example.com/one",
		"https://corp.example.com/broken",
		"https://corp.example.com/two",
	}, fetcher.lastURLs)

	var payload struct {
		Pages []map[string]any `json:"pages"`
	}
	require.NoError(t, json.Unmarshal([]byte(toolResultText(t, result)), &payload))
	require.Len(t, payload.Pages, 3)

	require.Contains(t, payload.Pages[0]["markdown"], "# Guide")
	require.Equal(t, "TRANSIENT", payload.Pages[1]["code"])
	require.Equal(t, true, payload.Pages[1]["retryable"])
	require.Contains(t, payload.Pages[1]["error"], "server error 500")
	require.Contains(t, payload.Pages[2]["markdown"], "# Guide")
}

func TestFetchToolBatchTextFormat(t *testing.T) {
	fetcher := &stubFetcher{batch: []igloo.PageResult{
		{URL: "https://corp.example.com/one", Payload: *guidePayload()},
		{URL: "https://corp.example.com/broken", Err: igloo.NewError(igloo.KindTransient, "server error 500")},
	}}
	tool := mustFetchTool(t, fetcher)

	result, err := tool.Handle(context.Background(), toolRequest(map[string]any{
		"urls":   []any{"https://corp.example.com/one", "https://corp.example.com/broken"},
		"format": "text",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := toolResultText(t, result)
	require.Contains(t, text, "===== PAGE 1 of 2 =====")
	require.Contains(t, text, "===== PAGE 2 of 2 =====")
	require.Contains(t, text, "[Error fetching page:")
}

func TestFetchToolBatchIsolatesConversionFailure(t *testing.T) {
	binary := *guidePayload()
	binary.HTML = "payload\x00with null"

	fetcher := &stubFetcher{batch: []igloo.PageResult{
		{URL: "https://corp.example.com/binary", Payload: binary},
		{URL: "https://corp.example.com/ok", Payload: *guidePayload()},
	}}
	tool := mustFetchTool(t, fetcher)

	result, err := tool.Handle(context.Background(), toolRequest(map[string]any{
		"urls": []any{"https://corp.example.com/binary", "https://corp.example.com/ok"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var payload struct {
		Pages []map[string]any `json:"pages"`
	}
	require.NoError(t, json.Unmarshal([]byte(toolResultText(t, result)), &payload))
	require.Len(t, payload.Pages, 2)
	require.Equal(t, "CONVERSION", payload.Pages[0]["code"])
	require.Contains(t, payload.Pages[1]["markdown"], "# Guide")
}
