package tools

import (
	"context"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/jinzhu/copier"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/igloo-mcp/internal/igloo"
	"github.com/Laisky/igloo-mcp/library/htmlmd"
)

// maxBatchPages caps how many pages one fetch call may request.
const maxBatchPages = 10

// FetchTool implements the fetch MCP tool.
type FetchTool struct {
	fetcher   PageFetcher
	converter *htmlmd.Converter
	logger    logSDK.Logger
}

// NewFetchTool constructs a FetchTool with the provided dependencies.
func NewFetchTool(fetcher PageFetcher, converter *htmlmd.Converter, logger logSDK.Logger) (*FetchTool, error) {
	if fetcher == nil {
		return nil, errors.New("page fetcher is required")
	}
	if converter == nil {
		return nil, errors.New("markdown converter is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &FetchTool{
		fetcher:   fetcher,
		converter: converter,
		logger:    logger,
	}, nil
}

// Definition returns the MCP metadata describing the tool.
func (t *FetchTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"fetch",
		mcp.WithDescription("Fetch a community page as clean Markdown. Address the page by full URL or by numeric object ID; long documents are cut at a line boundary and can be continued with start_index."),
		mcp.WithString(
			"url",
			mcp.Description("Full URL of the page to fetch. Mutually exclusive with id."),
		),
		mcp.WithString(
			"id",
			mcp.Description("Numeric object ID of the page to fetch. Mutually exclusive with url."),
		),
		mcp.WithArray(
			"urls",
			mcp.Description("Fetch several pages in one call. Mutually exclusive with url, id, and start_index."),
			mcp.Items(stringItemSchema()),
		),
		mcp.WithNumber(
			"start_index",
			mcp.Description("Character offset to continue reading a long document from; use the next_start_index of a truncated response."),
		),
		mcp.WithNumber(
			"max_chars",
			mcp.Description("Override how many Markdown characters are returned before the document is cut."),
		),
		mcp.WithString("format", mcp.Description("Response format: json (default) or text.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// Handle executes the fetch tool logic using the configured dependencies.
func (t *FetchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urlValue := strings.TrimSpace(readStringArg(req, "url"))
	idValue := strings.TrimSpace(readStringArg(req, "id"))
	urls := readStringListArg(req, "urls")
	startIndex := readIntArg(req, "start_index")

	format := strings.ToLower(strings.TrimSpace(readStringArg(req, "format")))
	if format != "" && format != formatJSON && format != formatText {
		return toolErrorResult(igloo.KindValidation, "format: must be json or text", false), nil
	}

	switch {
	case len(urls) == 0 && urlValue == "" && idValue == "":
		return toolErrorResult(igloo.KindValidation, "provide url, id, or urls", false), nil
	case len(urls) > 0 && (urlValue != "" || idValue != ""):
		return toolErrorResult(igloo.KindValidation, "urls cannot be combined with url or id", false), nil
	case len(urls) > maxBatchPages:
		return toolErrorResult(igloo.KindValidation, "urls: at most 10 pages per call", false), nil
	case len(urls) > 0 && startIndex != 0:
		return toolErrorResult(igloo.KindValidation, "start_index cannot be combined with urls", false), nil
	case startIndex < 0:
		return toolErrorResult(igloo.KindValidation, "start_index: must be zero or a positive integer", false), nil
	}

	converter := t.converter
	if maxChars := readIntArg(req, "max_chars"); maxChars > 0 {
		converter = htmlmd.New(htmlmd.WithMaxChars(maxChars))
	}

	if len(urls) > 0 {
		return t.handleBatch(ctx, urls, converter, format), nil
	}

	start := time.Now().UTC()
	payload, err := t.fetcher.FetchPage(ctx, igloo.FetchRequest{URL: urlValue, ID: idValue, StartIndex: startIndex})
	if err != nil {
		t.logger.Warn("fetch failed", zap.Error(err), zap.String("url", urlValue), zap.String("id", idValue))
		return toolErrorFromErr(err), nil
	}

	result, err := t.convertPage(payload, converter, startIndex)
	if err != nil {
		t.logger.Warn("convert page failed", zap.Error(err), zap.String("url", payload.URL))
		return toolErrorFromErr(err), nil
	}

	t.logger.Debug("fetch completed",
		zap.String("url", payload.URL),
		zap.Int("total_chars", result.TotalChars),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("duration", time.Since(start)),
	)

	if format == formatText {
		return mcp.NewToolResultText(igloo.FormatFetchResult(result)), nil
	}

	toolResult, err := mcp.NewToolResultJSON(result)
	if err != nil {
		t.logger.Error("encode fetch result", zap.Error(err))
		return mcp.NewToolResultError("failed to encode fetch result"), nil
	}
	return toolResult, nil
}

// handleBatch fetches several pages concurrently and keeps each page's
// slot in the response, failed pages included.
func (t *FetchTool) handleBatch(ctx context.Context, urls []string, converter *htmlmd.Converter, format string) *mcp.CallToolResult {
	start := time.Now().UTC()
	fetched := t.fetcher.FetchPages(ctx, urls)

	pages := make([]igloo.FetchedPage, 0, len(fetched))
	jsonPages := make([]any, 0, len(fetched))
	failures := 0
	for _, page := range fetched {
		if page.Err != nil {
			failures++
			pages = append(pages, igloo.FetchedPage{URL: page.URL, Err: page.Err})
			jsonPages = append(jsonPages, batchFailure(page.URL, page.Err))
			continue
		}

		result, err := t.convertPage(&page.Payload, converter, 0)
		if err != nil {
			failures++
			t.logger.Warn("convert page failed", zap.Error(err), zap.String("url", page.URL))
			pages = append(pages, igloo.FetchedPage{URL: page.URL, Err: err})
			jsonPages = append(jsonPages, batchFailure(page.URL, err))
			continue
		}

		pages = append(pages, igloo.FetchedPage{URL: page.URL, Markdown: result.Markdown})
		jsonPages = append(jsonPages, result)
	}

	t.logger.Debug("fetch batch completed",
		zap.Int("pages", len(urls)),
		zap.Int("failures", failures),
		zap.Duration("duration", time.Since(start)),
	)

	if format == formatText {
		return mcp.NewToolResultText(igloo.FormatFetchResults(pages))
	}

	toolResult, err := mcp.NewToolResultJSON(map[string]any{"pages": jsonPages})
	if err != nil {
		t.logger.Error("encode fetch batch result", zap.Error(err))
		return mcp.NewToolResultError("failed to encode fetch result")
	}
	return toolResult
}

// convertPage renders a fetched page to Markdown and merges payload
// metadata with conversion output.
func (t *FetchTool) convertPage(payload *igloo.PagePayload, converter *htmlmd.Converter, startIndex int) (*igloo.FetchResult, error) {
	converted, err := converter.ConvertFrom(payload.HTML, payload.URL, startIndex)
	if err != nil {
		return nil, igloo.WrapError(igloo.KindConversion, err, "convert page to markdown")
	}

	result := &igloo.FetchResult{
		URL:        payload.URL,
		Title:      payload.Title,
		Modified:   payload.Modified,
		StartIndex: startIndex,
	}
	if err := copier.Copy(result, converted); err != nil {
		return nil, igloo.WrapError(igloo.KindConversion, err, "assemble fetch result")
	}
	return result, nil
}

// batchFailure describes one failed page of a batch response.
func batchFailure(url string, err error) map[string]any {
	entry := map[string]any{
		"url":   url,
		"error": err.Error(),
	}
	if typed, ok := igloo.AsError(err); ok {
		entry["code"] = string(typed.Kind)
		entry["retryable"] = typed.Retryable()
	}
	return entry
}
