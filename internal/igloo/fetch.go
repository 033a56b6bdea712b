package igloo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentFetches bounds parallel page downloads in FetchPages.
const maxConcurrentFetches = 4

// FetchPage retrieves one community page as raw HTML plus metadata.
//
// The page is addressed either by URL or by platform object ID; object
// IDs are resolved to their page URL first. URLs outside the community
// are rejected before any request is made.
func (c *Client) FetchPage(ctx context.Context, req FetchRequest) (*PagePayload, error) {
	switch {
	case req.URL == "" && req.ID == "":
		return nil, NewValidationError("url", "either url or id must be provided")
	case req.URL != "" && req.ID != "":
		return nil, NewValidationError("url", "url and id are mutually exclusive")
	}

	payload := &PagePayload{}
	pageURL := strings.TrimSpace(req.URL)
	if req.ID != "" {
		view, err := c.objectView(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		pageURL = resolveCommunityURL(c.baseURL, view.Href)
		payload.Title = strings.TrimSpace(view.Title)
		payload.Modified = normalizeModified(view.Modified)
	}

	if err := c.validateCommunityURL(pageURL); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		target: pageURL,
		accept: "text/html",
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetch community page %s", pageURL)
	}

	payload.URL = pageURL
	payload.HTML = string(resp.body)
	if payload.Title == "" {
		payload.Title = htmlTitle(resp.body)
	}
	if payload.Modified == "" {
		if at, err := http.ParseTime(resp.header.Get("Last-Modified")); err == nil {
			payload.Modified = at.UTC().Format(time.RFC3339)
		}
	}
	return payload, nil
}

// FetchPages downloads several pages concurrently, preserving order.
//
// Each URL succeeds or fails on its own; one broken page never aborts
// the batch. The caller inspects PageResult.Err per slot.
func (c *Client) FetchPages(ctx context.Context, urls []string) []PageResult {
	results := make([]PageResult, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, pageURL := range urls {
		idx, target := i, pageURL
		g.Go(func() error {
			payload, err := c.FetchPage(gctx, FetchRequest{URL: target})
			if err != nil {
				results[idx] = PageResult{URL: target, Err: err}
				return nil
			}
			results[idx] = PageResult{URL: target, Payload: *payload}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// validateCommunityURL rejects page URLs outside the community root.
func (c *Client) validateCommunityURL(pageURL string) error {
	if pageURL == c.baseURL ||
		strings.HasPrefix(pageURL, c.baseURL+"/") ||
		strings.HasPrefix(pageURL, c.baseURL+"?") {
		return nil
	}
	return NewValidationError("url", fmt.Sprintf("url must belong to community %s", c.baseURL))
}

// objectViewPayload carries the page metadata of a platform object.
type objectViewPayload struct {
	Href     string
	Title    string
	Modified string
}

// objectViewEnvelope models the object view response.
type objectViewEnvelope struct {
	Response struct {
		Href     string `json:"href"`
		Title    string `json:"title"`
		Modified string `json:"modified"`
	} `json:"response"`
}

// objectView resolves a platform object ID to its page metadata.
func (c *Client) objectView(ctx context.Context, objectID string) (*objectViewPayload, error) {
	resp, err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		target: fmt.Sprintf(objectViewTemplate, url.PathEscape(objectID)),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "view object %s", objectID)
	}

	var envelope objectViewEnvelope
	if err := json.Unmarshal(resp.body, &envelope); err != nil {
		return nil, WrapError(KindMalformedRecord, err, "unmarshal object view")
	}
	if strings.TrimSpace(envelope.Response.Href) == "" {
		return nil, NewError(KindNotFound, fmt.Sprintf("object %s has no page", objectID))
	}

	return &objectViewPayload{
		Href:     strings.TrimSpace(envelope.Response.Href),
		Title:    envelope.Response.Title,
		Modified: envelope.Response.Modified,
	}, nil
}

// htmlTitle extracts the document title from raw HTML, best effort.
func htmlTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
