package igloo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
)

// searchPageResponse models the envelope of one remote search page.
type searchPageResponse struct {
	Results  []json.RawMessage `json:"results"`
	NumFound int               `json:"numFound"`
}

// Search runs one content search against the community.
//
// Remote pages are walked sequentially, in ascending offset order, until
// query.Limit normalized hits are collected or the result set ends.
// Records that cannot be normalized are dropped individually; they never
// abort the page they arrived on. When more hits remain past the ones
// returned, the result carries a page token that resumes the traversal
// directly after the last returned hit.
func (c *Client) Search(ctx context.Context, query SearchQuery) (*SearchResult, error) {
	if query.Limit <= 0 {
		return nil, NewValidationError("limit", "must be a positive integer")
	}

	prefixes := parentPrefixes(query.ParentPaths)
	params, err := buildSearchParams(query, prefixes)
	if err != nil {
		return nil, err
	}

	offset := 0
	if query.PageToken != "" {
		if offset, err = decodePageToken(query.PageToken); err != nil {
			return nil, err
		}
	}

	logger := c.requestLogger(ctx)
	result := &SearchResult{Hits: make([]SearchHit, 0, query.Limit)}
	nextOffset := 0

pages:
	for {
		page, err := c.searchPage(ctx, params, offset)
		if err != nil {
			return nil, err
		}
		result.TotalFound = page.NumFound

		for i, raw := range page.Results {
			hit, err := normalizeSearchHit(raw, c.baseURL)
			if err != nil {
				if logger != nil {
					logger.Warn("drop malformed search record",
						zap.Int("offset", offset+i),
						zap.Error(err),
					)
				}
				continue
			}
			if len(prefixes) > 1 && !matchesParent(hit, prefixes) {
				continue
			}

			result.Hits = append(result.Hits, hit)
			if len(result.Hits) == query.Limit {
				nextOffset = offset + i + 1
				break pages
			}
		}

		offset += len(page.Results)
		if len(page.Results) == 0 || offset >= page.NumFound {
			break
		}
	}

	if len(result.Hits) == query.Limit && nextOffset < result.TotalFound {
		result.NextPageToken = encodePageToken(nextOffset)
	}
	return result, nil
}

// searchPage fetches one remote page starting at the given record offset.
func (c *Client) searchPage(ctx context.Context, params url.Values, offset int) (*searchPageResponse, error) {
	pageParams := url.Values{}
	for key, values := range params {
		pageParams[key] = values
	}
	pageParams.Set("limit", strconv.Itoa(c.pageSize))
	if offset > 0 {
		pageParams.Set("offset", strconv.Itoa(offset))
	}

	resp, err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		target: fmt.Sprintf(searchPathTemplate, url.PathEscape(c.communityKey)),
		params: pageParams,
	})
	if err != nil {
		return nil, errors.Wrap(err, "search community content")
	}

	var page searchPageResponse
	if err := json.Unmarshal(resp.body, &page); err != nil {
		return nil, WrapError(KindMalformedRecord, err, "unmarshal search response")
	}
	return &page, nil
}

// buildSearchParams translates the query into remote request parameters.
//
// Unset optional filters are omitted entirely. The three boolean flags
// are always sent because the platform defaults for them differ between
// endpoint revisions.
func buildSearchParams(query SearchQuery, prefixes []string) (url.Values, error) {
	params := url.Values{}

	if term := strings.TrimSpace(query.Term); term != "" {
		params.Set("query", term)
	}

	if len(query.Applications) > 0 {
		ids := make([]string, 0, len(query.Applications))
		for _, app := range query.Applications {
			if !app.Valid() {
				return nil, NewValidationError("applications", fmt.Sprintf("unknown application id %d", int(app)))
			}
			ids = append(ids, strconv.Itoa(int(app)))
		}
		params.Set("applications", strings.Join(ids, ","))
	}

	if len(prefixes) == 1 {
		params.Set("parentHref", prefixes[0])
	}

	params.Set("searchAll", strconv.FormatBool(!query.MatchAny))
	params.Set("includeMicroblog", strconv.FormatBool(!query.ExcludeMicroblog))
	params.Set("includeArchived", strconv.FormatBool(query.IncludeArchived))

	hasRange := !query.UpdatedFrom.IsZero() || !query.UpdatedTo.IsZero()
	switch {
	case query.UpdatedWithin != "" && hasRange:
		return nil, NewValidationError("updated_within", "cannot be combined with updated_from/updated_to")
	case query.UpdatedWithin != "":
		window, err := ParseUpdatedWithin(string(query.UpdatedWithin))
		if err != nil {
			return nil, NewValidationError("updated_within", err.Error())
		}
		params.Set("updatedDateType", string(window))
	case hasRange:
		if query.UpdatedFrom.IsZero() || query.UpdatedTo.IsZero() {
			return nil, NewValidationError("updated_from", "updated_from and updated_to must be provided together")
		}
		if query.UpdatedTo.Before(query.UpdatedFrom) {
			return nil, NewValidationError("updated_to", "must not be before updated_from")
		}
		params.Set("updatedDateType", string(updatedDateRange))
		params.Set("updatedFrom", query.UpdatedFrom.Format(apiDateFormat))
		params.Set("updatedTo", query.UpdatedTo.Format(apiDateFormat))
	}

	return params, nil
}

// parentPrefixes normalizes parent path filters, dropping blank entries.
func parentPrefixes(paths []string) []string {
	prefixes := make([]string, 0, len(paths))
	for _, path := range paths {
		if normalized := normalizeParentPath(path); normalized != "" {
			prefixes = append(prefixes, normalized)
		}
	}
	return prefixes
}

// normalizeParentPath canonicalizes a parent path to "/segment/..." form.
func normalizeParentPath(path string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return trimmed
}

// matchesParent reports whether a hit lives under any of the prefixes.
func matchesParent(hit SearchHit, prefixes []string) bool {
	candidates := make([]string, 0, 2)
	if hit.ParentPath != "" {
		candidates = append(candidates, hit.ParentPath)
	}
	if parsed, err := url.Parse(hit.URL); err == nil && parsed.Path != "" {
		candidates = append(candidates, parsed.Path)
	}

	for _, prefix := range prefixes {
		for _, candidate := range candidates {
			if strings.HasPrefix(candidate, prefix) {
				return true
			}
		}
	}
	return false
}
