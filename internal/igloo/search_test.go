package igloo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func searchRecord(id int, title, fullURL string) map[string]any {
	return map[string]any{
		"id":             id,
		"title":          title,
		"type":           "wikiPage",
		"full_url":       fullURL,
		"modified_date":  "2025-09-01T10:30:00Z",
		"description":    fmt.Sprintf("summary for %s", title),
		"views_count":    id * 10,
		"comments_count": id,
		"likes_count":    id * 2,
	}
}

// newSearchServer serves records in offset/limit slices and records the
// offset parameter of every call.
func newSearchServer(t *testing.T, records []map[string]any) (*httptest.Server, *[]string) {
	t.Helper()
	offsets := &[]string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/.api2/api/v1/communities/community-key/search/contentDetailed", r.URL.Path)

		*offsets = append(*offsets, r.URL.Query().Get("offset"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		require.NoError(t, err)

		end := offset + limit
		if end > len(records) {
			end = len(records)
		}
		if offset > len(records) {
			offset = len(records)
		}
		payload := map[string]any{"results": records[offset:end], "numFound": len(records)}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
	return server, offsets
}

func TestSearchValidationFailsBeforeNetwork(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"results":[],"numFound":0}`))
	}))
	defer server.Close()
	client := newTestClient(t, server)

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		field string
		query SearchQuery
	}{
		{"zero limit", "limit", SearchQuery{Term: "x"}},
		{"unknown application", "applications", SearchQuery{Term: "x", Limit: 5, Applications: []Application{Application(42)}}},
		{"unknown window", "updated_within", SearchQuery{Term: "x", Limit: 5, UpdatedWithin: UpdatedWithin("lastDecade")}},
		{"from without to", "updated_from", SearchQuery{Term: "x", Limit: 5, UpdatedFrom: day}},
		{"to without from", "updated_from", SearchQuery{Term: "x", Limit: 5, UpdatedTo: day}},
		{"inverted range", "updated_to", SearchQuery{Term: "x", Limit: 5, UpdatedFrom: day, UpdatedTo: day.AddDate(0, 0, -7)}},
		{"window with range", "updated_within", SearchQuery{Term: "x", Limit: 5, UpdatedWithin: UpdatedPastWeek, UpdatedFrom: day, UpdatedTo: day}},
		{"bad page token", "page_token", SearchQuery{Term: "x", Limit: 5, PageToken: "!!!"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Search(context.Background(), tc.query)
			require.Error(t, err)
			require.True(t, IsKind(err, KindValidation))
			require.Contains(t, err.Error(), tc.field)
			require.EqualValues(t, 0, calls.Load())
		})
	}
}

func TestSearchBuildsRemoteParameters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "roadmap", q.Get("query"))
		require.Equal(t, "1,7", q.Get("applications"))
		require.Equal(t, "/knowledge-base", q.Get("parentHref"))
		require.Equal(t, "true", q.Get("searchAll"))
		require.Equal(t, "true", q.Get("includeMicroblog"))
		require.Equal(t, "false", q.Get("includeArchived"))
		require.False(t, q.Has("updatedDateType"))
		require.False(t, q.Has("offset"))
		require.Equal(t, strconv.Itoa(defaultPageSize), q.Get("limit"))
		_, _ = w.Write([]byte(`{"results":[],"numFound":0}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Search(context.Background(), SearchQuery{
		Term:         "roadmap",
		Applications: []Application{ApplicationBlog, ApplicationPages},
		ParentPaths:  []string{"/knowledge-base/"},
		Limit:        5,
	})
	require.NoError(t, err)
}

func TestSearchOmitsUnsetFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.False(t, q.Has("query"))
		require.False(t, q.Has("applications"))
		require.False(t, q.Has("parentHref"))
		require.False(t, q.Has("updatedDateType"))
		require.False(t, q.Has("updatedFrom"))
		require.False(t, q.Has("updatedTo"))
		_, _ = w.Write([]byte(`{"results":[],"numFound":0}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Search(context.Background(), SearchQuery{Limit: 3})
	require.NoError(t, err)
}

func TestSearchSendsInvertedFlags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "false", q.Get("searchAll"))
		require.Equal(t, "false", q.Get("includeMicroblog"))
		require.Equal(t, "true", q.Get("includeArchived"))
		_, _ = w.Write([]byte(`{"results":[],"numFound":0}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Search(context.Background(), SearchQuery{
		Term:             "x",
		Limit:            3,
		MatchAny:         true,
		ExcludeMicroblog: true,
		IncludeArchived:  true,
	})
	require.NoError(t, err)
}

func TestSearchSendsDateRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "dateRange", q.Get("updatedDateType"))
		require.Equal(t, "01-15-2026", q.Get("updatedFrom"))
		require.Equal(t, "02-01-2026", q.Get("updatedTo"))
		_, _ = w.Write([]byte(`{"results":[],"numFound":0}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Search(context.Background(), SearchQuery{
		Term:        "x",
		Limit:       3,
		UpdatedFrom: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		UpdatedTo:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}

func TestSearchSendsRelativeWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "pastWeek", q.Get("updatedDateType"))
		require.False(t, q.Has("updatedFrom"))
		require.False(t, q.Has("updatedTo"))
		_, _ = w.Write([]byte(`{"results":[],"numFound":0}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Search(context.Background(), SearchQuery{Term: "x", Limit: 3, UpdatedWithin: UpdatedPastWeek})
	require.NoError(t, err)
}

func TestSearchPaginatesSequentially(t *testing.T) {
	records := make([]map[string]any, 0, 7)
	for i := 1; i <= 7; i++ {
		records = append(records, searchRecord(i, fmt.Sprintf("Page %d", i), fmt.Sprintf("/wiki/page-%d", i)))
	}
	server, offsets := newSearchServer(t, records)
	defer server.Close()

	client := newTestClient(t, server, WithPageSize(3))
	result, err := client.Search(context.Background(), SearchQuery{Term: "page", Limit: 7})
	require.NoError(t, err)

	require.Equal(t, []string{"", "3", "6"}, *offsets)
	require.Len(t, result.Hits, 7)
	require.Equal(t, 7, result.TotalFound)
	require.Empty(t, result.NextPageToken)
	for i, hit := range result.Hits {
		require.Equal(t, strconv.Itoa(i+1), hit.ID)
		require.Equal(t, server.URL+fmt.Sprintf("/wiki/page-%d", i+1), hit.URL)
	}
}

func TestSearchResultsIndependentOfPageSize(t *testing.T) {
	records := make([]map[string]any, 0, 9)
	for i := 1; i <= 9; i++ {
		records = append(records, searchRecord(i, fmt.Sprintf("Page %d", i), fmt.Sprintf("/wiki/page-%d", i)))
	}
	server, _ := newSearchServer(t, records)
	defer server.Close()

	small := newTestClient(t, server, WithPageSize(2))
	large := newTestClient(t, server, WithPageSize(50))

	query := SearchQuery{Term: "page", Limit: 6}
	smallResult, err := small.Search(context.Background(), query)
	require.NoError(t, err)
	largeResult, err := large.Search(context.Background(), query)
	require.NoError(t, err)

	require.Equal(t, largeResult.Hits, smallResult.Hits)
	require.Equal(t, largeResult.TotalFound, smallResult.TotalFound)
}

func TestSearchPageTokenResumesTraversal(t *testing.T) {
	records := make([]map[string]any, 0, 10)
	for i := 1; i <= 10; i++ {
		records = append(records, searchRecord(i, fmt.Sprintf("Page %d", i), fmt.Sprintf("/wiki/page-%d", i)))
	}
	server, offsets := newSearchServer(t, records)
	defer server.Close()
	client := newTestClient(t, server, WithPageSize(4))

	first, err := client.Search(context.Background(), SearchQuery{Term: "page", Limit: 4})
	require.NoError(t, err)
	require.Len(t, first.Hits, 4)
	require.NotEmpty(t, first.NextPageToken)

	resumeOffset, err := decodePageToken(first.NextPageToken)
	require.NoError(t, err)
	require.Equal(t, 4, resumeOffset)

	second, err := client.Search(context.Background(), SearchQuery{Term: "page", Limit: 4, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Hits, 4)
	require.Equal(t, "5", second.Hits[0].ID)
	require.NotEmpty(t, second.NextPageToken)

	third, err := client.Search(context.Background(), SearchQuery{Term: "page", Limit: 4, PageToken: second.NextPageToken})
	require.NoError(t, err)
	require.Len(t, third.Hits, 2)
	require.Equal(t, "9", third.Hits[0].ID)
	require.Empty(t, third.NextPageToken)

	require.Equal(t, []string{"", "4", "8"}, *offsets)
}

func TestSearchDropsMalformedRecords(t *testing.T) {
	records := []map[string]any{
		searchRecord(1, "Good One", "/wiki/good-1"),
		{"title": "No Identifier", "full_url": "/wiki/broken"},
		{"id": 3, "full_url": "/wiki/untitled"},
		searchRecord(4, "Good Two", "/wiki/good-2"),
	}
	server, _ := newSearchServer(t, records)
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.Search(context.Background(), SearchQuery{Term: "good", Limit: 4})
	require.NoError(t, err)
	require.Len(t, result.Hits, 2)
	require.Equal(t, "Good One", result.Hits[0].Title)
	require.Equal(t, "Good Two", result.Hits[1].Title)
	require.Equal(t, 4, result.TotalFound)
}

func TestSearchFiltersMultipleParentPathsClientSide(t *testing.T) {
	records := []map[string]any{
		searchRecord(1, "Alpha One", "/alpha/one"),
		searchRecord(2, "Gamma", "/gamma/intruder"),
		searchRecord(3, "Alpha Two", "/alpha/two"),
		searchRecord(4, "Gamma Two", "/gamma/other"),
		searchRecord(5, "Beta One", "/beta/one"),
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.False(t, r.URL.Query().Has("parentHref"))
		payload := map[string]any{"results": records, "numFound": len(records)}
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.Search(context.Background(), SearchQuery{
		Term:        "one",
		Limit:       5,
		ParentPaths: []string{"/alpha", "/beta"},
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 3)
	require.Equal(t, "Alpha One", result.Hits[0].Title)
	require.Equal(t, "Alpha Two", result.Hits[1].Title)
	require.Equal(t, "Beta One", result.Hits[2].Title)
	require.Empty(t, result.NextPageToken)
}

func TestSearchFilteredPaginationResumesAfterLastHit(t *testing.T) {
	records := []map[string]any{
		searchRecord(1, "Alpha One", "/alpha/one"),
		searchRecord(2, "Gamma One", "/gamma/one"),
		searchRecord(3, "Alpha Two", "/alpha/two"),
		searchRecord(4, "Gamma Two", "/gamma/two"),
		searchRecord(5, "Alpha Three", "/alpha/three"),
	}
	server, offsets := newSearchServer(t, records)
	defer server.Close()
	client := newTestClient(t, server)

	query := SearchQuery{Term: "any", Limit: 2, ParentPaths: []string{"/alpha", "/beta"}}
	first, err := client.Search(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, first.Hits, 2)
	require.Equal(t, "Alpha Two", first.Hits[1].Title)
	require.NotEmpty(t, first.NextPageToken)

	// The token points directly after the last returned raw record, so the
	// resumed traversal rescans nothing.
	resumeOffset, err := decodePageToken(first.NextPageToken)
	require.NoError(t, err)
	require.Equal(t, 3, resumeOffset)

	query.PageToken = first.NextPageToken
	second, err := client.Search(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, second.Hits, 1)
	require.Equal(t, "Alpha Three", second.Hits[0].Title)
	require.Empty(t, second.NextPageToken)

	require.Equal(t, []string{"", "3"}, *offsets)
}

func TestPageTokenRoundTrip(t *testing.T) {
	token := encodePageToken(42)
	require.NotEmpty(t, token)

	offset, err := decodePageToken(token)
	require.NoError(t, err)
	require.Equal(t, 42, offset)

	_, err = decodePageToken("not-a-token")
	require.Error(t, err)
	require.True(t, IsKind(err, KindValidation))
}
