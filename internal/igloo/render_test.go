package igloo

import (
	"strings"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"
)

func TestFormatSearchResultsHeader(t *testing.T) {
	query := SearchQuery{
		Term:          "test",
		Applications:  []Application{ApplicationBlog, ApplicationPages},
		ParentPaths:   []string{"/projects/ai"},
		UpdatedWithin: UpdatedPastWeek,
		Limit:         50,
	}
	out := FormatSearchResults(query, &SearchResult{TotalFound: 42})
	require.Equal(t,
		`Search Results for Query: "test" (Applications: blog, pages | Date Filter: Past Week | Parent: /projects/ai | Sort: default | Limit: 50 | Total Results Found: 42):`+
			"\n\nNo results found.",
		out)
}

func TestFormatSearchResultsDefaults(t *testing.T) {
	out := FormatSearchResults(SearchQuery{}, &SearchResult{})
	require.Equal(t,
		"Search Results for Query: All (Applications: All | Sort: default | Limit: None | Total Results Found: 0):"+
			"\n\nNo results found.",
		out)
}

func TestFormatSearchResultsDateRange(t *testing.T) {
	query := SearchQuery{
		Term:        "x",
		Limit:       10,
		UpdatedFrom: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		UpdatedTo:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	out := FormatSearchResults(query, &SearchResult{})
	require.Contains(t, out, "Date Filter: 2026-01-15 to 2026-02-01")
}

func TestFormatSearchResultsHits(t *testing.T) {
	query := SearchQuery{Term: "guide", Limit: 2}
	result := &SearchResult{
		TotalFound: 2,
		Hits: []SearchHit{
			{
				ID:          "1",
				Title:       "Getting Started",
				Type:        "wikiPage",
				URL:         "https://corp.example.com/wiki/start",
				Modified:    "2025-09-01T10:30:00Z",
				Excerpt:     "How to get going.",
				Views:       10,
				Comments:    2,
				Likes:       3,
				Labels:      []string{"Guide", "Onboarding"},
				Recommended: true,
				Archived:    true,
			},
			{
				ID:      "2",
				Title:   "Raw Note",
				URL:     "https://corp.example.com/blog/note",
				Content: "Body text only.",
			},
		},
	}

	out := FormatSearchResults(query, result)
	require.Equal(t,
		`Search Results for Query: "guide" (Applications: All | Sort: default | Limit: 2 | Total Results Found: 2):`+
			"\n----------\n"+
			"Title: Getting Started\n"+
			"Type: wikiPage\n"+
			"URL: https://corp.example.com/wiki/start\n"+
			"Last Modified: 2025-09-01\n"+
			"Description: How to get going.\n"+
			"Views: 10 | Comments: 2 | Likes: 3\n"+
			"Labels: Guide, Onboarding\n"+
			"* This item is recommended\n"+
			"* This item is archived"+
			"\n----------\n"+
			"Title: Raw Note\n"+
			"Type: unknown\n"+
			"URL: https://corp.example.com/blog/note\n"+
			"Content: Body text only.\n"+
			"Views: 0 | Comments: 0 | Likes: 0"+
			"\n----------",
		out)
}

func TestFormatFetchResult(t *testing.T) {
	result := &FetchResult{
		URL:        "https://corp.example.com/wiki/start",
		Markdown:   "# Title\n\nBody.",
		TotalChars: 14,
	}
	require.Equal(t,
		"# Fetched Content\n\nURL: https://corp.example.com/wiki/start\n\n---\n\n# Title\n\nBody.",
		FormatFetchResult(result))
}

func TestFormatFetchResultWithOffset(t *testing.T) {
	result := &FetchResult{
		URL:        "https://corp.example.com/wiki/start",
		Markdown:   "continued text",
		TotalChars: 14,
		StartIndex: 5000,
	}
	out := FormatFetchResult(result)
	require.Contains(t, out, "URL: https://corp.example.com/wiki/start\nReading from offset: 5,000\n")
}

func TestFormatFetchResultTruncated(t *testing.T) {
	result := &FetchResult{
		URL:              "https://corp.example.com/wiki/start",
		Markdown:         strings.Repeat("a", 1000),
		TotalChars:       5000,
		Truncated:        true,
		NextStartIndex:   1000,
		CurrentSection:   "Guide > Install",
		UpcomingSections: []string{"Usage", "FAQ"},
	}
	out := FormatFetchResult(result)
	require.Contains(t, out, "⚠️ CONTENT TRUNCATED")
	require.Contains(t, out, "Showing 1,000 of 5,000 chars (20% of document)")
	require.Contains(t, out, "Current section: Guide > Install")
	require.Contains(t, out, "Upcoming sections: Usage, FAQ")
	require.Contains(t, out, "To continue reading, call fetch with start_index:")
	require.Contains(t, out, `  fetch(url="https://corp.example.com/wiki/start", start_index=1000)`)
}

func TestFormatFetchResults(t *testing.T) {
	require.Equal(t, "No pages to display.", FormatFetchResults(nil))

	out := FormatFetchResults([]FetchedPage{
		{URL: "https://corp.example.com/a", Markdown: "# A"},
		{URL: "https://corp.example.com/b", Err: errors.New("boom")},
	})
	require.Equal(t,
		"===== PAGE 1 of 2 =====\nURL: https://corp.example.com/a\n\n# A\n\n"+
			"===== PAGE 2 of 2 =====\nURL: https://corp.example.com/b\n\n[Error fetching page: boom]\n",
		out)
}

func TestFormatMemberSearchResults(t *testing.T) {
	require.Equal(t,
		`Members found for query: "nobody" (Total Results Found: 0):`+"\n\nNo results found.",
		FormatMemberSearchResults("nobody", nil))

	out := FormatMemberSearchResults("jane", []MemberHit{
		{UserID: "101", FullName: "Jane Doe", Email: "jane@example.com"},
		{UserID: "102"},
	})
	require.Equal(t,
		`Members found for query: "jane" (Total Results Found: 2):`+
			"\n----------\n"+
			"Name: Jane Doe\nEmail: jane@example.com\nMember ID: 101"+
			"\n----------\n"+
			"Name: Unknown\nEmail: N/A\nMember ID: 102"+
			"\n----------",
		out)
}

func TestFormatMemberProfile(t *testing.T) {
	detail := &MemberDetail{
		Member: MemberHit{
			UserID:     "205",
			FullName:   "Jane Doe",
			Email:      "jane@example.com",
			Username:   "jdoe",
			ProfileURL: "https://corp.example.com/.profile/jdoe",
		},
		Profile: MemberProfile{
			"job_title":     "Staff Engineer",
			"department":    "Platform",
			"manager_name":  "Boss Person",
			"manager_email": "boss@example.com",
			"mobile":        "+49 151 0000",
			"start_date":    "2021-03-15",
		},
	}
	require.Equal(t,
		"Member Profile: Jane Doe\n"+
			"----------\n"+
			"Name: Jane Doe\n"+
			"Email: jane@example.com\n"+
			"Username: jdoe\n"+
			"Profile URL: https://corp.example.com/.profile/jdoe\n"+
			"Manager Name: Boss Person\n"+
			"Job Title: Staff Engineer\n"+
			"Department: Platform\n"+
			"Manager Email: boss@example.com\n"+
			"Mobile: +49 151 0000\n"+
			"Start Date: 2021-03-15\n"+
			"----------",
		FormatMemberProfile(detail))
}

func TestCamelToTitle(t *testing.T) {
	require.Equal(t, "Past Week", camelToTitle("pastWeek"))
	require.Equal(t, "Past Twenty Four Hours", camelToTitle("pastTwentyFourHours"))
	require.Equal(t, "Past Hour", camelToTitle("pastHour"))
}

func TestFormatThousands(t *testing.T) {
	require.Equal(t, "0", formatThousands(0))
	require.Equal(t, "999", formatThousands(999))
	require.Equal(t, "1,000", formatThousands(1000))
	require.Equal(t, "12,345", formatThousands(12345))
	require.Equal(t, "1,234,567", formatThousands(1234567))
}
