package igloo

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSearchHitRequiredFields(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		field string
	}{
		{"missing id", `{"title":"t","full_url":"/x"}`, "id"},
		{"blank title", `{"id":1,"title":"   ","full_url":"/x"}`, "title"},
		{"missing url", `{"id":1,"title":"t"}`, "full_url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := normalizeSearchHit(json.RawMessage(tc.raw), "https://corp.example.com")
			require.Error(t, err)
			require.True(t, IsKind(err, KindMalformedRecord))

			typed, ok := AsError(err)
			require.True(t, ok)
			require.Equal(t, tc.field, typed.Field)
		})
	}

	_, err := normalizeSearchHit(json.RawMessage(`{"id":[`), "https://corp.example.com")
	require.Error(t, err)
	require.True(t, IsKind(err, KindMalformedRecord))
}

func TestNormalizeSearchHitMapsAllFields(t *testing.T) {
	raw := `{
		"id": 9001,
		"title": "  Quarterly Roadmap  ",
		"type": "wikiPage",
		"full_url": "/wiki/roadmap",
		"parent_href": "/wiki",
		"application_id": 2,
		"modified_date": "2025-09-01T10:30:00.123456Z",
		"description": "Plans for the next quarter.",
		"views_count": 120,
		"comments_count": 4,
		"likes_count": 9,
		"labels": {"a1": "Planning", "a2": "Roadmap", "a3": ""},
		"is_recommended": true,
		"is_archived": true
	}`

	hit, err := normalizeSearchHit(json.RawMessage(raw), "https://corp.example.com")
	require.NoError(t, err)
	require.Equal(t, SearchHit{
		ID:          "9001",
		Title:       "Quarterly Roadmap",
		URL:         "https://corp.example.com/wiki/roadmap",
		Type:        "wikiPage",
		Application: ApplicationWiki,
		ParentPath:  "/wiki",
		Modified:    "2025-09-01T10:30:00Z",
		Excerpt:     "Plans for the next quarter.",
		Views:       120,
		Comments:    4,
		Likes:       9,
		Labels:      []string{"Planning", "Roadmap"},
		Recommended: true,
		Archived:    true,
	}, hit)
}

func TestNormalizeSearchHitContentFallback(t *testing.T) {
	raw := `{"id":"abc","title":"t","full_url":"https://corp.example.com/x","content":"Body text only."}`
	hit, err := normalizeSearchHit(json.RawMessage(raw), "https://corp.example.com")
	require.NoError(t, err)
	require.Empty(t, hit.Excerpt)
	require.Equal(t, "Body text only.", hit.Content)
	// Absolute URLs pass through untouched.
	require.Equal(t, "https://corp.example.com/x", hit.URL)
}

func TestNormalizeSearchHitTruncatesExcerpt(t *testing.T) {
	words := strings.Repeat("word ", 60)
	raw := `{"id":1,"title":"t","full_url":"/x","description":"` + strings.TrimSpace(words) + `"}`
	hit, err := normalizeSearchHit(json.RawMessage(raw), "https://corp.example.com")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(hit.Excerpt, "..."))
	require.LessOrEqual(t, len([]rune(hit.Excerpt)), excerptLimit+3)
	require.NotContains(t, hit.Excerpt, " ...")
}

func TestNormalizeModified(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"2025-09-01T10:30:00Z", "2025-09-01T10:30:00Z"},
		{"2025-09-01T10:30:00.123456Z", "2025-09-01T10:30:00Z"},
		{"2025-09-01T10:30:00+02:00", "2025-09-01T10:30:00+02:00"},
		{"2025-13-01 25:99:00", "2025-13-01"},
		{"2025-09-01", "2025-09-01"},
		{"last week", "last week"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, normalizeModified(tc.in), "input %q", tc.in)
	}
}

func TestFlexString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"  text  ", "text"},
		{float64(42), "42"},
		{float64(3.5), "3.5"},
		{json.Number("1234567890123"), "1234567890123"},
		{true, "true"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, flexString(tc.in))
	}
}

func TestLabelNames(t *testing.T) {
	require.Nil(t, labelNames(nil))
	require.Nil(t, labelNames(map[string]any{"a": ""}))
	require.Equal(t, []string{"Alpha", "Beta"},
		labelNames(map[string]any{"k2": "Beta", "k1": "Alpha"}))
}

func TestTruncateExcerpt(t *testing.T) {
	require.Equal(t, "short", truncateExcerpt("short", 10))
	require.Equal(t, "one two...", truncateExcerpt("one two three", 9))
	require.Equal(t, "abcde...", truncateExcerpt("abcdefghij", 5))
}

func TestResolveCommunityURL(t *testing.T) {
	base := "https://corp.example.com"
	require.Equal(t, "https://other.example.com/x", resolveCommunityURL(base, "https://other.example.com/x"))
	require.Equal(t, base+"/wiki/page", resolveCommunityURL(base, "/wiki/page"))
	require.Equal(t, base+"/wiki/page", resolveCommunityURL(base, "wiki/page"))
}

func TestBuildMemberProfileExtractsManager(t *testing.T) {
	profile, managerID := buildMemberProfile([]profileItem{
		{Name: "title", Value: "Engineer"},
		{Name: "i_report_to", Value: float64(917)},
		{Name: "i_report_to_email", Value: "lead@example.com"},
		{Name: "hire_date", Value: "2020-01-02 08:00:00"},
		{Name: "timezone", Value: "UTC"},
		{Name: "slack", Value: "null"},
	})
	require.Equal(t, "917", managerID)
	require.Equal(t, MemberProfile{
		"job_title":     "Engineer",
		"manager_email": "lead@example.com",
		"hire_date":     "2020-01-02",
	}, profile)
}
