package igloo

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// FormatSearchResults renders search hits as compact display text,
// one block per hit with a parameter summary header.
func FormatSearchResults(query SearchQuery, result *SearchResult) string {
	header := formatSearchHeader(query, result.TotalFound)
	if len(result.Hits) == 0 {
		return header + "\n\nNo results found."
	}

	var b strings.Builder
	b.WriteString(header)
	for _, hit := range result.Hits {
		b.WriteString("\n----------\n")
		b.WriteString(formatSearchHit(hit))
	}
	b.WriteString("\n----------")
	return b.String()
}

func formatSearchHeader(query SearchQuery, totalFound int) string {
	queryStr := "All"
	if term := strings.TrimSpace(query.Term); term != "" {
		queryStr = "\"" + term + "\""
	}

	appsStr := "All"
	if len(query.Applications) > 0 {
		names := make([]string, 0, len(query.Applications))
		for _, app := range query.Applications {
			names = append(names, app.String())
		}
		appsStr = strings.Join(names, ", ")
	}

	limitStr := "None"
	if query.Limit > 0 {
		limitStr = strconv.Itoa(query.Limit)
	}

	parts := []string{
		"Applications: " + appsStr,
		"Sort: default",
		"Limit: " + limitStr,
		fmt.Sprintf("Total Results Found: %d", totalFound),
	}
	if prefixes := parentPrefixes(query.ParentPaths); len(prefixes) > 0 {
		parts = insertAt(parts, 1, "Parent: "+strings.Join(prefixes, ", "))
	}
	if filter := formatDateFilter(query); filter != "" {
		parts = insertAt(parts, 1, filter)
	}

	return fmt.Sprintf("Search Results for Query: %s (%s):", queryStr, strings.Join(parts, " | "))
}

func formatDateFilter(query SearchQuery) string {
	switch {
	case !query.UpdatedFrom.IsZero() && !query.UpdatedTo.IsZero():
		return fmt.Sprintf("Date Filter: %s to %s",
			query.UpdatedFrom.Format("2006-01-02"),
			query.UpdatedTo.Format("2006-01-02"))
	case query.UpdatedWithin != "":
		return "Date Filter: " + camelToTitle(string(query.UpdatedWithin))
	}
	return ""
}

func formatSearchHit(hit SearchHit) string {
	lines := []string{
		"Title: " + displayString(hit.Title, "Untitled"),
		"Type: " + displayString(hit.Type, "unknown"),
		"URL: " + hit.URL,
	}
	if hit.Modified != "" {
		lines = append(lines, "Last Modified: "+displayDate(hit.Modified))
	}
	if hit.Excerpt != "" {
		lines = append(lines, "Description: "+hit.Excerpt)
	} else if hit.Content != "" {
		lines = append(lines, "Content: "+hit.Content)
	}
	lines = append(lines, fmt.Sprintf("Views: %d | Comments: %d | Likes: %d", hit.Views, hit.Comments, hit.Likes))
	if len(hit.Labels) > 0 {
		lines = append(lines, "Labels: "+strings.Join(hit.Labels, ", "))
	}
	if hit.Recommended {
		lines = append(lines, "* This item is recommended")
	}
	if hit.Archived {
		lines = append(lines, "* This item is archived")
	}
	return strings.Join(lines, "\n")
}

// FormatFetchResult renders one converted page with a URL header and,
// when the document was cut short, a truncation notice telling the
// caller how to continue reading.
func FormatFetchResult(result *FetchResult) string {
	parts := []string{"# Fetched Content", "", "URL: " + result.URL}
	if result.StartIndex > 0 {
		parts = append(parts, "Reading from offset: "+formatThousands(result.StartIndex))
	}
	parts = append(parts, "", "---", "", "")

	out := strings.Join(parts, "\n") + result.Markdown
	if result.Truncated {
		out += formatTruncationNotice(result)
	}
	return out
}

func formatTruncationNotice(result *FetchResult) string {
	returned := len(result.Markdown)
	pct := 0
	if result.TotalChars > 0 {
		pct = 100 * returned / result.TotalChars
	}

	lines := []string{
		"",
		"---",
		"",
		"⚠️ CONTENT TRUNCATED",
		fmt.Sprintf("Showing %s of %s chars (%d%% of document)",
			formatThousands(returned), formatThousands(result.TotalChars), pct),
	}
	if result.CurrentSection != "" {
		lines = append(lines, "Current section: "+result.CurrentSection)
	}
	if len(result.UpcomingSections) > 0 {
		lines = append(lines, "Upcoming sections: "+strings.Join(result.UpcomingSections, ", "))
	}
	if result.NextStartIndex > 0 {
		lines = append(lines,
			"",
			"To continue reading, call fetch with start_index:",
			fmt.Sprintf("  fetch(url=\"%s\", start_index=%d)", result.URL, result.NextStartIndex),
		)
	}
	return strings.Join(lines, "\n")
}

// FetchedPage is one page of a multi-page fetch prepared for display.
type FetchedPage struct {
	URL      string
	Markdown string
	Err      error
}

// FormatFetchResults renders a batch of fetched pages with positional
// separators. Failed pages keep their slot with an inline error note.
func FormatFetchResults(pages []FetchedPage) string {
	if len(pages) == 0 {
		return "No pages to display."
	}

	parts := make([]string, 0, len(pages))
	for i, page := range pages {
		header := fmt.Sprintf("===== PAGE %d of %d =====\nURL: %s\n", i+1, len(pages), page.URL)
		var content string
		if page.Err != nil {
			content = fmt.Sprintf("\n[Error fetching page: %v]\n", page.Err)
		} else {
			content = "\n" + page.Markdown + "\n"
		}
		parts = append(parts, header+content)
	}
	return strings.Join(parts, "\n")
}

// FormatMemberSearchResults renders member directory hits as display text.
func FormatMemberSearchResults(query string, hits []MemberHit) string {
	header := fmt.Sprintf("Members found for query: \"%s\" (Total Results Found: %d):", query, len(hits))
	if len(hits) == 0 {
		return header + "\n\nNo results found."
	}

	var b strings.Builder
	b.WriteString(header)
	for _, hit := range hits {
		b.WriteString("\n----------\n")
		b.WriteString(formatMemberBasic(hit))
	}
	b.WriteString("\n----------")
	return b.String()
}

func formatMemberBasic(hit MemberHit) string {
	return strings.Join([]string{
		"Name: " + displayString(hit.FullName, "Unknown"),
		"Email: " + displayString(hit.Email, "N/A"),
		"Member ID: " + displayString(hit.UserID, "N/A"),
	}, "\n")
}

// profileDisplayOrder fixes the field order of rendered profiles.
var profileDisplayOrder = []struct {
	key   string
	label string
}{
	{"job_title", "Job Title"},
	{"department", "Department"},
	{"manager_email", "Manager Email"},
	{"office", "Office"},
	{"desk", "Desk"},
	{"work_phone", "Work Phone"},
	{"extension", "Extension"},
	{"mobile", "Mobile"},
	{"start_date", "Start Date"},
}

// FormatMemberProfile renders one member's profile as display text.
func FormatMemberProfile(detail *MemberDetail) string {
	fullName := displayString(detail.Member.FullName, "Unknown")
	lines := []string{
		"Member Profile: " + fullName,
		"----------",
		"Name: " + fullName,
		"Email: " + displayString(detail.Member.Email, "N/A"),
		"Username: " + displayString(detail.Member.Username, "N/A"),
		"Profile URL: " + displayString(detail.Member.ProfileURL, "N/A"),
	}
	if manager := detail.Profile["manager_name"]; manager != "" {
		lines = append(lines, "Manager Name: "+manager)
	}
	for _, field := range profileDisplayOrder {
		if value := detail.Profile[field.key]; value != "" {
			lines = append(lines, field.label+": "+value)
		}
	}
	lines = append(lines, "----------")
	return strings.Join(lines, "\n")
}

func insertAt(parts []string, index int, value string) []string {
	parts = append(parts, "")
	copy(parts[index+1:], parts[index:])
	parts[index] = value
	return parts
}

// camelToTitle turns "pastTwentyFourHours" into "Past Twenty Four Hours".
func camelToTitle(value string) string {
	var b strings.Builder
	for i, r := range value {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// displayDate shows just the date part of a normalized timestamp.
func displayDate(value string) string {
	if len(value) >= 10 && value[4] == '-' && value[7] == '-' {
		return value[:10]
	}
	return value
}

func displayString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// formatThousands groups digits like "12,345" for display.
func formatThousands(n int) string {
	s := strconv.Itoa(n)
	if n < 0 || len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	return strings.Join(append([]string{s}, parts...), ",")
}
