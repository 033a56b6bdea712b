package igloo

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
)

// Application identifies a platform content application.
type Application int

// Application identifiers assigned by the platform.
const (
	ApplicationBlog      Application = 1
	ApplicationWiki      Application = 2
	ApplicationDocuments Application = 3
	ApplicationForum     Application = 4
	ApplicationGallery   Application = 5
	ApplicationCalendar  Application = 6
	ApplicationPages     Application = 7
	ApplicationPeople    Application = 8
	ApplicationSpace     Application = 9
	ApplicationMicroblog Application = 10
)

var applicationNames = map[Application]string{
	ApplicationBlog:      "blog",
	ApplicationWiki:      "wiki",
	ApplicationDocuments: "documents",
	ApplicationForum:     "forum",
	ApplicationGallery:   "gallery",
	ApplicationCalendar:  "calendar",
	ApplicationPages:     "pages",
	ApplicationPeople:    "people",
	ApplicationSpace:     "space",
	ApplicationMicroblog: "microblog",
}

// String returns the lowercase application name, or "unknown".
func (a Application) String() string {
	if name, ok := applicationNames[a]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether the identifier is one the platform assigns.
func (a Application) Valid() bool {
	_, ok := applicationNames[a]
	return ok
}

// ParseApplication resolves an application by its lowercase name.
func ParseApplication(name string) (Application, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for app, appName := range applicationNames {
		if appName == needle {
			return app, nil
		}
	}
	return 0, errors.Errorf("unknown application %q", name)
}

// ApplicationNames returns all application names in identifier order.
func ApplicationNames() []string {
	names := make([]string, 0, len(applicationNames))
	for app := ApplicationBlog; app <= ApplicationMicroblog; app++ {
		names = append(names, app.String())
	}
	return names
}

// UpdatedWithin enumerates the platform's relative last-modified filters.
type UpdatedWithin string

// Relative date windows accepted by the search endpoint.
const (
	UpdatedPastHour  UpdatedWithin = "pastHour"
	UpdatedPastDay   UpdatedWithin = "pastTwentyFourHours"
	UpdatedPastWeek  UpdatedWithin = "pastWeek"
	UpdatedPastMonth UpdatedWithin = "pastMonth"
	UpdatedPastYear  UpdatedWithin = "pastYear"

	// updatedDateRange selects an explicit from/to window.
	updatedDateRange UpdatedWithin = "dateRange"
)

var updatedWithinValues = []UpdatedWithin{
	UpdatedPastHour,
	UpdatedPastDay,
	UpdatedPastWeek,
	UpdatedPastMonth,
	UpdatedPastYear,
}

// ParseUpdatedWithin resolves a relative date window, case-insensitively.
func ParseUpdatedWithin(value string) (UpdatedWithin, error) {
	needle := strings.TrimSpace(value)
	for _, candidate := range updatedWithinValues {
		if strings.EqualFold(string(candidate), needle) {
			return candidate, nil
		}
	}
	return "", errors.Errorf("unknown date window %q", value)
}

// UpdatedWithinValues returns the accepted relative date windows.
func UpdatedWithinValues() []string {
	values := make([]string, 0, len(updatedWithinValues))
	for _, v := range updatedWithinValues {
		values = append(values, string(v))
	}
	return values
}

// SearchQuery describes one content search against the community.
//
// The zero value of every optional field means "do not filter": the
// platform defaults (match all keywords, include microblog posts,
// exclude archived content) apply unless a field says otherwise.
type SearchQuery struct {
	// Term holds the keyword expression. Optional; an empty term
	// browses by filters alone.
	Term string
	// Applications restricts hits to the given content applications.
	Applications []Application
	// ParentPaths restricts hits to pages under the given path
	// prefixes, e.g. "/knowledge-base".
	ParentPaths []string
	// UpdatedWithin selects a relative last-modified window. Mutually
	// exclusive with UpdatedFrom / UpdatedTo.
	UpdatedWithin UpdatedWithin
	// UpdatedFrom and UpdatedTo bound an inclusive last-modified date
	// range. Both must be set together.
	UpdatedFrom time.Time
	UpdatedTo   time.Time
	// Limit caps the number of hits returned for this call.
	Limit int
	// PageToken resumes a prior traversal after its last returned hit.
	PageToken string
	// MatchAny relaxes keyword matching from all terms to any term.
	MatchAny bool
	// IncludeArchived also returns archived content.
	IncludeArchived bool
	// ExcludeMicroblog drops microblog posts from the results.
	ExcludeMicroblog bool
}

// SearchHit is one normalized search result record.
type SearchHit struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	Type        string      `json:"type,omitempty"`
	Application Application `json:"application,omitempty"`
	ParentPath  string      `json:"parent_path,omitempty"`
	Modified    string      `json:"modified,omitempty"`
	Excerpt     string      `json:"excerpt,omitempty"`
	Content     string      `json:"content,omitempty"`
	Views       int         `json:"views,omitempty"`
	Comments    int         `json:"comments,omitempty"`
	Likes       int         `json:"likes,omitempty"`
	Labels      []string    `json:"labels,omitempty"`
	Recommended bool        `json:"recommended,omitempty"`
	Archived    bool        `json:"archived,omitempty"`
}

// SearchResult is one page of normalized hits.
type SearchResult struct {
	Hits       []SearchHit `json:"hits"`
	TotalFound int         `json:"total_found"`
	// NextPageToken resumes the traversal when more hits remain.
	NextPageToken string `json:"next_page_token,omitempty"`
}

// FetchRequest identifies one page to retrieve, by URL or by object ID.
// Exactly one of URL and ID must be set.
type FetchRequest struct {
	URL string
	ID  string
	// StartIndex continues reading a long document from the given
	// character offset of a previous conversion.
	StartIndex int
}

// PagePayload is a raw fetched page before Markdown conversion.
type PagePayload struct {
	URL      string
	Title    string
	Modified string
	HTML     string
}

// PageResult pairs one URL of a batch fetch with its payload or error.
type PageResult struct {
	URL     string
	Payload PagePayload
	Err     error
}

// FetchResult is one converted page ready to return to the caller.
type FetchResult struct {
	URL            string `json:"url"`
	Title          string `json:"title,omitempty"`
	Modified       string `json:"modified,omitempty"`
	Markdown       string `json:"markdown"`
	TotalChars     int    `json:"total_chars"`
	Truncated      bool   `json:"truncated,omitempty"`
	StartIndex     int    `json:"start_index,omitempty"`
	NextStartIndex int    `json:"next_start_index,omitempty"`
	// CurrentSection and UpcomingSections orient the caller inside a
	// truncated document: the heading path at the cut point and the
	// headings that follow it.
	CurrentSection   string   `json:"current_section,omitempty"`
	UpcomingSections []string `json:"upcoming_sections,omitempty"`
}

// MemberHit is one normalized member directory record.
type MemberHit struct {
	UserID     string `json:"user_id"`
	FullName   string `json:"full_name,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Email      string `json:"email,omitempty"`
	Username   string `json:"username,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
}

// MemberProfile maps cleaned profile field names to their values.
type MemberProfile map[string]string

// MemberDetail combines a member's directory entry with profile fields.
type MemberDetail struct {
	Member  MemberHit     `json:"member"`
	Profile MemberProfile `json:"profile"`
}

// pageCursor is the decoded form of a search page token.
type pageCursor struct {
	Offset int `json:"offset"`
}

// encodePageToken wraps a record offset into an opaque page token.
func encodePageToken(offset int) string {
	payload, err := json.Marshal(pageCursor{Offset: offset})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(payload)
}

// decodePageToken unwraps a page token back into a record offset.
func decodePageToken(token string) (int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, NewValidationError("page_token", "malformed page token")
	}
	var cursor pageCursor
	if err := json.Unmarshal(raw, &cursor); err != nil {
		return 0, NewValidationError("page_token", "malformed page token")
	}
	if cursor.Offset < 0 {
		return 0, NewValidationError("page_token", "malformed page token")
	}
	return cursor.Offset, nil
}
