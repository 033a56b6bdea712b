package igloo

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// excerptLimit caps the excerpt length carried on a normalized hit.
const excerptLimit = 200

// rawSearchHit models the subset of a content search record we consume.
type rawSearchHit struct {
	ID            any            `json:"id"`
	Title         string         `json:"title"`
	Type          string         `json:"type"`
	FullURL       string         `json:"full_url"`
	ParentHref    string         `json:"parent_href"`
	ApplicationID int            `json:"application_id"`
	ModifiedDate  string         `json:"modified_date"`
	Description   string         `json:"description"`
	Content       string         `json:"content"`
	ViewsCount    int            `json:"views_count"`
	CommentsCount int            `json:"comments_count"`
	LikesCount    int            `json:"likes_count"`
	Labels        map[string]any `json:"labels"`
	IsRecommended bool           `json:"is_recommended"`
	IsArchived    bool           `json:"is_archived"`
}

// malformedRecord builds a record-level error naming the offending field.
func malformedRecord(field, message string) *Error {
	return &Error{Kind: KindMalformedRecord, Field: field, Message: message}
}

// normalizeSearchHit converts one raw search record into a SearchHit.
//
// Records missing a stable identifier, title, or URL cannot be acted on
// and are rejected so the caller can drop them without aborting the page.
func normalizeSearchHit(raw json.RawMessage, baseURL string) (SearchHit, error) {
	var record rawSearchHit
	if err := json.Unmarshal(raw, &record); err != nil {
		return SearchHit{}, WrapError(KindMalformedRecord, err, "unmarshal search record")
	}

	id := flexString(record.ID)
	if id == "" {
		return SearchHit{}, malformedRecord("id", "missing required field")
	}
	title := strings.TrimSpace(record.Title)
	if title == "" {
		return SearchHit{}, malformedRecord("title", "missing required field")
	}
	pageURL := strings.TrimSpace(record.FullURL)
	if pageURL == "" {
		return SearchHit{}, malformedRecord("full_url", "missing required field")
	}

	hit := SearchHit{
		ID:          id,
		Title:       title,
		URL:         resolveCommunityURL(baseURL, pageURL),
		Type:        strings.TrimSpace(record.Type),
		ParentPath:  strings.TrimSpace(record.ParentHref),
		Modified:    normalizeModified(record.ModifiedDate),
		Views:       record.ViewsCount,
		Comments:    record.CommentsCount,
		Likes:       record.LikesCount,
		Labels:      labelNames(record.Labels),
		Recommended: record.IsRecommended,
		Archived:    record.IsArchived,
	}
	if Application(record.ApplicationID).Valid() {
		hit.Application = Application(record.ApplicationID)
	}

	if excerpt := strings.TrimSpace(record.Description); excerpt != "" {
		hit.Excerpt = truncateExcerpt(excerpt, excerptLimit)
	} else if content := strings.TrimSpace(record.Content); content != "" {
		hit.Content = truncateExcerpt(content, excerptLimit)
	}

	return hit, nil
}

// rawMemberName models the nested name object of member records.
type rawMemberName struct {
	FullName  string `json:"fullName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// rawMemberHit models one member directory search record.
type rawMemberHit struct {
	ID        any           `json:"id"`
	Name      rawMemberName `json:"name"`
	Email     string        `json:"email"`
	Namespace string        `json:"namespace"`
}

// normalizeMemberHit converts one raw member record into a MemberHit.
func normalizeMemberHit(raw json.RawMessage, baseURL string) (MemberHit, error) {
	var record rawMemberHit
	if err := json.Unmarshal(raw, &record); err != nil {
		return MemberHit{}, WrapError(KindMalformedRecord, err, "unmarshal member record")
	}

	id := flexString(record.ID)
	if id == "" {
		return MemberHit{}, malformedRecord("id", "missing required field")
	}

	hit := MemberHit{
		UserID:    id,
		FullName:  strings.TrimSpace(record.Name.FullName),
		FirstName: strings.TrimSpace(record.Name.FirstName),
		LastName:  strings.TrimSpace(record.Name.LastName),
		Email:     strings.TrimSpace(record.Email),
		Username:  strings.TrimSpace(record.Namespace),
	}
	if hit.Username != "" {
		hit.ProfileURL = baseURL + "/.profile/" + hit.Username
	}
	return hit, nil
}

// profileItem is one Name/Value row of a member profile payload.
type profileItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// profileFieldMapping renames raw profile fields to their cleaned keys.
var profileFieldMapping = map[string]string{
	"title":             "job_title",
	"department":        "department",
	"i_report_to_email": "manager_email",
	"office_location":   "office",
	"desk_number":       "desk",
	"busphone":          "work_phone",
	"extension":         "extension",
	"cellphone":         "mobile",
	"work_start_date":   "start_date",
}

// profileSkipFields are raw fields never surfaced to callers.
var profileSkipFields = map[string]bool{
	"bluejeans": true,
	"timezone":  true,
}

// buildMemberProfile folds raw profile rows into cleaned key/value pairs.
//
// It also extracts the manager's user ID, which is reported separately
// so the caller can resolve the manager's display name.
func buildMemberProfile(items []profileItem) (MemberProfile, string) {
	profile := MemberProfile{}
	var managerID string

	for _, item := range items {
		value := flexString(item.Value)
		if item.Name == "i_report_to" && value != "" {
			managerID = value
			continue
		}
		if profileSkipFields[item.Name] {
			continue
		}
		if value == "" || value == "null" || value == "https://bluejeans.com/null" {
			continue
		}

		key := profileFieldMapping[item.Name]
		if key == "" {
			key = item.Name
		}
		if strings.Contains(item.Name, "date") {
			value = strings.SplitN(value, " ", 2)[0]
		}
		profile[key] = value
	}

	return profile, managerID
}

// flexString renders a JSON value that may arrive as string or number.
func flexString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// labelNames flattens a labels object into sorted display names.
func labelNames(labels map[string]any) []string {
	if len(labels) == 0 {
		return nil
	}
	names := make([]string, 0, len(labels))
	for _, value := range labels {
		if name := flexString(value); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil
	}
	return names
}

// normalizeModified canonicalizes a record timestamp.
//
// Well-formed timestamps become RFC 3339 in their original zone. Values
// that only look date-prefixed keep their date part; anything else is
// passed through untouched so callers never lose information.
func normalizeModified(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if ts, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return ts.Format(time.RFC3339)
	}
	if len(trimmed) >= 10 && trimmed[4] == '-' && trimmed[7] == '-' {
		return trimmed[:10]
	}
	return trimmed
}

// truncateExcerpt shortens text to limit characters at a word boundary.
func truncateExcerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// resolveCommunityURL absolutizes a community-relative page reference.
func resolveCommunityURL(baseURL, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return baseURL + ref
}
