package igloo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
)

// memberSearchEnvelope models the member directory search response.
type memberSearchEnvelope struct {
	Response struct {
		Value struct {
			Hit []json.RawMessage `json:"hit"`
		} `json:"value"`
	} `json:"response"`
}

// userViewEnvelope models the single-user view response.
type userViewEnvelope struct {
	Response rawMemberHit `json:"response"`
}

// profileEnvelope models the profile field list response.
type profileEnvelope struct {
	Response struct {
		Items []profileItem `json:"items"`
	} `json:"response"`
}

// SearchMembers queries the member directory by name or partial name.
//
// The directory endpoint has no paging; the hit list is cut to limit
// after dropping records that cannot be normalized.
func (c *Client) SearchMembers(ctx context.Context, query string, limit int) ([]MemberHit, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, NewValidationError("query", "must not be empty")
	}
	if limit <= 0 {
		return nil, NewValidationError("limit", "must be a positive integer")
	}

	params := url.Values{}
	params.Set("q", trimmed)
	resp, err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		target: memberSearchPath,
		params: params,
	})
	if err != nil {
		return nil, errors.Wrap(err, "search community members")
	}

	var envelope memberSearchEnvelope
	if err := json.Unmarshal(resp.body, &envelope); err != nil {
		return nil, WrapError(KindMalformedRecord, err, "unmarshal member search response")
	}

	logger := c.requestLogger(ctx)
	hits := make([]MemberHit, 0, limit)
	for i, raw := range envelope.Response.Value.Hit {
		if len(hits) == limit {
			break
		}
		hit, err := normalizeMemberHit(raw, c.baseURL)
		if err != nil {
			if logger != nil {
				logger.Warn("drop malformed member record", zap.Int("index", i), zap.Error(err))
			}
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// MemberProfile returns a member's directory entry and profile fields.
//
// When the profile names a manager, the manager's display name is
// resolved with one extra lookup; a failed lookup keeps the profile
// usable with just the manager's email.
func (c *Client) MemberProfile(ctx context.Context, userID string) (*MemberDetail, error) {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return nil, NewValidationError("user_id", "must not be empty")
	}

	member, err := c.memberView(ctx, trimmed)
	if err != nil {
		return nil, err
	}

	items, err := c.profileItems(ctx, trimmed)
	if err != nil {
		return nil, err
	}

	profile, managerID := buildMemberProfile(items)
	if managerID != "" {
		manager, err := c.memberView(ctx, managerID)
		switch {
		case err == nil && manager.FullName != "":
			profile["manager_name"] = manager.FullName
		default:
			if logger := c.requestLogger(ctx); logger != nil {
				logger.Debug("manager lookup failed",
					zap.String("manager_id", managerID),
					zap.Error(err),
				)
			}
		}
	}

	return &MemberDetail{Member: *member, Profile: profile}, nil
}

// memberView loads one member's directory entry by user ID.
func (c *Client) memberView(ctx context.Context, userID string) (*MemberHit, error) {
	resp, err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		target: fmt.Sprintf(userViewTemplate, url.PathEscape(userID)),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "view user %s", userID)
	}

	var envelope userViewEnvelope
	if err := json.Unmarshal(resp.body, &envelope); err != nil {
		return nil, WrapError(KindMalformedRecord, err, "unmarshal user view")
	}

	hit := MemberHit{
		UserID:    userID,
		FullName:  strings.TrimSpace(envelope.Response.Name.FullName),
		FirstName: strings.TrimSpace(envelope.Response.Name.FirstName),
		LastName:  strings.TrimSpace(envelope.Response.Name.LastName),
		Email:     strings.TrimSpace(envelope.Response.Email),
		Username:  strings.TrimSpace(envelope.Response.Namespace),
	}
	if hit.Username != "" {
		hit.ProfileURL = c.baseURL + "/.profile/" + hit.Username
	}
	return &hit, nil
}

// profileItems loads the raw profile rows for one user.
func (c *Client) profileItems(ctx context.Context, userID string) ([]profileItem, error) {
	resp, err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		target: fmt.Sprintf(userProfileTemplate, url.PathEscape(userID)),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "view profile for user %s", userID)
	}

	var envelope profileEnvelope
	if err := json.Unmarshal(resp.body, &envelope); err != nil {
		return nil, WrapError(KindMalformedRecord, err, "unmarshal profile view")
	}
	return envelope.Response.Items, nil
}
