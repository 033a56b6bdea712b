package mcp

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/Laisky/igloo-mcp/library"
)

// withAuthorizationHeaderNormalization folds query-parameter API keys into
// the Authorization header so downstream code relies on a single auth
// channel. Some MCP clients cannot set custom headers and pass the key as
// a query parameter instead.
func withAuthorizationHeaderNormalization(next http.Handler, logger logSDK.Logger) http.Handler {
	if next == nil {
		return nil
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader, source := resolveRequestAuthorizationHeader(r)
		if source == "query_apikey" && strings.TrimSpace(r.Header.Get("Authorization")) == "" {
			r.Header.Set("Authorization", authHeader)
			if logger != nil {
				logger.Debug("normalized query api key into authorization header; prefer Authorization header")
			}
		}

		next.ServeHTTP(w, r)
	})
}

// resolveRequestAuthorizationHeader resolves the canonical Authorization
// header value for a request, returning the value and its source:
// "header", "query_apikey", or "none".
func resolveRequestAuthorizationHeader(r *http.Request) (authHeader string, source string) {
	if r == nil {
		return "", "none"
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		return header, "header"
	}

	apiKey := extractAPIKeyFromQuery(r)
	if apiKey != "" {
		return "Bearer " + apiKey, "query_apikey"
	}

	return "", "none"
}

// extractAPIKeyFromQuery extracts an API key from the query parameter
// spellings MCP clients use.
func extractAPIKeyFromQuery(r *http.Request) (apiKey string) {
	if r == nil || r.URL == nil {
		return ""
	}

	query := r.URL.Query()
	for _, key := range []string{"APIKEY", "apikey", "api_key"} {
		raw := strings.TrimSpace(query.Get(key))
		if raw == "" {
			continue
		}

		trimmed := strings.TrimSpace(library.StripBearerPrefix(raw))
		if trimmed != "" {
			return trimmed
		}
	}

	return ""
}

// withAccessTokenGuard rejects requests whose bearer token does not match
// the configured shared secret. An empty secret disables the guard; run
// the normalization middleware before this one so query keys count.
func withAccessTokenGuard(next http.Handler, token string, logger logSDK.Logger) http.Handler {
	if next == nil {
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := strings.TrimSpace(library.StripBearerPrefix(r.Header.Get("Authorization")))
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			if logger != nil {
				logger.Warn("rejected mcp request with invalid access token",
					zap.String("path", r.URL.Path),
					zap.String("remote", r.RemoteAddr),
				)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid or missing access token"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
