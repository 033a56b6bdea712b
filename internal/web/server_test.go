package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ginModeOnce sync.Once
)

func setupGinTestMode() {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})
}

func TestAllowCORS(t *testing.T) {
	setupGinTestMode()
	t.Parallel()

	tests := []struct {
		name           string
		method         string
		origin         string
		expectedStatus int
		expectedCORS   bool
		expectedOrigin string
	}{
		{
			name:           "No origin header - should pass through",
			method:         "GET",
			origin:         "",
			expectedStatus: http.StatusOK,
			expectedCORS:   false,
			expectedOrigin: "",
		},
		{
			name:           "Valid subdomain origin - GET request",
			method:         "GET",
			origin:         "https://intranet.corp.example.com",
			expectedStatus: http.StatusOK,
			expectedCORS:   true,
			expectedOrigin: "https://intranet.corp.example.com",
		},
		{
			name:           "Valid subdomain origin - POST request",
			method:         "POST",
			origin:         "https://tools.corp.example.com",
			expectedStatus: http.StatusOK,
			expectedCORS:   true,
			expectedOrigin: "https://tools.corp.example.com",
		},
		{
			name:           "Valid exact domain origin",
			method:         "GET",
			origin:         "https://corp.example.com",
			expectedStatus: http.StatusOK,
			expectedCORS:   true,
			expectedOrigin: "https://corp.example.com",
		},
		{
			name:           "Valid subdomain origin - OPTIONS preflight",
			method:         "OPTIONS",
			origin:         "https://intranet.corp.example.com",
			expectedStatus: http.StatusNoContent,
			expectedCORS:   true,
			expectedOrigin: "https://intranet.corp.example.com",
		},
		{
			name:           "Invalid origin - OPTIONS preflight",
			method:         "OPTIONS",
			origin:         "https://evil.com",
			expectedStatus: http.StatusForbidden,
			expectedCORS:   false,
			expectedOrigin: "",
		},
		{
			name:           "Invalid origin - GET request",
			method:         "GET",
			origin:         "https://evil.com",
			expectedStatus: http.StatusOK,
			expectedCORS:   false,
			expectedOrigin: "",
		},
		{
			name:           "Suffix confusion is not a subdomain",
			method:         "GET",
			origin:         "https://corp.example.com.evil.com",
			expectedStatus: http.StatusOK,
			expectedCORS:   false,
			expectedOrigin: "",
		},
		{
			name:           "Case insensitive domain matching",
			method:         "GET",
			origin:         "https://Intranet.CORP.Example.com",
			expectedStatus: http.StatusOK,
			expectedCORS:   true,
			expectedOrigin: "https://Intranet.CORP.Example.com",
		},
		{
			name:           "Multiple level subdomain",
			method:         "GET",
			origin:         "https://api.v2.corp.example.com",
			expectedStatus: http.StatusOK,
			expectedCORS:   true,
			expectedOrigin: "https://api.v2.corp.example.com",
		},
		{
			name:           "Malformed origin URL",
			method:         "GET",
			origin:         "not-a-valid-url",
			expectedStatus: http.StatusOK,
			expectedCORS:   false,
			expectedOrigin: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := gin.New()
			router.Use(allowCORS([]string{"corp.example.com"}))
			router.Any("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "success"})
			})

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code, "Status code mismatch")

			if tt.expectedCORS {
				assert.Equal(t, tt.expectedOrigin, w.Header().Get("Access-Control-Allow-Origin"), "CORS origin header mismatch")
				assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"), "CORS credentials header mismatch")
				assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"), "CORS max age header mismatch")
				assert.Equal(t, "Origin", w.Header().Get("Vary"), "Vary header mismatch")
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"), "CORS origin header should be empty")
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"), "CORS credentials header should be empty")
				assert.Empty(t, w.Header().Get("Access-Control-Max-Age"), "CORS max age header should be empty")
			}
		})
	}
}

func TestAllowCORSWithoutConfiguredSuffixes(t *testing.T) {
	setupGinTestMode()
	t.Parallel()

	router := gin.New()
	router.Use(allowCORS(nil))
	router.Any("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://corp.example.com")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouterRequiresMCPHandler(t *testing.T) {
	setupGinTestMode()
	t.Parallel()

	engine, err := NewRouter(Config{})
	require.Nil(t, engine)
	require.Error(t, err)
}

func TestNewRouterMountsHandlers(t *testing.T) {
	setupGinTestMode()

	var mcpHits, logHits, previewHits int
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mcpHits++
		w.WriteHeader(http.StatusAccepted)
	})
	logHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logHits++
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	previewHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		previewHits++
		_, _ = w.Write([]byte("<html></html>"))
	})

	engine, err := NewRouter(Config{
		MCP:         mcpHandler,
		CallLog:     logHandler,
		PagePreview: previewHandler,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "hello, world", rec.Body.String())

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("{}")))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, mcpHits)

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, logHits)

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/preview?id=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, previewHits)
}

func TestNewRouterHonorsURLPrefix(t *testing.T) {
	setupGinTestMode()

	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	engine, err := NewRouter(Config{MCP: mcpHandler, URLPrefix: "igloo"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/igloo/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/igloo/mcp", strings.NewReader("{}")))
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestNormalizeURLPrefix(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/", normalizeURLPrefix(""))
	require.Equal(t, "/", normalizeURLPrefix("  "))
	require.Equal(t, "/", normalizeURLPrefix("/"))
	require.Equal(t, "/igloo", normalizeURLPrefix("igloo"))
	require.Equal(t, "/igloo", normalizeURLPrefix("/igloo"))
	require.Equal(t, "/igloo", normalizeURLPrefix("/igloo/"))
}
