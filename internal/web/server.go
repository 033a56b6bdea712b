// Package web provides the gin HTTP surface of the Igloo MCP adapter:
// the MCP endpoint, call-log diagnostics, and debug pages behind shared
// middleware.
package web

import (
	"net/http"
	"net/url"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/igloo-mcp/library/log"
)

// Config carries the handlers and routing options the router mounts.
type Config struct {
	// MCP serves the streamable MCP transport. Required.
	MCP http.Handler
	// CallLog serves the tool invocation log listing. Optional.
	CallLog http.Handler
	// Inspector serves the MCP inspector debug page. Optional.
	Inspector http.Handler
	// PagePreview renders a fetched page's markdown as HTML. Optional.
	PagePreview http.Handler

	// URLPrefix mounts every route under a base path, e.g. "/igloo".
	URLPrefix string
	// AllowedOriginSuffixes lists origin host suffixes granted CORS
	// access; "corp.example.com" also matches its subdomains.
	AllowedOriginSuffixes []string
}

// NewRouter assembles the gin engine with shared middleware and the
// configured mounts.
func NewRouter(cfg Config) (*gin.Engine, error) {
	if cfg.MCP == nil {
		return nil, errors.New("mcp handler is required")
	}

	if !gconfig.Shared.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(log.Logger.Level().String()),
			gmw.WithLogger(log.Logger.Named("gin")),
		),
		allowCORS(cfg.AllowedOriginSuffixes),
	)

	if err := gmw.EnableMetric(engine); err != nil {
		return nil, errors.Wrap(err, "enable metric server")
	}

	root := engine.Group(normalizeURLPrefix(cfg.URLPrefix))

	root.Any("/health", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "hello, world")
	})

	root.Any("/mcp", gmw.FromStd(cfg.MCP.ServeHTTP))

	if cfg.CallLog != nil {
		root.GET("/api/logs", gmw.FromStd(cfg.CallLog.ServeHTTP))
	}
	if cfg.Inspector != nil {
		root.GET("/debug/inspector", gmw.FromStd(cfg.Inspector.ServeHTTP))
	}
	if cfg.PagePreview != nil {
		root.GET("/debug/preview", gmw.FromStd(cfg.PagePreview.ServeHTTP))
	}

	return engine, nil
}

// RunServer blocks serving HTTP until the listener fails.
func RunServer(addr string, cfg Config) {
	engine, err := NewRouter(cfg)
	if err != nil {
		log.Logger.Panic("build router", zap.Error(err))
	}

	log.Logger.Info("listening on http", zap.String("addr", addr))
	log.Logger.Panic("http server exit", zap.Error(engine.Run(addr)))
}

// normalizeURLPrefix turns a configured base path into a gin group prefix.
func normalizeURLPrefix(prefix string) string {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" || trimmed == "/" {
		return "/"
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return strings.TrimRight(trimmed, "/")
}

// allowCORS grants cross-origin access to the configured origin suffixes
// only. Preflight requests from other origins are denied outright.
func allowCORS(allowedSuffixes []string) gin.HandlerFunc {
	suffixes := make([]string, 0, len(allowedSuffixes))
	for _, suffix := range allowedSuffixes {
		trimmed := strings.ToLower(strings.TrimSpace(suffix))
		if trimmed != "" {
			suffixes = append(suffixes, trimmed)
		}
	}

	return func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")
		allowedOrigin := ""

		if origin != "" {
			parsedOriginURL, err := url.Parse(origin)
			if err == nil {
				host := strings.ToLower(parsedOriginURL.Hostname())
				for _, suffix := range suffixes {
					if host == suffix || strings.HasSuffix(host, "."+suffix) {
						allowedOrigin = origin
						break
					}
				}
			}
		}

		if allowedOrigin != "" {
			ctx.Header("Access-Control-Allow-Origin", allowedOrigin)
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS, HEAD")
			ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, X-CSRF-Token, X-Requested-With, Mcp-Session-Id")
			ctx.Header("Access-Control-Max-Age", "86400") // 24 hours
			ctx.Header("Vary", "Origin")

			if ctx.Request.Method == http.MethodOptions {
				ctx.AbortWithStatus(http.StatusNoContent)
				return
			}
		} else if origin != "" && ctx.Request.Method == http.MethodOptions {
			// Deny preflight requests from origins outside the allow list.
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}

		ctx.Next()
	}
}
