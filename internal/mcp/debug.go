package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"

	"github.com/Laisky/igloo-mcp/internal/igloo"
	"github.com/Laisky/igloo-mcp/library/htmlmd"
	"github.com/Laisky/igloo-mcp/library/log"
)

// inspectorPageTemplate renders a minimal MCP Inspector frontend that targets the
// local MCP endpoint unless overridden via the `endpoint` query parameter.
const inspectorPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>Igloo MCP Inspector</title>
<style>
    :root { color-scheme: light dark; }
    body, html { margin: 0; padding: 0; height: 100%; font-family: system-ui, -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; background-color: #0b1120; color: #d9e3f0; }
    #app { height: 100%; }
    header { position: fixed; top: 12px; left: 12px; z-index: 20; padding: 10px 14px; border-radius: 10px; background: rgba(11, 17, 32, 0.88); box-shadow: 0 8px 24px rgba(0, 0, 0, 0.35); backdrop-filter: blur(6px); font-size: 14px; line-height: 1.4; }
    header strong { display: block; font-size: 15px; margin-bottom: 6px; color: #f8fafc; }
    header code { font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; color: #5cc9f5; }
    header a { color: #5cc9f5; text-decoration: none; }
    header a:hover { text-decoration: underline; }
</style>
</head>
<body>
<header>
  <strong>Igloo MCP Inspector</strong>
  <div>Endpoint: <code id="endpoint-display"></code></div>
  <div>Override via <code>?endpoint=https://remote.example/mcp</code></div>
</header>
<div id="app"></div>
<script type="module">
const DEFAULT_ENDPOINT_PATH = __DEFAULT_ENDPOINT_PATH__;
const params = new URLSearchParams(window.location.search);
const endpointParam = params.get("endpoint");
const endpointUrl = endpointParam ? endpointParam : new URL(DEFAULT_ENDPOINT_PATH, window.location.origin).toString();
const endpointDisplay = document.getElementById("endpoint-display");
if (endpointDisplay) {
  endpointDisplay.textContent = endpointUrl;
}
const authorization = params.get("token") || params.get("authorization") || "";
(async () => {
  try {
    const module = await import("https://unpkg.com/@modelcontextprotocol/inspector-web@latest/dist/index.js");
    const createInspector = module.createInspector || module.default;
    if (typeof createInspector !== "function") {
      throw new Error("createInspector export not found");
    }
    const inspector = await createInspector({
      target: document.getElementById("app"),
      endpointUrl,
    });
    if (authorization && inspector && typeof inspector.setAuthorizationToken === "function") {
      inspector.setAuthorizationToken(authorization);
    }
    if (inspector && typeof inspector.setEndpointUrl === "function") {
      inspector.setEndpointUrl(endpointUrl);
    }
  } catch (err) {
    console.error("Failed to bootstrap MCP Inspector:", err);
    const app = document.getElementById("app");
    if (app) {
      app.innerHTML = '<main style="display:flex;align-items:center;justify-content:center;height:100%;text-align:center;padding:24px;"><div><h1 style="margin-bottom:16px;">MCP Inspector failed to load</h1><p style="margin-bottom:8px;">Check the browser console for details.</p><p style="font-size:14px;">You can also open <a href="https://inspector.modelcontextprotocol.io" target="_blank" rel="noreferrer" style="color:#5cc9f5;">inspector.modelcontextprotocol.io</a> and point it to this endpoint manually.</p></div></main>';
    }
  }
})();
</script>
</body>
</html>`

// NewInspectorHandler returns a HTTP handler that serves the MCP Inspector page.
// The handler renders a lightweight frontend that connects to the provided MCP
// endpoint path by default, while allowing callers to override it via query
// parameters.
func NewInspectorHandler(defaultEndpointPath string, logger logSDK.Logger) http.Handler {
	if defaultEndpointPath == "" {
		defaultEndpointPath = "/mcp"
	}
	if logger == nil {
		logger = log.Logger
	}

	defaultPathJSON, err := json.Marshal(defaultEndpointPath)
	if err != nil {
		logger.Warn("marshal inspector default path", zap.Error(err))
		defaultPathJSON = []byte("\"/mcp\"")
	}

	page := []byte(strings.ReplaceAll(inspectorPageTemplate, "__DEFAULT_ENDPOINT_PATH__", string(defaultPathJSON)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if _, err := w.Write(page); err != nil {
			logger.Warn("write inspector page", zap.Error(err))
		}
	})
}

// pagePreviewShell wraps the rendered page body. The markdown fragment is
// produced server-side by gomarkdown, so it is injected unescaped.
const pagePreviewShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>%s</title>
<style>
    body { max-width: 52rem; margin: 2rem auto; padding: 0 1rem; font-family: system-ui, -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; line-height: 1.6; }
    header { border-bottom: 1px solid #ccc; margin-bottom: 1.5rem; padding-bottom: 0.5rem; font-size: 14px; color: #555; }
    header h1 { font-size: 1.4rem; color: #111; margin: 0 0 0.3rem; }
    pre { background: #f4f4f4; padding: 0.8rem; overflow-x: auto; }
    code { font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, monospace; }
</style>
</head>
<body>
<header>
<h1>%s</h1>
<div>Source: <a href="%s">%s</a></div>
<div>Modified: %s</div>
</header>
%s
</body>
</html>`

// pageSource is the slice of the Igloo client the preview handler needs.
type pageSource interface {
	FetchPage(ctx context.Context, req igloo.FetchRequest) (*igloo.PagePayload, error)
}

// NewPagePreviewHandler returns a debug handler that fetches an Igloo page,
// converts it to markdown, and renders the markdown back to HTML. It exists to
// eyeball the conversion output in a browser: the page a tool caller receives
// is exactly the markdown rendered here. Target pages via `?url=` or `?id=`.
func NewPagePreviewHandler(source pageSource, converter *htmlmd.Converter, logger logSDK.Logger) http.Handler {
	if logger == nil {
		logger = log.Logger
	}
	if converter == nil {
		converter = htmlmd.New()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if source == nil {
			http.Error(w, "page preview is not configured", http.StatusServiceUnavailable)
			return
		}

		req := igloo.FetchRequest{
			URL: strings.TrimSpace(r.URL.Query().Get("url")),
			ID:  strings.TrimSpace(r.URL.Query().Get("id")),
		}
		if req.URL == "" && req.ID == "" {
			http.Error(w, "provide a url or id query parameter", http.StatusBadRequest)
			return
		}

		start := time.Now()
		payload, err := source.FetchPage(r.Context(), req)
		if err != nil {
			logger.Warn("preview fetch failed", zap.Error(err), zap.String("url", req.URL), zap.String("id", req.ID))
			http.Error(w, err.Error(), previewStatusFromErr(err))
			return
		}

		converted, err := converter.ConvertFrom(payload.HTML, payload.URL, 0)
		if err != nil {
			logger.Warn("preview convert failed", zap.Error(err), zap.String("url", payload.URL))
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		htmlFlags := html.CommonFlags | html.HrefTargetBlank
		renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
		body := markdown.ToHTML([]byte(converted.Markdown), nil, renderer)

		title := payload.Title
		if title == "" {
			title = payload.URL
		}
		escapedTitle := htmlEscape(title)
		escapedURL := htmlEscape(payload.URL)
		page := fmt.Sprintf(pagePreviewShell,
			escapedTitle, escapedTitle,
			escapedURL, escapedURL,
			htmlEscape(payload.Modified),
			body)

		logger.Debug("preview rendered",
			zap.String("url", payload.URL),
			zap.Int("markdown_chars", converted.TotalChars),
			zap.Duration("cost", time.Since(start)))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if _, err := w.Write([]byte(page)); err != nil {
			logger.Warn("write preview page", zap.Error(err))
		}
	})
}

func previewStatusFromErr(err error) int {
	switch igloo.KindOf(err) {
	case igloo.KindValidation:
		return http.StatusBadRequest
	case igloo.KindNotFound:
		return http.StatusNotFound
	case igloo.KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

func htmlEscape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return replacer.Replace(s)
}
