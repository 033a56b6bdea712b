package cmd

import (
	"context"
	"path"
	"time"

	"github.com/Laisky/igloo-mcp/internal/igloo"
	"github.com/Laisky/igloo-mcp/internal/mcp"
	"github.com/Laisky/igloo-mcp/internal/mcp/calllog"
	"github.com/Laisky/igloo-mcp/internal/web"
	"github.com/Laisky/igloo-mcp/library/htmlmd"
	"github.com/Laisky/igloo-mcp/library/log"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gutils "github.com/Laisky/go-utils/v6"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `MCP API service bridging AI assistants to an Igloo community`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		webCfg, err := buildWebConfig()
		if err != nil {
			log.Logger.Panic("build web config", zap.Error(err))
		}

		web.RunServer(gconfig.Shared.GetString("listen"), webCfg)
	},
}

func init() {
	rootCMD.AddCommand(apiCMD)
}

// buildWebConfig assembles the Igloo client, Markdown converter, and MCP
// server from the loaded configuration and returns the web surface wiring.
func buildWebConfig() (web.Config, error) {
	client, err := buildIglooClient()
	if err != nil {
		return web.Config{}, errors.Wrap(err, "build igloo client")
	}

	serverSettings := mcp.LoadServerSettingsFromConfig()
	toolsSettings := mcp.LoadToolsSettingsFromConfig()

	converter := htmlmd.New(htmlmd.WithMaxChars(serverSettings.MaxFetchChars))
	callLog := calllog.NewService(log.Logger.Named("call_log"), nil)

	mcpServer, err := mcp.NewServer(client, converter, callLog,
		serverSettings, toolsSettings, log.Logger)
	if err != nil {
		return web.Config{}, errors.Wrap(err, "new mcp server")
	}

	urlPrefix := gconfig.Shared.GetString("settings.web.url_prefix")
	log.Logger.Info("mcp server ready",
		zap.Strings("tools", mcpServer.AvailableToolNames()),
		zap.String("url_prefix", urlPrefix))

	return web.Config{
		MCP:                   mcpServer.Handler(),
		CallLog:               calllog.NewHTTPHandler(callLog, log.Logger.Named("call_log_http")),
		Inspector:             mcp.NewInspectorHandler(path.Join("/", urlPrefix, "mcp"), log.Logger.Named("inspector")),
		PagePreview:           mcp.NewPagePreviewHandler(client, converter, log.Logger.Named("page_preview")),
		URLPrefix:             urlPrefix,
		AllowedOriginSuffixes: gconfig.Shared.GetStringSlice("settings.web.allowed_origin_suffixes"),
	}, nil
}

// buildIglooClient constructs the Igloo community client from loaded settings.
// Unset optional keys keep the client defaults.
func buildIglooClient() (*igloo.Client, error) {
	opts := []igloo.Option{
		igloo.WithLogger(log.Logger.Named("igloo")),
	}

	if pageSize := gconfig.Shared.GetInt("settings.igloo.page_size"); pageSize > 0 {
		opts = append(opts, igloo.WithPageSize(pageSize))
	}
	if raw := gconfig.S.Get("settings.igloo.max_retries"); raw != nil {
		opts = append(opts, igloo.WithMaxRetries(gconfig.Shared.GetInt("settings.igloo.max_retries")))
	}
	if backoffMs := gconfig.Shared.GetInt("settings.igloo.retry_backoff_ms"); backoffMs > 0 {
		opts = append(opts, igloo.WithRetryBackoff(time.Duration(backoffMs)*time.Millisecond))
	}
	if timeoutSecs := gconfig.Shared.GetInt("settings.igloo.timeout_secs"); timeoutSecs > 0 {
		httpcli, err := gutils.NewHTTPClient(
			gutils.WithHTTPClientTimeout(time.Duration(timeoutSecs) * time.Second),
		)
		if err != nil {
			return nil, errors.Wrap(err, "new http client")
		}
		opts = append(opts, igloo.WithHTTPClient(httpcli))
	}

	client, err := igloo.NewClient(
		gconfig.Shared.GetString("settings.igloo.api_base_url"),
		gconfig.Shared.GetString("settings.igloo.community_key"),
		gconfig.Shared.GetString("settings.igloo.session_key"),
		opts...,
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return client, nil
}
