// go_tutor — YouTube study-tutor MCP server.
//
// Turns YouTube videos into stored transcripts, generates Hindi study
// questions from them via an LLM, and tracks practice progress.
// Runs as HTTP MCP server or stdio transport.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_tutor/internal/engine"
	"github.com/anatolykoptev/go_tutor/internal/engine/sources"
	"github.com/anatolykoptev/go_tutor/internal/engine/study"
	"github.com/anatolykoptev/go_tutor/internal/tutorserver"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

func main() {
	initEngine()

	store, err := openStore(context.Background())
	if err != nil {
		slog.Error("store init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	yt := sources.NewYouTube(engine.Cfg.HTTPClient)
	svc := study.NewService(store, yt, yt)

	slog.Info("starting go_tutor",
		slog.String("port", mcpPort),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_tutor",
		Version: version,
	}, nil)

	tutorserver.RegisterTools(server, svc)
	slog.Info("tools registered", slog.Int("count", 10))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_tutor",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() {
	c := engine.Config{
		LLMAPIKey:            env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:   env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:           env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:             env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:       env.Float("LLM_TEMPERATURE", 0.3),
		LLMMaxTokens:         env.Int("LLM_MAX_TOKENS", 8192),
		LanguagePrefs:        env.List("CAPTION_LANGUAGES", "hi,en"),
		AcquireTimeout:       env.Duration("ACQUIRE_TIMEOUT", 60*time.Second),
		DefaultOwner:         env.Str("DEFAULT_OWNER", "local"),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	c.LLMClient = llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
		llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
		llm.WithMaxTokens(c.LLMMaxTokens),
		llm.WithTemperature(c.LLMTemperature),
		llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	)

	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 15*time.Minute)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
}

// openStore picks Postgres when DATABASE_URL is set, otherwise the local
// SQLite file under ~/.go_tutor.
func openStore(ctx context.Context) (study.Store, error) {
	if dbURL := env.Str("DATABASE_URL", ""); dbURL != "" {
		return study.ConnectPostgres(ctx, dbURL)
	}

	path, err := study.DefaultSQLitePath()
	if err != nil {
		return nil, err
	}
	slog.Info("using local sqlite store", slog.String("path", path))
	return study.OpenSQLite(path)
}
