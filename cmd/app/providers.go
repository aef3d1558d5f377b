package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/content-digest/internal/domain/digest"
	"github.com/yanqian/content-digest/internal/infra/config"
	"github.com/yanqian/content-digest/internal/infra/extract"
	"github.com/yanqian/content-digest/internal/infra/history"
	"github.com/yanqian/content-digest/internal/infra/langdetect"
	"github.com/yanqian/content-digest/internal/infra/llm"
	"github.com/yanqian/content-digest/internal/infra/llm/chatgpt"
	"github.com/yanqian/content-digest/internal/infra/llm/gemini"
	"github.com/yanqian/content-digest/internal/infra/ratelimit"
	"github.com/yanqian/content-digest/internal/infra/snapshot"
	"github.com/yanqian/content-digest/internal/infra/tokenizer"
	"github.com/yanqian/content-digest/internal/infra/transcript"
	httpiface "github.com/yanqian/content-digest/internal/interface/http"
)

func provideDigestConfig(cfg *config.Config) digest.Config {
	return digest.Config{
		Style:               digest.OutputStyle(cfg.Summary.Style),
		StrictValidation:    cfg.Summary.StrictValidation,
		MaxUploadChars:      cfg.Summary.MaxUploadChars,
		MinUploadChars:      cfg.Summary.MinUploadChars,
		MinContentChars:     cfg.Summary.MinContentChars,
		MaxContentChars:     cfg.Summary.MaxContentChars,
		MaxKeyPoints:        cfg.Summary.MaxKeyPoints,
		FetchTimeout:        cfg.Summary.FetchTimeout,
		GenerateTimeout:     cfg.Summary.GenerateTimeout,
		StreamChunkDelay:    cfg.Summary.StreamChunkDelay,
		Model:               cfg.LLM.Model,
		Temperature:         cfg.LLM.Temperature,
		TopK:                cfg.LLM.TopK,
		TopP:                cfg.LLM.TopP,
		StructuredMaxTokens: cfg.LLM.StructuredMaxTokens,
		ParagraphMaxTokens:  cfg.LLM.ParagraphMaxTokens,
	}
}

func provideFetcher(cfg *config.Config, logger *slog.Logger) digest.ContentFetcher {
	return extract.NewFetcher(extract.Options{
		UserAgent:    cfg.Extract.UserAgent,
		MaxBodyBytes: cfg.Extract.MaxBodyBytes,
	}, logger)
}

func provideTranscripts(cfg *config.Config, logger *slog.Logger) digest.TranscriptProvider {
	endpoint := strings.TrimSpace(cfg.Transcript.APIURL)
	if endpoint == "" {
		logger.Info("transcript api not configured, using placeholder transcripts")
		return transcript.Placeholder{}
	}
	return transcript.NewAPIProvider(endpoint, cfg.Transcript.APIKey, &http.Client{}, logger)
}

func provideLanguageDetector(cfg *config.Config) digest.LanguageDetector {
	if !cfg.Summary.DetectLanguage {
		return nil
	}
	return langdetect.NewDetector()
}

func provideRetryPolicy(cfg *config.Config) llm.RetryPolicy {
	return llm.RetryPolicy{
		Attempts:  cfg.LLM.RetryAttempts,
		BaseDelay: cfg.LLM.RetryBaseDelay,
	}
}

func provideGenerator(cfg *config.Config, retry llm.RetryPolicy, logger *slog.Logger) digest.TextGenerator {
	keySet := strings.TrimSpace(cfg.LLM.APIKey) != ""
	logger.Info("llm provider selected", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model, "api_key_set", keySet)

	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		client, err := chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, retry, logger)
		if err != nil {
			logger.Warn("openai client unavailable, summaries will fail until a key is set", "error", err)
			return llm.Unconfigured{}
		}
		return client
	default:
		return gemini.NewClient(gemini.Options{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Retry:   retry,
		}, logger)
	}
}

func provideTokenCounter(cfg *config.Config, logger *slog.Logger) digest.TokenCounter {
	return tokenizer.NewCounter(cfg.LLM.TokenEncoding, logger)
}

func provideHistory(cfg *config.Config, logger *slog.Logger) (digest.HistoryRepository, func(), error) {
	noop := func() {}
	if !cfg.History.Enabled {
		logger.Info("summary history disabled")
		return nil, noop, nil
	}
	fallback := history.NewMemoryRepository(cfg.History.MemoryCapacity)
	dsn := strings.TrimSpace(cfg.History.Postgres.DSN)
	if dsn == "" {
		logger.Info("history postgres dsn not set, using memory repository")
		return fallback, noop, nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback, noop, nil
	}
	if cfg.History.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.History.Postgres.MaxConns
	}
	if cfg.History.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.History.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback, noop, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback, noop, nil
	}
	repo := history.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("history schema setup failed, using memory repository", "error", err)
		pool.Close()
		return fallback, noop, nil
	}
	logger.Info("history postgres repository enabled")
	return repo, pool.Close, nil
}

func provideSnapshots(cfg *config.Config, logger *slog.Logger) digest.SnapshotStore {
	if strings.TrimSpace(cfg.Snapshot.Endpoint) == "" {
		return nil
	}
	store, err := snapshot.NewObjectStore(snapshot.Options{
		Endpoint:  cfg.Snapshot.Endpoint,
		AccessKey: cfg.Snapshot.AccessKey,
		SecretKey: cfg.Snapshot.SecretKey,
		Bucket:    cfg.Snapshot.Bucket,
		Region:    cfg.Snapshot.Region,
	}, logger)
	if err != nil {
		logger.Error("snapshot store unavailable, source snapshots disabled", "error", err)
		return nil
	}
	logger.Info("source snapshots enabled", "bucket", cfg.Snapshot.Bucket)
	return store
}

func provideRateLimiter(cfg *config.Config, logger *slog.Logger) (httpiface.RateLimiter, func(), error) {
	noop := func() {}
	rl := cfg.HTTP.RateLimit
	if !rl.Enabled {
		return nil, noop, nil
	}
	memory := ratelimit.NewMemoryLimiter(rl.RequestsPerMinute, rl.Burst, rl.MaxKeys)
	if rl.Backend != config.RateLimitValkey {
		return memory, noop, nil
	}

	opt, err := buildValkeyOptions(cfg.Valkey.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory rate limiter", "error", err)
		return memory, noop, nil
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory rate limiter", "error", err)
		return memory, noop, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory rate limiter", "error", err)
		client.Close()
		return memory, noop, nil
	}
	logger.Info("valkey rate limiter enabled", "addr", cfg.Valkey.Addr)
	return ratelimit.NewValkeyLimiter(client, cfg.Valkey.Prefix, rl.RequestsPerMinute), client.Close, nil
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
