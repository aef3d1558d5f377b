package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	RateLimitMemory = "memory"
	RateLimitValkey = "valkey"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Summary    SummaryConfig    `yaml:"summary"`
	LLM        LLMConfig        `yaml:"llm"`
	Extract    ExtractConfig    `yaml:"extract"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Valkey     ValkeyConfig     `yaml:"valkey"`
	History    HistoryConfig    `yaml:"history"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	Debug          bool            `yaml:"debug"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Backend           string `yaml:"backend"`
	RequestsPerMinute int    `yaml:"requestsPerMinute"`
	Burst             int    `yaml:"burst"`
	MaxKeys           int    `yaml:"maxKeys"`
}

// SummaryConfig holds the pipeline limits and timings.
type SummaryConfig struct {
	Style            string        `yaml:"style"`
	StrictValidation bool          `yaml:"strictValidation"`
	MaxUploadChars   int           `yaml:"maxUploadChars"`
	MinUploadChars   int           `yaml:"minUploadChars"`
	MinContentChars  int           `yaml:"minContentChars"`
	MaxContentChars  int           `yaml:"maxContentChars"`
	MaxKeyPoints     int           `yaml:"maxKeyPoints"`
	FetchTimeout     time.Duration `yaml:"fetchTimeout"`
	GenerateTimeout  time.Duration `yaml:"generateTimeout"`
	StreamChunkDelay time.Duration `yaml:"streamChunkDelay"`
	DetectLanguage   bool          `yaml:"detectLanguage"`
}

// LLMConfig selects and tunes the text generation provider.
type LLMConfig struct {
	Provider            string        `yaml:"provider"`
	APIKey              string        `yaml:"apiKey"`
	BaseURL             string        `yaml:"baseUrl"`
	Model               string        `yaml:"model"`
	Temperature         float32       `yaml:"temperature"`
	TopK                int           `yaml:"topK"`
	TopP                float32       `yaml:"topP"`
	StructuredMaxTokens int           `yaml:"structuredMaxTokens"`
	ParagraphMaxTokens  int           `yaml:"paragraphMaxTokens"`
	RetryAttempts       int           `yaml:"retryAttempts"`
	RetryBaseDelay      time.Duration `yaml:"retryBaseDelay"`
	TokenEncoding       string        `yaml:"tokenEncoding"`
}

// ExtractConfig tunes the web page fetcher.
type ExtractConfig struct {
	UserAgent    string `yaml:"userAgent"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes"`
}

// TranscriptConfig points at an optional transcript API. Empty means the
// placeholder provider is used.
type TranscriptConfig struct {
	APIURL string `yaml:"apiUrl"`
	APIKey string `yaml:"apiKey"`
}

// ValkeyConfig contains connection information for the shared rate limiter.
type ValkeyConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

// HistoryConfig controls where finished summaries are recorded.
type HistoryConfig struct {
	Enabled        bool           `yaml:"enabled"`
	MemoryCapacity int            `yaml:"memoryCapacity"`
	Postgres       PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// SnapshotConfig configures the object store for normalized sources.
// Snapshots are off while Endpoint is empty.
type SnapshotConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// Load reads configuration from defaults, a YAML file, an optional .env file
// and environment variables, in that order.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// loadDotEnv populates unset variables from DOTENV_PATH or ./.env. A missing
// file is not an error; variables already in the environment win.
func loadDotEnv() error {
	path := os.Getenv("DOTENV_PATH")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	setDuration(&cfg.HTTP.ReadTimeout, "HTTP_READ_TIMEOUT")
	setDuration(&cfg.HTTP.WriteTimeout, "HTTP_WRITE_TIMEOUT")
	setBool(&cfg.HTTP.Debug, "HTTP_DEBUG")
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	setBool(&cfg.HTTP.RateLimit.Enabled, "HTTP_RATE_LIMIT_ENABLED")
	setString(&cfg.HTTP.RateLimit.Backend, "HTTP_RATE_LIMIT_BACKEND")
	setInt(&cfg.HTTP.RateLimit.RequestsPerMinute, "HTTP_RATE_LIMIT_RPM")
	setInt(&cfg.HTTP.RateLimit.Burst, "HTTP_RATE_LIMIT_BURST")
	setInt(&cfg.HTTP.RateLimit.MaxKeys, "HTTP_RATE_LIMIT_MAX_KEYS")

	setString(&cfg.Summary.Style, "SUMMARY_STYLE")
	setBool(&cfg.Summary.StrictValidation, "SUMMARY_STRICT_VALIDATION")
	setInt(&cfg.Summary.MaxUploadChars, "SUMMARY_MAX_UPLOAD_CHARS")
	setInt(&cfg.Summary.MaxContentChars, "SUMMARY_MAX_CONTENT_CHARS")
	setDuration(&cfg.Summary.FetchTimeout, "SUMMARY_FETCH_TIMEOUT")
	setDuration(&cfg.Summary.GenerateTimeout, "SUMMARY_GENERATE_TIMEOUT")
	setDuration(&cfg.Summary.StreamChunkDelay, "SUMMARY_STREAM_DELAY")
	setBool(&cfg.Summary.DetectLanguage, "SUMMARY_DETECT_LANGUAGE")

	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	// GEMINI_API_KEY only applies to the gemini provider; LLM_API_KEY wins for any provider.
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && strings.EqualFold(cfg.LLM.Provider, ProviderGemini) {
		cfg.LLM.APIKey = v
	}
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	setInt(&cfg.LLM.RetryAttempts, "LLM_RETRY_ATTEMPTS")
	setDuration(&cfg.LLM.RetryBaseDelay, "LLM_RETRY_BASE_DELAY")

	setString(&cfg.Extract.UserAgent, "EXTRACT_USER_AGENT")

	setString(&cfg.Transcript.APIURL, "YOUTUBE_TRANSCRIPT_API_URL")
	setString(&cfg.Transcript.APIKey, "YOUTUBE_TRANSCRIPT_API_KEY")

	setString(&cfg.Valkey.Addr, "VALKEY_ADDR")

	setBool(&cfg.History.Enabled, "HISTORY_ENABLED")
	setInt(&cfg.History.MemoryCapacity, "HISTORY_MEMORY_CAPACITY")
	setString(&cfg.History.Postgres.DSN, "HISTORY_POSTGRES_DSN")
	if v := os.Getenv("HISTORY_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.Postgres.MaxConns = int32(parsed)
		}
	}

	setString(&cfg.Snapshot.Endpoint, "SNAPSHOT_ENDPOINT")
	setString(&cfg.Snapshot.AccessKey, "SNAPSHOT_ACCESS_KEY")
	setString(&cfg.Snapshot.SecretKey, "SNAPSHOT_SECRET_KEY")
	setString(&cfg.Snapshot.Bucket, "SNAPSHOT_BUCKET")
	setString(&cfg.Snapshot.Region, "SNAPSHOT_REGION")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:        ":8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   90 * time.Second,
			AllowedOrigins: []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				Backend:           RateLimitMemory,
				RequestsPerMinute: 30,
				Burst:             10,
				MaxKeys:           10000,
			},
		},
		Summary: SummaryConfig{
			Style:            "structured",
			MaxUploadChars:   30000,
			MinUploadChars:   100,
			MinContentChars:  50,
			MaxContentChars:  50000,
			MaxKeyPoints:     5,
			FetchTimeout:     10 * time.Second,
			GenerateTimeout:  30 * time.Second,
			StreamChunkDelay: 50 * time.Millisecond,
			DetectLanguage:   true,
		},
		LLM: LLMConfig{
			Provider:            ProviderGemini,
			Model:               "gemini-1.5-flash",
			Temperature:         0.3,
			TopK:                40,
			TopP:                0.95,
			StructuredMaxTokens: 1024,
			ParagraphMaxTokens:  2048,
			RetryAttempts:       2,
			RetryBaseDelay:      250 * time.Millisecond,
			TokenEncoding:       "cl100k_base",
		},
		Extract: ExtractConfig{
			UserAgent:    "Mozilla/5.0 (compatible; ContentDigest/1.0)",
			MaxBodyBytes: 5 << 20,
		},
		Valkey: ValkeyConfig{
			Prefix: "digest:ratelimit",
		},
		History: HistoryConfig{
			Enabled:        true,
			MemoryCapacity: 500,
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Snapshot: SnapshotConfig{
			Bucket: "digest-sources",
		},
	}
}

// Validate ensures the configuration is safe to use. A missing API key is
// allowed; requests then fail with a not-configured error.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
		switch c.HTTP.RateLimit.Backend {
		case RateLimitMemory:
		case RateLimitValkey:
			if strings.TrimSpace(c.Valkey.Addr) == "" {
				return errors.New("valkey.addr cannot be empty when the valkey rate limit backend is selected")
			}
		default:
			return fmt.Errorf("http.rateLimit.backend %q is not supported", c.HTTP.RateLimit.Backend)
		}
	}
	switch c.Summary.Style {
	case "structured", "paragraph":
	default:
		return fmt.Errorf("summary.style %q is not supported", c.Summary.Style)
	}
	if c.Summary.MaxUploadChars <= 0 {
		return errors.New("summary.maxUploadChars must be positive")
	}
	if c.Summary.MinContentChars <= 0 {
		return errors.New("summary.minContentChars must be positive")
	}
	if c.Summary.MaxContentChars < c.Summary.MinContentChars {
		return errors.New("summary.maxContentChars must not be below summary.minContentChars")
	}
	if c.Summary.MaxKeyPoints <= 0 || c.Summary.MaxKeyPoints > 5 {
		return errors.New("summary.maxKeyPoints must be between 1 and 5")
	}
	if c.Summary.FetchTimeout <= 0 || c.Summary.GenerateTimeout <= 0 {
		return errors.New("summary timeouts must be positive")
	}
	if c.Summary.StreamChunkDelay < 0 {
		return errors.New("summary.streamChunkDelay cannot be negative")
	}
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if c.LLM.RetryAttempts < 0 {
		return errors.New("llm.retryAttempts cannot be negative")
	}
	if c.History.MemoryCapacity < 0 {
		return errors.New("history.memoryCapacity cannot be negative")
	}
	if c.Snapshot.Endpoint != "" && strings.TrimSpace(c.Snapshot.Bucket) == "" {
		return errors.New("snapshot.bucket cannot be empty when snapshots are enabled")
	}
	return nil
}
