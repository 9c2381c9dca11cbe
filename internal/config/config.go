// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App        AppConfig        `koanf:"app"`
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	Session    SessionConfig    `koanf:"session"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	CORS       CORSConfig       `koanf:"cors"`
	Log        LogConfig        `koanf:"log"`
	Otel       OtelConfig       `koanf:"otel"`
	LLM        LLMConfig        `koanf:"llm"`
	OpenAI     OpenAIConfig     `koanf:"openai"`
	Gemini     GeminiConfig     `koanf:"gemini"`
	ElevenLabs ElevenLabsConfig `koanf:"elevenlabs"`
	Razorpay   RazorpayConfig   `koanf:"razorpay"`
	Payment    PaymentConfig    `koanf:"payment"`
	Admin      AdminConfig      `koanf:"admin"`
	Voice      VoiceConfig      `koanf:"voice"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type SessionConfig struct {
	Secret     string        `koanf:"secret"`
	CookieName string        `koanf:"cookie_name"`
	TTL        time.Duration `koanf:"ttl"`
	Domain     string        `koanf:"domain"`
	Secure     bool          `koanf:"secure"`
}

type RateLimitConfig struct {
	Requests       int           `koanf:"requests"`
	Window         time.Duration `koanf:"window"`
	Burst          int           `koanf:"burst"`
	MessagesPerMin int           `koanf:"messages_per_minute"`
	MessagesBurst  int           `koanf:"messages_burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	ExposedHeaders   []string `koanf:"exposed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// LLMConfig selects the completion backend and its sampling parameters.
type LLMConfig struct {
	Provider         string  `koanf:"provider"`
	MaxTokens        int     `koanf:"max_tokens"`
	Temperature      float64 `koanf:"temperature"`
	PresencePenalty  float64 `koanf:"presence_penalty"`
	FrequencyPenalty float64 `koanf:"frequency_penalty"`
	HistoryWindow    int     `koanf:"history_window"`
}

type OpenAIConfig struct {
	APIKey             string        `koanf:"api_key"`
	BaseURL            string        `koanf:"base_url"`
	ChatModel          string        `koanf:"chat_model"`
	TranscriptionModel string        `koanf:"transcription_model"`
	Timeout            time.Duration `koanf:"timeout"`
}

type GeminiConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

type ElevenLabsConfig struct {
	APIKey          string            `koanf:"api_key"`
	BaseURL         string            `koanf:"base_url"`
	ModelID         string            `koanf:"model_id"`
	Timeout         time.Duration     `koanf:"timeout"`
	Voices          map[string]string `koanf:"voices"`
	Stability       float64           `koanf:"stability"`
	SimilarityBoost float64           `koanf:"similarity_boost"`
}

type RazorpayConfig struct {
	KeyID     string        `koanf:"key_id"`
	KeySecret string        `koanf:"key_secret"`
	BaseURL   string        `koanf:"base_url"`
	Currency  string        `koanf:"currency"`
	Timeout   time.Duration `koanf:"timeout"`
}

type PaymentConfig struct {
	AllowLinkCompletion bool `koanf:"allow_link_completion"`
	LinkCompletionCoins int  `koanf:"link_completion_coins"`
}

type AdminConfig struct {
	Username     string   `koanf:"username"`
	Password     string   `koanf:"password"`
	AllowedHosts []string `koanf:"allowed_hosts"`
}

type VoiceConfig struct {
	MinAudioBytes int `koanf:"min_audio_bytes"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			loadErr = fmt.Errorf("load .env: %w", err)
			return
		}

		c, err := Parse(configPath)
		if err != nil {
			loadErr = err
			return
		}
		cfg = c
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

// Parse builds a Config from defaults, an optional YAML file and the
// environment, without touching the process-wide singleton.
func Parse(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Companion API",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             5000,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "90s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",
		"server.max_body_bytes":   10 << 20,

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       true,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"session.cookie_name": "sid",
		"session.ttl":         "168h",

		"rate_limit.requests":            100,
		"rate_limit.window":              "1m",
		"rate_limit.burst":               20,
		"rate_limit.messages_per_minute": 20,
		"rate_limit.messages_burst":      5,

		"cors.allowed_origins": []string{"http://localhost:5173"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Auth-Token",
			"X-Request-ID",
		},
		"cors.exposed_headers":   []string{"X-Auth-Token", "X-Request-ID"},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "companion-api",

		"llm.provider":          "openai",
		"llm.max_tokens":        150,
		"llm.temperature":       0.8,
		"llm.presence_penalty":  0.6,
		"llm.frequency_penalty": 0.5,
		"llm.history_window":    15,

		"openai.base_url":            "https://api.openai.com/v1",
		"openai.chat_model":          "gpt-4o",
		"openai.transcription_model": "whisper-1",
		"openai.timeout":             "60s",

		"gemini.model": "gemini-1.5-flash",

		"elevenlabs.base_url":         "https://api.elevenlabs.io/v1",
		"elevenlabs.model_id":         "eleven_multilingual_v2",
		"elevenlabs.timeout":          "60s",
		"elevenlabs.stability":        0.5,
		"elevenlabs.similarity_boost": 0.75,
		"elevenlabs.voices": map[string]any{
			"default": "oHNJagRZ2LQEfZb2CEkb",
		},

		"razorpay.base_url": "https://api.razorpay.com/v1",
		"razorpay.currency": "INR",
		"razorpay.timeout":  "30s",

		"payment.allow_link_completion": false,
		"payment.link_completion_coins": 10,

		"admin.allowed_hosts": []string{"localhost"},

		"voice.min_audio_bytes": 1024,
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"DATABASE_AUTO_MIGRATE":       "database.auto_migrate",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"NODE_ENV":                    "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"SESSION_SECRET":              "session.secret",
	"SESSION_COOKIE_DOMAIN":       "session.domain",
	"SESSION_COOKIE_SECURE":       "session.secure",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"LLM_PROVIDER":                "llm.provider",
	"OPENAI_API_KEY":              "openai.api_key",
	"OPENAI_BASE_URL":             "openai.base_url",
	"GEMINI_API_KEY":              "gemini.api_key",
	"GEMINI_MODEL":                "gemini.model",
	"ELEVENLABS_API_KEY":          "elevenlabs.api_key",
	"RAZORPAY_KEY_ID":             "razorpay.key_id",
	"RAZORPAY_KEY_SECRET":         "razorpay.key_secret",
	"PAYMENT_ALLOW_LINK_COMPLETE": "payment.allow_link_completion",
	"ADMIN_USERNAME":              "admin.username",
	"ADMIN_PASSWORD":              "admin.password",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}

	switch c.LLM.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unsupported llm.provider %q", c.LLM.Provider)
	}

	if c.LLM.HistoryWindow < 0 {
		return fmt.Errorf("llm.history_window must not be negative")
	}

	if c.Razorpay.KeyID == "" || c.Razorpay.KeySecret == "" {
		return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required")
	}

	if _, ok := c.ElevenLabs.Voices["default"]; !ok {
		return fmt.Errorf("elevenlabs.voices must define a default voice")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
		if !c.Session.Secure {
			return fmt.Errorf("SESSION_COOKIE_SECURE must be true in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// HostAllowed reports whether host (optionally with a port) ends with one
// of the configured admin hosts.
func (a *AdminConfig) HostAllowed(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)

	for _, allowed := range a.AllowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if host == allowed || strings.HasSuffix(host, "."+strings.TrimPrefix(allowed, ".")) {
			return true
		}
	}
	return false
}
