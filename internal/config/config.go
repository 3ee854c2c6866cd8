// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AI provider names accepted in AI_PROVIDER.
const (
	ProviderHub    = "hub"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

type Config struct {
	Server  ServerConfig
	Log     LogConfig
	AI      AIConfig
	Storage StorageConfig
	Notion  NotionConfig
	Rules   RulesConfig
}

type ServerConfig struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxUploadBytes int64
	AllowedOrigins []string
	SessionTTL     time.Duration
}

type LogConfig struct {
	Level string
	JSON  bool
}

type AIConfig struct {
	Provider           string
	HubBaseURL         string
	HubAPIKey          string
	GeminiAPIKey       string
	Model              string
	Temperature        float64
	Timeout            time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
	MaxTransactions    int
	BreakerMaxFailures int
	BreakerReset       time.Duration
}

type StorageConfig struct {
	ProjectID string
	Dataset   string
	Bucket    string
}

type NotionConfig struct {
	Token             string
	SummaryDatabaseID string
}

type RulesConfig struct {
	File string
}

// Load reads the configuration. ENV_FILE, when set, names the env file to
// load; otherwise a .env in the working directory is used if present.
func Load() (Config, error) {
	cfg := Config{}

	if err := loadEnv(); err != nil {
		return cfg, err
	}

	serverPort, err := parseIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return cfg, err
	}

	readTimeout, err := parseDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second)
	if err != nil {
		return cfg, err
	}

	writeTimeout, err := parseDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second)
	if err != nil {
		return cfg, err
	}

	idleTimeout, err := parseDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return cfg, err
	}

	maxUpload, err := parseIntEnv("MAX_UPLOAD_BYTES", 20<<20)
	if err != nil {
		return cfg, err
	}

	sessionTTL, err := parseDurationEnv("SESSION_TTL", 2*time.Hour)
	if err != nil {
		return cfg, err
	}

	origins := parseCSVEnv("CORS_ALLOWED_ORIGINS")
	if origins == nil {
		origins = []string{"*"}
	}

	cfg.Server = ServerConfig{
		Port:           serverPort,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MaxUploadBytes: int64(maxUpload),
		AllowedOrigins: origins,
		SessionTTL:     sessionTTL,
	}

	cfg.Log = LogConfig{
		Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		JSON:  strings.EqualFold(getEnv("LOG_FORMAT", "console"), "json"),
	}

	aiTimeout, err := parseDurationEnv("AI_TIMEOUT", 15*time.Second)
	if err != nil {
		return cfg, err
	}

	aiRateLimitPerMinute, err := parseIntEnv("AI_RATE_LIMIT_PER_MINUTE", 30)
	if err != nil {
		return cfg, err
	}

	aiRateLimitBurst, err := parseIntEnv("AI_RATE_LIMIT_BURST", 5)
	if err != nil {
		return cfg, err
	}

	aiMaxTransactions, err := parseIntEnv("AI_MAX_TRANSACTIONS", 200)
	if err != nil {
		return cfg, err
	}

	breakerMaxFailures, err := parseIntEnv("AI_BREAKER_MAX_FAILURES", 5)
	if err != nil {
		return cfg, err
	}

	breakerReset, err := parseDurationEnv("AI_BREAKER_RESET", 30*time.Second)
	if err != nil {
		return cfg, err
	}

	temperature, err := parseFloatEnv("AI_TEMPERATURE", 0.3)
	if err != nil {
		return cfg, err
	}

	aiProvider := strings.ToLower(getEnv("AI_PROVIDER", ProviderHub))
	defaultModel := "gpt-4o-mini"
	if aiProvider == ProviderGemini {
		defaultModel = "gemini-2.5-flash"
	}

	cfg.AI = AIConfig{
		Provider:           aiProvider,
		HubBaseURL:         getEnv("HUB_BASE_URL", ""),
		HubAPIKey:          getEnv("HUB_API_KEY", ""),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		Model:              getEnv("AI_MODEL", defaultModel),
		Temperature:        temperature,
		Timeout:            aiTimeout,
		RateLimitPerMinute: aiRateLimitPerMinute,
		RateLimitBurst:     aiRateLimitBurst,
		MaxTransactions:    aiMaxTransactions,
		BreakerMaxFailures: breakerMaxFailures,
		BreakerReset:       breakerReset,
	}

	cfg.Storage = StorageConfig{
		ProjectID: getEnv("GCP_PROJECT", ""),
		Dataset:   getEnv("BQ_DATASET", "spend"),
		Bucket:    getEnv("GCS_BUCKET", ""),
	}

	cfg.Notion = NotionConfig{
		Token:             getEnv("NOTION_TOKEN", ""),
		SummaryDatabaseID: getEnv("NOTION_SUMMARY_DATABASE_ID", ""),
	}

	cfg.Rules = RulesConfig{File: getEnv("CATEGORY_RULES_FILE", "")}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// HubConfigured reports whether both hub settings are present.
func (c AIConfig) HubConfigured() bool {
	return c.HubBaseURL != "" && strings.TrimSpace(c.HubAPIKey) != ""
}

// StorageConfigured reports whether BigQuery and GCS can be used.
func (c StorageConfig) StorageConfigured() bool {
	return c.ProjectID != "" && c.Bucket != ""
}

func (c Config) validate() error {
	switch c.AI.Provider {
	case ProviderHub, ProviderGemini, ProviderNone:
	default:
		return fmt.Errorf("AI_PROVIDER must be one of hub, gemini, none")
	}

	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("AI_TEMPERATURE must be between 0 and 2")
	}

	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error")
	}

	if c.Storage.Dataset == "" {
		return fmt.Errorf("BQ_DATASET is required")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseFloatEnv(key string, fallback float64) (float64, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}

	return parsed, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseCSVEnv(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
