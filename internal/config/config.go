package config

import "os"

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string

	// Persistence
	DatabaseURL string // postgres:// URL or a sqlite file path

	// LLM API Keys
	OpenAIAPIKey string // OpenAI API key for GPT models
	GeminiAPIKey string // Google Gemini API key
	DefaultModel string // model used when a request does not name one

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse

	// Auth mode
	// - "none": No auth (self-hosted, local dev)
	// - "gateway": Trust X-Auth-Request-* headers from an auth proxy
	// - "jwt": Validate HMAC bearer tokens locally
	AuthMode  string
	JWTSecret string
}

func Load() *Config {
	return &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", "etude.db"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		DefaultModel:      getEnv("DEFAULT_MODEL", "gpt-4o"),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		LangfusePublicKey: getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey: getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:      getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:   getEnv("LANGFUSE_ENABLED", "false") == "true",
		AuthMode:          getEnv("AUTH_MODE", "none"), // Default to no auth for self-hosted
		JWTSecret:         getEnv("JWT_SECRET", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

// Resolve looks up a configuration value by its environment key. Callers that
// only need key/value access take this instead of the full struct.
func (c *Config) Resolve(key string) string {
	switch key {
	case "ENVIRONMENT":
		return c.Environment
	case "PORT":
		return c.Port
	case "DATABASE_URL":
		return c.DatabaseURL
	case "OPENAI_API_KEY":
		return c.OpenAIAPIKey
	case "GEMINI_API_KEY":
		return c.GeminiAPIKey
	case "DEFAULT_MODEL":
		return c.DefaultModel
	case "SENTRY_DSN":
		return c.SentryDSN
	case "AUTH_MODE":
		return c.AuthMode
	case "JWT_SECRET":
		return c.JWTSecret
	case "LANGFUSE_HOST":
		return c.LangfuseHost
	default:
		return os.Getenv(key)
	}
}

// IsGatewayMode returns true if running behind an auth proxy
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == "gateway"
}

// IsJWTMode returns true if bearer tokens are validated locally
func (c *Config) IsJWTMode() bool {
	return c.AuthMode == "jwt"
}
