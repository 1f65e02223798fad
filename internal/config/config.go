package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// OpenRouterBaseURL is used when requests are authenticated with an OpenRouter key
const OpenRouterBaseURL = "https://openrouter.ai/api"

type Config struct {
	Port        string
	Environment string
	CORSOrigins string

	// Graph store
	StoreDriver string
	SQLitePath  string
	DatabaseURL string
	TablePrefix string

	// Model configuration
	ModelAPIKey     string
	ModelBaseURL    string
	SlideModel      string
	ChatModel       string
	MaxTokens       int
	ChatMaxTokens   int
	MaxTurns        int
	PartialInterval time.Duration

	// Search
	BraveAPIKey   string
	TavilyAPIKey  string
	SearchTimeout time.Duration
	SearchRate    float64

	// Images
	OpenAIAPIKey      string
	UnsplashAccessKey string

	// Speculative pre-generation
	PregenEnabled       bool
	PregenMaxConcurrent int

	SSEKeepAlive time.Duration
	PromptFile   string

	LogDir      string
	LogMaxFiles int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	// An OpenRouter key routes Anthropic-format requests through OpenRouter;
	// a plain Anthropic key talks to the API directly.
	apiKey := getEnv("OPENROUTER_API_KEY", "")
	baseURL := ""
	if apiKey != "" {
		baseURL = OpenRouterBaseURL
	} else {
		apiKey = getEnv("ANTHROPIC_API_KEY", "")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreSQLite)),
		SQLitePath:  getEnv("SQLITE_PATH", "data/slidegraph.db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		TablePrefix: getTablePrefix(env),

		ModelAPIKey:     apiKey,
		ModelBaseURL:    getEnv("MODEL_BASE_URL", baseURL),
		SlideModel:      getEnv("SLIDE_MODEL", "anthropic/claude-opus-4-6"),
		ChatModel:       getEnv("CHAT_MODEL", "anthropic/claude-haiku-4-5"),
		MaxTokens:       getEnvInt("MAX_TOKENS", 16384),
		ChatMaxTokens:   getEnvInt("CHAT_MAX_TOKENS", 1024),
		MaxTurns:        getEnvInt("MAX_TURNS", 10),
		PartialInterval: getEnvDuration("PARTIAL_INTERVAL", 150*time.Millisecond),

		BraveAPIKey:   getEnv("BRAVE_SEARCH_API_KEY", ""),
		TavilyAPIKey:  getEnv("TAVILY_API_KEY", ""),
		SearchTimeout: getEnvDuration("SEARCH_TIMEOUT", 30*time.Second),
		SearchRate:    getEnvFloat("SEARCH_RATE", 5),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		UnsplashAccessKey: getEnv("UNSPLASH_ACCESS_KEY", ""),

		PregenEnabled:       getEnv("PREGEN_ENABLED", "true") == "true",
		PregenMaxConcurrent: getEnvInt("PREGEN_MAX_CONCURRENT", 4),

		SSEKeepAlive: getEnvDuration("SSE_KEEPALIVE", 10*time.Second),
		PromptFile:   getEnv("PROMPT_FILE", ""),

		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getEnvInt("LOG_MAX_FILES", 10),
	}
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f > 0 {
		return f
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
