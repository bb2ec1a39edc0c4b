package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	ShopName      string
	// Database
	DatabaseURL   string
	MigrationsDir string
	// Intent inference (optional; heuristics only when unset)
	OpenAIAPIKey   string
	Model          string
	IntentSpecPath string
	// Session
	SessionCookie string
	SessionTTL    time.Duration
	// Rollout flags are plain config, never process-wide mutable state.
	AuroraTheme bool
}

func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:           getEnvDefault("PORT", "8080"),
		AllowedOrigin:  getEnvDefault("ALLOWED_ORIGIN", "*"),
		ShopName:       getEnvDefault("SHOP_NAME", "Seraphine"),
		DatabaseURL:    os.Getenv("DB_URL"),
		MigrationsDir:  getEnvDefault("MIGRATIONS_DIR", "./migrations"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		Model:          getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		IntentSpecPath: getEnvDefault("INTENT_SPEC_PATH", "./prompts/intent.yaml"),
		SessionCookie:  getEnvDefault("SESSION_COOKIE", "seraphine_concierge"),
		SessionTTL:     getEnvDurationDefault("SESSION_TTL", 30*time.Minute),
		AuroraTheme:    getEnvBoolDefault("AURORA_THEME", false),
	}
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
