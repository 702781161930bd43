package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr           string
	DatabaseURL        string
	CORSAllowedOrigins []string

	BotToken string

	GeminiAPIKey     string
	GeminiModel      string
	NanoBananaAPIKey string
	NanoBananaURL    string
	ProxyURL         string

	// Admin surface is disabled unless both are set.
	AdminPasswordHash string
	JWTSecret         string

	DailyLimit         int
	GenerationDeadline time.Duration
	ProgressInterval   time.Duration
	PollInterval       time.Duration
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: mustGetenv("DATABASE_URL"),
		BotToken:    mustGetenv("TELEGRAM_BOT_TOKEN"),

		GeminiAPIKey:     getenv("GEMINI_API_KEY", ""),
		GeminiModel:      getenv("GEMINI_MODEL", "gemini-2.0-flash-exp"),
		NanoBananaAPIKey: getenv("NANOBANANA_API_KEY", ""),
		NanoBananaURL:    getenv("NANOBANANA_URL", "https://api.nanobananaapi.ai"),
		ProxyURL:         getenv("HTTP_PROXY_URL", ""),

		AdminPasswordHash: getenv("ADMIN_PASSWORD_HASH", ""),
		JWTSecret:         getenv("JWT_SECRET", ""),

		DailyLimit:         getenvInt("DAILY_LIMIT", 3),
		GenerationDeadline: getenvDuration("GENERATION_DEADLINE", 60*time.Second),
		ProgressInterval:   getenvDuration("PROGRESS_INTERVAL", 3*time.Second),
		PollInterval:       getenvDuration("POLL_INTERVAL", 2*time.Second),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", "*"), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	return cfg, nil
}

// AdminEnabled reports whether the admin endpoints can be served.
func (c Config) AdminEnabled() bool {
	return c.AdminPasswordHash != "" && c.JWTSecret != ""
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
