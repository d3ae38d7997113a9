package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port           string
	Environment    string
	AllowedOrigins string

	// Security
	JWTSecret     string
	ValidSiteKeys []string

	// Translation provider (LibreTranslate-compatible endpoint)
	TranslateURL     string
	TranslateAPIKey  string
	TranslateTimeout time.Duration
	TranslateRPS     int // requests per second allowed against the provider

	// Translation cache
	TranslationCacheSize int

	// Session lifecycle
	SessionMaxAge   time.Duration
	CleanupInterval time.Duration

	// Optional Redis snapshot store (empty disables snapshots)
	RedisURL string

	// Locale files
	LocalesDir string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	siteKeysEnv := getEnv("VALID_SITE_KEYS", "PUBLIC_SITE_KEY_123")
	siteKeys := strings.Split(siteKeysEnv, ",")
	for i := range siteKeys {
		siteKeys[i] = strings.TrimSpace(siteKeys[i])
	}

	return &Config{
		Port:           getEnv("PORT", "3001"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		ValidSiteKeys: siteKeys,

		TranslateURL:     getEnv("TRANSLATE_URL", "https://libretranslate.com/translate"),
		TranslateAPIKey:  getEnv("TRANSLATE_API_KEY", ""),
		TranslateTimeout: getDurationEnv("TRANSLATE_TIMEOUT", 10*time.Second),
		TranslateRPS:     getIntEnv("TRANSLATE_RPS", 5),

		TranslationCacheSize: getIntEnv("TRANSLATION_CACHE_SIZE", 2000),

		SessionMaxAge:   getDurationEnv("SESSION_MAX_AGE", 24*time.Hour),
		CleanupInterval: getDurationEnv("SESSION_CLEANUP_INTERVAL", time.Hour),

		RedisURL: getEnv("REDIS_URL", ""),

		LocalesDir: getEnv("LOCALES_DIR", "./locales"),
	}
}

// IsValidSiteKey reports whether the given site key is authorized.
func (c *Config) IsValidSiteKey(key string) bool {
	for _, k := range c.ValidSiteKeys {
		if k == key {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
