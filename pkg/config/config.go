// Package config loads engine configuration from environment variables.
package config

import (
	"os"
	"strconv"
)

// Config holds call engine configuration.
type Config struct {
	DatabasePath   string // SQLite archive + credential store
	RuleSetPath    string // optional YAML DLP rule table; empty = built-in rules
	SiteSecret     string // master secret for verification keys
	RedisAddr      string // optional shared agent directory
	RedisPassword  string
	RedisDB        int
	OTLPEndpoint   string
	TelemetryOn    bool
	DialsPerMinute int // outbound dial limit per agent; 0 disables
	DialBurst      int
	LogLevel       string
}

// Load reads configuration from environment variables, applying local
// defaults where unset.
func Load() *Config {
	dbPath := os.Getenv("CALLCORE_DB_PATH")
	if dbPath == "" {
		dbPath = "callcore.db"
	}

	siteSecret := os.Getenv("CALLCORE_SITE_SECRET")
	if siteSecret == "" {
		// Local development only; deployments must set a real secret.
		siteSecret = "callcore-dev-secret"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	return &Config{
		DatabasePath:   dbPath,
		RuleSetPath:    os.Getenv("CALLCORE_RULESET_PATH"),
		SiteSecret:     siteSecret,
		RedisAddr:      os.Getenv("CALLCORE_REDIS_ADDR"),
		RedisPassword:  os.Getenv("CALLCORE_REDIS_PASSWORD"),
		RedisDB:        envInt("CALLCORE_REDIS_DB", 0),
		OTLPEndpoint:   envDefault("CALLCORE_OTLP_ENDPOINT", "localhost:4317"),
		TelemetryOn:    os.Getenv("CALLCORE_TELEMETRY") == "true",
		DialsPerMinute: envInt("CALLCORE_DIALS_PER_MINUTE", 0),
		DialBurst:      envInt("CALLCORE_DIAL_BURST", 1),
		LogLevel:       logLevel,
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
