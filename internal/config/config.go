// Package config provides configuration loading from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the push cache server.
type Config struct {
	// AssociateDelay is the causality window: the maximum elapsed time
	// between a request for a parent resource and a referred request for a
	// child resource for the relationship to be trusted.
	AssociateDelay time.Duration // ASSOCIATE_DELAY_MS, default 5000ms

	// SessionCacheMaxItems bounds how many sessions keep causality records.
	SessionCacheMaxItems int // SESSION_CACHE_MAX_ITEMS, default 4096

	// Demo server settings.
	ListenAddr  string // LISTEN_ADDR, default ":8443"
	TLSCertFile string // TLS_CERT_FILE, default "" (serve h2c when unset)
	TLSKeyFile  string // TLS_KEY_FILE, default ""
	StaticDir   string // STATIC_DIR, default "."

	// Logging configuration.
	LogLevel      string // LOG_LEVEL, default "info"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// Load reads configuration from environment variables with sensible
// defaults.
func Load() *Config {
	return &Config{
		AssociateDelay:       getEnvDurationMs("ASSOCIATE_DELAY_MS", 5000),
		SessionCacheMaxItems: getEnvInt("SESSION_CACHE_MAX_ITEMS", 4096),

		ListenAddr:  getEnvString("LISTEN_ADDR", ":8443"),
		TLSCertFile: getEnvString("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnvString("TLS_KEY_FILE", ""),
		StaticDir:   getEnvString("STATIC_DIR", "."),

		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}
