package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the network panel.
type Config struct {
	// CDP connection settings
	CDPAddress   string
	CDPPort      int
	TabURLFilter string

	// Control API
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Capture behavior
	RecordOnStart bool
	MaxBodyBytes  int
	BodyTimeoutMS int

	// Logging
	LogLevel string
	LogFile  string

	// Export journal and saved artifacts
	JournalDir        string
	JournalBufferSize int
	JournalMaxSizeMB  int

	// Optional managed browser
	LaunchBrowser     bool
	BrowserProfileDir string
	StartURL          string

	// Clipboard
	ClipboardFallback string
	ToastMS           int
	NotifyURL         string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:        getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:           getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		TabURLFilter:      getEnvOrDefault("NETPANEL_TAB_URL_FILTER", ""),
		BindAddr:          getEnvOrDefault("NETPANEL_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:    ParseCandidates(getEnvOrDefault("NETPANEL_PORT_CANDIDATES", "127.0.0.1:8191,127.0.0.1:8192,127.0.0.1:8193")),
		PortAutoFallback:  getEnvBoolOrDefault("NETPANEL_PORT_AUTO_FALLBACK", true),
		RecordOnStart:     getEnvBoolOrDefault("NETPANEL_RECORD_ON_START", true),
		MaxBodyBytes:      getEnvIntOrDefault("NETPANEL_MAX_BODY_BYTES", 5*1024*1024),
		BodyTimeoutMS:     getEnvIntOrDefault("NETPANEL_BODY_TIMEOUT_MS", 10000),
		LogLevel:          strings.ToLower(getEnvOrDefault("NETPANEL_LOG_LEVEL", "info")),
		LogFile:           getEnvOrDefault("NETPANEL_LOG_FILE", "logs/netpanel.log"),
		JournalDir:        getEnvOrDefault("NETPANEL_JOURNAL_DIR", "./netpanel_data"),
		JournalBufferSize: getEnvIntOrDefault("NETPANEL_JOURNAL_BUFFER_SIZE", 256),
		JournalMaxSizeMB:  getEnvIntOrDefault("NETPANEL_JOURNAL_MAX_SIZE_MB", 50),
		LaunchBrowser:     getEnvBoolOrDefault("NETPANEL_LAUNCH_BROWSER", false),
		BrowserProfileDir: getEnvOrDefault("NETPANEL_BROWSER_PROFILE_DIR", "./browser_profile"),
		StartURL:          getEnvOrDefault("NETPANEL_START_URL", "about:blank"),
		ClipboardFallback: strings.ToLower(getEnvOrDefault("NETPANEL_CLIPBOARD_FALLBACK", "osc52")),
		ToastMS:           getEnvIntOrDefault("NETPANEL_TOAST_MS", 2000),
		NotifyURL:         getEnvOrDefault("NETPANEL_NOTIFY_URL", ""),
	}
	if cfg.BodyTimeoutMS < 1000 {
		cfg.BodyTimeoutMS = 1000
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.CDPPort <= 0 || c.CDPPort > 65535 {
		return fmt.Errorf("CHROMIUM_CDP_PORT out of range: %d", c.CDPPort)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("NETPANEL_MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("NETPANEL_LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// CDPURL returns the full CDP HTTP endpoint used by chromedp remote allocator.
func (c *Config) CDPURL() string {
	return "http://" + c.CDPAddress + ":" + strconv.Itoa(c.CDPPort)
}

// BodyTimeout is the per-request budget for fetching a response body.
func (c *Config) BodyTimeout() time.Duration {
	return time.Duration(c.BodyTimeoutMS) * time.Millisecond
}

// ToastTTL is how long the export confirmation message stays visible.
func (c *Config) ToastTTL() time.Duration {
	return time.Duration(c.ToastMS) * time.Millisecond
}

// ParseCandidates splits a comma-separated address list, dropping blanks.
func ParseCandidates(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
		slog.Warn("ignoring non-integer environment value", "key", key, "value", val)
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
		slog.Warn("ignoring non-boolean environment value", "key", key, "value", val)
	}
	return defaultVal
}
