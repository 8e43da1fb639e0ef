package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// System-notice phrases that are notified but never auto-replied. These are
// the messenger-API subscription notices sent by the platform itself.
var defaultSystemPhrases = []string{
	"перейдите на подписку с api мессенджера",
	"подписка с api мессенджера",
	"чтобы получить доступ к чатам",
	"api мессенджера",
	"подписка api мессенджера",
}

const defaultAutoReplyMessage = "Напишите мне в Telegram для быстрого ответа: @mr0js"

// Config represents application configuration
type Config struct {
	// Avito API configuration
	Avito AvitoConfig

	// Monitor loop configuration
	Monitor MonitorConfig

	// Auto-reply configuration
	AutoReply AutoReplyConfig

	// File storage configuration
	Storage StorageConfig

	// Web API configuration
	Web WebConfig

	// Debug mode
	Debug bool
}

// AvitoConfig contains remote API configuration
type AvitoConfig struct {
	BaseURL     string
	ServiceName string // keyring service name
}

// MonitorConfig contains monitoring loop configuration
type MonitorConfig struct {
	CheckInterval time.Duration
	MaxChats      int
	BatchSize     int
	AutoStart     bool
	SystemPhrases []string
}

// AutoReplyConfig contains auto-reply configuration
type AutoReplyConfig struct {
	Enabled bool
	Message string
	Delay   time.Duration
}

// StorageConfig contains file storage configuration
type StorageConfig struct {
	StateFile    string
	SnapshotFile string
	NotifDBPath  string
	LogFile      string
}

// WebConfig contains the status/control HTTP server configuration
type WebConfig struct {
	Host string
	Port int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}

	checkInterval := 30 * time.Second
	if val := os.Getenv("CHECK_INTERVAL_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			checkInterval = time.Duration(parsed) * time.Second
		}
	}

	maxChats := 200
	if val := os.Getenv("MAX_CHATS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			maxChats = parsed
		}
	}

	batchSize := 50
	if val := os.Getenv("BATCH_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			batchSize = parsed
		}
	}

	replyDelay := 2 * time.Second
	if val := os.Getenv("AUTO_REPLY_DELAY_MS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 0 {
			replyDelay = time.Duration(parsed) * time.Millisecond
		}
	}

	replyMessage := os.Getenv("AUTO_REPLY_MESSAGE")
	if replyMessage == "" {
		replyMessage = defaultAutoReplyMessage
	}

	webPort := 5000
	if val := os.Getenv("WEB_PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			webPort = parsed
		}
	}

	webHost := os.Getenv("WEB_HOST")
	if webHost == "" {
		webHost = "0.0.0.0"
	}

	baseURL := os.Getenv("AVITO_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.avito.ru"
	}

	serviceName := os.Getenv("KEYRING_SERVICE")
	if serviceName == "" {
		serviceName = "avito-api"
	}

	return &Config{
		Avito: AvitoConfig{
			BaseURL:     baseURL,
			ServiceName: serviceName,
		},
		Monitor: MonitorConfig{
			CheckInterval: checkInterval,
			MaxChats:      maxChats,
			BatchSize:     batchSize,
			AutoStart:     os.Getenv("AUTO_START_MONITOR") != "false",
			SystemPhrases: defaultSystemPhrases,
		},
		AutoReply: AutoReplyConfig{
			Enabled: os.Getenv("AUTO_REPLY_ENABLED") != "false",
			Message: replyMessage,
			Delay:   replyDelay,
		},
		Storage: StorageConfig{
			StateFile:    filepath.Join(dataDir, "monitor_state.json"),
			SnapshotFile: filepath.Join(dataDir, "avito_chats.json"),
			NotifDBPath:  filepath.Join(dataDir, "logs", "notifications.db"),
			LogFile:      filepath.Join(dataDir, "logs", "avito_monitor.log"),
		},
		Web: WebConfig{
			Host: webHost,
			Port: webPort,
		},
		Debug: os.Getenv("DEBUG") == "true",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Avito.BaseURL == "" {
		return &ConfigError{Field: "AVITO_BASE_URL", Message: "required"}
	}
	if c.Monitor.BatchSize <= 0 {
		return &ConfigError{Field: "BATCH_SIZE", Message: "must be positive"}
	}
	if c.Monitor.MaxChats <= 0 {
		return &ConfigError{Field: "MAX_CHATS", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
