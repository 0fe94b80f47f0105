// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for porter.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML support for strings like "30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Logging    LoggingConfig    `yaml:"logging"`
	Chat       ChatConfig       `yaml:"chat"`
	Memory     MemoryConfig     `yaml:"memory"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Escalation EscalationConfig `yaml:"escalation"`
	Provider   ProviderConfig   `yaml:"provider"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Storage    StorageConfig    `yaml:"storage"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Admin      AdminConfig      `yaml:"admin"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`

	// Format is "text" or "json". Defaults to text.
	Format string `yaml:"format"`
}

// ChatConfig describes the WebSocket chat gateway connection.
type ChatConfig struct {
	URL       string `yaml:"url"`
	Token     string `yaml:"token"`
	BotUserID string `yaml:"bot_user_id"`
	BotName   string `yaml:"bot_name"`

	// TypingIndicator shows a typing callback before generation.
	TypingIndicator bool `yaml:"typing_indicator"`
}

// MemoryConfig bounds per-channel conversation memory.
type MemoryConfig struct {
	// MaxMessages caps the retained turns per channel. Defaults to 15.
	MaxMessages int `yaml:"max_messages"`

	// Expiry ages out idle conversations. Defaults to 30m.
	Expiry Duration `yaml:"expiry"`
}

// RateLimitConfig throttles per-user message volume.
type RateLimitConfig struct {
	// Window is the sliding throttle window. Defaults to 2m.
	Window Duration `yaml:"window"`

	// MaxMessages is the per-window cap. Defaults to 15.
	MaxMessages int `yaml:"max_messages"`
}

// EscalationConfig controls when replies ping human support.
type EscalationConfig struct {
	// SupportRoleID is the chat role mentioned on escalation.
	SupportRoleID string `yaml:"support_role_id"`

	// BurstWindow and BurstThreshold define the activity signal.
	// Defaults: 30s and 10.
	BurstWindow    Duration `yaml:"burst_window"`
	BurstThreshold int      `yaml:"burst_threshold"`

	// Keyword overrides. Empty lists keep the built-in sets.
	UrgentKeywords   []string `yaml:"urgent_keywords"`
	QuestionStarters []string `yaml:"question_starters"`
	HelpPhrases      []string `yaml:"help_phrases"`
}

// Provider backend identifiers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// ProviderEntry configures one generation backend.
type ProviderEntry struct {
	// Type selects the backend: "gemini" or "anthropic".
	Type string `yaml:"type"`

	APIKey    string   `yaml:"api_key"`
	Model     string   `yaml:"model"`
	BaseURL   string   `yaml:"base_url"`
	MaxTokens int      `yaml:"max_tokens"`
	Timeout   Duration `yaml:"timeout"`
}

// ProviderConfig holds the primary backend and the optional fallback
// tried once after a primary failure.
type ProviderConfig struct {
	Primary  ProviderEntry  `yaml:"primary"`
	Fallback *ProviderEntry `yaml:"fallback"`
}

// PromptConfig selects the system primer.
type PromptConfig struct {
	// Path overrides the built-in primer with a file. Empty keeps the default.
	Path string `yaml:"path"`
}

// StorageConfig controls the conversation snapshot.
type StorageConfig struct {
	// SnapshotPath is the JSON snapshot file. Defaults to data/conversations.json.
	SnapshotPath string `yaml:"snapshot_path"`

	// Schedule is the snapshot cron expression. Defaults to */5 * * * *.
	Schedule string `yaml:"schedule"`

	// PruneSchedule drops expired conversations and stale limiter entries.
	// Defaults to hourly.
	PruneSchedule string `yaml:"prune_schedule"`
}

// ArchiveConfig controls the SQLite transcript archive.
type ArchiveConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path is the database file. Defaults to data/transcripts.db.
	Path string `yaml:"path"`

	// Retention ages out old transcript rows via the prune job. Zero
	// keeps everything.
	Retention Duration `yaml:"retention"`
}

// AdminConfig controls the loopback admin HTTP server.
type AdminConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Bind        string `yaml:"bind"`
	BearerToken string `yaml:"bearer_token"`
}

// TelemetryConfig controls OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// Defaults fills unset fields with the shipped defaults.
func (c *Config) Defaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Memory.MaxMessages == 0 {
		c.Memory.MaxMessages = 15
	}
	if c.Memory.Expiry == 0 {
		c.Memory.Expiry = Duration(30 * time.Minute)
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = Duration(2 * time.Minute)
	}
	if c.RateLimit.MaxMessages == 0 {
		c.RateLimit.MaxMessages = 15
	}
	if c.Escalation.BurstWindow == 0 {
		c.Escalation.BurstWindow = Duration(30 * time.Second)
	}
	if c.Escalation.BurstThreshold == 0 {
		c.Escalation.BurstThreshold = 10
	}
	if c.Storage.SnapshotPath == "" {
		c.Storage.SnapshotPath = "data/conversations.json"
	}
	if c.Storage.Schedule == "" {
		c.Storage.Schedule = "*/5 * * * *"
	}
	if c.Storage.PruneSchedule == "" {
		c.Storage.PruneSchedule = "0 * * * *"
	}
	if c.Archive.Path == "" {
		c.Archive.Path = "data/transcripts.db"
	}
	if c.Admin.Bind == "" {
		c.Admin.Bind = "127.0.0.1:8600"
	}
}
