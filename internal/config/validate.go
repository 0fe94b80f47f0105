package config

import (
	"errors"
	"fmt"
)

// Validate checks the structural validity of a Config. All problems are
// reported at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if cfg.Chat.URL == "" {
		errs = append(errs, errors.New("config: chat.url is required"))
	}
	if cfg.Chat.BotUserID == "" {
		errs = append(errs, errors.New("config: chat.bot_user_id is required"))
	}
	if cfg.Escalation.SupportRoleID == "" {
		errs = append(errs, errors.New("config: escalation.support_role_id is required"))
	}

	errs = append(errs, validateProvider("provider.primary", &cfg.Provider.Primary)...)
	if cfg.Provider.Fallback != nil {
		errs = append(errs, validateProvider("provider.fallback", cfg.Provider.Fallback)...)
	}

	if cfg.Memory.MaxMessages < 1 {
		errs = append(errs, errors.New("config: memory.max_messages must be at least 1"))
	}
	if cfg.Memory.Expiry <= 0 {
		errs = append(errs, errors.New("config: memory.expiry must be positive"))
	}
	if cfg.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("config: rate_limit.window must be positive"))
	}
	if cfg.RateLimit.MaxMessages < 1 {
		errs = append(errs, errors.New("config: rate_limit.max_messages must be at least 1"))
	}
	if cfg.Escalation.BurstWindow <= 0 {
		errs = append(errs, errors.New("config: escalation.burst_window must be positive"))
	}
	if cfg.Escalation.BurstThreshold < 1 {
		errs = append(errs, errors.New("config: escalation.burst_threshold must be at least 1"))
	}

	if cfg.Admin.Enabled && cfg.Admin.BearerToken == "" {
		errs = append(errs, errors.New("config: admin.bearer_token is required when admin is enabled"))
	}

	return errors.Join(errs...)
}

func validateProvider(field string, entry *ProviderEntry) []error {
	var errs []error
	switch entry.Type {
	case ProviderGemini, ProviderAnthropic:
	case "":
		errs = append(errs, fmt.Errorf("config: %s.type is required", field))
	default:
		errs = append(errs, fmt.Errorf("config: %s.type %q is not supported (gemini, anthropic)", field, entry.Type))
	}
	if entry.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("config: %s.max_tokens must not be negative", field))
	}
	return errs
}
