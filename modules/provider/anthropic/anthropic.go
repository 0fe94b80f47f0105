// Package anthropic implements the Generator interface against the
// Anthropic Messages API via the official SDK.
package anthropic

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hostfolk/porter/internal/provider"
)

// defaultModel is pinned to a dated release for reproducibility.
const defaultModel = "claude-sonnet-4-5-20250929"

const (
	defaultMaxTokens = 1024
	defaultTimeout   = 30 * time.Second
)

// Config holds the Anthropic provider configuration.
type Config struct {
	// APIKey authenticates against the API. Falls back to the
	// ANTHROPIC_API_KEY environment variable when empty.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier.
	Model string `yaml:"model"`

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string `yaml:"base_url"`

	// MaxTokens caps the completion length. Defaults to 1024.
	MaxTokens int `yaml:"max_tokens"`

	// Timeout bounds each request. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
}

// Anthropic is a Generator backed by the Messages API.
type Anthropic struct {
	config Config
	client *sdkanthropic.Client
}

// Compile-time interface check.
var _ provider.Generator = (*Anthropic)(nil)

// New creates an Anthropic provider.
func New(cfg Config) *Anthropic {
	cfg.defaults()

	opts := []option.RequestOption{
		option.WithRequestTimeout(cfg.Timeout),
		// The provider chain owns failover; the SDK must not retry.
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := sdkanthropic.NewClient(opts...)
	return &Anthropic{config: cfg, client: &client}
}

// ModelName implements provider.Generator.
func (a *Anthropic) ModelName() string {
	return a.config.Model
}

// Generate implements provider.Generator.
func (a *Anthropic) Generate(ctx context.Context, req provider.Request) (string, error) {
	params := convertRequest(req, a.config)

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", mapError(err)
	}

	text := extractText(msg)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w (model %s)", provider.ErrEmptyCompletion, a.config.Model)
	}
	return text, nil
}
