// Package gemini implements the Generator interface against the Google
// Generative Language REST API.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hostfolk/porter/internal/provider"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash-001"
	defaultTimeout = 30 * time.Second
)

// Config holds the Gemini provider configuration.
type Config struct {
	// APIKey authenticates against the API. Falls back to the
	// GEMINI_API_KEY environment variable when empty.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier. Defaults to a flash-tier model.
	Model string `yaml:"model"`

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string `yaml:"base_url"`

	// MaxTokens caps the completion length. Zero lets the API decide.
	MaxTokens int `yaml:"max_tokens"`

	// Timeout bounds the whole HTTP exchange. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// Gemini is a Generator backed by the generateContent endpoint.
type Gemini struct {
	config Config
	client *http.Client
}

// Compile-time interface check.
var _ provider.Generator = (*Gemini)(nil)

// New creates a Gemini provider.
func New(cfg Config) *Gemini {
	cfg.defaults()
	return &Gemini{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// ModelName implements provider.Generator.
func (g *Gemini) ModelName() string {
	return g.config.Model
}

// Generate implements provider.Generator. The request's leading system
// message maps to the API's systemInstruction field.
func (g *Gemini) Generate(ctx context.Context, req provider.Request) (string, error) {
	body := buildRequest(req, g.config.MaxTokens)
	resp, err := g.doRequest(ctx, body)
	if err != nil {
		return "", err
	}

	text := resp.text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w (model %s)", provider.ErrEmptyCompletion, g.config.Model)
	}
	return text, nil
}
