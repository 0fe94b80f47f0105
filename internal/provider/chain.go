package provider

import (
	"context"
	"fmt"
	"log/slog"
)

// Chain routes a generation request to the primary provider, with at most
// one fallback attempt against the alternate provider when the primary
// fails. No further retries happen here; collaborators own their own
// timeouts and surface failures as plain errors.
type Chain struct {
	primary  Generator
	fallback Generator
	logger   *slog.Logger
}

// ChainOption configures optional Chain behavior.
type ChainOption func(*Chain)

// WithFallback sets the alternate provider tried once after a primary failure.
func WithFallback(g Generator) ChainOption {
	return func(c *Chain) { c.fallback = g }
}

// WithLogger injects a structured logger. Nil or omitted discards output.
func WithLogger(l *slog.Logger) ChainOption {
	return func(c *Chain) { c.logger = l }
}

// NewChain creates a chain around the primary provider.
func NewChain(primary Generator, opts ...ChainOption) (*Chain, error) {
	if primary == nil {
		return nil, ErrNoProvider
	}

	c := &Chain{primary: primary}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c, nil
}

// Generate sends the request to the primary provider and, on failure,
// makes exactly one attempt against the fallback.
func (c *Chain) Generate(ctx context.Context, req Request) (string, error) {
	text, err := c.primary.Generate(ctx, req)
	if err == nil {
		return text, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}

	c.logger.Warn("primary provider failed",
		"model", c.primary.ModelName(),
		"error", err,
	)

	if c.fallback == nil {
		return "", fmt.Errorf("%w: %w", ErrAllProviders, err)
	}

	text, fbErr := c.fallback.Generate(ctx, req)
	if fbErr == nil {
		c.logger.Info("fallback provider answered",
			"model", c.fallback.ModelName(),
		)
		return text, nil
	}

	c.logger.Error("fallback provider failed",
		"model", c.fallback.ModelName(),
		"error", fbErr,
	)
	return "", fmt.Errorf("%w: primary: %w; fallback: %w", ErrAllProviders, err, fbErr)
}

// ModelName returns the primary provider's model identifier.
func (c *Chain) ModelName() string {
	return c.primary.ModelName()
}
