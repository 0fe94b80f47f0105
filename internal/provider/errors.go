package provider

import "errors"

// Sentinel errors for generation calls.
var (
	// ErrNoProvider indicates no generation provider is configured.
	ErrNoProvider = errors.New("no provider configured")

	// ErrAllProviders indicates the primary and, if configured, the
	// fallback provider both failed.
	ErrAllProviders = errors.New("all providers failed")

	// ErrEmptyCompletion indicates the provider returned no text.
	ErrEmptyCompletion = errors.New("provider returned empty completion")

	// ErrRateLimit indicates the provider returned a rate limit response.
	ErrRateLimit = errors.New("provider rate limited")

	// ErrProviderDown indicates the provider is temporarily unavailable.
	ErrProviderDown = errors.New("provider unavailable")
)
