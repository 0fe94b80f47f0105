// Package provider defines the Generator interface for the external
// text-generation service, shared message types, sentinel errors, and a
// primary-to-fallback chain.
package provider

import "context"

// Role identifies the sender of a message in a generation request.
type Role string

// Role constants for generation requests.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single message in a generation request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is the input to a Generator.Generate call. A leading system-role
// message, if present, is the conversation primer; concrete providers move
// it into their native system slot.
type Request struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// SplitSystem separates a leading system message from the rest of the
// request. Returns an empty string when no primer is present.
func (r Request) SplitSystem() (string, []Message) {
	if len(r.Messages) > 0 && r.Messages[0].Role == RoleSystem {
		return r.Messages[0].Content, r.Messages[1:]
	}
	return "", r.Messages
}

// Generator is the interface for communicating with a text-generation
// provider. Implementations live in modules/provider.
type Generator interface {
	// Generate sends the request and returns the generated text.
	Generate(ctx context.Context, req Request) (string, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}
