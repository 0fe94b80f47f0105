// Package session owns per-channel conversation state: bounded rolling
// message history, lazy creation, hard expiry, and snapshot conversion for
// the persistence layer.
package session

import "time"

// Role identifies the author of a conversation turn.
type Role string

// Role constants for conversation turns.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single turn in a conversation. Immutable once created.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
