// Package channel defines the bridge between the chat platform and the
// engine. It provides the Transport interface, the inbound event shape,
// and a WebSocket gateway client.
package channel

import (
	"context"
	"time"
)

// Event is an inbound chat message as delivered by a transport.
type Event struct {
	// ID uniquely identifies the message. Transports that do not carry
	// message ids get one assigned on receipt.
	ID string

	// ChannelID identifies the conversation the message belongs to.
	ChannelID string

	// AuthorID identifies the sender for rate limiting purposes.
	AuthorID string

	// AuthorName is the sender's display name.
	AuthorName string

	// IsBot marks messages authored by bots, including this one.
	IsBot bool

	// Content is the raw message text.
	Content string

	// Timestamp is when the platform received the message.
	Timestamp time.Time
}

// Inbox receives inbound events from a transport. The transport calls it
// from its read loop; implementations must not block for long.
type Inbox func(ctx context.Context, ev Event)

// Transport delivers outbound traffic to the chat platform.
//
// A transport receives platform messages and pushes them to the engine via
// the inbox callback set before Start. It also carries replies and typing
// indicators back out.
type Transport interface {
	// Reply posts a message into the given channel.
	Reply(ctx context.Context, channelID, text string) error

	// SendTyping shows a typing indicator in the given channel. Transports
	// without typing support return nil.
	SendTyping(ctx context.Context, channelID string) error

	// SetInbox gives the transport a function to push inbound events to
	// the engine. Called during wiring, before Start.
	SetInbox(fn Inbox)
}
