package channel

import (
	"encoding/json"
	"time"
)

// FrameType identifies the kind of WebSocket frame in the gateway protocol.
type FrameType string

// Protocol frame types exchanged with the chat gateway.
const (
	FrameHello   FrameType = "hello"
	FrameMessage FrameType = "message"
	FrameReply   FrameType = "reply"
	FrameTyping  FrameType = "typing"
	FramePing    FrameType = "ping"
	FramePong    FrameType = "pong"
)

// Envelope is the wire format for all gateway frames.
type Envelope struct {
	Type      FrameType       `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// HelloPayload identifies the bot to the gateway on connect.
type HelloPayload struct {
	BotUserID string `json:"bot_user_id"`
	BotName   string `json:"bot_name,omitempty"`
}

// MessagePayload is an inbound chat message.
type MessagePayload struct {
	ChannelID  string    `json:"channel_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	IsBot      bool      `json:"is_bot,omitempty"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// ReplyPayload is an outbound message posted by the bot.
type ReplyPayload struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

// TypingPayload requests a typing indicator in a channel.
type TypingPayload struct {
	ChannelID string `json:"channel_id"`
}
