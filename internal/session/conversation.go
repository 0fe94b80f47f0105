package session

import "time"

// Conversation holds the bounded rolling context for one channel.
// The zero value is an empty conversation.
type Conversation struct {
	Messages    []Message `json:"messages"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// append adds a message, trims the oldest entries beyond max, and advances
// LastUpdated to the message timestamp. Trimming drops from the front, so
// the just-appended message is never removed.
func (c *Conversation) append(msg Message, max int) {
	c.Messages = append(c.Messages, msg)
	if max > 0 && len(c.Messages) > max {
		c.Messages = c.Messages[len(c.Messages)-max:]
	}
	c.LastUpdated = msg.Timestamp
}

// expired reports whether the conversation has been idle longer than expiry.
// An expired conversation is semantically equivalent to an absent one.
func (c *Conversation) expired(now time.Time, expiry time.Duration) bool {
	return now.Sub(c.LastUpdated) > expiry
}

// clone returns a deep copy safe to hand outside the store's lock.
func (c *Conversation) clone() Conversation {
	msgs := make([]Message, len(c.Messages))
	copy(msgs, c.Messages)
	return Conversation{Messages: msgs, LastUpdated: c.LastUpdated}
}
