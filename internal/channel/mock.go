package channel

import (
	"context"
	"sync"
)

// Reply is an outbound message recorded by the mock transport.
type Reply struct {
	ChannelID string
	Content   string
}

// MockTransport is a test double that implements Transport. It records
// outbound traffic and allows simulating inbound events.
type MockTransport struct {
	mu      sync.Mutex
	inbox   Inbox
	replies []Reply
	typing  []string

	// ReplyFunc, if set, is called instead of the default recording behavior.
	ReplyFunc func(ctx context.Context, channelID, text string) error
}

// Compile-time interface check.
var _ Transport = (*MockTransport)(nil)

// NewMockTransport creates an empty mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Reply records the outbound message. If ReplyFunc is set, it delegates to it.
func (m *MockTransport) Reply(ctx context.Context, channelID, text string) error {
	if m.ReplyFunc != nil {
		return m.ReplyFunc(ctx, channelID, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, Reply{ChannelID: channelID, Content: text})
	return nil
}

// SendTyping records the channel the indicator was requested for.
func (m *MockTransport) SendTyping(_ context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typing = append(m.typing, channelID)
	return nil
}

// SetInbox stores the inbox callback.
func (m *MockTransport) SetInbox(fn Inbox) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = fn
}

// Deliver pushes an event through the inbox callback, simulating an
// inbound platform message.
func (m *MockTransport) Deliver(ctx context.Context, ev Event) {
	m.mu.Lock()
	inbox := m.inbox
	m.mu.Unlock()
	if inbox != nil {
		inbox(ctx, ev)
	}
}

// Replies returns a copy of the recorded outbound messages.
func (m *MockTransport) Replies() []Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Reply, len(m.replies))
	copy(out, m.replies)
	return out
}

// TypingChannels returns the channels a typing indicator was sent to.
func (m *MockTransport) TypingChannels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.typing))
	copy(out, m.typing)
	return out
}
