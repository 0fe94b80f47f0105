package session

import (
	"log/slog"
	"sync"
	"time"
)

// Default limits, matching the shipped configuration.
const (
	DefaultMaxMessages = 15
	DefaultExpiry      = 30 * time.Minute
)

// Config holds the Store limits.
type Config struct {
	// MaxMessages caps the number of turns kept per conversation.
	// Oldest turns are evicted first. Zero means DefaultMaxMessages.
	MaxMessages int

	// Expiry is the idle duration after which a conversation is treated
	// as absent. Zero means DefaultExpiry.
	Expiry time.Duration
}

func (c *Config) defaults() {
	if c.MaxMessages <= 0 {
		c.MaxMessages = DefaultMaxMessages
	}
	if c.Expiry <= 0 {
		c.Expiry = DefaultExpiry
	}
}

// Store is the in-memory conversation store, keyed by channel identifier.
// It is safe for concurrent use: the snapshot writer and the admin gateway
// read the map while the event loop mutates it. The `now` function is
// injectable for deterministic testing.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation

	maxMessages int
	expiry      time.Duration
	logger      *slog.Logger

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// NewStore creates an empty Store with the given limits.
// A nil logger discards all output.
func NewStore(cfg Config, logger *slog.Logger) *Store {
	cfg.defaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		conversations: make(map[string]*Conversation),
		maxMessages:   cfg.MaxMessages,
		expiry:        cfg.Expiry,
		logger:        logger,
		now:           time.Now,
	}
}

// RecordUserMessage appends a user turn to the channel's conversation.
// The author is only used for logging; it is not part of the stored turn.
func (s *Store) RecordUserMessage(channelID, author, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv := s.getOrCreate(channelID, now)
	conv.append(Message{Role: RoleUser, Content: content, Timestamp: now}, s.maxMessages)

	s.logger.Debug("user turn recorded",
		"channel", channelID,
		"author", author,
		"len", len(conv.Messages),
	)
}

// RecordAssistantMessage appends an assistant turn to the channel's conversation.
func (s *Store) RecordAssistantMessage(channelID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv := s.getOrCreate(channelID, now)
	conv.append(Message{Role: RoleAssistant, Content: content, Timestamp: now}, s.maxMessages)

	s.logger.Debug("assistant turn recorded",
		"channel", channelID,
		"len", len(conv.Messages),
	)
}

// History returns a copy of the channel's messages in append order.
// A missing or expired conversation yields an empty slice. Reads never
// mutate store state; an expired conversation is only replaced on the
// next mutating access.
func (s *Store) History(channelID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[channelID]
	if !ok || conv.expired(s.now(), s.expiry) {
		return nil
	}

	msgs := make([]Message, len(conv.Messages))
	copy(msgs, conv.Messages)
	return msgs
}

// HistoryWithPrimer prepends a single system turn ahead of History's result.
// The primer is never stored as part of the conversation.
func (s *Store) HistoryWithPrimer(channelID, primer string) []Message {
	history := s.History(channelID)
	out := make([]Message, 0, len(history)+1)
	out = append(out, Message{Role: RoleSystem, Content: primer, Timestamp: s.now()})
	return append(out, history...)
}

// Clear removes the channel's conversation entirely and reports whether
// one existed. Callers are expected to flush a durable snapshot right
// after a clear.
func (s *Store) Clear(channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.conversations[channelID]
	delete(s.conversations, channelID)
	return ok
}

// Len returns the number of live (possibly expired) conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Channels returns the identifiers of all stored conversations.
func (s *Store) Channels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns a deep copy of every conversation, keyed by channel,
// for the persistence layer. Expired conversations are included; staleness
// is re-evaluated against the clock on restore.
func (s *Store) Snapshot() map[string]Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(map[string]Conversation, len(s.conversations))
	for id, conv := range s.conversations {
		snap[id] = conv.clone()
	}
	return snap
}

// Restore installs a previously snapshotted conversation set, replacing
// any current contents. Intended for startup, before event processing.
func (s *Store) Restore(snap map[string]Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make(map[string]*Conversation, len(snap))
	for id, conv := range snap {
		c := conv.clone()
		s.conversations[id] = &c
	}
}

// Prune drops expired conversations and returns the number removed.
// Run periodically; expiry alone already makes stale conversations
// invisible, pruning just reclaims the memory.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	pruned := 0
	for id, conv := range s.conversations {
		if conv.expired(now, s.expiry) {
			delete(s.conversations, id)
			pruned++
		}
	}
	return pruned
}

// getOrCreate returns the live conversation for the channel, replacing an
// expired predecessor with a fresh one. Expiry is a hard cutoff: the old
// messages are discarded, never extended. Caller must hold the write lock.
func (s *Store) getOrCreate(channelID string, now time.Time) *Conversation {
	if conv, ok := s.conversations[channelID]; ok && !conv.expired(now, s.expiry) {
		return conv
	}
	conv := &Conversation{LastUpdated: now}
	s.conversations[channelID] = conv
	return conv
}
