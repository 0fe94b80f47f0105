package session

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeTime provides an injectable clock for deterministic testing.
type fakeTime struct {
	mu      sync.Mutex
	current time.Time
}

func (f *fakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
}

func newTestStore(cfg Config) (*Store, *fakeTime) {
	s := NewStore(cfg, nil)
	ft := &fakeTime{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s.now = ft.Now
	return s, ft
}

func TestStore_RecordAndHistory(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(Config{})

	store.RecordUserMessage("c1", "alice", "hello")
	store.RecordAssistantMessage("c1", "hi there")

	history := store.History("c1")
	if len(history) != 2 {
		t.Fatalf("History len = %d, want 2", len(history))
	}
	if history[0].Role != RoleUser || history[0].Content != "hello" {
		t.Errorf("first turn = %+v, want user/hello", history[0])
	}
	if history[1].Role != RoleAssistant || history[1].Content != "hi there" {
		t.Errorf("second turn = %+v, want assistant/hi there", history[1])
	}

	// Channels are independent.
	if got := store.History("c2"); got != nil {
		t.Errorf("History for unknown channel = %v, want nil", got)
	}
}

func TestStore_TrimKeepsMostRecent(t *testing.T) {
	t.Parallel()

	store, ft := newTestStore(Config{MaxMessages: 3})

	for _, content := range []string{"m1", "m2", "m3", "m4", "m5"} {
		store.RecordUserMessage("c1", "alice", content)
		ft.Advance(time.Second)
	}

	history := store.History("c1")
	if len(history) != 3 {
		t.Fatalf("History len = %d, want 3", len(history))
	}
	for i, want := range []string{"m3", "m4", "m5"} {
		if history[i].Content != want {
			t.Errorf("history[%d] = %q, want %q", i, history[i].Content, want)
		}
	}
}

func TestStore_TrimNeverRemovesJustAppended(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(Config{MaxMessages: 1})
	store.RecordUserMessage("c1", "alice", "first")
	store.RecordAssistantMessage("c1", "second")

	history := store.History("c1")
	if len(history) != 1 || history[0].Content != "second" {
		t.Fatalf("history = %+v, want only the just-appended turn", history)
	}
}

func TestStore_ExpiryHidesHistory(t *testing.T) {
	t.Parallel()

	store, ft := newTestStore(Config{Expiry: 30 * time.Minute})
	store.RecordUserMessage("c1", "alice", "hello")

	// Exactly at the boundary the conversation is still live.
	ft.Advance(30 * time.Minute)
	if got := store.History("c1"); len(got) != 1 {
		t.Fatalf("History at expiry boundary len = %d, want 1", len(got))
	}

	ft.Advance(time.Second)
	if got := store.History("c1"); got != nil {
		t.Fatalf("History after expiry = %v, want nil", got)
	}

	// Reads do not mutate: the stale conversation is still stored.
	if store.Len() != 1 {
		t.Errorf("Len after expired read = %d, want 1", store.Len())
	}
}

func TestStore_ExpiredConversationIsReplacedOnWrite(t *testing.T) {
	t.Parallel()

	store, ft := newTestStore(Config{Expiry: 30 * time.Minute})
	store.RecordUserMessage("c1", "alice", "old message")

	ft.Advance(31 * time.Minute)
	store.RecordUserMessage("c1", "alice", "fresh start")

	history := store.History("c1")
	if len(history) != 1 {
		t.Fatalf("History len = %d, want 1 (old messages must not resurface)", len(history))
	}
	if history[0].Content != "fresh start" {
		t.Errorf("history[0] = %q, want %q", history[0].Content, "fresh start")
	}
}

func TestStore_HistoryWithPrimer(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(Config{})
	store.RecordUserMessage("c1", "alice", "hello")

	primed := store.HistoryWithPrimer("c1", "you are a support assistant")
	if len(primed) != 2 {
		t.Fatalf("primed len = %d, want 2", len(primed))
	}
	if primed[0].Role != RoleSystem || primed[0].Content != "you are a support assistant" {
		t.Errorf("primed[0] = %+v, want leading system turn", primed[0])
	}

	// The primer must never leak into the stored conversation.
	if got := store.History("c1"); len(got) != 1 {
		t.Errorf("History len after priming = %d, want 1", len(got))
	}
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(Config{})
	store.RecordUserMessage("c1", "alice", "hello")

	if !store.Clear("c1") {
		t.Error("Clear should report an existing conversation")
	}
	if store.Clear("c1") {
		t.Error("second Clear should report nothing to remove")
	}
	if got := store.History("c1"); got != nil {
		t.Errorf("History after clear = %v, want nil", got)
	}
}

func TestStore_SnapshotRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, ft := newTestStore(Config{})
	store.RecordUserMessage("c1", "alice", "hello")
	ft.Advance(time.Second)
	store.RecordAssistantMessage("c1", "hi")
	store.RecordUserMessage("c2", "bob", "ping")

	snap := store.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d, want 2", len(snap))
	}

	restored, rft := newTestStore(Config{})
	rft.current = ft.Now()
	restored.Restore(snap)

	for _, ch := range []string{"c1", "c2"} {
		got, want := restored.History(ch), store.History(ch)
		if len(got) != len(want) {
			t.Fatalf("channel %s: restored len = %d, want %d", ch, len(got), len(want))
		}
		for i := range got {
			if got[i] != want[i] {
				t.Errorf("channel %s turn %d: got %+v, want %+v", ch, i, got[i], want[i])
			}
		}
	}
}

func TestStore_SnapshotIsDeepCopy(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(Config{})
	store.RecordUserMessage("c1", "alice", "hello")

	snap := store.Snapshot()
	snap["c1"].Messages[0] = Message{Role: RoleUser, Content: "mutated"}

	if got := store.History("c1"); got[0].Content != "hello" {
		t.Errorf("store content = %q, snapshot mutation leaked in", got[0].Content)
	}
}

func TestStore_Prune(t *testing.T) {
	t.Parallel()

	store, ft := newTestStore(Config{Expiry: 30 * time.Minute})
	store.RecordUserMessage("stale", "alice", "old")
	ft.Advance(31 * time.Minute)
	store.RecordUserMessage("live", "bob", "new")

	if pruned := store.Prune(); pruned != 1 {
		t.Fatalf("Prune = %d, want 1", pruned)
	}
	if store.Len() != 1 {
		t.Errorf("Len after prune = %d, want 1", store.Len())
	}
	if got := store.History("live"); len(got) != 1 {
		t.Errorf("live conversation lost during prune")
	}
}

func TestFormatHistory(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(Config{})

	if got := store.FormatHistory("c1"); got != "No conversation history found." {
		t.Errorf("empty FormatHistory = %q", got)
	}

	store.RecordUserMessage("c1", "alice", "short question")
	store.RecordAssistantMessage("c1", strings.Repeat("x", 150))

	out := store.FormatHistory("c1")
	if !strings.Contains(out, "**User**: short question") {
		t.Errorf("missing user line in %q", out)
	}
	if !strings.Contains(out, strings.Repeat("x", 100)+"...") {
		t.Errorf("long content not truncated with ellipsis: %q", out)
	}
	if strings.Contains(out, strings.Repeat("x", 101)) {
		t.Errorf("content rendered beyond the truncation limit")
	}
}
