package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hostfolk/porter/internal/session"
)

func TestFile_LoadMissingIsEmpty(t *testing.T) {
	t.Parallel()

	f := NewFile(filepath.Join(t.TempDir(), "conversations.json"))
	doc, err := f.Load()
	if err != nil {
		t.Fatalf("Load missing file: %v", err)
	}
	if len(doc) != 0 {
		t.Errorf("missing file loaded %d conversations, want 0", len(doc))
	}
}

func TestFile_LoadCorruptIsError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "conversations.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFile(path).Load(); err == nil {
		t.Fatal("corrupt file loaded without error")
	}
}

func TestFile_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	doc := Document{
		"channel-1": {
			Messages: []session.Message{
				{Role: session.RoleUser, Content: "is it down?", Timestamp: ts},
				{Role: session.RoleAssistant, Content: "checking now", Timestamp: ts.Add(time.Second)},
			},
			LastUpdated: ts.Add(time.Second),
		},
		"channel-2": {
			Messages:    []session.Message{{Role: session.RoleUser, Content: "hi", Timestamp: ts}},
			LastUpdated: ts,
		},
	}

	f := NewFile(filepath.Join(t.TempDir(), "data", "conversations.json"))
	if err := f.Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != len(doc) {
		t.Fatalf("loaded %d conversations, want %d", len(loaded), len(doc))
	}
	for id, want := range doc {
		got, ok := loaded[id]
		if !ok {
			t.Fatalf("channel %s missing after round trip", id)
		}
		if !got.LastUpdated.Equal(want.LastUpdated) {
			t.Errorf("channel %s lastUpdated = %v, want %v", id, got.LastUpdated, want.LastUpdated)
		}
		if len(got.Messages) != len(want.Messages) {
			t.Fatalf("channel %s has %d messages, want %d", id, len(got.Messages), len(want.Messages))
		}
		for i := range want.Messages {
			if got.Messages[i].Role != want.Messages[i].Role ||
				got.Messages[i].Content != want.Messages[i].Content ||
				!got.Messages[i].Timestamp.Equal(want.Messages[i].Timestamp) {
				t.Errorf("channel %s message %d = %+v, want %+v", id, i, got.Messages[i], want.Messages[i])
			}
		}
	}
}

func TestFile_SaveOverwritesAtomically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f := NewFile(filepath.Join(dir, "conversations.json"))

	if err := f.Save(Document{"a": {}}); err != nil {
		t.Fatal(err)
	}
	if err := f.Save(Document{"b": {}}); err != nil {
		t.Fatal(err)
	}

	doc, err := f.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["a"]; ok {
		t.Error("stale conversation survived overwrite")
	}
	if _, ok := doc["b"]; !ok {
		t.Error("latest snapshot missing after overwrite")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries in dir", len(entries))
	}
}

func TestPersister_FlushAndRestore(t *testing.T) {
	t.Parallel()

	store := session.NewStore(session.Config{}, nil)
	store.RecordUserMessage("c1", "alice", "hello")

	f := NewFile(filepath.Join(t.TempDir(), "conversations.json"))
	p := NewPersister(store, f, "", nil)
	if p.Schedule() != DefaultSchedule {
		t.Errorf("Schedule = %q, want default %q", p.Schedule(), DefaultSchedule)
	}

	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	fresh := session.NewStore(session.Config{}, nil)
	restored := NewPersister(fresh, f, "", nil)
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	history := fresh.History("c1")
	if len(history) != 1 || history[0].Content != "hello" {
		t.Fatalf("restored history = %+v", history)
	}
}

func TestPersister_ErrorCallback(t *testing.T) {
	t.Parallel()

	store := session.NewStore(session.Config{}, nil)
	store.RecordUserMessage("c1", "alice", "hello")

	// A path whose parent is a file forces the write to fail.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	p := NewPersister(store, NewFile(filepath.Join(blocker, "conversations.json")), "", nil)
	var failures int
	p.OnError(func() { failures++ })

	if err := p.Flush(); err == nil {
		t.Fatal("Flush into unwritable path succeeded")
	}
	if failures != 1 {
		t.Errorf("error callback fired %d times, want 1", failures)
	}
}
