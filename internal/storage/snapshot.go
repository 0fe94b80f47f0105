// Package storage persists the conversation store as a single JSON document
// keyed by channel identifier. Persistence is best-effort durability, not a
// correctness dependency of the live session: failures are logged and never
// surface to the chat channel.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hostfolk/porter/internal/session"
)

// Document is the on-disk schema: channel id to conversation snapshot.
// Timestamps serialize as RFC 3339 via time.Time's JSON encoding.
type Document map[string]session.Conversation

// File reads and writes the snapshot document at a fixed path.
type File struct {
	path string
}

// NewFile creates a File for the given path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the snapshot file path.
func (f *File) Path() string {
	return f.path
}

// Load parses the whole snapshot document. A missing file is an empty
// document, not an error; a corrupt file is an error so the operator can
// decide rather than silently discarding history.
func (f *File) Load() (Document, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, nil
		}
		return nil, fmt.Errorf("storage: reading %s: %w", f.path, err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("storage: parsing %s: %w", f.path, err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Save serializes the document and atomically replaces the file
// (temp write + rename), so a crash mid-write never corrupts the
// previous snapshot.
func (f *File) Save(doc Document) error {
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("storage: create directory %s: %w", dir, err)
		}
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encoding snapshot: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("storage: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("storage: replacing %s: %w", f.path, err)
	}
	return nil
}
