package storage

import (
	"context"
	"log/slog"

	"github.com/hostfolk/porter/internal/session"
)

// DefaultSchedule writes a snapshot every five minutes.
const DefaultSchedule = "*/5 * * * *"

// Persister ties the conversation store to its snapshot file. It runs as a
// scheduled job and is also flushed eagerly after a clear and on shutdown.
type Persister struct {
	store    *session.Store
	file     *File
	schedule string
	logger   *slog.Logger

	// onError, if non-nil, is invoked for every failed snapshot write.
	// Used to bump the snapshot failure counter.
	onError func()
}

// NewPersister creates a Persister. An empty schedule means DefaultSchedule;
// a nil logger discards output.
func NewPersister(store *session.Store, file *File, schedule string, logger *slog.Logger) *Persister {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Persister{store: store, file: file, schedule: schedule, logger: logger}
}

// OnError registers a callback invoked after each failed write.
func (p *Persister) OnError(fn func()) {
	p.onError = fn
}

// Flush writes the current conversation set to disk.
func (p *Persister) Flush() error {
	snap := p.store.Snapshot()
	if err := p.file.Save(Document(snap)); err != nil {
		if p.onError != nil {
			p.onError()
		}
		return err
	}
	p.logger.Debug("snapshot written",
		"path", p.file.Path(),
		"conversations", len(snap),
	)
	return nil
}

// Restore loads the snapshot document into the store. Missing file means
// an empty store.
func (p *Persister) Restore() error {
	doc, err := p.file.Load()
	if err != nil {
		return err
	}
	p.store.Restore(doc)
	if len(doc) > 0 {
		p.logger.Info("conversations restored from snapshot",
			"path", p.file.Path(),
			"conversations", len(doc),
		)
	}
	return nil
}

// Name implements schedule.Job.
func (p *Persister) Name() string { return "snapshot" }

// Schedule implements schedule.Job.
func (p *Persister) Schedule() string { return p.schedule }

// Run implements schedule.Job.
func (p *Persister) Run(context.Context) error {
	return p.Flush()
}
