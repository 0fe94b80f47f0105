package engine

import (
	"context"

	"github.com/hostfolk/porter/internal/channel"
)

// Administrative text commands, recognized verbatim as the whole message.
const (
	CommandClear   = "!clear"
	CommandHistory = "!history"
)

const clearedNotice = "Conversation history cleared."

// handleCommand runs administrative commands and reports whether the
// event was consumed.
func (e *Engine) handleCommand(ctx context.Context, ev channel.Event) bool {
	switch trimContent(ev) {
	case CommandClear:
		e.store.Clear(ev.ChannelID)
		// Clearing is strong user intent; snapshot immediately instead of
		// waiting for the timer.
		if e.flusher != nil {
			if err := e.flusher.Flush(); err != nil {
				e.metrics.SnapshotFailures.Inc()
				e.logger.Error("snapshot after clear failed", "error", err)
			}
		}
		e.logger.Info("conversation cleared", "channel_id", ev.ChannelID, "author_id", ev.AuthorID)
		e.reply(ctx, ev.ChannelID, clearedNotice, false)
		return true

	case CommandHistory:
		e.reply(ctx, ev.ChannelID, e.store.FormatHistory(ev.ChannelID), false)
		return true
	}
	return false
}
