// Package engine runs the per-message state machine: throttle, record,
// gate, generate, extract directives, sanitize, escalate, reply.
package engine

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hostfolk/porter/internal/admin"
	"github.com/hostfolk/porter/internal/archive"
	"github.com/hostfolk/porter/internal/channel"
	"github.com/hostfolk/porter/internal/policy"
	"github.com/hostfolk/porter/internal/provider"
	"github.com/hostfolk/porter/internal/ratelimit"
	"github.com/hostfolk/porter/internal/session"
	"github.com/hostfolk/porter/internal/telemetry"
)

// User-facing notices. Failures never leak provider or filesystem detail
// into the chat surface.
const (
	ThrottleNotice = "You're sending messages too quickly. Please wait a moment before trying again."
	ApologyNotice  = "I'm having trouble processing your request right now. Please try again later."
)

// Flusher persists the conversation snapshot on demand. The engine calls
// it eagerly after a clear command.
type Flusher interface {
	Flush() error
}

// Config holds the engine knobs.
type Config struct {
	// BotUserID filters out the bot's own messages.
	BotUserID string

	// Primer is the system instruction prepended to every history.
	Primer string

	// TypingIndicator enables the typing callback before generation.
	TypingIndicator bool
}

// Engine ties the conversation store, rate limiter, policy, provider, and
// transport together. One Engine serves all channels; channels are
// independent.
type Engine struct {
	cfg       Config
	store     *session.Store
	tracker   *ratelimit.Tracker
	policy    *policy.Policy
	generator provider.Generator
	transport channel.Transport
	metrics   *admin.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer

	flusher Flusher
	archive *archive.Archive
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithFlusher wires the snapshot persister for eager flushes after clear.
func WithFlusher(f Flusher) Option {
	return func(e *Engine) { e.flusher = f }
}

// WithArchive wires the transcript archive.
func WithArchive(a *archive.Archive) Option {
	return func(e *Engine) { e.archive = a }
}

// WithLogger injects a structured logger. Nil or omitted discards output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine. All non-option collaborators are required.
func New(cfg Config, store *session.Store, tracker *ratelimit.Tracker, pol *policy.Policy,
	gen provider.Generator, transport channel.Transport, metrics *admin.Metrics, opts ...Option) *Engine {

	e := &Engine{
		cfg:       cfg,
		store:     store,
		tracker:   tracker,
		policy:    pol,
		generator: gen,
		transport: transport,
		metrics:   metrics,
		tracer:    telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// HandleMessage processes one inbound event to completion. It is the
// transport's inbox callback.
func (e *Engine) HandleMessage(ctx context.Context, ev channel.Event) {
	if ev.IsBot || ev.AuthorID == e.cfg.BotUserID {
		return
	}

	ctx, span := e.tracer.Start(ctx, "engine.handle_message",
		trace.WithAttributes(
			attribute.String("chat.channel_id", ev.ChannelID),
			attribute.String("chat.author_id", ev.AuthorID),
		))
	defer span.End()

	e.metrics.Messages.Inc()

	// Commands run before rate limiting so a throttled user can still
	// inspect or clear their history.
	if e.handleCommand(ctx, ev) {
		return
	}

	// The throttle check sees only prior activity; the current message is
	// recorded into the limiter either way but never into conversation
	// memory when throttled.
	limited := e.tracker.IsLimited(ev.AuthorID)
	e.tracker.Record(ev.AuthorID)
	if limited {
		e.metrics.Throttled.Inc()
		e.logger.Info("user throttled", "author_id", ev.AuthorID, "channel_id", ev.ChannelID)
		e.reply(ctx, ev.ChannelID, ThrottleNotice, false)
		return
	}

	// Record unconditionally: the transcript stays faithful even for
	// messages that draw no reply.
	e.store.RecordUserMessage(ev.ChannelID, ev.AuthorName, ev.Content)
	e.archiveTurn(ctx, archive.Entry{
		ChannelID:  ev.ChannelID,
		AuthorID:   ev.AuthorID,
		AuthorName: ev.AuthorName,
		Role:       string(session.RoleUser),
		Content:    ev.Content,
	})

	if !e.policy.RequiresResponse(ev.Content) {
		return
	}

	if e.cfg.TypingIndicator {
		// Best effort; a failed indicator never blocks the reply.
		if err := e.transport.SendTyping(ctx, ev.ChannelID); err != nil {
			e.logger.Debug("typing indicator failed", "channel_id", ev.ChannelID, "error", err)
		}
	}

	raw, err := e.generate(ctx, ev.ChannelID)
	if err != nil {
		e.metrics.GenerationFailures.Inc()
		e.logger.Error("generation failed",
			"channel_id", ev.ChannelID,
			"error", err,
		)
		e.reply(ctx, ev.ChannelID, ApologyNotice, false)
		return
	}

	directives := policy.ExtractDirectives(raw)
	// Suppress wins over ping: a suppressed turn is never delivered,
	// hence never escalated.
	if directives.SuppressResponse {
		e.logger.Info("model suppressed response", "channel_id", ev.ChannelID)
		return
	}

	text := policy.Sanitize(directives.Cleaned)

	escalate := directives.PingSupport ||
		e.policy.EscalateByActivity(ev.AuthorID) ||
		e.policy.EscalateByContent(ev.Content)

	// Memory reflects the turn before its externally visible effect.
	e.store.RecordAssistantMessage(ev.ChannelID, text)
	e.archiveTurn(ctx, archive.Entry{
		ChannelID: ev.ChannelID,
		AuthorID:  e.cfg.BotUserID,
		Role:      string(session.RoleAssistant),
		Content:   text,
		Escalated: escalate,
	})

	if escalate {
		e.metrics.Escalations.Inc()
		e.logger.Info("escalating to support",
			"channel_id", ev.ChannelID,
			"author_id", ev.AuthorID,
			"by_directive", directives.PingSupport,
		)
	}

	e.reply(ctx, ev.ChannelID, e.policy.ComposeFinalReply(text, escalate), true)
}

func (e *Engine) generate(ctx context.Context, channelID string) (string, error) {
	ctx, span := e.tracer.Start(ctx, "engine.generate")
	defer span.End()

	history := e.store.HistoryWithPrimer(channelID, e.cfg.Primer)
	messages := make([]provider.Message, 0, len(history))
	for _, m := range history {
		messages = append(messages, provider.Message{
			Role:    provider.Role(m.Role),
			Content: m.Content,
		})
	}

	return e.generator.Generate(ctx, provider.Request{Messages: messages})
}

func (e *Engine) reply(ctx context.Context, channelID, text string, counted bool) {
	if err := e.transport.Reply(ctx, channelID, text); err != nil {
		e.logger.Error("reply delivery failed", "channel_id", channelID, "error", err)
		return
	}
	if counted {
		e.metrics.Replies.Inc()
	}
}

func (e *Engine) archiveTurn(ctx context.Context, entry archive.Entry) {
	if e.archive == nil {
		return
	}
	if err := e.archive.Record(ctx, entry); err != nil {
		e.logger.Warn("transcript archive write failed",
			"channel_id", entry.ChannelID,
			"error", err,
		)
	}
}

// trimContent reports the event content with surrounding whitespace removed.
func trimContent(ev channel.Event) string {
	return strings.TrimSpace(ev.Content)
}
