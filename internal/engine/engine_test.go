package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hostfolk/porter/internal/admin"
	"github.com/hostfolk/porter/internal/channel"
	"github.com/hostfolk/porter/internal/policy"
	"github.com/hostfolk/porter/internal/provider"
	"github.com/hostfolk/porter/internal/ratelimit"
	"github.com/hostfolk/porter/internal/session"
)

// stubGenerator returns a scripted response or error and records requests.
type stubGenerator struct {
	text     string
	err      error
	requests []provider.Request
}

func (s *stubGenerator) Generate(_ context.Context, req provider.Request) (string, error) {
	s.requests = append(s.requests, req)
	return s.text, s.err
}

func (s *stubGenerator) ModelName() string { return "stub" }

type fixture struct {
	engine    *Engine
	store     *session.Store
	tracker   *ratelimit.Tracker
	generator *stubGenerator
	transport *channel.MockTransport
	metrics   *admin.Metrics
}

func newFixture(t *testing.T, cfg Config, opts ...Option) *fixture {
	t.Helper()

	store := session.NewStore(session.Config{}, nil)
	tracker := ratelimit.NewTracker(ratelimit.Config{})
	pol := policy.New(policy.Config{
		SupportRoleID: "ROLE",
		BotUserID:     cfg.BotUserID,
	}, tracker)
	gen := &stubGenerator{text: "generated answer"}
	transport := channel.NewMockTransport()
	metrics := admin.NewMetrics()

	return &fixture{
		engine:    New(cfg, store, tracker, pol, gen, transport, metrics, opts...),
		store:     store,
		tracker:   tracker,
		generator: gen,
		transport: transport,
		metrics:   metrics,
	}
}

func event(channelID, authorID, content string) channel.Event {
	return channel.Event{
		ID:         "ev",
		ChannelID:  channelID,
		AuthorID:   authorID,
		AuthorName: authorID,
		Content:    content,
	}
}

func TestIgnoresBotMessages(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{BotUserID: "BOT"})
	ctx := context.Background()

	ev := event("C1", "U1", "Is this broken?")
	ev.IsBot = true
	f.engine.HandleMessage(ctx, ev)
	f.engine.HandleMessage(ctx, event("C1", "BOT", "Is this broken?"))

	if n := len(f.transport.Replies()); n != 0 {
		t.Errorf("bot messages produced %d replies", n)
	}
	if f.store.Len() != 0 {
		t.Error("bot messages were recorded")
	}
}

func TestQuestionGetsReply(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{BotUserID: "BOT"})
	f.engine.HandleMessage(context.Background(), event("C1", "U1", "Is this broken?"))

	replies := f.transport.Replies()
	if len(replies) != 1 || replies[0].Content != "generated answer" {
		t.Fatalf("replies = %+v", replies)
	}

	history := f.store.History("C1")
	if len(history) != 2 {
		t.Fatalf("history = %d turns, want user + assistant", len(history))
	}
	if history[1].Role != session.RoleAssistant || history[1].Content != "generated answer" {
		t.Errorf("assistant turn = %+v", history[1])
	}
}

func TestNonQuestionRecordedButUnanswered(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{BotUserID: "BOT"})
	f.engine.HandleMessage(context.Background(), event("C1", "U1", "thanks!"))

	if n := len(f.transport.Replies()); n != 0 {
		t.Errorf("gated message produced %d replies", n)
	}
	if history := f.store.History("C1"); len(history) != 1 {
		t.Errorf("history = %d turns, want the user turn alone", len(history))
	}
	if n := len(f.generator.requests); n != 0 {
		t.Errorf("generator called %d times for a gated message", n)
	}
}

func TestSixteenthMessageThrottled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{BotUserID: "BOT"})
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		f.engine.HandleMessage(ctx, event("C1", "U1", "just chatting along"))
	}
	if n := len(f.transport.Replies()); n != 0 {
		t.Fatalf("throttle notice appeared early: %d replies", n)
	}

	f.engine.HandleMessage(ctx, event("C1", "U1", "still chatting"))

	replies := f.transport.Replies()
	if len(replies) != 1 || replies[0].Content != ThrottleNotice {
		t.Fatalf("replies = %+v, want the throttle notice", replies)
	}
	if history := f.store.History("C1"); len(history) != 15 {
		t.Errorf("throttled message leaked into memory: %d turns", len(history))
	}
}

func TestThrottledUserCanStillRunCommands(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{BotUserID: "BOT"})
	ctx := context.Background()

	for i := 0; i < 16; i++ {
		f.engine.HandleMessage(ctx, event("C1", "U1", "filler message"))
	}

	f.engine.HandleMessage(ctx, event("C1", "U1", "!history"))

	replies := f.transport.Replies()
	last := replies[len(replies)-1]
	if last.Content == ThrottleNotice {
		t.Error("command was throttled")
	}
	if !strings.Contains(last.Content, "filler message") {
		t.Errorf("history dump = %q", last.Content)
	}
}

func TestSuppressDirective(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{BotUserID: "BOT"})
	f.generator.text = "[[NO_RESPONSE]]"
	f.engine.HandleMessage(context.Background(), event("C1", "U1", "Is anyone around?"))

	if n := len(f.transport.Replies()); n != 0 {
		t.Errorf("suppressed turn produced %d replies", n)
	}
	if history := f.store.History("C1"); len(history) != 1 {
		t.Errorf("suppressed turn recorded: %d turns", len(history))
	}
}

func TestSuppressWinsOverPing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{BotUserID: "BOT"})
	f.generator.text = "[[NO_RESPONSE]] [[PING_SUPPORT]]"
	f.engine.HandleMessage(context.Background(), event("C1", "U1", "Is anyone around?"))

	if n := len(f.transport.Replies()); n != 0 {
		t.Errorf("suppressed turn produced %d replies", n)
	}
}

func TestPingDirectiveEscalates(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{BotUserID: "BOT"})
	f.generator.text = "I'll get a human. [[PING_SUPPORT]]"
	f.engine.HandleMessage(context.Background(), event("C1", "U1", "Is my server gone?"))

	replies := f.transport.Replies()
	if len(replies) != 1 {
		t.Fatalf("replies = %+v", replies)
	}
	if !strings.HasPrefix(replies[0].Content, "<@&ROLE>") {
		t.Errorf("reply not escalated: %q", replies[0].Content)
	}
	if !strings.Contains(replies[0].Content, "I'll get a human.") {
		t.Errorf("cleaned text missing: %q", replies[0].Content)
	}
	if strings.Contains(replies[0].Content, "[[PING_SUPPORT]]") {
		t.Errorf("marker leaked: %q", replies[0].Content)
	}

	// The recorded assistant turn stays free of the escalation mention.
	history := f.store.History("C1")
	if got := history[len(history)-1].Content; got != "I'll get a human." {
		t.Errorf("recorded assistant turn = %q", got)
	}
}

func TestUrgentContentEscalates(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{BotUserID: "BOT"})
	f.engine.HandleMessage(context.Background(), event("C1", "U1", "Is my data loss permanent?"))

	replies := f.transport.Replies()
	if len(replies) != 1 || !strings.HasPrefix(replies[0].Content, "<@&ROLE>") {
		t.Fatalf("replies = %+v, want escalated reply", replies)
	}
}

func TestBurstEscalates(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{BotUserID: "BOT"})
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		f.engine.HandleMessage(ctx, event("C1", "U1", "quick filler chatter"))
	}
	f.engine.HandleMessage(ctx, event("C1", "U1", "Is it fixed yet?"))

	replies := f.transport.Replies()
	if len(replies) != 1 || !strings.HasPrefix(replies[0].Content, "<@&ROLE>") {
		t.Fatalf("replies = %+v, want escalated reply after burst", replies)
	}
}

func TestGenerationFailureApology(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{BotUserID: "BOT"})
	f.generator.err = errors.New("backend down")
	f.engine.HandleMessage(context.Background(), event("C1", "U1", "Is this broken?"))

	replies := f.transport.Replies()
	if len(replies) != 1 || replies[0].Content != ApologyNotice {
		t.Fatalf("replies = %+v, want apology", replies)
	}
	if history := f.store.History("C1"); len(history) != 1 {
		t.Errorf("failed turn recorded: %d turns", len(history))
	}
}

func TestSanitizeApplied(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{BotUserID: "BOT"})
	f.generator.text = "hey @everyone check this"
	f.engine.HandleMessage(context.Background(), event("C1", "U1", "what happened?"))

	replies := f.transport.Replies()
	if len(replies) != 1 {
		t.Fatal("no reply")
	}
	if strings.Contains(replies[0].Content, "@everyone") {
		t.Errorf("broadcast mention leaked: %q", replies[0].Content)
	}
	if replies[0].Content != "hey everyone check this" {
		t.Errorf("reply = %q", replies[0].Content)
	}
}

func TestPrimerPrecedesHistory(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{BotUserID: "BOT", Primer: "be helpful"})
	f.engine.HandleMessage(context.Background(), event("C1", "U1", "what is this?"))

	if len(f.generator.requests) != 1 {
		t.Fatalf("generator called %d times", len(f.generator.requests))
	}
	msgs := f.generator.requests[0].Messages
	if len(msgs) != 2 || msgs[0].Role != provider.RoleSystem || msgs[0].Content != "be helpful" {
		t.Errorf("request messages = %+v", msgs)
	}
	if msgs[1].Role != provider.RoleUser || msgs[1].Content != "what is this?" {
		t.Errorf("user turn = %+v", msgs[1])
	}
}

func TestAssistantRecordedBeforeReply(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{BotUserID: "BOT"})

	var historyAtReply []session.Message
	f.transport.ReplyFunc = func(context.Context, string, string) error {
		historyAtReply = f.store.History("C1")
		return nil
	}

	f.engine.HandleMessage(context.Background(), event("C1", "U1", "Is this broken?"))

	if len(historyAtReply) != 2 || historyAtReply[1].Role != session.RoleAssistant {
		t.Errorf("history at reply time = %+v", historyAtReply)
	}
}

func TestTypingIndicator(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{BotUserID: "BOT", TypingIndicator: true})
	f.engine.HandleMessage(context.Background(), event("C1", "U1", "Is this on?"))

	if got := f.transport.TypingChannels(); len(got) != 1 || got[0] != "C1" {
		t.Errorf("typing channels = %v", got)
	}

	quiet := newFixture(t, Config{BotUserID: "BOT"})
	quiet.engine.HandleMessage(context.Background(), event("C1", "U1", "Is this on?"))
	if got := quiet.transport.TypingChannels(); len(got) != 0 {
		t.Errorf("typing sent despite disabled indicator: %v", got)
	}
}
