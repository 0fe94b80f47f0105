// Package policy holds the response-gating and escalation decision logic:
// pure text classifiers plus the burst signal read from the activity tracker.
// Nothing here touches the network or suspends; every decision is
// deterministic given its inputs.
package policy

import (
	"strings"
	"time"

	"github.com/hostfolk/porter/internal/ratelimit"
)

// Default escalation burst settings, matching the shipped configuration.
const (
	DefaultBurstWindow    = 30 * time.Second
	DefaultBurstThreshold = 10
)

// DefaultQuestionStarters are the interrogative lead words that mark a
// message as needing a response when followed by a space.
var DefaultQuestionStarters = []string{
	"what", "how", "why", "when", "where", "who", "which",
	"can", "could", "would", "should",
	"is", "are", "am", "do", "does", "did",
	"help", "what's",
}

// DefaultHelpPhrases are substrings that indicate the user needs help.
var DefaultHelpPhrases = []string{
	"i need help", "help me", "having trouble", "not working",
	"can't figure out", "having an issue", "having a problem",
	"error", "broken", "stuck", "assistance", "support",
	"how do i", "how to",
}

// DefaultUrgentKeywords are substrings that escalate a conversation to
// human support regardless of message frequency.
var DefaultUrgentKeywords = []string{
	"urgent", "asap", "emergency", "immediately",
	"data loss", "lost all", "outage", "server is down", "cannot access",
	"refund", "charged twice",
}

// Config holds the policy knobs.
type Config struct {
	// SupportRoleID is the chat role mentioned when escalating.
	SupportRoleID string

	// BotUserID makes a direct bot mention count as requiring a response.
	BotUserID string

	// BurstWindow and BurstThreshold define the escalation burst signal:
	// BurstThreshold messages within BurstWindow pings support.
	BurstWindow    time.Duration
	BurstThreshold int

	// QuestionStarters, HelpPhrases, and UrgentKeywords override the
	// defaults when non-empty. All matching is case-insensitive.
	QuestionStarters []string
	HelpPhrases      []string
	UrgentKeywords   []string
}

func (c *Config) defaults() {
	if c.BurstWindow <= 0 {
		c.BurstWindow = DefaultBurstWindow
	}
	if c.BurstThreshold <= 0 {
		c.BurstThreshold = DefaultBurstThreshold
	}
	if len(c.QuestionStarters) == 0 {
		c.QuestionStarters = DefaultQuestionStarters
	}
	if len(c.HelpPhrases) == 0 {
		c.HelpPhrases = DefaultHelpPhrases
	}
	if len(c.UrgentKeywords) == 0 {
		c.UrgentKeywords = DefaultUrgentKeywords
	}
}

// Policy evaluates gating and escalation decisions. It carries no state of
// its own beyond configuration; the activity signal is read from the tracker.
type Policy struct {
	cfg         Config
	selfMention string
	tracker     *ratelimit.Tracker
}

// New creates a Policy reading burst activity from the given tracker.
func New(cfg Config, tracker *ratelimit.Tracker) *Policy {
	cfg.defaults()
	p := &Policy{cfg: cfg, tracker: tracker}
	if cfg.BotUserID != "" {
		p.selfMention = "<@" + cfg.BotUserID + ">"
	}
	return p
}

// RequiresResponse reports whether the message warrants a generated reply.
// True when the trimmed, case-folded content ends with a question mark,
// mentions the bot directly, starts with an interrogative lead word
// followed by a space, or contains a help-seeking phrase anywhere.
func (p *Policy) RequiresResponse(content string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(content))
	if trimmed == "" {
		return false
	}

	if strings.HasSuffix(trimmed, "?") {
		return true
	}

	if p.selfMention != "" && strings.Contains(content, p.selfMention) {
		return true
	}

	for _, starter := range p.cfg.QuestionStarters {
		if strings.HasPrefix(trimmed, starter+" ") {
			return true
		}
	}

	for _, phrase := range p.cfg.HelpPhrases {
		if strings.Contains(trimmed, phrase) {
			return true
		}
	}

	return false
}

// EscalateByActivity reports whether the user's recent message burst has
// reached the support threshold.
func (p *Policy) EscalateByActivity(userID string) bool {
	return p.tracker.BurstCount(userID, p.cfg.BurstWindow) >= p.cfg.BurstThreshold
}

// EscalateByContent reports whether the message contains an urgent keyword.
func (p *Policy) EscalateByContent(content string) bool {
	folded := strings.ToLower(content)
	for _, kw := range p.cfg.UrgentKeywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

// ComposeFinalReply prepends the support escalation mention when escalate
// is set; otherwise the text is returned unchanged.
func (p *Policy) ComposeFinalReply(text string, escalate bool) string {
	if !escalate {
		return text
	}
	return "<@&" + p.cfg.SupportRoleID + "> (auto-ping: this conversation may need human support)\n\n" + text
}
