package policy

import "strings"

// Directive markers the generation provider may embed in its output.
// They are an out-of-band side channel, never shown to users.
const (
	MarkerPingSupport = "[[PING_SUPPORT]]"
	MarkerNoResponse  = "[[NO_RESPONSE]]"
)

// Directives is the typed result of scanning generated text for markers.
type Directives struct {
	// PingSupport requests a human support escalation.
	PingSupport bool

	// SuppressResponse requests that no reply be delivered. Suppress
	// takes precedence over PingSupport: a suppressed turn is never
	// delivered, hence never escalated.
	SuppressResponse bool

	// Cleaned is the text with every marker occurrence removed, trimmed.
	Cleaned string
}

// ExtractDirectives scans generated text for directive markers, strips all
// occurrences, and surfaces the result as a typed value. Detection does not
// depend on marker position.
func ExtractDirectives(text string) Directives {
	d := Directives{
		PingSupport:      strings.Contains(text, MarkerPingSupport),
		SuppressResponse: strings.Contains(text, MarkerNoResponse),
	}

	cleaned := strings.ReplaceAll(text, MarkerPingSupport, "")
	cleaned = strings.ReplaceAll(cleaned, MarkerNoResponse, "")
	d.Cleaned = strings.TrimSpace(cleaned)
	return d
}
