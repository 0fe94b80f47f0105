package policy

import (
	"regexp"
	"strings"
)

var (
	everyonePattern = regexp.MustCompile(`(?i)@everyone`)
	herePattern     = regexp.MustCompile(`(?i)@here`)
)

// Sanitize neutralizes broadcast mentions and normalizes a trailing code
// fence. Runs after directive extraction, before the reply is composed.
func Sanitize(text string) string {
	out := everyonePattern.ReplaceAllString(text, "everyone")
	out = herePattern.ReplaceAllString(out, "here")

	// A closing fence must be followed by a line break or chat clients
	// swallow the text that renderers append after the message.
	if strings.HasSuffix(out, "```") {
		out += "\n"
	}
	return out
}
