package session

import (
	"fmt"
	"strings"
)

// maxRenderedContent caps how much of each turn a history dump shows.
const maxRenderedContent = 100

// FormatHistory renders the channel's conversation for the history command.
// Each turn shows a timestamp, a role label, and the content truncated with
// an ellipsis marker.
func (s *Store) FormatHistory(channelID string) string {
	history := s.History(channelID)
	if len(history) == 0 {
		return "No conversation history found."
	}

	lines := make([]string, 0, len(history))
	for _, msg := range history {
		role := "Assistant"
		if msg.Role == RoleUser {
			role = "User"
		}
		lines = append(lines, fmt.Sprintf("[%s] **%s**: %s",
			msg.Timestamp.Format("15:04:05"), role, truncate(msg.Content, maxRenderedContent)))
	}
	return strings.Join(lines, "\n\n")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
