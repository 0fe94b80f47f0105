// Package prompt holds the system primer sent ahead of every
// conversation history.
package prompt

import (
	"fmt"
	"os"
	"strings"
)

// DefaultPrimer is the built-in support-assistant primer. It teaches the
// model the escalation and suppression markers the engine looks for.
const DefaultPrimer = `You are a support assistant for a hosting community chat.
Answer questions about accounts, billing, servers, and game hosting concisely and politely.
Use the conversation history for context and do not invent details you are not sure about.
If the user's problem clearly needs a human (billing disputes, data loss, account compromise, anything you cannot resolve), include the marker [[PING_SUPPORT]] anywhere in your reply.
If the message needs no reply at all (small talk between other users, acknowledgements), respond with only [[NO_RESPONSE]].
Never use @everyone or @here.`

// Load returns the primer to use. A non-empty path overrides the
// built-in primer with the file's contents.
func Load(path string) (string, error) {
	if path == "" {
		return DefaultPrimer, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("prompt: read primer %s: %w", path, err)
	}
	primer := strings.TrimSpace(string(data))
	if primer == "" {
		return "", fmt.Errorf("prompt: primer file %s is empty", path)
	}
	return primer, nil
}
