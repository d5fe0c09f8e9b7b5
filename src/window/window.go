// Package window bounds the message list sent to the model and detects
// repetition loops in the conversation tail.
package window

import (
	"fmt"
	"strings"

	"github.com/taskpilot/taskpilot/src/convert"
)

const (
	// DefaultMaxMessages is the context bound applied when the caller does
	// not specify one.
	DefaultMaxMessages = 50
	// DefaultLoopWindow is the number of trailing messages compared when
	// looking for a repetition loop.
	DefaultLoopWindow = 6
	// headKeep is how many leading messages survive a trim. The opening of
	// a conversation anchors the model's understanding of the task.
	headKeep = 3
)

// Optimize bounds messages to maxMessages, keeping the first headKeep
// messages and the most recent remainder. Relative order is preserved and
// the function is idempotent once at or under the limit.
func Optimize(messages []convert.StoredMessage, maxMessages int) []convert.StoredMessage {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if len(messages) <= maxMessages {
		return messages
	}
	if maxMessages <= headKeep {
		return messages[len(messages)-maxMessages:]
	}

	out := make([]convert.StoredMessage, 0, maxMessages)
	out = append(out, messages[:headKeep]...)
	out = append(out, messages[len(messages)-(maxMessages-headKeep):]...)
	return out
}

// DetectLoop reports whether the last windowSize messages repeat the
// signature of the windowSize messages before them. Fewer than 2×windowSize
// messages can never loop.
func DetectLoop(messages []convert.StoredMessage, windowSize int) bool {
	if windowSize <= 0 {
		windowSize = DefaultLoopWindow
	}
	if len(messages) < 2*windowSize {
		return false
	}

	recent := signature(messages[len(messages)-windowSize:])
	previous := signature(messages[len(messages)-2*windowSize : len(messages)-windowSize])
	return recent == previous
}

// signature fingerprints a run of messages by role and tool-call count.
// Content is deliberately excluded: a loop is the model repeating the same
// shape of turn, not the same words.
func signature(messages []convert.StoredMessage) string {
	parts := make([]string, len(messages))
	for i, msg := range messages {
		parts[i] = fmt.Sprintf("%s-%d", msg.Role, len(msg.ToolCalls))
	}
	return strings.Join(parts, "|")
}

// Stats summarizes a conversation in a single pass.
type Stats struct {
	Total              int
	UserMessages       int
	AssistantMessages  int
	ToolMessages       int
	TotalToolCalls     int
	UniqueTools        []string
	ConversationLength int
	AvgMessageLength   float64
}

// Collect computes conversation statistics. Text length covers user and
// assistant messages only.
func Collect(messages []convert.StoredMessage) Stats {
	stats := Stats{Total: len(messages)}

	seen := map[string]bool{}
	textMessages := 0

	for _, msg := range messages {
		switch msg.Role {
		case convert.RoleUser:
			stats.UserMessages++
		case convert.RoleAssistant:
			stats.AssistantMessages++
		case convert.RoleTool:
			stats.ToolMessages++
		}

		stats.TotalToolCalls += len(msg.ToolCalls)
		for _, call := range msg.ToolCalls {
			if call.Name != "" && !seen[call.Name] {
				seen[call.Name] = true
				stats.UniqueTools = append(stats.UniqueTools, call.Name)
			}
		}

		if msg.Role == convert.RoleUser || msg.Role == convert.RoleAssistant {
			stats.ConversationLength += len(msg.Content)
			textMessages++
		}
	}

	if textMessages > 0 {
		stats.AvgMessageLength = float64(stats.ConversationLength) / float64(textMessages)
	}
	return stats
}
