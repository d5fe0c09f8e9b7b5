// Package convert translates the persisted conversation log through an
// intermediate UI-message form into model-ready messages.
package convert

import (
	"encoding/json"
)

// Message roles used throughout the conversation log.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// StoredToolCall is a tool invocation recorded on an assistant message.
type StoredToolCall struct {
	Name       string          `json:"name"`
	Args       json.RawMessage `json:"args,omitempty"`
	ToolCallID string          `json:"toolCallId"`
}

// StoredToolResult is a tool output recorded on a later message, matched to
// its call by ToolCallID.
type StoredToolResult struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// StoredMessage is one entry of the persisted conversation log.
type StoredMessage struct {
	Role        string             `json:"role"`
	Content     string             `json:"content,omitempty"`
	ToolCalls   []StoredToolCall   `json:"toolCalls,omitempty"`
	ToolResults []StoredToolResult `json:"toolResults,omitempty"`
	// Timestamp is unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// UIMessage is the intermediate representation between the stored log and
// the model-ready format. It is rebuilt on every conversion and never
// persisted.
type UIMessage struct {
	ID    string
	Role  string
	Parts []Part
}

// Part is one piece of a UIMessage.
type Part interface {
	part()
}

// TextPart is plain message text.
type TextPart struct {
	Text string
}

// PendingToolPart is a tool call whose result has not arrived yet.
type PendingToolPart struct {
	Name       string
	Args       json.RawMessage
	ToolCallID string
}

// ToolUsePart is a tool call with its captured output. Errored marks results
// that signalled a tool-level failure.
type ToolUsePart struct {
	Name       string
	ToolCallID string
	Output     string
	Errored    bool
}

func (TextPart) part()        {}
func (PendingToolPart) part() {}
func (ToolUsePart) part()     {}
