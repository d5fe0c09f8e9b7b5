package storage

import "time"

// Session groups the conversations of one identity.
type Session struct {
	ID                    string          `json:"id" db:"id"`
	Identity              string          `json:"identity" db:"identity"`
	CurrentConversationID *string         `json:"current_conversation_id,omitempty" db:"current_conversation_id"`
	ConversationIDs       JSONStringArray `json:"conversation_ids" db:"conversation_ids"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at" db:"updated_at"`
}

// Conversation is one ongoing exchange of stored messages.
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Identity  string    `json:"identity" db:"identity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Message is one row of the persisted conversation log. Tool calls and
// results are stored as JSON columns.
type Message struct {
	ID             string          `json:"id" db:"id"`
	ConversationID string          `json:"conversation_id" db:"conversation_id"`
	Role           string          `json:"role" db:"role"`
	Content        string          `json:"content" db:"content"`
	ToolCalls      JSONToolCalls   `json:"tool_calls,omitempty" db:"tool_calls"`
	ToolResults    JSONToolResults `json:"tool_results,omitempty" db:"tool_results"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// ToolSummary is the persisted summary of one tool invocation, stored
// alongside the raw output.
type ToolSummary struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	ToolCallID     string    `json:"tool_call_id" db:"tool_call_id"`
	ToolName       string    `json:"tool_name" db:"tool_name"`
	Raw            string    `json:"raw" db:"raw"`
	Summary        *string   `json:"summary" db:"summary"`
	Status         string    `json:"status" db:"status"`
	Title          string    `json:"title" db:"title"`
	Metadata       JSONMap   `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// StateSnapshot is a serialized conversation tracker, one per session.
type StateSnapshot struct {
	SessionID string    `json:"session_id" db:"session_id"`
	State     string    `json:"state" db:"state"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
