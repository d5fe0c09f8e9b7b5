package storage

import (
	"context"
	"time"

	"github.com/taskpilot/taskpilot/src/convert"
)

// Log adapts the messages table to the orchestrator's view of the
// conversation log.
type Log struct {
	db ExecQuerier
}

// NewLog creates a Log over a database handle.
func NewLog(db ExecQuerier) *Log {
	return &Log{db: db}
}

// Messages loads the conversation log as stored messages in order.
func (l *Log) Messages(ctx context.Context, conversationID string) ([]convert.StoredMessage, error) {
	rows, err := GetMessagesByConversationID(ctx, l.db, conversationID)
	if err != nil {
		return nil, err
	}

	out := make([]convert.StoredMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, convert.StoredMessage{
			Role:        row.Role,
			Content:     row.Content,
			ToolCalls:   row.ToolCalls,
			ToolResults: row.ToolResults,
			Timestamp:   row.CreatedAt.UnixMilli(),
		})
	}
	return out, nil
}

// Append persists one stored message at the end of the conversation log.
func (l *Log) Append(ctx context.Context, conversationID string, msg convert.StoredMessage) error {
	row := &Message{
		ConversationID: conversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		ToolCalls:      msg.ToolCalls,
		ToolResults:    msg.ToolResults,
	}
	if msg.Timestamp > 0 {
		row.CreatedAt = time.UnixMilli(msg.Timestamp)
	}
	return CreateMessage(ctx, l.db, row)
}
