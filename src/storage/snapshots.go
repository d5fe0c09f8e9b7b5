package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/src/summarize"
)

// SnapshotStore adapts the state_snapshots table to the orchestrator.
type SnapshotStore struct {
	db ExecQuerier
}

// NewSnapshotStore creates a SnapshotStore over a database handle.
func NewSnapshotStore(db ExecQuerier) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	return LoadSnapshot(ctx, s.db, sessionID)
}

func (s *SnapshotStore) Save(ctx context.Context, sessionID string, state []byte) error {
	return SaveSnapshot(ctx, s.db, sessionID, state)
}

// SummaryStore adapts the tool_summaries table to the orchestrator.
type SummaryStore struct {
	db ExecQuerier
}

// NewSummaryStore creates a SummaryStore over a database handle.
func NewSummaryStore(db ExecQuerier) *SummaryStore {
	return &SummaryStore{db: db}
}

func (s *SummaryStore) SaveSummary(ctx context.Context, conversationID, toolCallID, toolName string, summary summarize.ToolResultSummary) error {
	return SaveToolSummary(ctx, s.db, conversationID, toolCallID, toolName, summary)
}

// SaveSnapshot upserts the serialized tracker state for a session.
func SaveSnapshot(ctx context.Context, db Execer, sessionID string, state []byte) error {
	query := `INSERT INTO state_snapshots (session_id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`
	_, err := db.ExecContext(ctx, query, sessionID, string(state), time.Now())
	return err
}

// LoadSnapshot returns the serialized tracker state for a session, or nil
// when none has been saved.
func LoadSnapshot(ctx context.Context, db sqlscan.Querier, sessionID string) ([]byte, error) {
	query := `SELECT session_id, state, updated_at FROM state_snapshots WHERE session_id = ?`
	var snapshot StateSnapshot
	err := sqlscan.Get(ctx, db, &snapshot, query, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(snapshot.State), nil
}

// SaveToolSummary persists a formatted tool summary alongside its raw output.
func SaveToolSummary(ctx context.Context, db Execer, conversationID, toolCallID, toolName string, summary summarize.ToolResultSummary) error {
	row := &ToolSummary{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		ToolCallID:     toolCallID,
		ToolName:       toolName,
		Raw:            string(summarize.EncodeRaw(summary.Raw)),
		Summary:        summary.Summary,
		Status:         string(summary.Status),
		Title:          summary.Title,
		Metadata:       JSONMap(summary.Metadata),
		CreatedAt:      time.Now(),
	}

	query := `INSERT INTO tool_summaries (id, conversation_id, tool_call_id, tool_name, raw, summary, status, title, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		row.ID,
		row.ConversationID,
		row.ToolCallID,
		row.ToolName,
		row.Raw,
		row.Summary,
		row.Status,
		row.Title,
		row.Metadata,
		row.CreatedAt,
	)
	return err
}
