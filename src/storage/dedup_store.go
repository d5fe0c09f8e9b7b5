package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/src/dedup"
)

// DedupStore is the sqlite-backed dedup.Store.
type DedupStore struct {
	db ExecQuerier
}

var _ dedup.Store = (*DedupStore)(nil)

// NewDedupStore creates a DedupStore over a database handle.
func NewDedupStore(db ExecQuerier) *DedupStore {
	return &DedupStore{db: db}
}

// Get returns the most recent record for a hash, or nil when none exists.
func (s *DedupStore) Get(ctx context.Context, requestHash string) (*dedup.Record, error) {
	query := `SELECT id, request_hash, identity, session_id, message_text, response_id, created_at, expires_at FROM dedup_records WHERE request_hash = ? ORDER BY created_at DESC LIMIT 1`
	var record dedup.Record
	err := sqlscan.Get(ctx, s.db, &record, query, requestHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Insert stores a record unconditionally.
func (s *DedupStore) Insert(ctx context.Context, record *dedup.Record) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	query := `INSERT INTO dedup_records (id, request_hash, identity, session_id, message_text, response_id, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.RequestHash,
		record.Identity,
		record.SessionID,
		record.MessageText,
		record.ResponseID,
		record.CreatedAt,
		record.ExpiresAt,
	)
	return err
}

// Update rewrites a record by id.
func (s *DedupStore) Update(ctx context.Context, record *dedup.Record) error {
	query := `UPDATE dedup_records SET response_id = ?, message_text = ?, expires_at = ? WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query, record.ResponseID, record.MessageText, record.ExpiresAt, record.ID)
	return err
}

// InsertIfAbsent inserts unless a live record holds the hash. The
// conditional insert runs as a single statement, so two overlapping callers
// cannot both win.
func (s *DedupStore) InsertIfAbsent(ctx context.Context, record *dedup.Record, now time.Time) (bool, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	query := `INSERT INTO dedup_records (id, request_hash, identity, session_id, message_text, response_id, created_at, expires_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM dedup_records WHERE request_hash = ? AND expires_at > ?)`
	result, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.RequestHash,
		record.Identity,
		record.SessionID,
		record.MessageText,
		record.ResponseID,
		record.CreatedAt,
		record.ExpiresAt,
		record.RequestHash,
		now,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteExpired physically removes records past their expiry.
func (s *DedupStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM dedup_records WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListByIdentity returns an identity's records created at or after since.
func (s *DedupStore) ListByIdentity(ctx context.Context, identity string, since time.Time) ([]dedup.Record, error) {
	query := `SELECT id, request_hash, identity, session_id, message_text, response_id, created_at, expires_at FROM dedup_records WHERE identity = ? AND created_at >= ? ORDER BY created_at`
	var records []dedup.Record
	if err := sqlscan.Select(ctx, s.db, &records, query, identity, since); err != nil {
		return nil, err
	}
	return records, nil
}
