// Package dedup is a time-windowed idempotency guard for inbound requests,
// keyed by a caller-supplied request hash.
package dedup

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultTTL is the window during which an identical request hash is
	// treated as a duplicate.
	DefaultTTL = 5 * time.Minute
	// maxMessageText caps the stored message excerpt.
	maxMessageText = 200
)

// Record is what gets persisted per inbound request.
type Record struct {
	ID          string    `json:"id" db:"id"`
	RequestHash string    `json:"requestHash" db:"request_hash"`
	Identity    string    `json:"identity" db:"identity"`
	SessionID   string    `json:"sessionId,omitempty" db:"session_id"`
	MessageText string    `json:"messageText" db:"message_text"`
	ResponseID  string    `json:"responseId,omitempty" db:"response_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	ExpiresAt   time.Time `json:"expiresAt" db:"expires_at"`
}

// Expired reports whether the record has logically expired at now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store is the durable backing for dedup records. A hash may have several
// records over time; Get returns the most recent. InsertIfAbsent must be
// atomic with respect to concurrent callers: exactly one of two overlapping
// inserts for the same live hash wins.
type Store interface {
	Get(ctx context.Context, requestHash string) (*Record, error)
	Insert(ctx context.Context, record *Record) error
	Update(ctx context.Context, record *Record) error
	InsertIfAbsent(ctx context.Context, record *Record, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	ListByIdentity(ctx context.Context, identity string, since time.Time) ([]Record, error)
}

// Deduplicator guards the request pipeline. It does no hashing itself; the
// caller supplies a hash that is stable for semantically identical requests.
type Deduplicator struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Config holds configuration for creating a Deduplicator.
type Config struct {
	Store  Store
	TTL    time.Duration
	Logger *slog.Logger
}

// New creates a Deduplicator. A nil store gets an in-memory one; a zero TTL
// gets DefaultTTL.
func New(config Config) *Deduplicator {
	if config.Store == nil {
		config.Store = NewMemoryStore()
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Deduplicator{
		store:  config.Store,
		ttl:    config.TTL,
		logger: config.Logger,
	}
}

func (d *Deduplicator) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deduplicator) newRecord(requestHash, identity, sessionID, messageText, responseID string) *Record {
	now := d.now()
	return &Record{
		RequestHash: requestHash,
		Identity:    identity,
		SessionID:   sessionID,
		MessageText: truncate(messageText, maxMessageText),
		ResponseID:  responseID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(d.ttl),
	}
}

// Store records an inbound request unconditionally.
func (d *Deduplicator) Store(ctx context.Context, requestHash, identity, sessionID, messageText, responseID string) (*Record, error) {
	record := d.newRecord(requestHash, identity, sessionID, messageText, responseID)
	if err := d.store.Insert(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Check returns the live record for a hash, or nil when none exists or the
// existing record has expired. Both cases mean "not a duplicate"; expiry is
// evaluated lazily here, physical removal is Cleanup's job.
func (d *Deduplicator) Check(ctx context.Context, requestHash string) (*Record, error) {
	record, err := d.store.Get(ctx, requestHash)
	if err != nil {
		return nil, err
	}
	if record == nil || record.Expired(d.now()) {
		return nil, nil
	}
	return record, nil
}

// Reserve atomically claims a request hash. It returns (record, true) when
// the claim succeeded and the request should proceed, or (existing, false)
// when a live record already holds the hash. Two overlapping requests for
// the same hash cannot both win.
func (d *Deduplicator) Reserve(ctx context.Context, requestHash, identity, sessionID, messageText, responseID string) (*Record, bool, error) {
	record := d.newRecord(requestHash, identity, sessionID, messageText, responseID)

	inserted, err := d.store.InsertIfAbsent(ctx, record, record.CreatedAt)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		return record, true, nil
	}

	existing, err := d.store.Get(ctx, requestHash)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// SetResponse attaches the response id to an already-stored record so a
// later duplicate can be answered with the original response.
func (d *Deduplicator) SetResponse(ctx context.Context, record *Record, responseID string) error {
	record.ResponseID = responseID
	return d.store.Update(ctx, record)
}

// Cleanup physically removes expired records. Intended to run periodically,
// independent of Check.
func (d *Deduplicator) Cleanup(ctx context.Context) (int64, error) {
	count, err := d.store.DeleteExpired(ctx, d.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		d.logger.Debug("removed expired dedup records", "count", count)
	}
	return count, nil
}

// Stats summarizes an identity's requests within a window.
type Stats struct {
	TotalRequests     int
	UniqueRequests    int
	DuplicateRequests int
	SessionsCount     int
	Oldest            time.Time
	Newest            time.Time
}

// CollectStats scans records for the identity created within the window.
func (d *Deduplicator) CollectStats(ctx context.Context, identity string, window time.Duration) (Stats, error) {
	if window <= 0 {
		window = 24 * time.Hour
	}
	since := d.now().Add(-window)

	records, err := d.store.ListByIdentity(ctx, identity, since)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{TotalRequests: len(records)}
	hashes := map[string]bool{}
	sessions := map[string]bool{}

	for _, record := range records {
		hashes[record.RequestHash] = true
		if record.SessionID != "" {
			sessions[record.SessionID] = true
		}
		if stats.Oldest.IsZero() || record.CreatedAt.Before(stats.Oldest) {
			stats.Oldest = record.CreatedAt
		}
		if record.CreatedAt.After(stats.Newest) {
			stats.Newest = record.CreatedAt
		}
	}

	stats.UniqueRequests = len(hashes)
	stats.DuplicateRequests = stats.TotalRequests - stats.UniqueRequests
	stats.SessionsCount = len(sessions)
	return stats, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
