package dedup

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func testDeduplicator() (*Deduplicator, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	d := New(Config{})
	d.Now = clock.Now
	return d, clock
}

func TestStoreThenCheck(t *testing.T) {
	ctx := context.Background()
	d, clock := testDeduplicator()

	record, err := d.Store(ctx, "h1", "alice", "s1", "what's due today?", "")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(DefaultTTL), record.ExpiresAt)

	found, err := d.Check(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "alice", found.Identity)
}

func TestCheckExpiry(t *testing.T) {
	ctx := context.Background()
	d, clock := testDeduplicator()

	_, err := d.Store(ctx, "h1", "alice", "", "hello", "")
	require.NoError(t, err)

	clock.Advance(5*time.Minute - time.Second)
	found, err := d.Check(ctx, "h1")
	require.NoError(t, err)
	assert.NotNil(t, found, "still inside the window")

	clock.Advance(2 * time.Second)
	found, err = d.Check(ctx, "h1")
	require.NoError(t, err)
	assert.Nil(t, found, "expired records read as not-found")
}

func TestCheckUnknownHash(t *testing.T) {
	d, _ := testDeduplicator()
	found, err := d.Check(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestMessageTextTruncated(t *testing.T) {
	ctx := context.Background()
	d, _ := testDeduplicator()

	record, err := d.Store(ctx, "h1", "alice", "", strings.Repeat("a", 500), "")
	require.NoError(t, err)
	assert.Len(t, record.MessageText, 200)
}

func TestReserve(t *testing.T) {
	ctx := context.Background()
	d, clock := testDeduplicator()

	first, ok, err := d.Reserve(ctx, "h1", "alice", "s1", "hello", "")
	require.NoError(t, err)
	assert.True(t, ok, "first reserve wins")
	require.NotNil(t, first)

	second, ok, err := d.Reserve(ctx, "h1", "alice", "s1", "hello", "")
	require.NoError(t, err)
	assert.False(t, ok, "second reserve inside the window is a duplicate")
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	clock.Advance(6 * time.Minute)
	_, ok, err = d.Reserve(ctx, "h1", "alice", "s1", "hello", "")
	require.NoError(t, err)
	assert.True(t, ok, "expired record does not block a new reserve")
}

func TestSetResponse(t *testing.T) {
	ctx := context.Background()
	d, _ := testDeduplicator()

	record, ok, err := d.Reserve(ctx, "h1", "alice", "", "hello", "")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, d.SetResponse(ctx, record, "resp-9"))

	found, err := d.Check(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "resp-9", found.ResponseID)
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	d, clock := testDeduplicator()

	_, err := d.Store(ctx, "h1", "alice", "", "one", "")
	require.NoError(t, err)
	clock.Advance(3 * time.Minute)
	_, err = d.Store(ctx, "h2", "alice", "", "two", "")
	require.NoError(t, err)

	clock.Advance(3 * time.Minute) // h1 expired, h2 still live
	removed, err := d.Cleanup(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	found, err := d.Check(ctx, "h2")
	require.NoError(t, err)
	assert.NotNil(t, found)
}

func TestCollectStats(t *testing.T) {
	ctx := context.Background()
	d, clock := testDeduplicator()

	_, err := d.Store(ctx, "h1", "alice", "s1", "one", "")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = d.Store(ctx, "h1", "alice", "s1", "one again", "")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = d.Store(ctx, "h2", "alice", "s2", "two", "")
	require.NoError(t, err)
	_, err = d.Store(ctx, "h3", "bob", "s3", "other identity", "")
	require.NoError(t, err)

	stats, err := d.CollectStats(ctx, "alice", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRequests)
	assert.Equal(t, 2, stats.UniqueRequests)
	assert.Equal(t, 1, stats.DuplicateRequests)
	assert.Equal(t, 2, stats.SessionsCount)
	assert.True(t, stats.Newest.After(stats.Oldest))
}
