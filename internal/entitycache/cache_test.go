package entitycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/catalog-resolver/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeLoader serves rows from memory and counts loads per type.
type fakeLoader struct {
	mu    sync.Mutex
	rows  map[domain.EntityType][]domain.CanonicalEntity
	loads map[domain.EntityType]int
	err   error
	delay time.Duration
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		rows:  make(map[domain.EntityType][]domain.CanonicalEntity),
		loads: make(map[domain.EntityType]int),
	}
}

func (l *fakeLoader) ListEntities(_ context.Context, t domain.EntityType) ([]domain.CanonicalEntity, error) {
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads[t]++
	if l.err != nil {
		return nil, l.err
	}
	return append([]domain.CanonicalEntity(nil), l.rows[t]...), nil
}

func (l *fakeLoader) add(t domain.EntityType, id int64, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows[t] = append(l.rows[t], domain.CanonicalEntity{ID: id, Type: t, Name: name})
}

func (l *fakeLoader) loadCount(t domain.EntityType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[t]
}

func TestCache_GetBuildsNormalizedSnapshot(t *testing.T) {
	loader := newFakeLoader()
	loader.add(domain.EntityBinder, 1, "Riviere & Son (of Bath)")
	loader.add(domain.EntityBinder, 2, "Zaehnsdorf")

	c := New(loader, Options{Clock: newFakeClock()}, nil)

	snap, err := c.Get(context.Background(), domain.EntityBinder)
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len())
	assert.Equal(t, "riviere", snap.Entries[0].Normalized)
	assert.Equal(t, "Riviere & Son (of Bath)", snap.Entries[0].Name)
	assert.Equal(t, uint64(1), snap.Generation)

	e, ok := snap.Lookup("RIVIERE")
	require.True(t, ok)
	assert.Equal(t, int64(1), e.ID)

	_, ok = snap.Lookup("")
	assert.False(t, ok)
}

func TestCache_ServesSnapshotWithinTTL(t *testing.T) {
	loader := newFakeLoader()
	loader.add(domain.EntityPublisher, 1, "Macmillan")
	clock := newFakeClock()
	c := New(loader, Options{Clock: clock, TTL: time.Minute}, nil)
	ctx := context.Background()

	first, err := c.Get(ctx, domain.EntityPublisher)
	require.NoError(t, err)

	loader.add(domain.EntityPublisher, 2, "Harper & Brothers")
	clock.Advance(59 * time.Second)

	second, err := c.Get(ctx, domain.EntityPublisher)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, second.Len(), "store change hidden until expiry")
	assert.Equal(t, 1, loader.loadCount(domain.EntityPublisher))

	clock.Advance(time.Second)

	third, err := c.Get(ctx, domain.EntityPublisher)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Len())
	assert.Equal(t, uint64(2), third.Generation)
	assert.Equal(t, 2, loader.loadCount(domain.EntityPublisher))
}

func TestCache_DefaultTTL(t *testing.T) {
	c := New(newFakeLoader(), Options{}, nil)
	assert.Equal(t, 300*time.Second, c.TTL())
}

func TestCache_InvalidateIsolatesTypes(t *testing.T) {
	loader := newFakeLoader()
	loader.add(domain.EntityPublisher, 1, "Macmillan")
	loader.add(domain.EntityAuthor, 1, "Charles Dickens")
	c := New(loader, Options{Clock: newFakeClock()}, nil)
	ctx := context.Background()

	pubs, err := c.Get(ctx, domain.EntityPublisher)
	require.NoError(t, err)
	authors, err := c.Get(ctx, domain.EntityAuthor)
	require.NoError(t, err)

	loader.add(domain.EntityPublisher, 2, "Chatto & Windus")
	loader.add(domain.EntityAuthor, 2, "Wilkie Collins")

	c.Invalidate(domain.EntityPublisher)

	pubsAfter, err := c.Get(ctx, domain.EntityPublisher)
	require.NoError(t, err)
	assert.Equal(t, 2, pubsAfter.Len())
	assert.Greater(t, pubsAfter.Generation, pubs.Generation)

	authorsAfter, err := c.Get(ctx, domain.EntityAuthor)
	require.NoError(t, err)
	assert.Same(t, authors, authorsAfter)
	assert.Equal(t, 1, authorsAfter.Len())
	assert.Equal(t, 1, loader.loadCount(domain.EntityAuthor))
}

func TestCache_InvalidateAll(t *testing.T) {
	loader := newFakeLoader()
	c := New(loader, Options{Clock: newFakeClock()}, nil)
	ctx := context.Background()

	for _, typ := range domain.EntityTypes() {
		_, err := c.Get(ctx, typ)
		require.NoError(t, err)
	}
	c.InvalidateAll()
	for _, typ := range domain.EntityTypes() {
		_, err := c.Get(ctx, typ)
		require.NoError(t, err)
		assert.Equal(t, 2, loader.loadCount(typ))
	}
}

func TestCache_DuplicateNormalizedNamesFirstWins(t *testing.T) {
	loader := newFakeLoader()
	loader.add(domain.EntityPublisher, 3, "Macmillan & Co.")
	loader.add(domain.EntityPublisher, 7, "Macmillan Ltd")
	c := New(loader, Options{Clock: newFakeClock()}, nil)

	snap, err := c.Get(context.Background(), domain.EntityPublisher)
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len())

	for range 10 {
		e, ok := snap.Lookup("macmillan")
		require.True(t, ok)
		assert.Equal(t, int64(3), e.ID)
	}
}

func TestCache_LoadErrorIsReturnedAndNotCached(t *testing.T) {
	loader := newFakeLoader()
	loader.err = errors.New("database is locked")
	c := New(loader, Options{Clock: newFakeClock()}, nil)
	ctx := context.Background()

	_, err := c.Get(ctx, domain.EntityAuthor)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")

	loader.mu.Lock()
	loader.err = nil
	loader.mu.Unlock()

	snap, err := c.Get(ctx, domain.EntityAuthor)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Len())
}

func TestCache_UnknownType(t *testing.T) {
	c := New(newFakeLoader(), Options{}, nil)
	_, err := c.Get(context.Background(), domain.EntityType("printer"))
	assert.Error(t, err)

	// No panic for unknown types.
	c.Invalidate(domain.EntityType("printer"))
}

func TestCache_ConcurrentGetBuildsOnce(t *testing.T) {
	loader := newFakeLoader()
	loader.add(domain.EntityBinder, 1, "Sangorski & Sutcliffe")
	loader.delay = 20 * time.Millisecond
	c := New(loader, Options{Clock: newFakeClock()}, nil)

	var (
		wg      sync.WaitGroup
		success atomic.Int32
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := c.Get(context.Background(), domain.EntityBinder)
			if err == nil && snap.Len() == 1 {
				success.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(16), success.Load())
	assert.Equal(t, 1, loader.loadCount(domain.EntityBinder))
}
