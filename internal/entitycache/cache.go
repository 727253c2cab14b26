// Package entitycache holds per-entity-type, TTL-bound snapshots of the
// canonical entity tables with their names already normalized.
//
// The cache is strictly per process. Invalidate only affects this process;
// other processes converge when their own TTL expires.
package entitycache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/listenupapp/catalog-resolver/internal/domain"
	"github.com/listenupapp/catalog-resolver/internal/normalize"
)

// DefaultTTL is how long a snapshot is served before it is rebuilt.
const DefaultTTL = 300 * time.Second

// Loader reads every canonical entity of a type, ordered by id.
type Loader interface {
	ListEntities(ctx context.Context, t domain.EntityType) ([]domain.CanonicalEntity, error)
}

// Clock abstracts time so tests can drive expiry deterministically.
// Readings from time.Now carry a monotonic component, so ages computed with
// Sub are immune to wall clock jumps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Entry is one cached entity.
type Entry struct {
	Name       string
	Normalized string
	Tier       string
	ID         int64
	UsageCount int
}

// Snapshot is an immutable view of one entity type's table.
type Snapshot struct {
	BuiltAt    time.Time
	exact      map[string]int
	Type       domain.EntityType
	Entries    []Entry
	Generation uint64
}

// Lookup returns the first entry whose normalized name equals normalized,
// ignoring case. The result is stable for a given generation.
func (s *Snapshot) Lookup(normalized string) (Entry, bool) {
	if s == nil || normalized == "" {
		return Entry{}, false
	}
	idx, ok := s.exact[strings.ToLower(normalized)]
	if !ok {
		return Entry{}, false
	}
	return s.Entries[idx], true
}

// Len returns the number of cached entries.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// Options configures a Cache.
type Options struct {
	Clock Clock
	TTL   time.Duration
}

// Cache serves snapshots per entity type, rebuilding them from the Loader
// when they expire or are invalidated.
type Cache struct {
	loader Loader
	clock  Clock
	logger *slog.Logger
	slots  map[domain.EntityType]*slot
	ttl    time.Duration
}

// slot guards one entity type. Rebuilds hold mu; readers only load snap.
type slot struct {
	snap       atomic.Pointer[Snapshot]
	mu         sync.Mutex
	generation uint64
}

// New creates a cache for every known entity type.
func New(loader Loader, opts Options, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	slots := make(map[domain.EntityType]*slot, len(domain.EntityTypes()))
	for _, t := range domain.EntityTypes() {
		slots[t] = &slot{}
	}

	return &Cache{
		loader: loader,
		clock:  opts.Clock,
		logger: logger,
		slots:  slots,
		ttl:    opts.TTL,
	}
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns a fresh snapshot for t, rebuilding it synchronously when the
// current one is missing or older than the TTL.
func (c *Cache) Get(ctx context.Context, t domain.EntityType) (*Snapshot, error) {
	sl, ok := c.slots[t]
	if !ok {
		return nil, fmt.Errorf("entity cache: unknown entity type %q", t)
	}

	if snap := sl.snap.Load(); c.fresh(snap) {
		return snap, nil
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	// Another caller may have rebuilt while we waited.
	if snap := sl.snap.Load(); c.fresh(snap) {
		return snap, nil
	}

	snap, err := c.build(ctx, t, sl.generation+1)
	if err != nil {
		return nil, err
	}
	sl.generation = snap.Generation
	sl.snap.Store(snap)
	return snap, nil
}

// Invalidate forces the next Get for t to rebuild. Other types are untouched.
// A rebuild already in progress finishes first, then is discarded.
func (c *Cache) Invalidate(t domain.EntityType) {
	sl, ok := c.slots[t]
	if !ok {
		return
	}
	sl.mu.Lock()
	sl.snap.Store(nil)
	sl.mu.Unlock()

	c.logger.Debug("entity cache invalidated", "entity_type", t)
}

// InvalidateAll drops every snapshot.
func (c *Cache) InvalidateAll() {
	for _, t := range domain.EntityTypes() {
		c.Invalidate(t)
	}
}

func (c *Cache) fresh(snap *Snapshot) bool {
	return snap != nil && c.clock.Now().Sub(snap.BuiltAt) < c.ttl
}

func (c *Cache) build(ctx context.Context, t domain.EntityType, generation uint64) (*Snapshot, error) {
	start := c.clock.Now()

	rows, err := c.loader.ListEntities(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("entity cache: load %s: %w", t, err)
	}

	snap := &Snapshot{
		Type:       t,
		Entries:    make([]Entry, 0, len(rows)),
		exact:      make(map[string]int, len(rows)),
		Generation: generation,
	}
	for _, row := range rows {
		e := Entry{
			ID:         row.ID,
			Name:       row.Name,
			Normalized: normalize.Name(t, row.Name),
			Tier:       row.Tier,
			UsageCount: row.UsageCount,
		}
		snap.Entries = append(snap.Entries, e)

		key := strings.ToLower(e.Normalized)
		if key == "" {
			continue
		}
		if _, dup := snap.exact[key]; dup {
			c.logger.Warn("duplicate normalized entity name",
				"entity_type", t,
				"normalized", e.Normalized,
				"entity_id", e.ID,
			)
			continue
		}
		snap.exact[key] = len(snap.Entries) - 1
	}
	snap.BuiltAt = c.clock.Now()

	c.logger.Debug("entity cache rebuilt",
		"entity_type", t,
		"entries", len(snap.Entries),
		"generation", generation,
		"took", snap.BuiltAt.Sub(start),
	)
	return snap, nil
}
