// Package matcher resolves raw names against cached canonical entities, first
// by exact normalized equality and then by token-sort edit-distance similarity.
package matcher

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/listenupapp/catalog-resolver/internal/domain"
	"github.com/listenupapp/catalog-resolver/internal/entitycache"
	"github.com/listenupapp/catalog-resolver/internal/normalize"
)

// DefaultMaxResults caps the number of fuzzy candidates returned.
const DefaultMaxResults = 5

// SnapshotSource provides cached entity snapshots. *entitycache.Cache satisfies it.
type SnapshotSource interface {
	Get(ctx context.Context, t domain.EntityType) (*entitycache.Snapshot, error)
}

// Thresholds holds the minimum fuzzy confidence per entity type.
type Thresholds struct {
	Author    float64
	Publisher float64
	Binder    float64
}

// DefaultThresholds returns the stock per-type thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Author:    0.75,
		Publisher: 0.80,
		Binder:    0.80,
	}
}

// For returns the threshold for t, falling back to the default when unset.
func (th Thresholds) For(t domain.EntityType) float64 {
	defaults := DefaultThresholds()
	switch t {
	case domain.EntityAuthor:
		return cmp.Or(positive(th.Author), defaults.Author)
	case domain.EntityPublisher:
		return cmp.Or(positive(th.Publisher), defaults.Publisher)
	case domain.EntityBinder:
		return cmp.Or(positive(th.Binder), defaults.Binder)
	default:
		return defaults.Publisher
	}
}

func positive(f float64) float64 {
	if f > 0 {
		return f
	}
	return 0
}

// Matcher performs exact and fuzzy lookups over an entity cache.
type Matcher struct {
	cache      SnapshotSource
	thresholds Thresholds
	maxResults int
}

// New creates a Matcher. A maxResults of zero or less uses DefaultMaxResults.
func New(cache SnapshotSource, thresholds Thresholds, maxResults int) *Matcher {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Matcher{
		cache:      cache,
		thresholds: thresholds,
		maxResults: maxResults,
	}
}

// Threshold returns the configured threshold for t.
func (m *Matcher) Threshold(t domain.EntityType) float64 {
	return m.thresholds.For(t)
}

// MaxResults returns the default result cap.
func (m *Matcher) MaxResults() int {
	return m.maxResults
}

// Exact returns the cached entity whose normalized name equals the normalized
// raw input. No similarity scoring is done.
func (m *Matcher) Exact(ctx context.Context, t domain.EntityType, raw string) (domain.EntityRef, bool, error) {
	normalized := normalize.Name(t, raw)
	if normalized == "" {
		return domain.EntityRef{}, false, nil
	}

	snap, err := m.cache.Get(ctx, t)
	if err != nil {
		return domain.EntityRef{}, false, err
	}

	e, ok := snap.Lookup(normalized)
	if !ok {
		return domain.EntityRef{}, false, nil
	}
	return domain.EntityRef{ID: e.ID, Name: e.Name}, true, nil
}

// Fuzzy ranks every cached entity of type t by token-sort similarity to raw
// and returns those at or above threshold, best first, at most limit of them.
// A threshold of zero or less uses the type default; a limit of zero or less
// uses the configured maximum. The result is never nil.
func (m *Matcher) Fuzzy(ctx context.Context, t domain.EntityType, raw string, threshold float64, limit int) ([]domain.EntityMatch, error) {
	if threshold <= 0 {
		threshold = m.thresholds.For(t)
	}
	if limit <= 0 {
		limit = m.maxResults
	}

	query := sortedTokens(normalize.Name(t, raw))
	if query == "" {
		return []domain.EntityMatch{}, nil
	}

	snap, err := m.cache.Get(ctx, t)
	if err != nil {
		return nil, err
	}

	matches := make([]domain.EntityMatch, 0, min(limit, snap.Len()))
	for _, e := range snap.Entries {
		sim := similarity(query, sortedTokens(e.Normalized))
		if sim < threshold {
			continue
		}
		matches = append(matches, domain.EntityMatch{
			EntityID:   e.ID,
			Name:       e.Name,
			Tier:       e.Tier,
			Confidence: round4(sim),
			UsageCount: e.UsageCount,
		})
	}

	slices.SortStableFunc(matches, compareMatches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// TokenSortSimilarity scores two names in [0,1] independently of word order.
// Both inputs are expected to be normalized already.
func TokenSortSimilarity(a, b string) float64 {
	return similarity(sortedTokens(a), sortedTokens(b))
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0.0
	}

	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(max(la, lb))
}

func sortedTokens(s string) string {
	toks := strings.Fields(s)
	slices.Sort(toks)
	return strings.Join(toks, " ")
}

// compareMatches orders by confidence desc, then usage desc, then name and id asc.
func compareMatches(a, b domain.EntityMatch) int {
	if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
		return c
	}
	if c := cmp.Compare(b.UsageCount, a.UsageCount); c != 0 {
		return c
	}
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return cmp.Compare(a.EntityID, b.EntityID)
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
