package matcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/catalog-resolver/internal/domain"
	"github.com/listenupapp/catalog-resolver/internal/entitycache"
)

type memLoader map[domain.EntityType][]domain.CanonicalEntity

func (l memLoader) ListEntities(_ context.Context, t domain.EntityType) ([]domain.CanonicalEntity, error) {
	return l[t], nil
}

func setupMatcher(t *testing.T, rows memLoader) *Matcher {
	t.Helper()
	cache := entitycache.New(rows, entitycache.Options{}, nil)
	return New(cache, DefaultThresholds(), 0)
}

func publishers(names ...string) memLoader {
	rows := make([]domain.CanonicalEntity, 0, len(names))
	for i, n := range names {
		rows = append(rows, domain.CanonicalEntity{ID: int64(i + 1), Type: domain.EntityPublisher, Name: n})
	}
	return memLoader{domain.EntityPublisher: rows}
}

func TestMatcher_EmptyCache(t *testing.T) {
	m := setupMatcher(t, memLoader{})
	ctx := context.Background()

	matches, err := m.Fuzzy(ctx, domain.EntityPublisher, "Macmillan", 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)

	_, ok, err := m.Exact(ctx, domain.EntityPublisher, "Macmillan")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatcher_FuzzyFindsMisspelling(t *testing.T) {
	m := setupMatcher(t, publishers("Macmillan", "Penguin Books"))

	matches, err := m.Fuzzy(context.Background(), domain.EntityPublisher, "Macmilan", 0.80, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Macmillan", matches[0].Name)
	assert.Equal(t, int64(1), matches[0].EntityID)
	assert.GreaterOrEqual(t, matches[0].Confidence, 0.80)
	assert.InDelta(t, 0.8889, matches[0].Confidence, 1e-9)
}

func TestMatcher_FuzzyIgnoresTokenOrder(t *testing.T) {
	m := setupMatcher(t, publishers("Harper & Brothers"))

	matches, err := m.Fuzzy(context.Background(), domain.EntityPublisher, "Brothers & Harper", 0.80, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Harper & Brothers", matches[0].Name)
	assert.GreaterOrEqual(t, matches[0].Confidence, 0.80)
}

func TestMatcher_ExactIgnoresCaseAndPunctuation(t *testing.T) {
	m := setupMatcher(t, publishers("Penguin Books", "Macmillan & Co."))
	ctx := context.Background()

	variants := []string{"Macmillan", "MACMILLAN", "macmillan & co", "Macmillan and Company", "  Macmillan, Ltd. "}
	for _, v := range variants {
		t.Run(v, func(t *testing.T) {
			ref, ok, err := m.Exact(ctx, domain.EntityPublisher, v)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, int64(2), ref.ID)
			assert.Equal(t, "Macmillan & Co.", ref.Name)
		})
	}

	_, ok, err := m.Exact(ctx, domain.EntityPublisher, "  ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatcher_BelowThresholdNeverReturned(t *testing.T) {
	m := setupMatcher(t, publishers("Penguin Books", "Faber and Faber"))

	matches, err := m.Fuzzy(context.Background(), domain.EntityPublisher, "Macmillan", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatcher_ThresholdMonotonicity(t *testing.T) {
	m := setupMatcher(t, publishers("Macmillan", "Macmillian", "McMillan", "Millan", "Harper", "Mac Millan Press"))
	ctx := context.Background()

	thresholds := []float64{0.3, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	var prev map[int64]bool
	for i, th := range thresholds {
		matches, err := m.Fuzzy(ctx, domain.EntityPublisher, "Macmilan", th, 100)
		require.NoError(t, err)

		current := make(map[int64]bool, len(matches))
		for _, mt := range matches {
			assert.GreaterOrEqual(t, mt.Confidence, th-1e-4)
			current[mt.EntityID] = true
		}
		if i > 0 {
			assert.LessOrEqual(t, len(current), len(prev), "threshold %.2f", th)
			for id := range current {
				assert.True(t, prev[id], "id %d appeared at %.2f but not at a lower threshold", id, th)
			}
		}
		prev = current
	}
}

func TestMatcher_OrderingAndTieBreak(t *testing.T) {
	rows := memLoader{domain.EntityBinder: {
		{ID: 1, Name: "Riviero", UsageCount: 1},
		{ID: 2, Name: "Riviere", UsageCount: 5},
		{ID: 3, Name: "Rovier", UsageCount: 9}, // below threshold
		{ID: 4, Name: "Rivierb", UsageCount: 1},
	}}
	m := setupMatcher(t, rows)

	matches, err := m.Fuzzy(context.Background(), domain.EntityBinder, "Rivierx", 0.80, 0)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// Equal confidence: usage desc, then name asc.
	assert.Equal(t, []int64{2, 4, 1}, []int64{matches[0].EntityID, matches[1].EntityID, matches[2].EntityID})
	for _, mt := range matches {
		assert.InDelta(t, 0.8571, mt.Confidence, 1e-9)
	}
}

func TestMatcher_ConfidenceDescending(t *testing.T) {
	m := setupMatcher(t, publishers("Chatto and Windas", "Chatto & Windus", "Chato & Windus"))

	matches, err := m.Fuzzy(context.Background(), domain.EntityPublisher, "Chatto and Windus Ltd", 0.5, 0)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, 1.0, matches[0].Confidence)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Confidence, matches[i].Confidence)
	}
}

func TestMatcher_TruncatesToLimit(t *testing.T) {
	m := setupMatcher(t, publishers(
		"Bindery Y", "Bindery W", "Bindery V", "Bindery U", "Bindery T", "Bindery S", "Bindery R",
	))
	ctx := context.Background()

	matches, err := m.Fuzzy(ctx, domain.EntityPublisher, "Bindery Z", 0.80, 0)
	require.NoError(t, err)
	require.Len(t, matches, DefaultMaxResults)
	assert.Equal(t, "Bindery R", matches[0].Name)
	assert.Equal(t, "Bindery V", matches[4].Name)

	matches, err = m.Fuzzy(ctx, domain.EntityPublisher, "Bindery Z", 0.80, 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestMatcher_CarriesTierAndUsage(t *testing.T) {
	rows := memLoader{domain.EntityBinder: {
		{ID: 9, Name: "Sangorski & Sutcliffe", Tier: "TIER_1", UsageCount: 12},
	}}
	m := setupMatcher(t, rows)

	matches, err := m.Fuzzy(context.Background(), domain.EntityBinder, "Sangorsky and Sutcliffe", 0, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "TIER_1", matches[0].Tier)
	assert.Equal(t, 12, matches[0].UsageCount)
}

func TestThresholds_For(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, 0.75, th.For(domain.EntityAuthor))
	assert.Equal(t, 0.80, th.For(domain.EntityPublisher))
	assert.Equal(t, 0.80, th.For(domain.EntityBinder))

	custom := Thresholds{Binder: 0.9}
	assert.Equal(t, 0.9, custom.For(domain.EntityBinder))
	assert.Equal(t, 0.75, custom.For(domain.EntityAuthor), "unset falls back to default")
}

func TestTokenSortSimilarity(t *testing.T) {
	tests := []struct {
		a, b     string
		expected float64
	}{
		{"harper and brothers", "brothers and harper", 1.0},
		{"macmillan", "macmillan", 1.0},
		{"macmilan", "macmillan", 1 - 1.0/9},
		{"", "macmillan", 0},
		{"", "", 1.0},
		{"riviere", "rivière", 1 - 1.0/7}, // rune lengths, not bytes
	}

	for _, tt := range tests {
		got := TokenSortSimilarity(tt.a, tt.b)
		assert.InDelta(t, tt.expected, got, 1e-9, "%q vs %q", tt.a, tt.b)
	}
}
