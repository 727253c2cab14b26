package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/catalog-resolver/internal/association"
	"github.com/listenupapp/catalog-resolver/internal/domain"
	"github.com/listenupapp/catalog-resolver/internal/entitycache"
	"github.com/listenupapp/catalog-resolver/internal/matcher"
	"github.com/listenupapp/catalog-resolver/internal/resolver"
	"github.com/listenupapp/catalog-resolver/internal/store/sqlite"
)

type harness struct {
	store    *sqlite.Store
	cache    *entitycache.Cache
	entities *EntityService
	books    *BookService
}

// newHarness wires the services over a fresh on-disk database.
func newHarness(t *testing.T, mode resolver.Mode) *harness {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cache := entitycache.New(st, entitycache.Options{}, logger)
	m := matcher.New(cache, matcher.DefaultThresholds(), matcher.DefaultMaxResults)
	v := resolver.NewValidator(m, mode, logger)

	return &harness{
		store:    st,
		cache:    cache,
		entities: NewEntityService(st, cache, m, v, logger),
		books:    NewBookService(st, association.New(v, logger), logger),
	}
}

func (h *harness) entity(t *testing.T, typ domain.EntityType, name string) int64 {
	t.Helper()
	e, err := h.entities.Create(context.Background(), CreateEntityRequest{Type: typ, Name: name, Force: true})
	require.NoError(t, err)
	return e.ID
}

func (h *harness) book(t *testing.T, title string) *domain.Book {
	t.Helper()
	b, err := h.books.Create(context.Background(), CreateBookRequest{Title: title})
	require.NoError(t, err)
	return b
}
