package association

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/catalog-resolver/internal/domain"
	"github.com/listenupapp/catalog-resolver/internal/entitycache"
	"github.com/listenupapp/catalog-resolver/internal/matcher"
	"github.com/listenupapp/catalog-resolver/internal/resolver"
)

type memLoader map[domain.EntityType][]domain.CanonicalEntity

func (l memLoader) ListEntities(_ context.Context, t domain.EntityType) ([]domain.CanonicalEntity, error) {
	return l[t], nil
}

// fakeSession answers existence checks from a set, which tests mutate to
// simulate deletes racing the association.
type fakeSession struct {
	existing map[domain.EntityType]map[int64]bool
	calls    int
	err      error
}

func newFakeSession() *fakeSession {
	return &fakeSession{existing: map[domain.EntityType]map[int64]bool{
		domain.EntityPublisher: {1: true, 2: true},
		domain.EntityBinder:    {5: true, 6: true},
		domain.EntityAuthor:    {},
	}}
}

func (s *fakeSession) EntityExists(_ context.Context, t domain.EntityType, id int64) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.existing[t][id], nil
}

func setupAssociator(mode resolver.Mode) *Associator {
	rows := memLoader{
		domain.EntityPublisher: {{ID: 1, Name: "Macmillan"}, {ID: 2, Name: "Chatto & Windus"}},
		domain.EntityBinder:    {{ID: 5, Name: "Riviere & Son"}, {ID: 6, Name: "Zaehnsdorf"}},
	}
	cache := entitycache.New(rows, entitycache.Options{}, nil)
	v := resolver.NewValidator(matcher.New(cache, matcher.DefaultThresholds(), 0), mode, nil)
	return New(v, nil)
}

func TestAssociate_SetsAllValidatedSlots(t *testing.T) {
	a := setupAssociator(resolver.ModeEnforce)
	book := &domain.Book{}

	res, err := a.Associate(context.Background(), newFakeSession(), book, []Slot{
		{Type: domain.EntityBinder, Name: "Riviere"},
		{Type: domain.EntityPublisher, Name: "Macmillan & Co."},
	}, Options{})
	require.NoError(t, err)

	assert.False(t, res.HasErrors())
	assert.True(t, res.Changed(domain.EntityBinder))
	assert.True(t, res.Changed(domain.EntityPublisher))
	assert.True(t, res.Modified())
	assert.Equal(t, int64(5), *book.BinderID)
	assert.Equal(t, int64(1), *book.PublisherID)
	assert.Empty(t, res.Warnings)
}

func TestAssociate_AnyErrorBlocksEveryWrite(t *testing.T) {
	a := setupAssociator(resolver.ModeEnforce)
	book := &domain.Book{PublisherID: domain.IDPtr(2)}
	sess := newFakeSession()

	res, err := a.Associate(context.Background(), sess, book, []Slot{
		{Type: domain.EntityBinder, Name: "Riviere & Son"},
		{Type: domain.EntityPublisher, Name: "Unknown Press"},
	}, Options{})
	require.NoError(t, err)

	assert.True(t, res.HasErrors())
	assert.Nil(t, book.BinderID)
	require.NotNil(t, book.PublisherID)
	assert.Equal(t, int64(2), *book.PublisherID)
	assert.False(t, res.Changed(domain.EntityBinder))
	assert.False(t, res.Modified())
	assert.Zero(t, sess.calls, "gate must stop before the mutation phase")

	binder, ok := res.Slot(domain.EntityBinder)
	require.True(t, ok)
	assert.True(t, binder.Result.Success(), "binder validated on its own")

	errs := res.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, domain.ErrorUnknownEntity, errs[0].Kind)
}

func TestAssociate_NoPartialMutation(t *testing.T) {
	a := setupAssociator(resolver.ModeEnforce)

	cases := [][]Slot{
		{{Type: domain.EntityBinder, Name: "Zaehnsdorf"}, {Type: domain.EntityPublisher, Name: "Macmilan"}},
		{{Type: domain.EntityBinder, Name: "Nobody"}, {Type: domain.EntityPublisher, Name: "Macmillan"}},
		{{Type: domain.EntityBinder, Name: "Zaensdorf"}, {Type: domain.EntityPublisher, Name: "Chatto Windus Press"}},
		{{Type: domain.EntityBinder, EntityID: domain.IDPtr(99)}, {Type: domain.EntityPublisher, Name: "Macmillan"}},
	}

	for _, slots := range cases {
		book := &domain.Book{BinderID: domain.IDPtr(5), PublisherID: domain.IDPtr(2)}
		res, err := a.Associate(context.Background(), newFakeSession(), book, slots, Options{})
		require.NoError(t, err)
		require.True(t, res.HasErrors())
		assert.Equal(t, int64(5), *book.BinderID)
		assert.Equal(t, int64(2), *book.PublisherID)
	}
}

func TestAssociate_VanishedEntityClearsForeignKey(t *testing.T) {
	a := setupAssociator(resolver.ModeEnforce)
	book := &domain.Book{BinderID: domain.IDPtr(5)}

	// The cache still lists binder 5; the store no longer has it.
	sess := newFakeSession()
	delete(sess.existing[domain.EntityBinder], 5)

	res, err := a.Associate(context.Background(), sess, book, []Slot{
		{Type: domain.EntityBinder, Name: "Riviere & Son"},
	}, Options{})
	require.NoError(t, err)

	assert.Nil(t, book.BinderID)
	assert.False(t, res.Changed(domain.EntityBinder))
	assert.True(t, res.Modified())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "binder 5")

	slot, ok := res.Slot(domain.EntityBinder)
	require.True(t, ok)
	assert.Equal(t, resolver.KindNeutral, slot.Result.Kind())
	assert.True(t, slot.Cleared)
	assert.False(t, res.HasErrors())
}

func TestAssociate_VanishedEntityLeavesOtherForeignKey(t *testing.T) {
	a := setupAssociator(resolver.ModeEnforce)
	book := &domain.Book{BinderID: domain.IDPtr(6)}

	sess := newFakeSession()
	delete(sess.existing[domain.EntityBinder], 5)

	res, err := a.Associate(context.Background(), sess, book, []Slot{
		{Type: domain.EntityBinder, Name: "Riviere"},
		{Type: domain.EntityPublisher, Name: "Macmillan"},
	}, Options{})
	require.NoError(t, err)

	// Binder pointed elsewhere, so it is left alone.
	assert.Equal(t, int64(6), *book.BinderID)
	assert.Equal(t, int64(1), *book.PublisherID)
	assert.True(t, res.Changed(domain.EntityPublisher))
	assert.False(t, res.Changed(domain.EntityBinder))
}

func TestAssociate_ResubmissionReportsUnchanged(t *testing.T) {
	a := setupAssociator(resolver.ModeEnforce)
	book := &domain.Book{BinderID: domain.IDPtr(5), PublisherID: domain.IDPtr(1)}

	res, err := a.Associate(context.Background(), newFakeSession(), book, []Slot{
		{Type: domain.EntityBinder, Name: "Riviere & Son"},
		{Type: domain.EntityPublisher, Name: "Macmillan"},
	}, Options{})
	require.NoError(t, err)

	assert.False(t, res.Changed(domain.EntityBinder))
	assert.False(t, res.Changed(domain.EntityPublisher))
	assert.False(t, res.Modified())
}

func TestAssociate_LogModeSkipsWithoutBlocking(t *testing.T) {
	a := setupAssociator(resolver.ModeLog)
	book := &domain.Book{PublisherID: domain.IDPtr(2)}

	res, err := a.Associate(context.Background(), newFakeSession(), book, []Slot{
		{Type: domain.EntityBinder, Name: "Zaehnsdorf"},
		{Type: domain.EntityPublisher, Name: "Macmilan"},
	}, Options{})
	require.NoError(t, err)

	assert.False(t, res.HasErrors())
	assert.True(t, res.HasSkipped())
	assert.Equal(t, int64(6), *book.BinderID)
	assert.Equal(t, int64(2), *book.PublisherID, "skipped slot leaves its key untouched")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Macmillan")
}

func TestAssociate_ForceRecordsWarning(t *testing.T) {
	a := setupAssociator(resolver.ModeEnforce)
	book := &domain.Book{}

	res, err := a.Associate(context.Background(), newFakeSession(), book, []Slot{
		{Type: domain.EntityPublisher, Name: "Macmilan"},
	}, Options{Force: true})
	require.NoError(t, err)

	assert.False(t, res.HasErrors())
	assert.True(t, res.HasSkipped())
	assert.Nil(t, book.PublisherID)
	assert.Len(t, res.Warnings, 1)
}

func TestAssociate_ExplicitID(t *testing.T) {
	a := setupAssociator(resolver.ModeEnforce)
	book := &domain.Book{}

	res, err := a.Associate(context.Background(), newFakeSession(), book, []Slot{
		{Type: domain.EntityPublisher, EntityID: domain.IDPtr(2)},
	}, Options{})
	require.NoError(t, err)
	assert.True(t, res.Changed(domain.EntityPublisher))
	assert.Equal(t, int64(2), *book.PublisherID)

	res, err = a.Associate(context.Background(), newFakeSession(), book, []Slot{
		{Type: domain.EntityPublisher, EntityID: domain.IDPtr(42)},
	}, Options{})
	require.NoError(t, err)
	assert.True(t, res.HasErrors())
	assert.Equal(t, "#42", res.Errors()[0].Input)
	assert.Equal(t, int64(2), *book.PublisherID)
}

func TestAssociate_BlankSlotIsNeutral(t *testing.T) {
	a := setupAssociator(resolver.ModeEnforce)
	book := &domain.Book{BinderID: domain.IDPtr(6)}

	res, err := a.Associate(context.Background(), newFakeSession(), book, []Slot{
		{Type: domain.EntityBinder, Name: ""},
		{Type: domain.EntityPublisher, Name: "Chatto and Windus"},
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), *book.BinderID)
	assert.Equal(t, int64(2), *book.PublisherID)

	binder, ok := res.Slot(domain.EntityBinder)
	require.True(t, ok)
	assert.Equal(t, resolver.KindNeutral, binder.Result.Kind())
	assert.False(t, binder.Changed)
	assert.True(t, res.Changed(domain.EntityPublisher))
}

func TestAssociate_RejectsMalformedSlots(t *testing.T) {
	a := setupAssociator(resolver.ModeEnforce)

	_, err := a.Associate(context.Background(), newFakeSession(), &domain.Book{}, []Slot{
		{Type: domain.EntityBinder, Name: "Riviere"},
		{Type: domain.EntityBinder, Name: "Zaehnsdorf"},
	}, Options{})
	assert.ErrorIs(t, err, ErrInvalidSlots)

	_, err = a.Associate(context.Background(), newFakeSession(), &domain.Book{}, []Slot{
		{Type: domain.EntityType("printer"), Name: "Clays"},
	}, Options{})
	assert.ErrorIs(t, err, ErrInvalidSlots)
}

func TestAssociate_SessionFailure(t *testing.T) {
	a := setupAssociator(resolver.ModeEnforce)
	sess := newFakeSession()
	sess.err = errors.New("disk I/O error")

	_, err := a.Associate(context.Background(), sess, &domain.Book{}, []Slot{
		{Type: domain.EntityBinder, Name: "Riviere"},
	}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestValidateThenApply_SeparateSessions(t *testing.T) {
	a := setupAssociator(resolver.ModeEnforce)
	book := &domain.Book{}

	res, err := a.Validate(context.Background(), newFakeSession(), []Slot{
		{Type: domain.EntityBinder, EntityID: domain.IDPtr(6)},
		{Type: domain.EntityPublisher, Name: "Macmillan"},
	}, Options{})
	require.NoError(t, err)
	require.False(t, res.HasErrors())
	assert.Nil(t, book.BinderID, "validation writes nothing")

	// Binder 6 is gone by the time the write session opens.
	sess := newFakeSession()
	delete(sess.existing[domain.EntityBinder], 6)

	require.NoError(t, a.Apply(context.Background(), sess, book, res))
	assert.Nil(t, book.BinderID)
	require.NotNil(t, book.PublisherID)
	assert.Equal(t, int64(1), *book.PublisherID)
	assert.Equal(t, 2, sess.calls)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "binder 6")
}

func TestApply_RefusesResultWithErrors(t *testing.T) {
	a := setupAssociator(resolver.ModeEnforce)
	book := &domain.Book{PublisherID: domain.IDPtr(2)}

	res, err := a.Validate(context.Background(), newFakeSession(), []Slot{
		{Type: domain.EntityBinder, Name: "Zaehnsdorf"},
		{Type: domain.EntityPublisher, Name: "Unknown Press"},
	}, Options{})
	require.NoError(t, err)
	require.True(t, res.HasErrors())

	sess := newFakeSession()
	err = a.Apply(context.Background(), sess, book, res)
	assert.ErrorIs(t, err, ErrUnvalidated)
	assert.Nil(t, book.BinderID)
	assert.Equal(t, int64(2), *book.PublisherID)
	assert.Zero(t, sess.calls)
}
