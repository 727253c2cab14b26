package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityType_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		typ      EntityType
		expected bool
	}{
		{"author is valid", EntityAuthor, true},
		{"publisher is valid", EntityPublisher, true},
		{"binder is valid", EntityBinder, true},
		{"unknown type is invalid", EntityType("printer"), false},
		{"empty type is invalid", EntityType(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.typ.IsValid())
		})
	}
}

func TestParseEntityType(t *testing.T) {
	got, err := ParseEntityType("binder")
	require.NoError(t, err)
	assert.Equal(t, EntityBinder, got)

	_, err = ParseEntityType("Binder")
	assert.Error(t, err)
}

func TestBook_ForeignKeys(t *testing.T) {
	b := &Book{}

	b.SetForeignKey(EntityPublisher, IDPtr(7))
	b.SetForeignKey(EntityBinder, IDPtr(5))

	require.NotNil(t, b.ForeignKey(EntityPublisher))
	assert.Equal(t, int64(7), *b.ForeignKey(EntityPublisher))
	assert.Equal(t, int64(5), *b.BinderID)
	assert.Nil(t, b.ForeignKey(EntityAuthor))

	b.SetForeignKey(EntityBinder, nil)
	assert.Nil(t, b.BinderID)
}

func TestSameID(t *testing.T) {
	assert.True(t, SameID(nil, nil))
	assert.True(t, SameID(IDPtr(3), IDPtr(3)))
	assert.False(t, SameID(IDPtr(3), nil))
	assert.False(t, SameID(nil, IDPtr(3)))
	assert.False(t, SameID(IDPtr(3), IDPtr(4)))
}

func TestEntityValidationError_Messages(t *testing.T) {
	unknown := NewUnknownEntityError(EntityPublisher, "Unknown Press")
	assert.Equal(t, ErrorUnknownEntity, unknown.Kind)
	assert.Nil(t, unknown.Suggestions)
	assert.Contains(t, unknown.Error(), "Unknown Press")

	similar := NewSimilarEntityError(EntityPublisher, "Macmilan", []EntityMatch{
		{EntityID: 1, Name: "Macmillan", Confidence: 0.8889},
	})
	assert.Equal(t, ErrorSimilarEntityExists, similar.Kind)
	assert.Len(t, similar.Suggestions, 1)
	assert.Contains(t, similar.Resolution, `"Macmillan" (id 1, 89%)`)
}
