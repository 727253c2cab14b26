package domain

import "time"

// Book is a catalogued volume. It is the record the associator mutates: its
// publisher and binder foreign keys are only ever written by the association
// protocol, its author key by the same protocol when an author slot is supplied.
type Book struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AuthorID    *int64    `json:"author_id,omitempty"`
	PublisherID *int64    `json:"publisher_id,omitempty"`
	BinderID    *int64    `json:"binder_id,omitempty"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
}

// ForeignKey returns the current foreign key for the given entity type.
func (b *Book) ForeignKey(t EntityType) *int64 {
	switch t {
	case EntityAuthor:
		return b.AuthorID
	case EntityPublisher:
		return b.PublisherID
	case EntityBinder:
		return b.BinderID
	default:
		return nil
	}
}

// SetForeignKey replaces the foreign key for the given entity type. A nil id clears it.
func (b *Book) SetForeignKey(t EntityType, id *int64) {
	switch t {
	case EntityAuthor:
		b.AuthorID = id
	case EntityPublisher:
		b.PublisherID = id
	case EntityBinder:
		b.BinderID = id
	}
}

// Touch updates the UpdatedAt timestamp to the current time.
func (b *Book) Touch() {
	b.UpdatedAt = time.Now()
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
func (b *Book) InitTimestamps() {
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
}

// SameID reports whether two nullable ids hold the same value.
func SameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// IDPtr returns a pointer to a copy of id.
func IDPtr(id int64) *int64 {
	return &id
}
