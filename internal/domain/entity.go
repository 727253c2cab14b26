// Package domain contains the core catalog entities and the value types exchanged
// between the entity resolution components.
package domain

import (
	"fmt"
	"time"
)

// EntityType identifies one of the canonical lookup tables a book points at.
type EntityType string

const (
	EntityAuthor    EntityType = "author"
	EntityPublisher EntityType = "publisher"
	EntityBinder    EntityType = "binder"
)

// EntityTypes lists every resolvable entity type in a stable order.
func EntityTypes() []EntityType {
	return []EntityType{EntityAuthor, EntityPublisher, EntityBinder}
}

// String returns the string representation of the entity type.
func (t EntityType) String() string {
	return string(t)
}

// IsValid checks if the entity type is a recognized value.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityAuthor, EntityPublisher, EntityBinder:
		return true
	default:
		return false
	}
}

// ParseEntityType converts a raw string (e.g. a path segment) into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}

// CanonicalEntity is the single authoritative record for a real-world author,
// publisher, or binder.
type CanonicalEntity struct {
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Type           EntityType `json:"type"`
	Name           string     `json:"name"`
	NormalizedName string     `json:"normalized_name"`
	Tier           string     `json:"tier,omitempty"` // e.g. "TIER_1"; empty when unranked
	ID             int64      `json:"id"`
	UsageCount     int        `json:"usage_count"` // books referencing this entity
}

// EntityRef is the minimal identity returned by an exact lookup.
type EntityRef struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

// EntityMatch is a ranked fuzzy candidate. It is never persisted.
type EntityMatch struct {
	Name       string  `json:"name"`
	Tier       string  `json:"tier,omitempty"`
	EntityID   int64   `json:"entity_id"`
	Confidence float64 `json:"confidence"`
	UsageCount int     `json:"usage_count"`
}
