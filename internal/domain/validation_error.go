package domain

import (
	"fmt"
	"strings"
)

// ErrorKind classifies why a name could not be resolved to a canonical entity.
type ErrorKind string

const (
	// ErrorUnknownEntity means no candidate of any kind exists.
	ErrorUnknownEntity ErrorKind = "unknown_entity"
	// ErrorSimilarEntityExists means candidates exist but none is certain
	// enough for automatic association.
	ErrorSimilarEntityExists ErrorKind = "similar_entity_exists"
)

// EntityValidationError describes a blocked resolution. Suggestions is nil when
// there is nothing to suggest.
type EntityValidationError struct {
	EntityType  EntityType    `json:"entity_type"`
	Input       string        `json:"input"`
	Kind        ErrorKind     `json:"error"`
	Suggestions []EntityMatch `json:"suggestions"`
	Resolution  string        `json:"resolution"`
}

// NewUnknownEntityError builds the error for a name with no candidates.
func NewUnknownEntityError(t EntityType, input string) *EntityValidationError {
	return &EntityValidationError{
		EntityType: t,
		Input:      input,
		Kind:       ErrorUnknownEntity,
		Resolution: fmt.Sprintf("create the %s first or supply an existing %s id", t, t),
	}
}

// NewSimilarEntityError builds the error for a name with near-miss candidates.
func NewSimilarEntityError(t EntityType, input string, suggestions []EntityMatch) *EntityValidationError {
	names := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		names = append(names, fmt.Sprintf("%q (id %d, %.0f%%)", s.Name, s.EntityID, s.Confidence*100))
	}
	return &EntityValidationError{
		EntityType:  t,
		Input:       input,
		Kind:        ErrorSimilarEntityExists,
		Suggestions: suggestions,
		Resolution: fmt.Sprintf("use an existing %s id (%s) or resubmit with force to proceed",
			t, strings.Join(names, ", ")),
	}
}

// Error implements the error interface.
func (e *EntityValidationError) Error() string {
	switch e.Kind {
	case ErrorSimilarEntityExists:
		return fmt.Sprintf("%s %q is similar to %d existing %s(s)", e.EntityType, e.Input, len(e.Suggestions), e.EntityType)
	default:
		return fmt.Sprintf("unknown %s %q", e.EntityType, e.Input)
	}
}
