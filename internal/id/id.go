// Package id generates the string identifiers used for books and jobs.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for generated identifiers.
const (
	PrefixBook = "book"
	PrefixJob  = "job"
)

// alphabet omits look-alike characters so IDs survive being read aloud or
// copied from a printed catalogue slip.
const alphabet = "23456789abcdefghjkmnpqrstuvwxyz"

// size keeps collisions negligible for a single catalogue (~10^21 space).
const size = 14

// Generate creates a prefixed unique ID, e.g. "book-7hq2mxkz9c4tne".
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.Generate(alphabet, size)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
