// Package normalize canonicalizes entity names so that cache entries and user
// input can be compared reliably.
//
// Every function in this package is idempotent: Name(t, Name(t, x)) == Name(t, x).
// The same function must be used when building the entity cache and when
// normalizing a query, otherwise exact matches silently stop matching.
package normalize

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/listenupapp/catalog-resolver/internal/domain"
)

// honorifics are dropped from the front of author names.
//
//nolint:gochecknoglobals // Static lookup table for name normalization
var honorifics = map[string]bool{
	"sir": true, "dame": true, "lady": true, "lord": true, "hon": true,
	"dr": true, "prof": true, "professor": true,
	"mr": true, "mrs": true, "ms": true, "miss": true,
	"rev": true, "reverend": true,
	"capt": true, "captain": true, "col": true, "colonel": true,
}

// businessSuffixes are token sequences dropped from the end of publisher and
// binder names. Longer sequences come first so "and co" wins over "co".
//
//nolint:gochecknoglobals // Static lookup table for name normalization
var businessSuffixes = [][]string{
	{"and", "company"},
	{"and", "sons"},
	{"and", "son"},
	{"and", "co"},
	{"incorporated"},
	{"company"},
	{"limited"},
	{"ltd"},
	{"inc"},
	{"llc"},
	{"plc"},
	{"co"},
}

// trailingQualifier matches a parenthetical at the end of a name, e.g. "(of Bath)".
var trailingQualifier = regexp.MustCompile(`\s*\([^()]*\)\s*$`)

// foldMarks decomposes compatibility characters and drops combining marks,
// turning "Rivière" into "Riviere" and "ﬁ" into "fi".
//
//nolint:gochecknoglobals // Stateless transformer chain
var foldMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Name normalizes raw according to the rules for the given entity type.
// Unknown types get the common rules only.
func Name(t domain.EntityType, raw string) string {
	switch t {
	case domain.EntityAuthor:
		return Author(raw)
	case domain.EntityPublisher, domain.EntityBinder:
		return Organization(raw)
	default:
		return strings.Join(Tokens(raw), " ")
	}
}

// Author normalizes a person's name. Leading honorifics are removed; token
// order is left alone because the fuzzy matcher is order independent.
func Author(raw string) string {
	toks := Tokens(raw)
	for len(toks) > 1 && honorifics[toks[0]] {
		toks = toks[1:]
	}
	return strings.Join(toks, " ")
}

// Organization normalizes a publisher or binder name. Trailing location
// qualifiers and business suffixes are removed, but never down to nothing.
func Organization(raw string) string {
	// Full-width brackets fold to ASCII so the qualifier pattern sees them.
	s := norm.NFKC.String(raw)
	for {
		stripped := trailingQualifier.ReplaceAllString(s, "")
		if stripped == s || strings.TrimSpace(stripped) == "" {
			break
		}
		s = stripped
	}

	toks := Tokens(s)
	for {
		trimmed := trimSuffix(toks)
		if len(trimmed) == len(toks) {
			break
		}
		toks = trimmed
	}
	return strings.Join(toks, " ")
}

// Tokens applies the rules shared by every entity type and returns the
// resulting words: lowercase, accents folded, "&" spelled "and", apostrophes
// and periods deleted, any other punctuation treated as a separator.
func Tokens(raw string) []string {
	s := strings.ToLower(raw)
	if folded, _, err := transform.String(foldMarks, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '&':
			b.WriteString(" and ")
		case r == '\'' || r == '’' || r == '.':
			// "O'Brien" -> "obrien", "J.M." -> "jm"
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

// IsBlank reports whether raw carries no comparable content at all.
func IsBlank(raw string) bool {
	return len(Tokens(raw)) == 0
}

// trimSuffix removes one business suffix from the end of toks if doing so
// leaves at least one token.
func trimSuffix(toks []string) []string {
	for _, suffix := range businessSuffixes {
		if len(toks) <= len(suffix) {
			continue
		}
		tail := toks[len(toks)-len(suffix):]
		if slices.Equal(tail, suffix) {
			return toks[:len(toks)-len(suffix)]
		}
	}
	return toks
}
