// Package resolve maps free-text organism references to canonical
// identities, backed by a session-scoped identity cache.
package resolve

import (
	"strings"
	"unicode"
)

// IsStableIdentifier reports whether the input is already a canonical
// taxon identifier: an LSID URN (urn:lsid:...) or a taxon concept URL
// (e.g. https://biodiversity.org.au/afd/taxa/<uuid>). Such inputs skip
// lookup entirely.
func IsStableIdentifier(s string) bool {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "urn:lsid:") {
		return true
	}
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return strings.Contains(lower, "/taxa/")
	}
	return false
}

// IsBinomial reports whether the input parses as a Latin-style binomial:
// a capitalized genus followed by an all-lowercase epithet, letters only.
func IsBinomial(s string) bool {
	tokens := strings.Fields(s)
	if len(tokens) != 2 {
		return false
	}
	genus, epithet := tokens[0], tokens[1]
	if !startsUpper(genus) {
		return false
	}
	for _, r := range genus[1:] {
		if !unicode.IsLower(r) {
			return false
		}
	}
	for _, r := range epithet {
		if !unicode.IsLower(r) {
			return false
		}
	}
	return true
}

// LooksVernacular is the default endpoint-selection predicate. A name
// "looks vernacular" when it has two or more words, every word starts
// with an uppercase letter, and the whole input does not parse as a
// binomial. Capitalization is judged on the first rune of each word, so
// non-ASCII uppercase letters count and hyphenated words ("Red-necked")
// are judged by their leading rune.
//
// Vernacular names are ambiguous across taxa while scientific names are
// precise, so inputs that fail this predicate try the scientific-name
// endpoint first.
func LooksVernacular(s string) bool {
	tokens := strings.Fields(s)
	if len(tokens) < 2 {
		return false
	}
	if IsBinomial(s) {
		return false
	}
	for _, tok := range tokens {
		if !startsUpper(tok) {
			return false
		}
	}
	return true
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// NormalizeKey produces the cache key for a name: lowercased, trimmed,
// with internal whitespace collapsed to single spaces. Cosmetic variants
// of the same name always map to the same key.
func NormalizeKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
