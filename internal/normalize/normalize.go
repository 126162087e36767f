// Package normalize implements the pure, deterministic text, city, and date
// canonicalization the rest of the pipeline depends on for stable fingerprint
// lookups. Nothing in this package performs I/O.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	stopTokens = map[string]struct{}{
		"festival": {},
		"fest":     {},
		"edition":  {},
	}

	yearToken        = regexp.MustCompile(`^\d{4}$`)
	nonAlnumRun      = regexp.MustCompile(`[^a-z0-9]+`)
	diacriticStrip   = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Name canonicalizes a raw event/city/venue name: lowercase, strip combining
// marks, drop the literal tokens "festival"/"fest"/"edition" and any
// four-digit year, collapse non-alphanumeric runs to single spaces, trim.
//
// Normalize is pure: Name(s) == Name(Name(s)) for all s.
func Name(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))

	stripped, _, err := transform.String(diacriticStrip, lowered)
	if err != nil {
		stripped = lowered
	}

	collapsed := nonAlnumRun.ReplaceAllString(stripped, " ")

	fields := strings.Fields(collapsed)
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, isStop := stopTokens[f]; isStop {
			continue
		}
		if yearToken.MatchString(f) {
			continue
		}
		kept = append(kept, f)
	}

	return strings.Join(kept, " ")
}

// Tokens splits a normalized string into its whitespace-separated tokens.
func Tokens(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

// FirstTokens returns the first n tokens of a normalized string, joined by a
// single space, used for the fuzzy_name fingerprint (the spec's "first three
// tokens of normalized_name").
func FirstTokens(normalized string, n int) string {
	tokens := Tokens(normalized)
	if len(tokens) > n {
		tokens = tokens[:n]
	}
	return strings.Join(tokens, " ")
}
