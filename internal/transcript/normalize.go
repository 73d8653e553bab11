// Package transcript turns a dictated clinical transcript into classified
// fragments ready for test matching.
package transcript

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases text and strips diacritics by decomposing to base
// characters, dropping combining marks and any non-ASCII remainder. It is
// total and idempotent; unrepresentable characters are dropped, not errored.
// All keyword and substring checks in the pipeline run on normalized text.
// Embedding similarity does not: the encoder tokenizes the original chunk.
func Normalize(text string) string {
	stripper := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(stripper, text)
	if err != nil {
		out = text
	}
	out = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, out)
	return strings.ToLower(out)
}
