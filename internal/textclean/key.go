package textclean

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	parenNumberPattern = regexp.MustCompile(`\(\d+\)`)
	occurredInPattern  = regexp.MustCompile(`diễn ra năm \d+`)
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}` + wsClass + `]`)
)

// DedupePrefixLength is how many runes of a normalized key take part in
// duplicate detection.
const DedupePrefixLength = 50

// NormalizeKey lowercases text and strips year citations, the "diễn ra năm N"
// phrase and punctuation so differently worded duplicates compare equal.
// Input is composed to NFC first so decomposed diacritics stay letters.
func NormalizeKey(text string) string {
	key := strings.ToLower(norm.NFC.String(text))
	key = parenNumberPattern.ReplaceAllString(key, "")
	key = occurredInPattern.ReplaceAllString(key, "")
	key = punctuationPattern.ReplaceAllString(key, "")
	return collapseSpace(key)
}

// DedupeKey combines a year with the leading runes of a normalized key
func DedupeKey(year, normalizedKey string) string {
	return year + "_" + runePrefix(normalizedKey, DedupePrefixLength)
}

func runePrefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
