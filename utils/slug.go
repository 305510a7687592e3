package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespace = regexp.MustCompile(`\s+`)
var nonWord = regexp.MustCompile(`[^\w-]+`)

// Slugify derives a URL slug from a category name: accents stripped,
// lowercased, whitespace runs replaced with a hyphen, remaining non-word
// characters removed.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, name)
	if err != nil {
		s = name
	}
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespace.ReplaceAllString(s, "-")
	return nonWord.ReplaceAllString(s, "")
}
