package flatten

import (
	"strings"
	"unicode"
)

// ToHyphenated converts a camelCase predicate name from the source ontology
// into the hyphen-delimited form the store requires. Every uppercase letter
// after the first character is preceded by a hyphen and lowercased.
func ToHyphenated(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToCompact reverses ToHyphenated: a hyphen is dropped and the following
// character uppercased. It is only a true inverse for names made of ASCII
// letters and hyphens that ToHyphenated itself produced; digits and leading
// separators pass through unchanged.
func ToCompact(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	upper := false
	for _, r := range name {
		if r == '-' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
