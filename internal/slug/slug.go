// Package slug maps display names to URL path segments and back.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make returns the URL slug for name: diacritics stripped, lowercased, every
// run of non-alphanumerics collapsed to a single hyphen, no leading or
// trailing hyphen. "Côte d'Ivoire" becomes "cote-d-ivoire".
func Make(name string) string {
	folded := fold(name)

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// Title turns a slug back into a display name by capitalizing each
// hyphen-separated word. It is lossy: Title(Make("Côte d'Ivoire")) is
// "Cote D Ivoire".
func Title(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '-' })
	for i, w := range words {
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}

// Equal reports whether a and b name the same slug.
func Equal(a, b string) bool {
	return Make(a) == Make(b)
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
