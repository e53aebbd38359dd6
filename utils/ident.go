package utils

import (
	"strings"
	"unicode"
)

// Slug lowercases s and collapses every run of non alphanumeric runes into one
// underscore. It returns "" when nothing usable remains.
func Slug(s string) string {
	sb := &strings.Builder{}
	pendingSep := false
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			pendingSep = false
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSep = true
	}
	return sb.String()
}

// PascalCase joins the alphanumeric words of s, each one capitalised, and makes
// sure the result is a valid identifier.
func PascalCase(s string) string {
	sb := &strings.Builder{}
	for _, word := range strings.Split(Slug(s), "_") {
		if word == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(word[:1]))
		sb.WriteString(word[1:])
	}
	out := sb.String()
	if out != "" && unicode.IsDigit(rune(out[0])) {
		out = "W" + out
	}
	return out
}
