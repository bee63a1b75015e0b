package memo

import (
	"strings"
	"unicode"
)

// normalizeNamespace lowers a namespace to snake_case. Runs of anything other
// than letters and digits collapse into one underscore, as does each
// camelCase word boundary, so "Billing Service/v2" becomes
// "billing_service_v2". The result is safe as a key prefix on every backend.
func normalizeNamespace(s string) string {
	runes := []rune(s)

	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	separate := false
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			separate = true
			continue
		}
		if unicode.IsUpper(r) && i > 0 && wordBoundary(runes, i) {
			separate = true
		}
		if separate && b.Len() > 0 {
			b.WriteByte('_')
		}
		separate = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// wordBoundary reports whether the upper-case rune at i starts a new word:
// "userID" splits before I, "HTTPServer" splits before S.
func wordBoundary(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
