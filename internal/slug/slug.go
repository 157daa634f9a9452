// Package slug derives the normalized identifier used as the idempotency
// key for generated topics.
package slug

import (
	"strings"
	"unicode"
)

// Make lowercases the title, collapses any run of non-alphanumeric
// characters into a single hyphen, and trims leading/trailing hyphens.
// Two titles that normalize to the same slug are the same subject.
func Make(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	prevHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	return strings.TrimRight(b.String(), "-")
}
