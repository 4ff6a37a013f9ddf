package storage

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var accentStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeFolderID derives the URL-safe alias for a folder display name:
// lower-cased, accents stripped, every non-alphanumeric run collapsed to a
// single underscore. "Background Music" becomes "background_music".
func NormalizeFolderID(name string) string {
	stripped, _, err := transform.String(accentStripper, name)
	if err != nil {
		stripped = name
	}
	stripped = strings.ToLower(stripped)

	var b strings.Builder
	lastUnderscore := false
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
