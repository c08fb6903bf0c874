package syncer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var deaccenter = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Sluggify turns an arbitrary title into a URL-safe slug: accents stripped,
// lowercased, runs of non-alphanumerics collapsed into single dashes.
func Sluggify(title string) string {
	plain, _, err := transform.String(deaccenter, title)
	if err != nil {
		plain = title
	}
	plain = strings.ToLower(plain)

	var b strings.Builder
	b.Grow(len(plain))
	dash := false
	for _, r := range plain {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ConvertQueueTitle derives the tag's display name from the upstream queue
// title. Queue titles are breadcrumb paths ("Section > Topic > Tag"); the
// last two segments form the name, with a single-segment title used verbatim.
func ConvertQueueTitle(title string) string {
	parts := strings.Split(title, ">")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch len(parts) {
	case 1:
		return parts[0]
	case 2:
		return parts[1]
	default:
		return parts[len(parts)-2] + ", " + parts[len(parts)-1]
	}
}
