package filestore

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxNameLength bounds sanitized names.
const MaxNameLength = 40

// fallbackName replaces names that sanitize to nothing.
const fallbackName = "item"

// SanitizeFilename turns a free-text name into a safe file name component:
// accents are stripped, only ASCII letters, digits, '-' and '_' survive,
// whitespace runs become a single '_', and the result is at most
// MaxNameLength bytes.
func SanitizeFilename(name string) string {
	return sanitize(name, MaxNameLength)
}

func sanitize(name string, maxLen int) string {
	decomposed, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), name)
	if err != nil {
		decomposed = name
	}

	var b strings.Builder
	inSpace := false
	for _, r := range decomposed {
		switch {
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteByte('_')
			}
			inSpace = true
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'):
			b.WriteRune(r)
		}
		inSpace = false
	}

	s := strings.Trim(b.String(), "_-")
	if s == "" {
		return fallbackName
	}

	if len(s) > maxLen {
		s = s[:maxLen]
		if i := strings.LastIndexByte(s, '_'); i > maxLen/2 {
			s = s[:i]
		}
	}
	return s
}

// ItemImageName builds the proposed file name for an item's image.
func ItemImageName(toteID, itemName, itemID string) string {
	name := "item_" + SanitizeFilename(itemName) + "_" + itemID
	if toteID != "" {
		name = "tote_" + toteID + "_" + name
	}
	return name
}
