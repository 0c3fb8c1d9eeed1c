package upload

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// SanitizeFilename reduces an untrusted client filename to a flat, ASCII-only name
// that cannot address anything outside the upload directory. Accented letters are
// decomposed to their ASCII base ("café" becomes "cafe"); other non-ASCII runes are
// dropped. It may return "".
func SanitizeFilename(name string) string {
	name = strings.Map(dropMarks, norm.NFKD.String(name))
	name = strings.ReplaceAll(name, `\`, "/")
	// Separators become spaces so "a/b.jpg" keeps both segments as "a_b.jpg",
	// while ".." segments collapse into dots that are trimmed below.
	name = strings.ReplaceAll(name, "/", " ")
	name = whitespace.ReplaceAllString(strings.TrimSpace(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "." || name == ".." {
		return ""
	}
	return name
}

func dropMarks(r rune) rune {
	if unicode.Is(unicode.Mn, r) {
		return -1
	}
	return r
}

// Extension returns the lower-cased extension of name without the dot, or "".
func Extension(name string) string {
	ext := path.Ext(name)
	if ext == "" || ext == name {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
