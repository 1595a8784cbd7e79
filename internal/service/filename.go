package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

var pathSeparators = strings.NewReplacer("/", " ", "\\", " ")

// SanitizeFilename reduces an uploaded filename to a safe single path
// component. Accented characters are folded to ASCII, path separators and
// whitespace become underscores, everything outside [A-Za-z0-9_.-] is dropped
// and leading or trailing dots and underscores are trimmed. The result may be
// empty.
func SanitizeFilename(name string) string {
	name = norm.NFKD.String(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}

	name = pathSeparators.Replace(b.String())
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// stagingName returns the sanitized filename, falling back to audio.<ext>
// when sanitizing removed the whole name or its extension.
func stagingName(filename, ext string) string {
	name := SanitizeFilename(filename)
	if name == "" || !strings.HasSuffix(strings.ToLower(name), "."+ext) {
		return "audio." + ext
	}
	return name
}
