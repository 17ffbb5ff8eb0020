package listview

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Humanize turns a camelCase field name into a display label by inserting a
// space before every internal capital letter and capitalizing the first
// character: "minimumExperience" becomes "Minimum Experience".
func Humanize(name string) string {
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	out := b.String()
	first, size := utf8.DecodeRuneInString(out)
	return string(unicode.ToUpper(first)) + out[size:]
}
