package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Narrow folds full-width ASCII (digits, latin letters, punctuation and the
// ideographic space) into its half-width form. Katakana and kanji are left as is.
func Narrow(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '　' {
			return ' '
		}
		if r >= '！' && r <= '～' {
			return []rune(width.Narrow.String(string(r)))[0]
		}
		return r
	}, s)
}

// Normalize narrows full-width characters, drops non printable runes and
// collapses whitespace into single spaces.
func Normalize(s string) string {
	s = Narrow(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeLabel is Normalize with all whitespace removed, used to compare
// table headers like "ボーナス 数字" and "ボーナス数字".
func NormalizeLabel(s string) string {
	return whitespaceRegex.ReplaceAllString(Normalize(s), "")
}

// Lines splits text on newlines, trims every line and drops empty ones.
func Lines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
