package extractor

import (
	"regexp"
	"strings"
	"unicode"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// cleanText normalises extracted page text: NULs and carriage returns are
// dropped, trailing spaces are cut from each line, runs of blank lines are
// collapsed to one and the result is trimmed.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	s = strings.Join(lines, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// contentChars counts non-space runes.
func contentChars(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
