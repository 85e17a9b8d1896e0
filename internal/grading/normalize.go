package grading

import "strings"

// Normalize canonicalizes line endings to \n, strips trailing whitespace from
// every line and trims the text as a whole.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\f\v")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Matches reports whether input reproduces target after normalization. An
// empty target never matches.
func Matches(input, target string) bool {
	want := Normalize(target)
	if want == "" {
		return false
	}
	return Normalize(input) == want
}
