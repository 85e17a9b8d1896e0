package grading

import "strings"

// Diff renders a line-oriented comparison of the normalized target and input.
// Equal lines are omitted.
func Diff(target, input string) string {
	exp := strings.Split(Normalize(target), "\n")
	act := strings.Split(Normalize(input), "\n")
	maxLen := len(exp)
	if len(act) > maxLen {
		maxLen = len(act)
	}
	var b strings.Builder
	b.WriteString("--- target\n+++ typed\n")
	for i := 0; i < maxLen; i++ {
		var e, a string
		if i < len(exp) {
			e = exp[i]
		}
		if i < len(act) {
			a = act[i]
		}
		if e == a {
			continue
		}
		if e != "" {
			b.WriteString("-" + e + "\n")
		}
		if a != "" {
			b.WriteString("+" + a + "\n")
		}
	}
	return b.String()
}

// FirstMismatch returns the 1-based line and column of the first rune where
// the normalized input diverges from the normalized target. ok is false when
// the input is a prefix of the target (nothing typed wrong yet).
func FirstMismatch(target, input string) (line, col int, ok bool) {
	want := []rune(Normalize(target))
	got := []rune(Normalize(input))
	line, col = 1, 1
	for i := 0; i < len(got); i++ {
		if i >= len(want) || got[i] != want[i] {
			return line, col, true
		}
		if got[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return 0, 0, false
}
