package grading

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Result summarizes how the current input compares to a lesson target.
type Result struct {
	Matched   bool
	Closeness float64
	Line      int
	Column    int
	Diverged  bool
}

// Check compares input against target.
func Check(input, target string) Result {
	res := Result{
		Matched:   Matches(input, target),
		Closeness: Closeness(input, target),
	}
	if res.Matched {
		res.Closeness = 1
		return res
	}
	res.Line, res.Column, res.Diverged = FirstMismatch(target, input)
	return res
}

// Closeness is 1 minus the edit distance between the normalized texts,
// scaled by the longer of the two. Blank targets score 0.
func Closeness(input, target string) float64 {
	want := Normalize(target)
	if want == "" {
		return 0
	}
	got := Normalize(input)
	longest := utf8.RuneCountInString(want)
	if n := utf8.RuneCountInString(got); n > longest {
		longest = n
	}
	dist := levenshtein.ComputeDistance(got, want)
	v := 1 - float64(dist)/float64(longest)
	if v < 0 {
		return 0
	}
	return v
}
