package app

import (
	"fmt"
	"regexp"
	"strings"

	"mdplayground/internal/grading"
)

var (
	headingRe  = regexp.MustCompile(`^#{1,6}(\s|$)`)
	orderedRe  = regexp.MustCompile(`^\d+[.)](\s|$)`)
	taskRe     = regexp.MustCompile(`^[-*+] \[[ xX]\]`)
	bulletRe   = regexp.MustCompile(`^[-*+](\s|$)`)
	ruleRe     = regexp.MustCompile(`^(-{3,}|\*{3,}|_{3,})$`)
	tableRe    = regexp.MustCompile(`^\|.*\|$`)
	imageRe    = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRe     = regexp.MustCompile(`\[[^\]]*\]\([^)]*\)`)
	emojiRe    = regexp.MustCompile(`:[a-z0-9_+-]+:`)
	boldRe     = regexp.MustCompile(`\*\*[^*]+\*\*|__[^_]+__`)
	strikeRe   = regexp.MustCompile(`~~[^~]+~~`)
	italicRe   = regexp.MustCompile(`(^|[^*])\*[^*\s][^*]*\*`)
	inlineCode = regexp.MustCompile("`[^`]+`")
)

// coachText explains where the input leaves the target and what the
// Markdown on that line does. It is empty when there is nothing to say.
func coachText(target, input string, res grading.Result) string {
	if res.Matched || strings.TrimSpace(input) == "" || strings.TrimSpace(target) == "" {
		return ""
	}
	targetLines := strings.Split(grading.Normalize(target), "\n")
	inputLines := strings.Split(grading.Normalize(input), "\n")

	if !res.Diverged {
		next := nextExpected(targetLines, inputLines)
		if next == "" {
			return ""
		}
		return "Keep going: next comes " + next + "."
	}

	idx := res.Line - 1
	if idx < 0 || idx >= len(targetLines) {
		return fmt.Sprintf("Line %d is not part of the target; remove it.", res.Line)
	}
	want := targetLines[idx]
	got := ""
	if idx < len(inputLines) {
		got = inputLines[idx]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Line %d, col %d: expected %s", res.Line, res.Column, describeRune(want, res.Column))
	if r := runeAt(got, res.Column); r != "" {
		fmt.Fprintf(&b, " but typed %s", quoteRune(r))
	}
	b.WriteString(".")
	if hint := spacingHint(want, got); hint != "" {
		b.WriteString(" " + hint)
	} else if desc := describeSyntax(want); desc != "" {
		b.WriteString(" " + desc)
	}
	return b.String()
}

func nextExpected(targetLines, inputLines []string) string {
	n := len(inputLines)
	if n == 0 || n > len(targetLines) {
		return ""
	}
	last := []rune(inputLines[n-1])
	want := []rune(targetLines[n-1])
	if len(last) < len(want) {
		return quoteRune(string(want[len(last)]))
	}
	if n < len(targetLines) {
		return "a new line"
	}
	return ""
}

func describeRune(line string, col int) string {
	if r := runeAt(line, col); r != "" {
		return quoteRune(r)
	}
	return "the end of the line"
}

func runeAt(line string, col int) string {
	runes := []rune(line)
	if col < 1 || col > len(runes) {
		return ""
	}
	return string(runes[col-1])
}

func quoteRune(r string) string {
	switch r {
	case " ":
		return "a space"
	case "\t":
		return "a tab"
	case "`":
		return "a backtick"
	}
	return "`" + r + "`"
}

func spacingHint(want, got string) string {
	switch {
	case headingRe.MatchString(want) && strings.HasPrefix(got, "#") && !headingRe.MatchString(got):
		return "Headings need a space after the last `#`."
	case bulletRe.MatchString(want) && len(got) > 1 && strings.ContainsAny(got[:1], "-*+") && got[1] != ' ':
		return "List markers need a space before the item text."
	case strings.HasPrefix(want, ">") && strings.HasPrefix(got, ">") && len(got) > 1 && got[1] != ' ' && len(want) > 1 && want[1] == ' ':
		return "Put a space after `>` in a blockquote."
	}
	return ""
}

func describeSyntax(line string) string {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "```"):
		return "Fenced code blocks open and close with three backticks on their own lines."
	case headingRe.MatchString(trimmed):
		return fmt.Sprintf("`%s` makes a level %d heading.", strings.Fields(trimmed)[0], len(strings.Fields(trimmed)[0]))
	case taskRe.MatchString(trimmed):
		return "Task items are list items that start with `[ ]` or `[x]`."
	case ruleRe.MatchString(trimmed):
		return "Three or more dashes on their own line draw a horizontal rule."
	case bulletRe.MatchString(trimmed):
		return "Start each bullet with `-` and a space."
	case orderedRe.MatchString(trimmed):
		return "Numbered items start with a number, a dot and a space."
	case strings.HasPrefix(trimmed, ">"):
		return "`>` at the start of a line makes a blockquote."
	case tableRe.MatchString(trimmed):
		return "Table cells are separated by `|`, and the second row of dashes marks the header."
	case imageRe.MatchString(trimmed):
		return "Images look like links with a leading `!`: `![alt](url)`."
	case linkRe.MatchString(trimmed):
		return "Links are `[text](url)` with no space between `]` and `(`."
	case strikeRe.MatchString(trimmed):
		return "Strikethrough wraps text in `~~`."
	case boldRe.MatchString(trimmed):
		return "Bold wraps text in `**` on both sides."
	case italicRe.MatchString(trimmed):
		return "Italic wraps text in single `*`."
	case inlineCode.MatchString(trimmed):
		return "Inline code wraps text in single backticks."
	case emojiRe.MatchString(trimmed):
		return "Emoji shortcodes are names between colons, like `:rocket:`."
	}
	return ""
}
