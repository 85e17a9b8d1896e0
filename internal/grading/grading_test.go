package grading

import (
	"strings"
	"testing"
)

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"# Hello Markdown!  \r\n",
		"- First item \t\r- Second item\r\n\r\n",
		"\n\n```js\nx  \n```\n\n",
		"line\f\nnext\v",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("normalize not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestNormalizeCanonicalizesLineEndings(t *testing.T) {
	got := Normalize("- First item  \r\n- Second item\r")
	if got != "- First item\n- Second item" {
		t.Fatalf("unexpected normalized text: %q", got)
	}
}

func TestMatchesToleratesTrailingWhitespaceAndCRLF(t *testing.T) {
	if !Matches("# Hello Markdown!   \r\n", "# Hello Markdown!") {
		t.Fatalf("expected match")
	}
	if Matches("# Hello Markdown", "# Hello Markdown!") {
		t.Fatalf("expected prefix not to match")
	}
	if Matches("  # Hello", "# Hello") == false {
		t.Fatalf("expected leading whitespace of the whole text to be trimmed")
	}
}

func TestMatchesKeepsIndentationInsideText(t *testing.T) {
	target := "1. First level\n   - Second level"
	if Matches("1. First level\n- Second level", target) {
		t.Fatalf("indentation of inner lines must matter")
	}
}

func TestEmptyTargetNeverMatches(t *testing.T) {
	if Matches("", "") || Matches("anything", "   ") {
		t.Fatalf("blank target must not match")
	}
}

func TestCheckReportsFirstMismatch(t *testing.T) {
	res := Check("## Hellp", "## Hello")
	if res.Matched {
		t.Fatalf("expected mismatch")
	}
	if !res.Diverged || res.Line != 1 || res.Column != 8 {
		t.Fatalf("unexpected mismatch position: %#v", res)
	}
	if res.Closeness <= 0.5 || res.Closeness >= 1 {
		t.Fatalf("unexpected closeness %.2f", res.Closeness)
	}
}

func TestCheckPrefixIsNotDiverged(t *testing.T) {
	res := Check("- First", "- First item\n- Second item")
	if res.Diverged {
		t.Fatalf("prefix input should not be reported as diverged: %#v", res)
	}
}

func TestDiffListsChangedLines(t *testing.T) {
	d := Diff("- First item\n- Second item", "- First item\n- Secnd item")
	if !strings.Contains(d, "-- Second item") || !strings.Contains(d, "+- Secnd item") {
		t.Fatalf("unexpected diff:\n%s", d)
	}
	if strings.Contains(d, "First") {
		t.Fatalf("equal lines should be omitted:\n%s", d)
	}
}
