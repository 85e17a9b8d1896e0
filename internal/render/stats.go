package render

import "strings"

type TextStats struct {
	Characters int
	Words      int
	Lines      int
}

func Stats(text string) TextStats {
	s := TextStats{Characters: len([]rune(text))}
	if strings.TrimSpace(text) != "" {
		s.Words = len(strings.Fields(text))
	}
	if text != "" {
		s.Lines = strings.Count(text, "\n") + 1
	}
	return s
}
