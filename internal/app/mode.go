package app

import (
	"strings"

	"mdplayground/internal/session"
)

func normalizeMode(raw string) session.Mode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(session.ModeEditor), "edit", "free", "freeform":
		return session.ModeEditor
	default:
		return session.ModeLesson
	}
}

func modeLabel(m session.Mode) string {
	if m == session.ModeEditor {
		return "Editor"
	}
	return "Lessons"
}
