package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

const DefaultTerminalWidth = 78

// Terminal renders Markdown for the TUI preview. Renderers are built lazily
// per wrap width.
type Terminal struct {
	style  string
	logger Logger

	mu      sync.Mutex
	byWidth map[int]*glamour.TermRenderer
}

func NewTerminal(style string, logger Logger) *Terminal {
	if strings.TrimSpace(style) == "" {
		style = "dark"
	}
	return &Terminal{style: style, logger: logger, byWidth: map[int]*glamour.TermRenderer{}}
}

func (t *Terminal) Render(markdown string) string {
	return t.RenderWidth(markdown, DefaultTerminalWidth)
}

func (t *Terminal) RenderWidth(markdown string, width int) (out string) {
	defer func() {
		if rec := recover(); rec != nil {
			t.logError(fmt.Errorf("panic: %v", rec), width)
			out = ""
		}
	}()
	if strings.TrimSpace(markdown) == "" {
		return ""
	}
	r, err := t.renderer(width)
	if err != nil {
		t.logError(err, width)
		return ""
	}
	s, err := r.Render(markdown)
	if err != nil {
		t.logError(err, width)
		return ""
	}
	return strings.Trim(s, "\n")
}

func (t *Terminal) renderer(width int) (*glamour.TermRenderer, error) {
	if width < 10 {
		width = 10
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.byWidth[width]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(t.style),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, err
	}
	t.byWidth[width] = r
	return r, nil
}

func (t *Terminal) logError(err error, width int) {
	if t.logger == nil {
		return
	}
	t.logger.Error("render.terminal_failed", map[string]any{"error": err.Error(), "width": width})
}
