package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mdplayground/internal/session"
)

const editorSample = "# Notes :memo:\n\nSome **bold** ideas and a [link](https://example.com).\n\n- [x] try the editor\n- [ ] add emojis"

const (
	SolveAll  = -1
	SolveHalf = -2
)

// Scenario is a named session state used by demos and screenshots.
type Scenario struct {
	Name string
	Mode session.Mode
	// Completed is the number of lessons solved before handing over, or
	// SolveAll / SolveHalf.
	Completed int
	Input     string
}

type Manager struct{}

func NewManager() *Manager { return &Manager{} }

func (m *Manager) Resolve(name string) Scenario {
	switch strings.TrimSpace(name) {
	case "midway":
		return Scenario{Name: "midway", Mode: session.ModeLesson, Completed: SolveHalf}
	case "complete", "done":
		return Scenario{Name: "complete", Mode: session.ModeLesson, Completed: SolveAll}
	case "editor":
		return Scenario{Name: "editor", Mode: session.ModeEditor, Input: editorSample}
	case "typing":
		return Scenario{Name: "typing", Mode: session.ModeLesson, Input: "# Hello Mark"}
	default:
		return Scenario{Name: "fresh", Mode: session.ModeLesson}
	}
}

func (m *Manager) Apply(ctx context.Context, target Target, sc Scenario) error {
	if target == nil {
		return errors.New("no session to apply scenario to")
	}
	if target.Snapshot().Mode == session.ModeEditor {
		target.ToggleMode()
	} else {
		target.Reset()
	}

	total := target.Snapshot().Total
	solve := sc.Completed
	switch solve {
	case SolveAll:
		solve = total
	case SolveHalf:
		solve = total / 2
	}
	for i := 0; i < solve && i < total; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		target.ShowSolution()
		target.Advance()
	}

	if sc.Mode == session.ModeEditor {
		target.ToggleMode()
	}
	if sc.Input != "" {
		target.UpdateInput(sc.Input)
	}
	return nil
}

func (m *Manager) SetState(ctx context.Context, cacheDir string, state string, rendered bool) error {
	_ = ctx
	if strings.TrimSpace(cacheDir) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		cacheDir = filepath.Join(home, ".cache", "mdplayground")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}
	payload := map[string]any{
		"state":    strings.TrimSpace(state),
		"rendered": rendered,
	}
	b, _ := json.Marshal(payload)
	return os.WriteFile(filepath.Join(cacheDir, "dev_state.json"), b, 0o644)
}

// Autoplay types every remaining lesson target and waits for the engine to
// move on after each completion.
func (m *Manager) Autoplay(ctx context.Context, target Target, step time.Duration) error {
	advanced := make(chan struct{}, 1)
	unsubscribe := target.Subscribe(func(ev session.Event) {
		if ev.Kind != session.EventAdvanced {
			return
		}
		select {
		case advanced <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		snap := target.Snapshot()
		if snap.Terminal || snap.Mode != session.ModeLesson {
			return nil
		}
		if err := Play(ctx, target, m.PlaybackFrames(snap.Lesson.Target, step)); err != nil {
			return err
		}
		if !target.Snapshot().Locked {
			return fmt.Errorf("lesson %d did not complete after typing its target", snap.Cursor+1)
		}
		select {
		case <-advanced:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
