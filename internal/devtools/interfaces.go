package devtools

import (
	"context"
	"time"

	"mdplayground/internal/session"
)

// Target is the part of the lesson engine the dev tooling drives.
type Target interface {
	Reset()
	ToggleMode()
	ShowSolution()
	Advance()
	UpdateInput(text string)
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Event)) func()
}

type Demo interface {
	Resolve(name string) Scenario
	Apply(ctx context.Context, target Target, sc Scenario) error
	SetState(ctx context.Context, cacheDir string, state string, rendered bool) error
	PlaybackFrames(text string, step time.Duration) []PlaybackFrame
}

var _ Target = (*session.Session)(nil)
var _ Demo = (*Manager)(nil)
