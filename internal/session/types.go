package session

import (
	"time"

	"mdplayground/internal/lessons"
)

type Mode string

const (
	ModeLesson Mode = "lesson"
	ModeEditor Mode = "editor"
)

// DefaultAdvanceDelay is how long a completed lesson stays on screen before
// the next one starts.
const DefaultAdvanceDelay = 400 * time.Millisecond

type EventKind string

const (
	EventChanged             EventKind = "changed"
	EventCompleted           EventKind = "completed"
	EventAdvanced            EventKind = "advanced"
	EventModeChanged         EventKind = "mode_changed"
	EventReset               EventKind = "reset"
	EventEnhancementStarted  EventKind = "enhancement_started"
	EventEnhancementFinished EventKind = "enhancement_finished"
)

type Event struct {
	Kind     EventKind
	Snapshot Snapshot

	// Set on EventAdvanced when the learner skipped rather than completed.
	Skipped bool
	// Set on EventEnhancementFinished when the enhanced text replaced the input.
	Applied bool
}

// Snapshot is a copy of the session state. Callers may keep it.
type Snapshot struct {
	Mode               Mode
	Cursor             int
	Total              int
	Lesson             lessons.Lesson
	Terminal           bool
	Input              string
	History            []string
	Previews           []string
	Locked             bool
	PendingEnhancement bool
	Generation         uint64
	// Seq grows on every change. A listener holding a snapshot with a higher
	// Seq can drop any that arrives later with a lower one.
	Seq uint64
}

func (s Snapshot) Completed() int { return len(s.History) }

type Renderer interface {
	Render(markdown string) string
}

type Logger interface {
	Info(msg string, fields map[string]any)
}

// Scheduler runs fn once after d. It exists so tests can fire deferred
// advances by hand.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type Timer interface {
	Stop() bool
}

type ClockScheduler struct{}

func (ClockScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

type Options struct {
	Pool         lessons.Pool
	Renderer     Renderer
	Scheduler    Scheduler
	Logger       Logger
	AdvanceDelay time.Duration
}
