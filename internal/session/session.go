package session

import (
	"sort"
	"strings"
	"sync"
	"time"

	"mdplayground/internal/grading"
	"mdplayground/internal/lessons"
)

// Session is the lesson engine behind one playground. It is safe for use from
// the UI goroutine, HTTP handlers and its own advance timer.
type Session struct {
	pool      lessons.Pool
	renderer  Renderer
	scheduler Scheduler
	logger    Logger
	delay     time.Duration

	mu                 sync.Mutex
	mode               Mode
	cursor             int
	input              string
	history            []string
	previews           []string
	locked             bool
	generation         uint64
	seq                uint64
	pending            Timer
	pendingEnhancement bool

	listenerMu sync.Mutex
	listeners  map[int]func(Event)
	nextID     int
}

func New(opts Options) *Session {
	if opts.Scheduler == nil {
		opts.Scheduler = ClockScheduler{}
	}
	if opts.AdvanceDelay <= 0 {
		opts.AdvanceDelay = DefaultAdvanceDelay
	}
	return &Session{
		pool:      opts.Pool,
		renderer:  opts.Renderer,
		scheduler: opts.Scheduler,
		logger:    opts.Logger,
		delay:     opts.AdvanceDelay,
		mode:      ModeLesson,
		listeners: map[int]func(Event){},
	}
}

// Subscribe registers fn for every event. Listeners run outside the session
// lock and may call back into the session.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenerMu.Unlock()
	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

func (s *Session) Pool() lessons.Pool { return s.pool }

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) CurrentLesson() (lessons.Lesson, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.Pick(s.cursor)
}

// UpdateInput stores text and, in lesson mode, completes the current lesson
// when text matches its target.
func (s *Session) UpdateInput(text string) {
	s.mu.Lock()
	s.input = text
	events := []Event{{Kind: EventChanged}}
	if ev, ok := s.checkLocked(); ok {
		events = append(events, ev)
	}
	s.fillLocked(events)
	s.mu.Unlock()
	s.emit(events...)
}

// ShowSolution puts the current target into the input and runs the normal
// match check, so it completes the lesson.
func (s *Session) ShowSolution() {
	s.mu.Lock()
	lesson, ok := s.pool.Pick(s.cursor)
	if s.mode != ModeLesson || !ok {
		s.mu.Unlock()
		return
	}
	s.input = lesson.Target
	index := s.cursor
	events := []Event{{Kind: EventChanged}}
	if ev, ok := s.checkLocked(); ok {
		events = append(events, ev)
	}
	s.fillLocked(events)
	s.mu.Unlock()
	s.log("lesson.solution_shown", map[string]any{"index": index})
	s.emit(events...)
}

// CompleteLesson records the current lesson as done whatever the input, and
// schedules the deferred advance. It is a no-op outside lesson mode, at the
// terminal sentinel, or while a completion is already pending.
func (s *Session) CompleteLesson() bool {
	s.mu.Lock()
	lesson, ok := s.pool.Pick(s.cursor)
	if s.mode != ModeLesson || !ok || s.locked {
		s.mu.Unlock()
		return false
	}
	events := []Event{s.completeLocked(lesson)}
	s.fillLocked(events)
	s.mu.Unlock()
	s.emit(events...)
	return true
}

func (s *Session) Advance() { s.next(false) }

// Skip moves on without recording anything.
func (s *Session) Skip() { s.next(true) }

func (s *Session) next(skipped bool) {
	s.mu.Lock()
	if s.mode != ModeLesson || s.cursor >= s.pool.Len() {
		s.mu.Unlock()
		return
	}
	s.cancelPendingLocked()
	s.cursor++
	s.input = ""
	s.locked = false
	s.generation++
	cursor := s.cursor
	events := []Event{{Kind: EventAdvanced, Skipped: skipped}}
	s.fillLocked(events)
	s.mu.Unlock()
	if skipped {
		s.log("lesson.skipped", map[string]any{"cursor": cursor})
	}
	s.emit(events...)
}

func (s *Session) Reset() {
	s.mu.Lock()
	s.resetLocked()
	events := []Event{{Kind: EventReset}}
	s.fillLocked(events)
	s.mu.Unlock()
	s.log("session.reset", nil)
	s.emit(events...)
}

// ToggleMode switches between lesson and editor mode. Entering the editor
// clears the input and drops any pending advance; returning to lessons starts
// over from the first lesson.
func (s *Session) ToggleMode() {
	s.mu.Lock()
	if s.mode == ModeLesson {
		s.mode = ModeEditor
		s.cancelPendingLocked()
		s.input = ""
		s.locked = false
		s.generation++
	} else {
		s.mode = ModeLesson
		s.resetLocked()
	}
	mode := s.mode
	events := []Event{{Kind: EventModeChanged}}
	s.fillLocked(events)
	s.mu.Unlock()
	s.log("session.mode_changed", map[string]any{"mode": string(mode)})
	s.emit(events...)
}

func (s *Session) ClearInput() {
	s.mu.Lock()
	if s.input == "" {
		s.mu.Unlock()
		return
	}
	s.input = ""
	events := []Event{{Kind: EventChanged}}
	s.fillLocked(events)
	s.mu.Unlock()
	s.emit(events...)
}

// BeginEnhancement marks an enhancement as in flight and returns the text to
// send. It refuses outside editor mode, on blank input, or while another
// enhancement is pending.
func (s *Session) BeginEnhancement() (string, bool) {
	s.mu.Lock()
	if s.mode != ModeEditor || s.pendingEnhancement || strings.TrimSpace(s.input) == "" {
		s.mu.Unlock()
		return "", false
	}
	s.pendingEnhancement = true
	text := s.input
	events := []Event{{Kind: EventEnhancementStarted}}
	s.fillLocked(events)
	s.mu.Unlock()
	s.emit(events...)
	return text, true
}

// FinishEnhancement clears the pending flag and applies result when the
// session is still in editor mode and the input is still original.
func (s *Session) FinishEnhancement(original, result string) bool {
	s.mu.Lock()
	if !s.pendingEnhancement {
		s.mu.Unlock()
		return false
	}
	s.pendingEnhancement = false
	applied := s.mode == ModeEditor && s.input == original && result != original
	if applied {
		s.input = result
	}
	events := []Event{{Kind: EventEnhancementFinished, Applied: applied}}
	s.fillLocked(events)
	s.mu.Unlock()
	s.log("enhance.finished", map[string]any{"applied": applied})
	s.emit(events...)
	return applied
}

// checkLocked runs the completion predicate. Callers hold s.mu.
func (s *Session) checkLocked() (Event, bool) {
	if s.mode != ModeLesson || s.locked {
		return Event{}, false
	}
	lesson, ok := s.pool.Pick(s.cursor)
	if !ok || !grading.Matches(s.input, lesson.Target) {
		return Event{}, false
	}
	return s.completeLocked(lesson), true
}

func (s *Session) completeLocked(lesson lessons.Lesson) Event {
	preview := ""
	if s.renderer != nil {
		preview = s.renderer.Render(lesson.Target)
	}
	s.history = append([]string{lesson.Target}, s.history...)
	s.previews = append([]string{preview}, s.previews...)
	s.locked = true

	gen, cursor := s.generation, s.cursor
	s.pending = s.scheduler.AfterFunc(s.delay, func() { s.deferredAdvance(gen, cursor) })
	s.log("lesson.completed", map[string]any{"index": cursor, "completed": len(s.history)})
	return Event{Kind: EventCompleted}
}

func (s *Session) deferredAdvance(gen uint64, cursor int) {
	s.mu.Lock()
	if s.generation != gen || s.mode != ModeLesson || s.cursor != cursor || !s.locked {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.cursor++
	s.input = ""
	s.locked = false
	s.generation++
	events := []Event{{Kind: EventAdvanced}}
	s.fillLocked(events)
	s.mu.Unlock()
	s.emit(events...)
}

func (s *Session) resetLocked() {
	s.cancelPendingLocked()
	s.cursor = 0
	s.input = ""
	s.history = nil
	s.previews = nil
	s.locked = false
	s.generation++
}

// Close drops any pending advance. The session stays usable.
func (s *Session) Close() {
	s.mu.Lock()
	s.cancelPendingLocked()
	s.locked = false
	s.generation++
	s.mu.Unlock()
}

func (s *Session) cancelPendingLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

func (s *Session) snapshotLocked() Snapshot {
	lesson, ok := s.pool.Pick(s.cursor)
	return Snapshot{
		Mode:               s.mode,
		Cursor:             s.cursor,
		Total:              s.pool.Len(),
		Lesson:             lesson,
		Terminal:           !ok,
		Input:              s.input,
		History:            append([]string(nil), s.history...),
		Previews:           append([]string(nil), s.previews...),
		Locked:             s.locked,
		PendingEnhancement: s.pendingEnhancement,
		Generation:         s.generation,
		Seq:                s.seq,
	}
}

// fillLocked records a change and attaches the post-change snapshot to every
// event.
func (s *Session) fillLocked(events []Event) {
	s.seq++
	snap := s.snapshotLocked()
	for i := range events {
		events[i].Snapshot = snap
	}
}

func (s *Session) emit(events ...Event) {
	s.listenerMu.Lock()
	fns := make([]func(Event), 0, len(s.listeners))
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenerMu.Unlock()
	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

func (s *Session) log(msg string, fields map[string]any) {
	if s.logger == nil {
		return
	}
	s.logger.Info(msg, fields)
}
