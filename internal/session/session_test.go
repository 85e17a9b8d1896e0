package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"mdplayground/internal/lessons"
)

type manualTimer struct {
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (m *manualScheduler) AfterFunc(_ time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// fire runs every timer not yet fired. With stale set, stopped timers run too,
// which is what a timer racing its Stop call looks like.
func (m *manualScheduler) fire(stale bool) int {
	m.mu.Lock()
	var due []*manualTimer
	for _, t := range m.timers {
		if t.fired || (t.stopped && !stale) {
			continue
		}
		t.fired = true
		due = append(due, t)
	}
	m.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
	return len(due)
}

func (m *manualScheduler) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

type fakeRenderer struct{}

func (fakeRenderer) Render(md string) string { return "<p>" + md + "</p>" }

func testPool() lessons.Pool {
	return lessons.Pool{
		Kind:          lessons.PoolKind,
		SchemaVersion: lessons.SupportedSchemaVersion,
		PoolID:        "test-pool",
		Name:          "Test",
		Lessons: []lessons.Lesson{
			{Instruction: "Heading", Target: "# Title"},
			{Instruction: "Bold", Target: "**bold**"},
			{Instruction: "List", Target: "- a\n- b"},
		},
	}
}

func newTestSession() (*Session, *manualScheduler) {
	sched := &manualScheduler{}
	return New(Options{Pool: testPool(), Renderer: fakeRenderer{}, Scheduler: sched}), sched
}

func TestMatchCompletesOnceDuringWindow(t *testing.T) {
	s, sched := newTestSession()
	s.UpdateInput("# Title")
	s.UpdateInput("# Title ")
	s.UpdateInput("# Title")

	snap := s.Snapshot()
	if len(snap.History) != 1 || snap.History[0] != "# Title" {
		t.Fatalf("expected a single history entry, got %#v", snap.History)
	}
	if !snap.Locked {
		t.Fatalf("expected session locked until the advance fires")
	}
	if sched.count() != 1 {
		t.Fatalf("expected one scheduled advance, got %d", sched.count())
	}
	if snap.Cursor != 0 {
		t.Fatalf("cursor moved before the delay: %d", snap.Cursor)
	}
}

func TestDeferredAdvanceMovesToNextLesson(t *testing.T) {
	s, sched := newTestSession()
	s.UpdateInput("# Title")
	sched.fire(false)

	snap := s.Snapshot()
	if snap.Cursor != 1 || snap.Input != "" || snap.Locked {
		t.Fatalf("unexpected state after advance: %#v", snap)
	}
	if snap.Lesson.Target != "**bold**" {
		t.Fatalf("expected second lesson, got %#v", snap.Lesson)
	}
}

func TestHistoryAndPreviewsStayAligned(t *testing.T) {
	s, sched := newTestSession()
	s.UpdateInput("# Title")
	sched.fire(false)
	s.UpdateInput("**bold**")
	sched.fire(false)

	snap := s.Snapshot()
	if len(snap.History) != len(snap.Previews) {
		t.Fatalf("history/previews length mismatch: %d vs %d", len(snap.History), len(snap.Previews))
	}
	if snap.History[0] != "**bold**" || snap.History[1] != "# Title" {
		t.Fatalf("expected most recent first, got %#v", snap.History)
	}
	if snap.Previews[0] != "<p>**bold**</p>" {
		t.Fatalf("preview not aligned with history: %q", snap.Previews[0])
	}
}

func TestTerminalSentinelNeverCompletes(t *testing.T) {
	s, sched := newTestSession()
	for i := 0; i < 5; i++ {
		s.Skip()
	}
	snap := s.Snapshot()
	if !snap.Terminal || snap.Cursor != 3 {
		t.Fatalf("expected terminal state at cursor 3, got %#v", snap)
	}
	lesson, ok := s.CurrentLesson()
	if ok || lesson.Target != "" || lesson.Instruction == "" {
		t.Fatalf("expected terminal sentinel, got %#v ok=%v", lesson, ok)
	}
	s.UpdateInput("")
	s.UpdateInput("# Title")
	s.ShowSolution()
	if got := s.Snapshot(); len(got.History) != 0 || sched.count() != 0 {
		t.Fatalf("terminal state recorded a completion: %#v", got)
	}
}

func TestToggleTwiceResets(t *testing.T) {
	s, sched := newTestSession()
	s.UpdateInput("# Title")
	sched.fire(false)
	s.UpdateInput("partial")

	s.ToggleMode()
	if got := s.Snapshot(); got.Mode != ModeEditor || got.Input != "" {
		t.Fatalf("expected empty editor, got %#v", got)
	}
	s.ToggleMode()
	got := s.Snapshot()
	if got.Mode != ModeLesson || got.Cursor != 0 || got.Input != "" || len(got.History) != 0 || len(got.Previews) != 0 {
		t.Fatalf("expected reset lesson state, got %#v", got)
	}
}

func TestTrailingWhitespaceAndCRLFCompleteBuiltinLesson(t *testing.T) {
	pool, err := lessons.NewLoader().LoadBuiltin(context.Background())
	if err != nil {
		t.Fatalf("load builtin: %v", err)
	}
	sched := &manualScheduler{}
	s := New(Options{Pool: pool, Renderer: fakeRenderer{}, Scheduler: sched})
	s.UpdateInput("# Hello Markdown!  \r\n")

	snap := s.Snapshot()
	if len(snap.History) != 1 || snap.History[0] != "# Hello Markdown!" {
		t.Fatalf("expected builtin first lesson recorded, got %#v", snap.History)
	}
	sched.fire(false)
	if s.Snapshot().Cursor != 1 {
		t.Fatalf("expected cursor 1 after the delay")
	}
}

func TestSkipRecordsNothing(t *testing.T) {
	s, _ := newTestSession()
	s.UpdateInput("# Ti")
	s.Skip()
	snap := s.Snapshot()
	if snap.Cursor != 1 || snap.Input != "" || len(snap.History) != 0 {
		t.Fatalf("unexpected state after skip: %#v", snap)
	}
}

func TestSkipDuringWindowCancelsAdvance(t *testing.T) {
	s, sched := newTestSession()
	s.UpdateInput("# Title")
	s.Skip()
	if fired := sched.fire(false); fired != 0 {
		t.Fatalf("expected the pending advance to be cancelled, %d fired", fired)
	}
	// A timer that fired anyway must not advance twice.
	sched.fire(true)
	snap := s.Snapshot()
	if snap.Cursor != 1 || len(snap.History) != 1 || snap.Locked {
		t.Fatalf("unexpected state: %#v", snap)
	}
}

func TestStaleAdvanceAfterToggleIsNoOp(t *testing.T) {
	s, sched := newTestSession()
	s.UpdateInput("# Title")
	s.ToggleMode()
	sched.fire(true)

	snap := s.Snapshot()
	if snap.Mode != ModeEditor || snap.Cursor != 0 || snap.Locked {
		t.Fatalf("stale advance changed editor state: %#v", snap)
	}

	s.ToggleMode()
	s.UpdateInput("# Title")
	sched.fire(false)
	if got := s.Snapshot(); got.Cursor != 1 {
		t.Fatalf("expected fresh completion to advance, got cursor %d", got.Cursor)
	}
}

func TestEditorModeNeverCompletes(t *testing.T) {
	s, sched := newTestSession()
	s.ToggleMode()
	s.UpdateInput("# Title")
	s.ShowSolution()
	s.Skip()
	snap := s.Snapshot()
	if len(snap.History) != 0 || snap.Cursor != 0 || sched.count() != 0 {
		t.Fatalf("editor mode touched lessons: %#v", snap)
	}
	if snap.Input != "# Title" {
		t.Fatalf("expected editor input kept, got %q", snap.Input)
	}
}

func TestShowSolutionCompletesLesson(t *testing.T) {
	s, _ := newTestSession()
	s.ShowSolution()
	snap := s.Snapshot()
	if snap.Input != "# Title" || len(snap.History) != 1 || !snap.Locked {
		t.Fatalf("expected solution to complete the lesson, got %#v", snap)
	}
}

func TestClearInput(t *testing.T) {
	s, _ := newTestSession()
	s.ToggleMode()
	s.UpdateInput("draft")
	s.ClearInput()
	if got := s.Snapshot().Input; got != "" {
		t.Fatalf("expected cleared input, got %q", got)
	}
}

func TestEnhancementGuards(t *testing.T) {
	s, _ := newTestSession()
	s.UpdateInput("hello")
	if _, ok := s.BeginEnhancement(); ok {
		t.Fatalf("enhancement allowed in lesson mode")
	}

	s.ToggleMode()
	if _, ok := s.BeginEnhancement(); ok {
		t.Fatalf("enhancement allowed on blank input")
	}
	s.UpdateInput("hello")
	text, ok := s.BeginEnhancement()
	if !ok || text != "hello" {
		t.Fatalf("expected enhancement to start with input, got %q ok=%v", text, ok)
	}
	if _, ok := s.BeginEnhancement(); ok {
		t.Fatalf("second enhancement allowed while pending")
	}
	if !s.Snapshot().PendingEnhancement {
		t.Fatalf("expected pending flag")
	}
	if !s.FinishEnhancement(text, "hello :wave:") {
		t.Fatalf("expected result applied")
	}
	snap := s.Snapshot()
	if snap.Input != "hello :wave:" || snap.PendingEnhancement {
		t.Fatalf("unexpected state after enhancement: %#v", snap)
	}
}

func TestEnhancementDiscardedWhenInputChanged(t *testing.T) {
	s, _ := newTestSession()
	s.ToggleMode()
	s.UpdateInput("hello")
	text, _ := s.BeginEnhancement()
	s.UpdateInput("hello world")
	if s.FinishEnhancement(text, "hello :wave:") {
		t.Fatalf("stale result applied")
	}
	if got := s.Snapshot(); got.Input != "hello world" || got.PendingEnhancement {
		t.Fatalf("unexpected state: %#v", got)
	}
}

func TestEnhancementDiscardedAfterModeToggle(t *testing.T) {
	s, _ := newTestSession()
	s.ToggleMode()
	s.UpdateInput("hello")
	text, _ := s.BeginEnhancement()
	s.ToggleMode()
	if s.FinishEnhancement(text, "hello :wave:") {
		t.Fatalf("result applied in lesson mode")
	}
	if got := s.Snapshot(); got.Input != "" || got.Mode != ModeLesson {
		t.Fatalf("unexpected state: %#v", got)
	}
}

func TestListenersRunOutsideLock(t *testing.T) {
	s, sched := newTestSession()
	var kinds []EventKind
	unsubscribe := s.Subscribe(func(ev Event) {
		kinds = append(kinds, ev.Kind)
		_ = s.Snapshot()
	})
	s.UpdateInput("# Title")
	sched.fire(false)
	unsubscribe()
	s.UpdateInput("x")

	want := []EventKind{EventChanged, EventCompleted, EventAdvanced}
	if len(kinds) != len(want) {
		t.Fatalf("expected events %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, kinds)
		}
	}
}

func TestEventSnapshotReflectsChange(t *testing.T) {
	s, _ := newTestSession()
	var last Event
	s.Subscribe(func(ev Event) { last = ev })
	s.Skip()
	if last.Kind != EventAdvanced || !last.Skipped || last.Snapshot.Cursor != 1 {
		t.Fatalf("unexpected event: %#v", last)
	}
}

func TestCompleteLessonIsGuarded(t *testing.T) {
	s, sched := newTestSession()
	if !s.CompleteLesson() {
		t.Fatalf("expected completion of the first lesson")
	}
	if s.CompleteLesson() {
		t.Fatalf("second completion during the window must be refused")
	}
	if snap := s.Snapshot(); len(snap.History) != 1 || snap.History[0] != "# Title" || !snap.Locked {
		t.Fatalf("unexpected state: %#v", snap)
	}
	sched.fire(false)
	if snap := s.Snapshot(); snap.Cursor != 1 || snap.Locked {
		t.Fatalf("expected advance to lesson 2, got %#v", snap)
	}

	s.ToggleMode()
	if s.CompleteLesson() {
		t.Fatalf("editor mode must not complete lessons")
	}
}

func TestSeqOrdersRacingDeliveries(t *testing.T) {
	s, sched := newTestSession()
	s.UpdateInput("# Title")

	// The advance timer fires while the next keystroke is being delivered,
	// so that keystroke's older snapshot reaches the listener last.
	var latest Snapshot
	var delivered []uint64
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventChanged && ev.Snapshot.Input == "# Title x" {
			sched.fire(false)
		}
		delivered = append(delivered, ev.Snapshot.Seq)
		if ev.Snapshot.Seq >= latest.Seq {
			latest = ev.Snapshot
		}
	})
	s.UpdateInput("# Title x")

	live := s.Snapshot()
	if live.Cursor != 1 || live.Locked || live.Input != "" {
		t.Fatalf("expected advance to lesson 2, got %#v", live)
	}
	if len(delivered) != 2 || delivered[0] <= delivered[1] {
		t.Fatalf("expected the newer snapshot to arrive first, got seqs %v", delivered)
	}
	if latest.Seq != live.Seq || latest.Cursor != 1 || latest.Locked {
		t.Fatalf("newest delivered snapshot does not match the session: %#v", latest)
	}
}

func TestSeqGrowsOnEveryChange(t *testing.T) {
	s, _ := newTestSession()
	last := s.Snapshot().Seq
	steps := []func(){
		func() { s.UpdateInput("#") },
		func() { s.UpdateInput("#") },
		s.Skip,
		s.ShowSolution,
		s.ToggleMode,
		func() { s.UpdateInput("draft") },
		s.ClearInput,
		s.Reset,
	}
	for i, step := range steps {
		step()
		seq := s.Snapshot().Seq
		if seq <= last {
			t.Fatalf("step %d: seq did not grow (%d -> %d)", i, last, seq)
		}
		last = seq
	}
}

func TestCloseCancelsPendingAdvance(t *testing.T) {
	s, sched := newTestSession()
	s.UpdateInput("# Title")
	s.Close()
	if n := sched.fire(false); n != 0 {
		t.Fatalf("expected the advance timer stopped, %d fired", n)
	}
	if n := sched.fire(true); n != 1 {
		t.Fatalf("expected one stale timer, got %d", n)
	}
	if snap := s.Snapshot(); snap.Cursor != 0 {
		t.Fatalf("stale advance after close moved the cursor: %#v", snap)
	}
}
