package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mdplayground/internal/export"
	"mdplayground/internal/lessons"
	"mdplayground/internal/session"
	"mdplayground/internal/telemetry"
	"mdplayground/internal/ui"
)

type fakeView struct {
	mu        sync.Mutex
	states    []ui.PlaygroundState
	flashes   []string
	enhancing []bool
	stopped   int
	copied    []string
	ctrl      ui.Controller
}

func (f *fakeView) Run() error { return nil }
func (f *fakeView) Stop() {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
}
func (f *fakeView) SetController(c ui.Controller) { f.ctrl = c }
func (f *fakeView) SetPlayground(s ui.PlaygroundState) {
	f.mu.Lock()
	f.states = append(f.states, s)
	f.mu.Unlock()
}
func (f *fakeView) SetEnhancing(v bool) {
	f.mu.Lock()
	f.enhancing = append(f.enhancing, v)
	f.mu.Unlock()
}
func (f *fakeView) FlashStatus(msg string) {
	f.mu.Lock()
	f.flashes = append(f.flashes, msg)
	f.mu.Unlock()
}
func (f *fakeView) CopyToClipboard(text string) error {
	f.mu.Lock()
	f.copied = append(f.copied, text)
	f.mu.Unlock()
	return nil
}
func (f *fakeView) RequestDraw() {}

func (f *fakeView) last() ui.PlaygroundState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return ui.PlaygroundState{}
	}
	return f.states[len(f.states)-1]
}

func (f *fakeView) lastFlash() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.flashes) == 0 {
		return ""
	}
	return f.flashes[len(f.flashes)-1]
}

type manualTimer struct {
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool { t.stopped = true; return true }

type manualScheduler struct{ timers []*manualTimer }

func (m *manualScheduler) AfterFunc(_ time.Duration, fn func()) session.Timer {
	t := &manualTimer{fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (m *manualScheduler) fire() {
	timers := m.timers
	m.timers = nil
	for _, t := range timers {
		if !t.stopped {
			t.fn()
		}
	}
}

type fakeEnhancer struct {
	configured bool
	result     string
	before     func()
}

func (f fakeEnhancer) Configured() bool { return f.configured }
func (f fakeEnhancer) Enhance(_ context.Context, text string) string {
	if f.before != nil {
		f.before()
	}
	if f.result == "" {
		return text
	}
	return f.result
}

func testApp(t *testing.T, enh Enhancer) (*App, *fakeView, *manualScheduler) {
	t.Helper()
	pool, err := lessons.NewLoader().LoadBuiltin(context.Background())
	if err != nil {
		t.Fatalf("load pool: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Export.Dir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	view := &fakeView{}
	sched := &manualScheduler{}
	if enh == nil {
		enh = fakeEnhancer{}
	}
	a := newApp(cfg, telemetry.Discard(), pool, view, sched, enh)
	return a, view, sched
}

func TestNewAppRegistersController(t *testing.T) {
	a, view, _ := testApp(t, nil)
	if view.ctrl != a {
		t.Fatalf("expected app to be the view controller")
	}
}

func TestTypingTargetCompletesAndAdvances(t *testing.T) {
	a, view, sched := testApp(t, nil)
	a.OnInput("# Hello Markdown!")

	st := view.last()
	if !st.Celebrating || len(st.History) != 1 || st.Completed != 1 {
		t.Fatalf("expected celebration after completion, got %#v", st)
	}
	sched.fire()
	st = view.last()
	if st.Celebrating || st.Lesson != 2 || st.Input != "" || !st.ReplaceInput {
		t.Fatalf("expected second lesson with cleared input, got %#v", st)
	}
}

func TestKeystrokeStateDoesNotReplaceInput(t *testing.T) {
	a, view, _ := testApp(t, nil)
	a.OnInput("# Hel")
	st := view.last()
	if st.ReplaceInput {
		t.Fatalf("keystroke echo must not replace the text area")
	}
	if st.Closeness <= 0 || st.Mismatch != "" || !strings.Contains(st.Coach, "Keep going") {
		t.Fatalf("unexpected feedback: %#v", st)
	}
}

func TestTypedCompletionKeepsTextArea(t *testing.T) {
	a, view, _ := testApp(t, nil)
	a.OnInput("# Hello Markdown!")
	st := view.last()
	if !st.Celebrating || st.ReplaceInput {
		t.Fatalf("typed completion must leave the text area alone, got %#v", st)
	}
}

func TestStatesCarryIncreasingSeq(t *testing.T) {
	a, view, sched := testApp(t, nil)
	a.OnInput("# Hel")
	a.OnInput("# Hello Markdown!")
	sched.fire()
	view.mu.Lock()
	defer view.mu.Unlock()
	for i := 1; i < len(view.states); i++ {
		if view.states[i].Seq < view.states[i-1].Seq {
			t.Fatalf("state %d seq %d before %d", i, view.states[i].Seq, view.states[i-1].Seq)
		}
	}
	if first, last := view.states[0].Seq, view.states[len(view.states)-1].Seq; last <= first {
		t.Fatalf("seq did not grow: %d to %d", first, last)
	}
}

func TestMismatchFeedback(t *testing.T) {
	a, view, _ := testApp(t, nil)
	a.OnInput("#Hello")
	st := view.last()
	if st.Mismatch != "line 1, col 2" {
		t.Fatalf("unexpected mismatch %q", st.Mismatch)
	}
	if !strings.Contains(st.Coach, "space after") {
		t.Fatalf("expected heading spacing hint, got %q", st.Coach)
	}
}

func TestShowSolutionReplacesInput(t *testing.T) {
	a, view, _ := testApp(t, nil)
	a.OnShowSolution()
	st := view.last()
	if st.Input != "# Hello Markdown!" || !st.ReplaceInput || !st.Celebrating {
		t.Fatalf("expected solution in input, got %#v", st)
	}
}

func TestSkipFlashesAndMovesOn(t *testing.T) {
	a, view, _ := testApp(t, nil)
	a.OnSkip()
	if view.last().Lesson != 2 {
		t.Fatalf("expected lesson 2 after skip")
	}
	if view.lastFlash() != "Skipped lesson 1" {
		t.Fatalf("unexpected flash %q", view.lastFlash())
	}
}

func TestCopyAndDownload(t *testing.T) {
	a, view, _ := testApp(t, nil)
	a.OnCopy()
	if view.lastFlash() != "Nothing to copy" {
		t.Fatalf("unexpected flash %q", view.lastFlash())
	}

	a.OnToggleMode()
	a.OnInput("# Draft")
	a.OnCopy()
	if len(view.copied) != 1 || view.copied[0] != "# Draft" {
		t.Fatalf("expected copy through the view clipboard, got %#v", view.copied)
	}

	a.OnDownload()
	b, err := os.ReadFile(filepath.Join(a.cfg.Export.Dir, export.DownloadFilename))
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(b) != "# Draft" {
		t.Fatalf("unexpected download contents %q", b)
	}
	if !strings.HasPrefix(view.lastFlash(), "Saved ") {
		t.Fatalf("unexpected flash %q", view.lastFlash())
	}
}

func TestCopyFailureIsReported(t *testing.T) {
	a, view, _ := testApp(t, nil)
	a.clipboard = export.ClipboardFunc(func(string) error { return errors.New("no terminal") })
	a.OnToggleMode()
	a.OnInput("x")
	a.OnCopy()
	if !strings.Contains(view.lastFlash(), "no terminal") {
		t.Fatalf("expected failure flash, got %q", view.lastFlash())
	}
}

func TestClearReplacesInput(t *testing.T) {
	a, view, _ := testApp(t, nil)
	a.OnToggleMode()
	a.OnInput("draft")
	a.OnClear()
	st := view.last()
	if st.Input != "" || !st.ReplaceInput || st.Mode != ui.ModeEditor {
		t.Fatalf("unexpected state after clear: %#v", st)
	}
}

func TestEnhanceAppliesResult(t *testing.T) {
	a, view, _ := testApp(t, fakeEnhancer{configured: true, result: "hello 👋"})
	a.OnToggleMode()
	a.OnInput("hello")
	a.OnEnhance()

	st := view.last()
	if st.Input != "hello 👋" || !st.ReplaceInput {
		t.Fatalf("expected enhanced input, got %#v", st)
	}
	if len(view.enhancing) != 2 || !view.enhancing[0] || view.enhancing[1] {
		t.Fatalf("expected spinner on then off, got %#v", view.enhancing)
	}
	if view.lastFlash() != "Emojis added" {
		t.Fatalf("unexpected flash %q", view.lastFlash())
	}
}

func TestEnhanceDiscardedWhenInputChanges(t *testing.T) {
	var a *App
	enh := fakeEnhancer{configured: true, result: "hello 👋", before: func() { a.OnInput("hello there") }}
	a, view, _ := testApp(t, enh)
	a.OnToggleMode()
	a.OnInput("hello")
	a.OnEnhance()
	if got := a.session.Snapshot().Input; got != "hello there" {
		t.Fatalf("stale enhancement overwrote input: %q", got)
	}
	if !strings.Contains(view.lastFlash(), "discarded") {
		t.Fatalf("unexpected flash %q", view.lastFlash())
	}
}

func TestEnhanceNotConfigured(t *testing.T) {
	a, view, _ := testApp(t, fakeEnhancer{})
	a.OnToggleMode()
	a.OnInput("hello")
	a.OnEnhance()
	if !strings.Contains(view.lastFlash(), "not configured") {
		t.Fatalf("unexpected flash %q", view.lastFlash())
	}
	if a.session.Snapshot().PendingEnhancement {
		t.Fatalf("pending flag set without a request")
	}
}

func TestQuitStopsView(t *testing.T) {
	a, view, _ := testApp(t, nil)
	a.OnQuit()
	if view.stopped != 1 {
		t.Fatalf("expected view stop")
	}
}

func TestRunDemoScenario(t *testing.T) {
	a, view, _ := testApp(t, nil)
	a.cfg.DataDir = t.TempDir()
	resolved, err := a.runDemoScenario(context.Background(), "midway")
	if err != nil || resolved != "midway" {
		t.Fatalf("unexpected result %q %v", resolved, err)
	}
	st := view.last()
	if st.Lesson != st.Total/2+1 || st.Completed != st.Total/2 {
		t.Fatalf("unexpected midway state: %#v", st)
	}
	if state := a.getDevState(); state["state"] != "midway" || state["rendered"] != true {
		t.Fatalf("unexpected dev state: %#v", state)
	}
}

func TestDevHandlers(t *testing.T) {
	a, _, _ := testApp(t, nil)
	a.cfg.DataDir = t.TempDir()
	h := a.devHandler()

	serve := func(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		out := map[string]any{}
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
		return rec, out
	}

	rec, out := serve(http.MethodGet, "/__dev/ready", "")
	if rec.Code != http.StatusOK || out["ok"] != true || out["mode"] != "lesson" {
		t.Fatalf("unexpected ready response %d %#v", rec.Code, out)
	}
	if rec, _ := serve(http.MethodPost, "/__dev/ready", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 on ready, got %d", rec.Code)
	}

	rec, out = serve(http.MethodPost, "/__dev/demo", `{"demo":"midway"}`)
	if rec.Code != http.StatusOK || out["state"] != "midway" || out["requested"] != "midway" {
		t.Fatalf("unexpected demo response %d %#v", rec.Code, out)
	}
	_, out = serve(http.MethodGet, "/__dev/ready", "")
	if out["state"] != "midway" || out["rendered"] != true || out["pending"] != false || out["render_seq"].(float64) < 2 {
		t.Fatalf("ready did not reflect demo: %#v", out)
	}

	rec, out = serve(http.MethodPost, "/__dev/demo", `{"demo":"  "}`)
	if rec.Code != http.StatusBadRequest || out["error"] != "demo is required" {
		t.Fatalf("expected missing demo error, got %d %#v", rec.Code, out)
	}
	rec, out = serve(http.MethodPost, "/__dev/demo", `{`)
	if rec.Code != http.StatusBadRequest || out["error"] != "invalid json" {
		t.Fatalf("expected invalid json error, got %d %#v", rec.Code, out)
	}
	if rec, _ := serve(http.MethodGet, "/__dev/demo", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 on demo, got %d", rec.Code)
	}
}
