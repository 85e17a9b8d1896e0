package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"mdplayground/internal/devtools"
	"mdplayground/internal/enhance"
	"mdplayground/internal/export"
	"mdplayground/internal/grading"
	"mdplayground/internal/lessons"
	"mdplayground/internal/render"
	"mdplayground/internal/session"
	"mdplayground/internal/telemetry"
	"mdplayground/internal/ui"

	"github.com/google/uuid"
)

type App struct {
	cfg Config

	logger    *telemetry.Logger
	pool      lessons.Pool
	session   *session.Session
	enhancer  Enhancer
	clipboard export.Clipboard
	demo      *devtools.Manager
	view      ui.View

	sessionID   string
	unsubscribe func()

	devMu     sync.Mutex
	devServer *http.Server
	demoMu    sync.Mutex
	devState  struct {
		State     string
		Demo      string
		RenderSeq int
		Rendered  bool
		Pending   bool
		Error     string
	}
}

func New(cfg Config) (*App, error) {
	logger, err := telemetry.NewLogger(cfg.LogPath, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	pool, err := LoadPool(context.Background(), cfg)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	view := ui.New(ui.Options{
		ASCIIOnly:    cfg.ASCIIOnly,
		Debug:        cfg.DebugLayout,
		StyleVariant: cfg.UI.StyleVariant,
		MotionLevel:  cfg.UI.MotionLevel,
		Markdown:     render.NewTerminal(cfg.UI.Glamour, logger),
		Logger:       logger,
	})
	return newApp(cfg, logger, pool, view, session.ClockScheduler{}, NewEnhancer(cfg, logger)), nil
}

func newApp(cfg Config, logger *telemetry.Logger, pool lessons.Pool, view ui.View, sched session.Scheduler, enhancer Enhancer) *App {
	s := session.New(session.Options{
		Pool:         pool,
		Renderer:     render.NewHTML(logger),
		Scheduler:    sched,
		Logger:       logger,
		AdvanceDelay: cfg.AdvanceDelay(),
	})
	a := &App{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		session:   s,
		enhancer:  enhancer,
		demo:      devtools.NewManager(),
		view:      view,
		sessionID: uuid.NewString(),
	}
	a.clipboard = export.ClipboardFunc(view.CopyToClipboard)
	if cfg.UI.Clipboard == "system" {
		a.clipboard = export.SystemClipboard{}
	}
	a.unsubscribe = s.Subscribe(a.onSessionEvent)
	view.SetController(a)
	return a
}

// LoadPool loads the lesson override file from cfg, or the builtin pool.
func LoadPool(ctx context.Context, cfg Config) (lessons.Pool, error) {
	pool, err := lessons.NewLoader().Load(ctx, cfg.Lessons.File)
	if err != nil {
		return lessons.Pool{}, fmt.Errorf("load lessons: %w", err)
	}
	return pool, nil
}

func NewEnhancer(cfg Config, logger *telemetry.Logger) *enhance.Client {
	e := cfg.Enhance
	providers := enhance.FromConfig(e.PrimaryURL, e.PrimaryKey, e.Model, e.Prompt, e.FallbackURL, e.FallbackKey)
	return enhance.NewClient(cfg.EnhanceTimeout(), logger, providers...)
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("app.start", map[string]any{
		"session": a.sessionID,
		"pool":    a.pool.PoolID,
		"lessons": a.pool.Len(),
		"enhance": a.enhancer.Configured(),
	})

	if normalizeMode(a.cfg.StartMode) == session.ModeEditor {
		a.session.ToggleMode()
	} else {
		a.sync(true)
	}

	if a.cfg.Dev {
		if err := a.startDevHTTP(); err != nil {
			return err
		}
		if a.cfg.DemoScenario != "" {
			if _, err := a.runDemoScenario(ctx, a.cfg.DemoScenario); err != nil {
				a.logger.Error("dev.demo.initial_failed", map[string]any{"demo": a.cfg.DemoScenario, "error": err.Error()})
			}
		} else {
			a.setDev("fresh", "", true, "")
			_ = a.demo.SetState(ctx, a.cfg.DataDir, "fresh", true)
		}
	}

	stop := context.AfterFunc(ctx, a.view.Stop)
	defer stop()
	return a.view.Run()
}

func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.devServer != nil {
		_ = a.devServer.Shutdown(ctx)
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	snap := a.session.Snapshot()
	a.logger.Info("app.stop", map[string]any{"session": a.sessionID, "completed": snap.Completed(), "cursor": snap.Cursor})
	_ = a.logger.Close()
}

func (a *App) Session() *session.Session { return a.session }

func (a *App) onSessionEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventEnhancementStarted:
		a.view.SetEnhancing(true)
	case session.EventEnhancementFinished:
		a.view.SetEnhancing(false)
	}
	a.view.SetPlayground(a.playground(ev.Snapshot, replacesInput(ev)))
}

// replacesInput reports whether an event's input should overwrite the text
// area. Typing-driven events must not, or keystrokes still queued for the
// session are wiped.
func replacesInput(ev session.Event) bool {
	switch ev.Kind {
	case session.EventChanged, session.EventCompleted, session.EventEnhancementStarted:
		return false
	case session.EventEnhancementFinished:
		return ev.Applied
	default:
		return true
	}
}

func (a *App) sync(replace bool) {
	a.view.SetPlayground(a.playground(a.session.Snapshot(), replace))
}

func (a *App) playground(snap session.Snapshot, replace bool) ui.PlaygroundState {
	stats := render.Stats(snap.Input)
	st := ui.PlaygroundState{
		Mode:         ui.Mode(snap.Mode),
		Lesson:       snap.Cursor + 1,
		Total:        snap.Total,
		Completed:    snap.Completed(),
		Terminal:     snap.Terminal,
		Instruction:  snap.Lesson.Instruction,
		Target:       snap.Lesson.Target,
		Input:        snap.Input,
		ReplaceInput: replace,
		History:      snap.History,
		Stats:        ui.StatsRow{Characters: stats.Characters, Words: stats.Words, Lines: stats.Lines},
		Celebrating:  snap.Locked,
		Seq:          snap.Seq,
	}
	if snap.Mode == session.ModeLesson && !snap.Terminal && strings.TrimSpace(snap.Input) != "" {
		res := grading.Check(snap.Input, snap.Lesson.Target)
		st.Closeness = res.Closeness
		if res.Diverged {
			st.Mismatch = fmt.Sprintf("line %d, col %d", res.Line, res.Column)
		}
		st.Coach = coachText(snap.Lesson.Target, snap.Input, res)
	}
	return st
}

func (a *App) OnInput(text string) {
	a.session.UpdateInput(text)
}

func (a *App) OnSkip() {
	before := a.session.Snapshot()
	a.session.Skip()
	if after := a.session.Snapshot(); after.Cursor != before.Cursor {
		a.view.FlashStatus(fmt.Sprintf("Skipped lesson %d", before.Cursor+1))
	}
}

func (a *App) OnShowSolution() {
	a.session.ShowSolution()
	if snap := a.session.Snapshot(); snap.Mode == session.ModeLesson && snap.Input == snap.Lesson.Target {
		a.sync(true)
	}
}

func (a *App) OnToggleMode() {
	a.session.ToggleMode()
	a.view.FlashStatus("Switched to " + modeLabel(a.session.Snapshot().Mode))
}

func (a *App) OnCopy() {
	text := a.session.Snapshot().Input
	if strings.TrimSpace(text) == "" {
		a.view.FlashStatus("Nothing to copy")
		return
	}
	if err := a.clipboard.Copy(text); err != nil {
		a.logger.Warn("export.copy_failed", map[string]any{"error": err.Error()})
		a.view.FlashStatus("Copy failed: " + err.Error())
		return
	}
	a.logger.Info("export.copied", map[string]any{"bytes": len(text)})
	a.view.FlashStatus("Copied Markdown to clipboard")
}

func (a *App) OnDownload() {
	text := a.session.Snapshot().Input
	if strings.TrimSpace(text) == "" {
		a.view.FlashStatus("Nothing to save")
		return
	}
	d, err := export.WriteDownload(a.cfg.Export.Dir, text)
	if err != nil {
		a.logger.Error("export.download_failed", map[string]any{"error": err.Error(), "dir": a.cfg.Export.Dir})
		a.view.FlashStatus("Save failed: " + err.Error())
		return
	}
	a.logger.Info("export.downloaded", map[string]any{"path": d.Path, "bytes": d.Bytes})
	a.view.FlashStatus("Saved " + d.String())
}

func (a *App) OnEnhance() {
	if a.enhancer == nil || !a.enhancer.Configured() {
		a.view.FlashStatus("Emoji enhancement is not configured (set " + EnvPrefix + "ENHANCE_PRIMARY_URL)")
		return
	}
	text, ok := a.session.BeginEnhancement()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*a.cfg.EnhanceTimeout()+time.Second)
	defer cancel()
	result := a.enhancer.Enhance(ctx, text)
	switch {
	case a.session.FinishEnhancement(text, result):
		a.view.FlashStatus("Emojis added")
	case result == text:
		a.view.FlashStatus("Could not add emojis; text unchanged")
	default:
		a.view.FlashStatus("Text changed while enhancing; result discarded")
	}
}

func (a *App) OnClear() {
	a.session.ClearInput()
	a.sync(true)
}

func (a *App) OnQuit() {
	a.view.Stop()
}

func (a *App) OnResize(cols, rows int) {
	a.logger.Debug("ui.resize", map[string]any{"cols": cols, "rows": rows})
}

// setDev records what the dev endpoint reports. Every call bumps the render
// sequence so harnesses can wait for a fresh frame.
func (a *App) setDev(state, demo string, rendered bool, errText string) {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	a.devState.State = state
	a.devState.Demo = demo
	a.devState.Rendered = rendered
	a.devState.Pending = !rendered && errText == ""
	a.devState.Error = errText
	a.devState.RenderSeq++
}

func (a *App) getDevState() map[string]any {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	snap := a.session.Snapshot()
	return map[string]any{
		"ok":         true,
		"state":      a.devState.State,
		"demo":       a.devState.Demo,
		"render_seq": a.devState.RenderSeq,
		"rendered":   a.devState.Rendered,
		"pending":    a.devState.Pending,
		"error":      a.devState.Error,
		"mode":       string(snap.Mode),
		"cursor":     snap.Cursor,
		"completed":  snap.Completed(),
	}
}

func (a *App) runDemoScenario(ctx context.Context, requested string) (string, error) {
	sc := a.demo.Resolve(requested)
	a.logger.Info("dev.demo.dispatch.begin", map[string]any{"requested": requested, "resolved": sc.Name})
	a.setDev(sc.Name, requested, false, "")

	a.demoMu.Lock()
	defer a.demoMu.Unlock()

	if err := a.demo.Apply(ctx, a.session, sc); err != nil {
		a.logger.Error("dev.demo.dispatch.apply_failed", map[string]any{"requested": requested, "resolved": sc.Name, "error": err.Error()})
		a.setDev(sc.Name, requested, false, err.Error())
		_ = a.demo.SetState(ctx, a.cfg.DataDir, sc.Name, false)
		return sc.Name, err
	}
	a.sync(true)
	a.view.RequestDraw()
	a.logger.Info("dev.demo.dispatch.done", map[string]any{"requested": requested, "resolved": sc.Name})
	a.setDev(sc.Name, requested, true, "")
	if err := a.demo.SetState(ctx, a.cfg.DataDir, sc.Name, true); err != nil {
		a.logger.Error("dev_state.write_failed", map[string]any{"state": sc.Name, "error": err.Error()})
	}
	return sc.Name, nil
}

func (a *App) devHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/__dev/ready", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.getDevState())
	})
	mux.HandleFunc("/__dev/demo", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Demo string `json:"demo"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "invalid json"})
			return
		}
		req.Demo = strings.TrimSpace(req.Demo)
		if req.Demo == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "demo is required"})
			return
		}
		a.logger.Info("dev.demo.request", map[string]any{"demo": req.Demo})

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		resolved, err := a.runDemoScenario(ctx, req.Demo)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": err.Error(), "state": resolved})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "state": resolved, "requested": req.Demo})
	})
	return mux
}

func (a *App) startDevHTTP() error {
	a.devServer = &http.Server{Addr: a.cfg.DevHTTP, Handler: a.devHandler()}
	a.setDev("fresh", a.cfg.DemoScenario, true, "")
	go func() {
		if err := a.devServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("dev_http.listen_failed", map[string]any{"error": err.Error(), "addr": a.cfg.DevHTTP})
		}
	}()
	return nil
}

var _ ui.Controller = (*App)(nil)
