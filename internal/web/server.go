package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"mdplayground/internal/export"
	"mdplayground/internal/grading"
	"mdplayground/internal/lessons"
	"mdplayground/internal/render"
	"mdplayground/internal/session"
)

// CookieName holds the browser's session id.
const CookieName = "mdp_session"

//go:embed assets
var assets embed.FS

type Options struct {
	Pool            lessons.Pool
	AdvanceDelay    time.Duration
	Scheduler       session.Scheduler
	AllowOrigins    []string
	TrustedProxies  []string
	ReleaseMode     bool
	EnhanceDisabled bool
	EnhanceTimeout  time.Duration
	SessionTTL      time.Duration
	SweepInterval   time.Duration
	MaxSessions     int

	Renderer Renderer
	Enhancer Enhancer
	Logger   Logger
}

type Server struct {
	opts   Options
	store  *Store
	engine *gin.Engine
}

func New(opts Options) (*Server, error) {
	if opts.Renderer == nil {
		return nil, errors.New("web: renderer is required")
	}
	if opts.Pool.Len() == 0 {
		return nil, lessons.ErrEmptyPool
	}
	if opts.EnhanceTimeout <= 0 {
		opts.EnhanceTimeout = 5 * time.Second
	}
	if opts.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{opts: opts}
	s.store = NewStore(s.newSession, opts.SessionTTL, opts.MaxSessions, opts.Logger)

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	engine.Use(gin.Recovery(), s.requestLogger())
	if len(opts.AllowOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	s.routes(engine)
	s.engine = engine
	return s, nil
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/", s.index)
	r.GET("/healthcheck", s.healthcheck)
	static, _ := fs.Sub(assets, "assets")
	r.StaticFS("/static", http.FS(static))

	api := r.Group("/api")
	{
		api.GET("/state", s.withSession(s.state))
		api.POST("/input", s.withSession(s.input))
		api.POST("/skip", s.withSession(s.skip))
		api.POST("/solution", s.withSession(s.solution))
		api.POST("/mode", s.withSession(s.mode))
		api.POST("/clear", s.withSession(s.clear))
		api.POST("/render", s.render)
		api.POST("/enhance", s.withSession(s.enhance))
		api.GET("/download", s.withSession(s.download))
	}
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Store() *Store { return s.store }

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := s.store.StartSweeper(s.opts.SweepInterval); err != nil {
		return fmt.Errorf("start session sweeper: %w", err)
	}
	defer s.store.StopSweeper()

	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log("web.listen", map[string]any{"addr": addr})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) newSession() *session.Session {
	return session.New(session.Options{
		Pool:         s.opts.Pool,
		Renderer:     s.opts.Renderer,
		Scheduler:    s.opts.Scheduler,
		Logger:       s.opts.Logger,
		AdvanceDelay: s.opts.AdvanceDelay,
	})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log("http.request", map[string]any{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		})
	}
}

func (s *Server) withSession(h func(*gin.Context, *session.Session)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(CookieName)
		sess, key, created := s.store.Get(id)
		if created {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CookieName, key, int(s.opts.SessionTTL.Seconds()), "/", "", false, true)
		}
		h(c, sess)
	}
}

func (s *Server) log(msg string, fields map[string]any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Info(msg, fields)
	}
}

type statsJSON struct {
	Characters int `json:"characters"`
	Words      int `json:"words"`
	Lines      int `json:"lines"`
}

type stateJSON struct {
	Mode               string    `json:"mode"`
	Lesson             int       `json:"lesson"`
	Total              int       `json:"total"`
	Completed          int       `json:"completed"`
	Terminal           bool      `json:"terminal"`
	Instruction        string    `json:"instruction"`
	Target             string    `json:"target"`
	Input              string    `json:"input"`
	Preview            string    `json:"preview"`
	History            []string  `json:"history"`
	Previews           []string  `json:"previews"`
	Locked             bool      `json:"locked"`
	PendingEnhancement bool      `json:"pending_enhancement"`
	EnhanceAvailable   bool      `json:"enhance_available"`
	Closeness          float64   `json:"closeness"`
	Mismatch           *[2]int   `json:"mismatch,omitempty"`
	Stats              statsJSON `json:"stats"`
}

func (s *Server) stateOf(snap session.Snapshot) stateJSON {
	stats := render.Stats(snap.Input)
	st := stateJSON{
		Mode:               string(snap.Mode),
		Lesson:             snap.Cursor + 1,
		Total:              snap.Total,
		Completed:          snap.Completed(),
		Terminal:           snap.Terminal,
		Instruction:        snap.Lesson.Instruction,
		Target:             snap.Lesson.Target,
		Input:              snap.Input,
		Preview:            s.opts.Renderer.Render(snap.Input),
		History:            nonNil(snap.History),
		Previews:           nonNil(snap.Previews),
		Locked:             snap.Locked,
		PendingEnhancement: snap.PendingEnhancement,
		EnhanceAvailable:   s.enhanceAvailable(),
		Stats:              statsJSON{Characters: stats.Characters, Words: stats.Words, Lines: stats.Lines},
	}
	if snap.Mode == session.ModeLesson && !snap.Terminal && strings.TrimSpace(snap.Input) != "" {
		res := grading.Check(snap.Input, snap.Lesson.Target)
		st.Closeness = res.Closeness
		if res.Diverged {
			st.Mismatch = &[2]int{res.Line, res.Column}
		}
	}
	return st
}

func (s *Server) enhanceAvailable() bool {
	return !s.opts.EnhanceDisabled && s.opts.Enhancer != nil && s.opts.Enhancer.Configured()
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func (s *Server) respondState(c *gin.Context, sess *session.Session) {
	c.JSON(http.StatusOK, s.stateOf(sess.Snapshot()))
}

func respondError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, gin.H{"error": gin.H{"message": err.Error(), "code": code}})
}

func (s *Server) index(c *gin.Context) {
	b, err := assets.ReadFile("assets/index.html")
	if err != nil {
		respondError(c, http.StatusInternalServerError, "assets", err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", b)
}

func (s *Server) healthcheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "sessions": s.store.Len()})
}

func (s *Server) state(c *gin.Context, sess *session.Session) {
	s.respondState(c, sess)
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) input(c *gin.Context, sess *session.Session) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	sess.UpdateInput(req.Text)
	s.respondState(c, sess)
}

func (s *Server) skip(c *gin.Context, sess *session.Session) {
	sess.Skip()
	s.respondState(c, sess)
}

func (s *Server) solution(c *gin.Context, sess *session.Session) {
	sess.ShowSolution()
	s.respondState(c, sess)
}

func (s *Server) mode(c *gin.Context, sess *session.Session) {
	sess.ToggleMode()
	s.respondState(c, sess)
}

func (s *Server) clear(c *gin.Context, sess *session.Session) {
	sess.ClearInput()
	s.respondState(c, sess)
}

type renderRequest struct {
	Markdown string `json:"markdown"`
}

func (s *Server) render(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"html": s.opts.Renderer.Render(req.Markdown)})
}

func (s *Server) enhance(c *gin.Context, sess *session.Session) {
	if !s.enhanceAvailable() {
		respondError(c, http.StatusServiceUnavailable, "enhance_unavailable", errors.New("emoji enhancement is not configured"))
		return
	}
	text, ok := sess.BeginEnhancement()
	if !ok {
		respondError(c, http.StatusConflict, "enhance_refused", errors.New("enhancement needs editor mode, non-blank text and no request in flight"))
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*s.opts.EnhanceTimeout+time.Second)
	defer cancel()
	result := s.opts.Enhancer.Enhance(ctx, text)
	applied := sess.FinishEnhancement(text, result)
	c.JSON(http.StatusOK, gin.H{"applied": applied, "state": s.stateOf(sess.Snapshot())})
}

func (s *Server) download(c *gin.Context, sess *session.Session) {
	text := sess.Snapshot().Input
	c.Header("Content-Disposition", export.ContentDisposition())
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(text))
}
