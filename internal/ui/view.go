package ui

import (
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/x/ansi"
)

var ErrNotRunning = errors.New("terminal ui is not running")

type applyMsg struct {
	fn func(*Root)
}

type drawMsg struct{}
type animateMsg time.Time

// PreviewRenderer renders Markdown for a panel of the given width.
type PreviewRenderer interface {
	RenderWidth(markdown string, width int) string
}

type Logger interface {
	Error(msg string, fields map[string]any)
}

type playKeyMap struct {
	Solution key.Binding
	Skip     key.Binding
	Mode     key.Binding
	Copy     key.Binding
	Download key.Binding
	Enhance  key.Binding
	Clear    key.Binding
	Quit     key.Binding

	editor bool
}

func (k playKeyMap) ShortHelp() []key.Binding {
	if k.editor {
		return []key.Binding{k.Mode, k.Copy, k.Download, k.Enhance, k.Clear, k.Quit}
	}
	return []key.Binding{k.Solution, k.Skip, k.Mode, k.Copy, k.Quit}
}

func (k playKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Solution, k.Skip, k.Mode}, {k.Copy, k.Download, k.Enhance, k.Clear, k.Quit}}
}

type previewKey struct {
	markdown string
	width    int
}

type Root struct {
	theme       Theme
	ascii       bool
	debug       bool
	ctrl        Controller
	motionLevel string
	markdown    PreviewRenderer
	logger      Logger

	mu      sync.Mutex
	program *tea.Program
	running bool

	layout LayoutMode
	cols   int
	rows   int

	state       PlaygroundState
	stateSeq    uint64
	statusFlash string
	enhancing   bool

	input    textarea.Model
	lastSent string

	help     help.Model
	keymap   playKeyMap
	progress progress.Model
	spin     spinner.Model
	spring   harmonica.Spring
	cardPos  float64
	cardVel  float64

	previews map[previewKey]string

	drawPending atomic.Bool

	inputMu      sync.Mutex
	pendingInput *string
	inputBusy    bool

	lastInputEvent string
}

type Options struct {
	ASCIIOnly    bool
	Debug        bool
	StyleVariant string
	MotionLevel  string
	Markdown     PreviewRenderer
	Logger       Logger
}

func New(opts Options) *Root {
	h := help.New()
	h.Styles = help.DefaultDarkStyles()
	motionLevel := normalizeMotionLevel(opts.MotionLevel)
	theme := ThemeForVariant(normalizeStyleVariant(opts.StyleVariant))
	spring := harmonica.NewSpring(harmonica.FPS(60), 7.0, 0.6)
	switch motionLevel {
	case "reduced":
		spring = harmonica.NewSpring(harmonica.FPS(30), 9.0, 0.92)
	case "off":
		spring = harmonica.NewSpring(harmonica.FPS(60), 1000.0, 1.0)
	}
	bar := progress.New(
		progress.WithWidth(20),
		progress.WithColors(lipgloss.Color("#5EC2FF"), lipgloss.Color("#79E6A6"), lipgloss.Color("#F2D16B")),
		progress.WithScaled(true),
	)
	if motionLevel == "off" {
		bar.SetSpringOptions(1000.0, 1.0)
	}
	spin := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(theme.Accent),
	)

	input := textarea.New()
	input.ShowLineNumbers = false
	input.Prompt = ""
	input.Placeholder = "Type the Markdown here..."
	input.SetWidth(40)
	input.SetHeight(5)
	input.Focus()

	r := &Root{
		theme:       theme,
		ascii:       opts.ASCIIOnly,
		debug:       opts.Debug,
		motionLevel: motionLevel,
		markdown:    opts.Markdown,
		logger:      opts.Logger,
		layout:      LayoutWide,
		cols:        120,
		rows:        30,
		input:       input,
		help:        h,
		progress:    bar,
		spin:        spin,
		spring:      spring,
		previews:    map[previewKey]string{},
		state:       PlaygroundState{Mode: ModeLesson, Lesson: 1},
	}
	r.keymap = playKeyMap{
		Solution: key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "Solution")),
		Skip:     key.NewBinding(key.WithKeys("f2"), key.WithHelp("F2", "Skip")),
		Mode:     key.NewBinding(key.WithKeys("f3"), key.WithHelp("F3", "Lessons/Editor")),
		Copy:     key.NewBinding(key.WithKeys("f4"), key.WithHelp("F4", "Copy")),
		Download: key.NewBinding(key.WithKeys("f5"), key.WithHelp("F5", "Download")),
		Enhance:  key.NewBinding(key.WithKeys("f6"), key.WithHelp("F6", "Add emojis")),
		Clear:    key.NewBinding(key.WithKeys("f7"), key.WithHelp("F7", "Clear")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+q"), key.WithHelp("Ctrl+Q", "Quit")),
	}
	return r
}

func (r *Root) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, spinnerTickCmd(r.spin))
}

func (r *Root) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("update", rec, msg)
			model = r
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.cols = msg.Width
		r.rows = msg.Height
		r.layout = DetermineLayoutMode(r.cols, r.rows)
		r.dispatchController(func(c Controller) { c.OnResize(msg.Width, msg.Height) })
		return r, nil
	case applyMsg:
		if msg.fn != nil {
			msg.fn(r)
		}
		return r, r.animateIfNeeded()
	case drawMsg:
		r.drawPending.Store(false)
		return r, nil
	case animateMsg:
		target := r.cardTarget()
		r.cardPos, r.cardVel = r.spring.Update(r.cardPos, r.cardVel, target)
		if r.shouldAnimate(target) {
			return r, animateTickCmd()
		}
		r.cardPos = target
		r.cardVel = 0
		return r, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spin, cmd = r.spin.Update(msg)
		return r, cmd
	case tea.KeyPressMsg:
		return r.handleKey(msg)
	case tea.PasteMsg:
		r.recordInputEvent(fmt.Sprintf("paste:%d", len(msg.Content)))
		var cmd tea.Cmd
		r.input, cmd = r.input.Update(msg)
		r.syncInput()
		return r, cmd
	}

	var inputCmd tea.Cmd
	r.input, inputCmd = r.input.Update(msg)
	return r, inputCmd
}

func (r *Root) View() (view tea.View) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("view", rec, nil)
			width := max(1, r.cols)
			if r.statusFlash == "" {
				r.statusFlash = "Recovered UI panic"
			}
			view = tea.NewView(r.theme.Fail.Width(width).Render(trimForWidth("UI recovered from a rendering panic. Check logs.", max(1, width-1))))
		}
	}()

	if r.cols < 1 {
		r.cols = 120
	}
	if r.rows < 1 {
		r.rows = 30
	}
	v := tea.NewView(r.renderPlayground())
	v.AltScreen = true
	v.WindowTitle = "Markdown Playground"
	return v
}

func (r *Root) Run() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	p := tea.NewProgram(r)
	r.program = p
	r.running = true
	r.mu.Unlock()

	_, err := p.Run()

	r.mu.Lock()
	r.program = nil
	r.running = false
	r.mu.Unlock()
	return err
}

func (r *Root) Stop() {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

func (r *Root) SetController(c Controller) {
	r.ctrl = c
}

func (r *Root) SetPlayground(s PlaygroundState) {
	r.apply(func(m *Root) {
		if s.Seq < m.stateSeq {
			return
		}
		m.stateSeq = s.Seq
		if s.ReplaceInput && m.input.Value() != s.Input {
			m.input.SetValue(s.Input)
			m.lastSent = s.Input
		}
		m.state = s
		m.keymap.editor = s.Mode == ModeEditor
	})
}

func (r *Root) SetEnhancing(enhancing bool) {
	r.apply(func(m *Root) {
		m.enhancing = enhancing
	})
}

func (r *Root) FlashStatus(msg string) {
	r.apply(func(m *Root) {
		m.statusFlash = msg
	})
}

// CopyToClipboard asks the terminal to set the system clipboard (OSC 52).
func (r *Root) CopyToClipboard(text string) error {
	r.mu.Lock()
	p := r.program
	running := r.running
	r.mu.Unlock()
	if !running || p == nil {
		return ErrNotRunning
	}
	p.Send(tea.SetClipboard(text)())
	return nil
}

func (r *Root) RequestDraw() {
	r.mu.Lock()
	p := r.program
	running := r.running
	r.mu.Unlock()
	if !running || p == nil {
		return
	}
	if !r.drawPending.CompareAndSwap(false, true) {
		return
	}
	time.AfterFunc(16*time.Millisecond, func() {
		r.mu.Lock()
		p := r.program
		running := r.running
		r.mu.Unlock()
		if !running || p == nil {
			r.drawPending.Store(false)
			return
		}
		p.Send(drawMsg{})
	})
}

func (r *Root) apply(fn func(*Root)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	p := r.program
	running := r.running
	if !running || p == nil {
		fn(r)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	p.Send(applyMsg{fn: fn})
}

func (r *Root) dispatchController(fn func(Controller)) {
	if fn == nil || r.ctrl == nil {
		return
	}
	ctrl := r.ctrl
	go fn(ctrl)
}

// dispatchInput hands text to the controller on a single worker so edits
// arrive in order. Edits queued while the worker is busy collapse into the
// newest one.
func (r *Root) dispatchInput(text string) {
	if r.ctrl == nil {
		return
	}
	r.inputMu.Lock()
	r.pendingInput = &text
	if r.inputBusy {
		r.inputMu.Unlock()
		return
	}
	r.inputBusy = true
	r.inputMu.Unlock()

	ctrl := r.ctrl
	go func() {
		for {
			r.inputMu.Lock()
			next := r.pendingInput
			r.pendingInput = nil
			if next == nil {
				r.inputBusy = false
				r.inputMu.Unlock()
				return
			}
			r.inputMu.Unlock()
			ctrl.OnInput(*next)
		}
	}()
}

func (r *Root) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent(fmt.Sprintf("key:%v mod:%v text:%q", msg.Code, msg.Mod, msg.Text))

	switch {
	case key.Matches(msg, r.keymap.Quit):
		r.dispatchController(func(c Controller) { c.OnQuit() })
		return r, nil
	case key.Matches(msg, r.keymap.Solution):
		if r.state.Mode == ModeLesson {
			r.dispatchController(func(c Controller) { c.OnShowSolution() })
		}
		return r, nil
	case key.Matches(msg, r.keymap.Skip):
		if r.state.Mode == ModeLesson {
			r.dispatchController(func(c Controller) { c.OnSkip() })
		}
		return r, nil
	case key.Matches(msg, r.keymap.Mode):
		r.dispatchController(func(c Controller) { c.OnToggleMode() })
		return r, nil
	case key.Matches(msg, r.keymap.Copy):
		r.dispatchController(func(c Controller) { c.OnCopy() })
		return r, nil
	case key.Matches(msg, r.keymap.Download):
		r.dispatchController(func(c Controller) { c.OnDownload() })
		return r, nil
	case key.Matches(msg, r.keymap.Enhance):
		if r.state.Mode == ModeEditor && !r.enhancing {
			r.dispatchController(func(c Controller) { c.OnEnhance() })
		}
		return r, nil
	case key.Matches(msg, r.keymap.Clear):
		if r.state.Mode == ModeEditor {
			r.dispatchController(func(c Controller) { c.OnClear() })
		}
		return r, nil
	}

	var cmd tea.Cmd
	r.input, cmd = r.input.Update(msg)
	r.syncInput()
	return r, cmd
}

func (r *Root) syncInput() {
	value := r.input.Value()
	if value == r.lastSent {
		return
	}
	r.lastSent = value
	r.statusFlash = ""
	r.dispatchInput(value)
}

func (r *Root) renderPlayground() string {
	w, h := r.cols, r.rows
	mode := DetermineLayoutMode(w, h)
	r.layout = mode

	if mode == LayoutTooSmall {
		msg := []string{
			"Terminal too small",
			fmt.Sprintf("Current: %dx%d", w, h),
			"Minimum: 60x18",
			"Resize the terminal to continue.",
		}
		panel := r.drawPanel("Resize Required", msg, min(60, w), min(12, h))
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, panel)
	}

	header := r.headerText()
	status := r.statusText()
	keys := r.helpText()
	bodyH := max(6, h-3)

	var body string
	if mode == LayoutWide {
		leftW := w / 2
		rightW := w - leftW
		left := r.renderInputPanel(leftW, bodyH)
		right := r.renderPreviewPanel(rightW, bodyH)
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	} else {
		topH := bodyH / 2
		top := r.renderInputPanel(w, topH)
		bottom := r.renderPreviewPanel(w, bodyH-topH)
		body = top + "\n" + bottom
	}
	return header + "\n" + body + "\n" + status + "\n" + keys
}

func (r *Root) renderInputPanel(width, height int) string {
	innerW := max(1, width-2)
	innerH := max(1, height-2)

	var lines []string
	if r.state.Mode == ModeEditor {
		lines = append(lines, r.theme.Accent.Render("Freeform editor"))
		lines = append(lines, r.theme.Muted.Render(trimForWidth("Write anything. Your text is not checked.", innerW)))
	} else if r.state.Terminal {
		lines = append(lines, r.theme.Pass.Render(trimForWidth(r.state.Instruction, innerW)))
		lines = append(lines, r.theme.Muted.Render(trimForWidth("Press F3 to keep writing in the editor.", innerW)))
	} else {
		lines = append(lines, r.theme.Accent.Render(trimForWidth(r.state.Instruction, innerW)))
		for _, line := range strings.Split(r.state.Target, "\n") {
			lines = append(lines, r.theme.Target.Render(trimForWidth(line, innerW)))
		}
	}
	lines = append(lines, "")

	coachLines := 0
	if r.state.Coach != "" && r.state.Mode == ModeLesson {
		coachLines = 1
	}
	history := r.historyLines(innerW, max(0, (innerH-len(lines))/3))
	editorH := max(3, innerH-len(lines)-len(history)-coachLines)

	r.input.SetWidth(innerW)
	r.input.SetHeight(editorH)
	lines = append(lines, strings.Split(r.input.View(), "\n")...)
	if coachLines > 0 {
		lines = append(lines, r.theme.Info.Render(trimForWidth(r.state.Coach, innerW)))
	}
	lines = append(lines, history...)

	title := "Input"
	if r.state.Mode == ModeEditor {
		title = "Editor"
	}
	return r.drawPanel(title, lines, width, height)
}

// historyLines lists completed targets oldest first so the newest sits
// closest to the text area.
func (r *Root) historyLines(width, limit int) []string {
	if limit <= 0 || len(r.state.History) == 0 || r.state.Mode != ModeLesson {
		return nil
	}
	out := []string{r.theme.PanelTitle.Render(trimForWidth(fmt.Sprintf("Completed (%d)", len(r.state.History)), width))}
	check := "✓ "
	if r.ascii {
		check = "+ "
	}
	n := min(limit-1, len(r.state.History))
	for i := n - 1; i >= 0; i-- {
		first := strings.SplitN(r.state.History[i], "\n", 2)[0]
		out = append(out, r.theme.History.Render(trimForWidth(check+first, width)))
	}
	return out
}

func (r *Root) renderPreviewPanel(width, height int) string {
	innerW := max(1, width-2)
	innerH := max(1, height-2)

	var lines []string
	if r.state.Mode == ModeLesson && len(r.state.History) > 0 {
		for i := len(r.state.History) - 1; i >= 0; i-- {
			lines = append(lines, r.renderPreview(r.state.History[i], innerW)...)
		}
		rule := "─"
		if r.ascii {
			rule = "-"
		}
		lines = append(lines, r.theme.Muted.Render(strings.Repeat(rule, innerW)))
	}
	if strings.TrimSpace(r.state.Input) == "" {
		lines = append(lines, r.theme.Muted.Render("Nothing to preview yet."))
	} else {
		lines = append(lines, r.renderPreview(r.state.Input, innerW)...)
	}
	if len(lines) > innerH {
		lines = lines[len(lines)-innerH:]
	}
	lines = r.overlayCard(lines, innerW, innerH)
	return r.drawPanel("Preview", lines, width, height)
}

func (r *Root) renderPreview(markdown string, width int) []string {
	k := previewKey{markdown: markdown, width: width}
	if out, ok := r.previews[k]; ok {
		return strings.Split(out, "\n")
	}
	out := markdown
	if r.markdown != nil {
		if rendered := r.markdown.RenderWidth(markdown, width); rendered != "" {
			out = rendered
		}
	}
	if len(r.previews) > 256 {
		r.previews = map[previewKey]string{}
	}
	r.previews[k] = out
	return strings.Split(out, "\n")
}

// overlayCard slides the completion card up from the bottom of the preview.
func (r *Root) overlayCard(lines []string, width, height int) []string {
	if r.cardPos <= 0.01 {
		return lines
	}
	card := r.completionCard(width)
	visible := int(math.Round(r.cardPos * float64(len(card))))
	visible = min(max(visible, 0), min(len(card), height))
	if visible == 0 {
		return lines
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	start := height - visible
	out := append([]string(nil), lines[:start]...)
	return append(out, card[:visible]...)
}

func (r *Root) completionCard(width int) []string {
	title := "✓ Lesson complete!"
	if r.ascii {
		title = "Lesson complete!"
	}
	body := fmt.Sprintf("%d of %d done", r.state.Completed, r.state.Total)
	content := r.theme.CardTitle.Render(title) + "\n" + body
	card := r.theme.Card.Padding(0, 2).Width(max(10, min(width, 36))).Render(content)
	return strings.Split(card, "\n")
}

func (r *Root) headerText() string {
	width := max(1, r.cols-1)
	parts := []string{"Markdown Playground"}
	if r.state.Mode == ModeEditor {
		parts = append(parts, "Editor")
	} else if r.state.Terminal {
		parts = append(parts, "All lessons done")
	} else {
		parts = append(parts, fmt.Sprintf("Lesson %d/%d", r.state.Lesson, r.state.Total))
	}
	txt := trimForWidth(strings.Join(parts, " | "), width)
	if r.debug {
		txt = trimForWidth(fmt.Sprintf("%s | %dx%d %v", txt, r.cols, r.rows, r.layout), width)
	}
	barW := min(30, width-ansi.StringWidth(txt)-4)
	if r.state.Mode == ModeLesson && barW >= 8 {
		txt += "  " + r.progressBar(barW)
	}
	return r.theme.Header.Width(max(1, r.cols)).Render(txt)
}

func (r *Root) progressBar(width int) string {
	m := r.progress
	m.SetWidth(width)
	return m.ViewAs(r.progressPercent())
}

func (r *Root) progressPercent() float64 {
	if r.state.Total <= 0 {
		return 0
	}
	v := float64(r.state.Lesson-1) / float64(r.state.Total)
	return math.Min(1, math.Max(0, v))
}

func (r *Root) statusText() string {
	st := r.state.Stats
	parts := []string{fmt.Sprintf("%d chars  %d words  %d lines", st.Characters, st.Words, st.Lines)}
	if r.state.Mode == ModeLesson && !r.state.Terminal && strings.TrimSpace(r.state.Input) != "" {
		match := fmt.Sprintf("%d%% match", int(math.Round(r.state.Closeness*100)))
		if r.state.Mismatch != "" {
			match += " (" + r.state.Mismatch + ")"
		}
		parts = append(parts, match)
	}
	if r.enhancing {
		parts = append(parts, r.theme.Accent.Render(strings.TrimSpace(r.spin.View())+" Adding emojis..."))
	}
	if r.statusFlash != "" {
		parts = append(parts, r.statusFlash)
	}
	txt := trimForWidth(strings.Join(parts, " | "), max(1, r.cols-1))
	return r.theme.Status.Width(max(1, r.cols)).Render(txt)
}

func (r *Root) helpText() string {
	r.help.SetWidth(max(1, r.cols-1))
	keys := r.help.View(r.keymap)
	if keys == "" {
		keys = "F1 Solution  F2 Skip  F3 Lessons/Editor  F4 Copy  Ctrl+Q Quit"
	}
	return keys
}

func (r *Root) drawPanel(title string, lines []string, width, height int) string {
	width = max(4, width)
	height = max(3, height)
	innerW := width - 2
	innerH := height - 2

	h := "─"
	v := "│"
	tl := "┌"
	tr := "┐"
	bl := "└"
	br := "┘"
	if r.ascii {
		h = "-"
		v = "|"
		tl, tr, bl, br = "+", "+", "+", "+"
	}

	top := tl + strings.Repeat(h, innerW) + tr
	if title != "" && innerW > 2 {
		t := " " + title + " "
		runes := []rune(top)
		start := 1
		for i, ch := range []rune(t) {
			pos := start + i
			if pos >= len(runes)-1 {
				break
			}
			runes[pos] = ch
		}
		top = string(runes)
	}

	out := make([]string, 0, height)
	out = append(out, r.theme.PanelBorder.Render(top))
	for row := 0; row < innerH; row++ {
		line := ""
		if row < len(lines) {
			line = lines[row]
		}
		line = padANSI(line, innerW)
		out = append(out, r.theme.PanelBorder.Render(v)+r.theme.PanelBody.Render(line)+r.theme.PanelBorder.Render(v))
	}
	out = append(out, r.theme.PanelBorder.Render(bl+strings.Repeat(h, innerW)+br))
	return strings.Join(out, "\n")
}

func (r *Root) cardTarget() float64 {
	if r.state.Celebrating && r.state.Mode == ModeLesson {
		return 1
	}
	return 0
}

func (r *Root) animateIfNeeded() tea.Cmd {
	target := r.cardTarget()
	if r.motionLevel == "off" {
		r.cardPos = target
		r.cardVel = 0
		return nil
	}
	if r.shouldAnimate(target) {
		return animateTickCmd()
	}
	return nil
}

func (r *Root) shouldAnimate(target float64) bool {
	if r.motionLevel == "off" {
		return false
	}
	return abs(r.cardPos-target) > 0.001 || abs(r.cardVel) > 0.001
}

func animateTickCmd() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return animateMsg(t) })
}

func spinnerTickCmd(model spinner.Model) tea.Cmd {
	return func() tea.Msg {
		return model.Tick()
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// padANSI pads or cuts a possibly styled line to exactly width cells.
func padANSI(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\t", "    ")
	if ansi.StringWidth(s) > width {
		s = ansi.Truncate(s, width, "")
	}
	if w := ansi.StringWidth(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

func trimForWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(strings.ReplaceAll(ansi.Strip(s), "\n", " "))
	if len(r) <= width {
		return string(r)
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func normalizeStyleVariant(v string) string {
	switch strings.TrimSpace(v) {
	case "cozy_clean", "retro_terminal", "modern_arcade":
		return strings.TrimSpace(v)
	default:
		return "modern_arcade"
	}
}

func normalizeMotionLevel(v string) string {
	switch strings.TrimSpace(v) {
	case "off", "reduced", "full":
		return strings.TrimSpace(v)
	default:
		return "full"
	}
}

func (r *Root) recordInputEvent(event string) {
	r.lastInputEvent = trimForWidth(strings.TrimSpace(event), 160)
}

func (r *Root) onModelPanic(where string, recovered any, msg tea.Msg) {
	if r.statusFlash == "" {
		r.statusFlash = "Recovered UI panic"
	}
	if r.logger == nil {
		return
	}
	msgType := ""
	if msg != nil {
		msgType = fmt.Sprintf("%T", msg)
	}
	r.logger.Error("ui.panic_recovered", map[string]any{
		"where":       where,
		"panic":       fmt.Sprintf("%v", recovered),
		"messageType": msgType,
		"mode":        string(r.state.Mode),
		"layout":      r.layout,
		"cols":        r.cols,
		"rows":        r.rows,
		"last_input":  r.lastInputEvent,
		"stack":       string(debug.Stack()),
	})
}

var _ tea.Model = (*Root)(nil)
var _ View = (*Root)(nil)
