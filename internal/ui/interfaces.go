package ui

type Controller interface {
	OnInput(text string)
	OnSkip()
	OnShowSolution()
	OnToggleMode()
	OnCopy()
	OnDownload()
	OnEnhance()
	OnClear()
	OnQuit()
	OnResize(cols, rows int)
}

type View interface {
	Run() error
	Stop()
	SetController(Controller)
	SetPlayground(PlaygroundState)
	SetEnhancing(enhancing bool)
	FlashStatus(msg string)
	CopyToClipboard(text string) error
	RequestDraw()
}

type LayoutMode int

const (
	LayoutWide LayoutMode = iota
	LayoutMedium
	LayoutTooSmall
)

type Mode string

const (
	ModeLesson Mode = "lesson"
	ModeEditor Mode = "editor"
)

type PlaygroundState struct {
	Mode Mode

	// Lesson is 1-based; it equals Total+1 once every lesson is done.
	Lesson      int
	Total       int
	Completed   int
	Terminal    bool
	Instruction string
	Target      string

	Input string
	// ReplaceInput makes the view overwrite the text area with Input.
	// Keystroke echoes leave it unset so in-flight typing is never lost.
	ReplaceInput bool

	// History holds completed targets, most recent first.
	History []string

	Stats     StatsRow
	Closeness float64
	Mismatch  string
	Coach     string

	Celebrating bool

	// Seq orders states from the engine; SetPlayground ignores a state
	// older than the last one applied.
	Seq uint64
}

type StatsRow struct {
	Characters int
	Words      int
	Lines      int
}
