package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"mdplayground/internal/app"
	"mdplayground/internal/devtools"
	"mdplayground/internal/grading"
	"mdplayground/internal/lessons"
	"mdplayground/internal/render"
	"mdplayground/internal/session"
	"mdplayground/internal/telemetry"
)

func newLessonsCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lessons",
		Short: "List the lesson pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rf.validated()
			if err != nil {
				return err
			}
			pool, err := app.LoadPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printLessons(cmd.OutOrStdout(), pool)
			return nil
		},
	}
}

func printLessons(w io.Writer, pool lessons.Pool) {
	head := color.New(color.Bold, color.FgCyan)
	dim := color.New(color.Faint)
	num := color.New(color.FgYellow)

	source := pool.Path
	if source == "" {
		source = "builtin"
	}
	head.Fprintf(w, "%s (%s)\n", pool.Name, source)
	for i, l := range pool.Lessons {
		num.Fprintf(w, "%3d. ", i+1)
		fmt.Fprintln(w, l.Instruction)
		lines := lo.Map(strings.Split(l.Target, "\n"), func(line string, _ int) string {
			return "       " + line
		})
		dim.Fprintln(w, strings.Join(lines, "\n"))
	}
	multi := lo.Filter(pool.Lessons, func(l lessons.Lesson, _ int) bool {
		return strings.Contains(l.Target, "\n")
	})
	fmt.Fprintf(w, "%d lessons, %d multi-line\n", pool.Len(), len(multi))
}

func newRenderCmd(rf *rootFlags) *cobra.Command {
	var (
		asHTML bool
		width  int
	)
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render Markdown from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rf.validated()
			if err != nil {
				return err
			}
			var src []byte
			if len(args) == 1 && args[0] != "-" {
				src, err = os.ReadFile(args[0])
			} else {
				src, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read markdown: %w", err)
			}
			logger := telemetry.NewWriterLogger(cmd.ErrOrStderr(), cfg.Debug)
			var out string
			if asHTML {
				out = render.NewHTML(logger).Render(string(src))
			} else {
				out = render.NewTerminal(cfg.UI.Glamour, logger).RenderWidth(string(src), width)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "emit sanitized HTML instead of terminal output")
	cmd.Flags().IntVar(&width, "width", render.DefaultTerminalWidth, "word wrap width for terminal output")
	return cmd
}

func newDemoCmd(rf *rootFlags) *cobra.Command {
	var (
		step  time.Duration
		delay time.Duration
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Type every lesson headlessly and print the history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rf.validated()
			if err != nil {
				return err
			}
			pool, err := app.LoadPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			s := session.New(session.Options{Pool: pool, AdvanceDelay: delay})
			start := time.Now()
			if err := devtools.NewManager().Autoplay(cmd.Context(), s, step); err != nil {
				return fmt.Errorf("autoplay: %w", err)
			}
			printHistory(cmd.OutOrStdout(), s.Snapshot(), time.Since(start))
			return nil
		},
	}
	cmd.Flags().DurationVar(&step, "step", 0, "delay between typed runes")
	cmd.Flags().DurationVar(&delay, "advance-delay", 10*time.Millisecond, "pause after each completed lesson")
	return cmd
}

func printHistory(w io.Writer, snap session.Snapshot, elapsed time.Duration) {
	ok := color.New(color.FgGreen)
	// History is newest first.
	for i := len(snap.History) - 1; i >= 0; i-- {
		ok.Fprint(w, "✓ ")
		fmt.Fprintln(w, strings.ReplaceAll(snap.History[i], "\n", "⏎"))
	}
	fmt.Fprintf(w, "completed %d/%d lessons in %s\n", snap.Completed(), snap.Total, elapsed.Round(time.Millisecond))
}

func newCheckCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <lesson> [file]",
		Short: "Check an answer against a lesson target",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rf.validated()
			if err != nil {
				return err
			}
			pool, err := app.LoadPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 || n > pool.Len() {
				return fmt.Errorf("lesson must be a number from 1 to %d", pool.Len())
			}
			var src []byte
			if len(args) == 2 && args[1] != "-" {
				src, err = os.ReadFile(args[1])
			} else {
				src, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read answer: %w", err)
			}
			target := pool.Lessons[n-1].Target
			res := grading.Check(string(src), target)
			printCheck(cmd.OutOrStdout(), target, string(src), res)
			if !res.Matched {
				return fmt.Errorf("lesson %d not matched", n)
			}
			return nil
		},
	}
}

func printCheck(w io.Writer, target, input string, res grading.Result) {
	if res.Matched {
		color.New(color.FgGreen, color.Bold).Fprintln(w, "match")
		return
	}
	fmt.Fprintf(w, "%.0f%% match", res.Closeness*100)
	if res.Diverged {
		fmt.Fprintf(w, ", first difference at line %d, col %d", res.Line, res.Column)
	}
	fmt.Fprintln(w)
	del := color.New(color.FgRed)
	add := color.New(color.FgGreen)
	lines := strings.Split(strings.TrimSuffix(grading.Diff(target, input), "\n"), "\n")
	// The first two lines are the file header; body lines may start with
	// "---" themselves, as a horizontal rule does.
	for i, line := range lines {
		switch {
		case i < 2:
			fmt.Fprintln(w, line)
		case strings.HasPrefix(line, "-"):
			del.Fprintln(w, line)
		case strings.HasPrefix(line, "+"):
			add.Fprintln(w, line)
		}
	}
}
