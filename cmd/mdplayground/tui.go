package main

import (
	"errors"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"mdplayground/internal/app"
)

func newTUICmd(rf *rootFlags) *cobra.Command {
	var (
		dev       bool
		devHTTP   string
		demo      string
		mode      string
		ascii     bool
		style     string
		motion    string
		clipboard string
		exportDir string
	)
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal playground (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return errors.New("the terminal playground needs a TTY; try `mdplayground serve`")
			}
			f := cmd.Flags()
			cfg := rf.cfg
			if f.Changed("dev") {
				cfg.Dev = dev
			}
			if f.Changed("dev-http") {
				cfg.DevHTTP = devHTTP
			}
			if f.Changed("demo") {
				cfg.DemoScenario = demo
			}
			if f.Changed("mode") {
				cfg.StartMode = mode
			}
			if f.Changed("ascii") {
				cfg.ASCIIOnly = ascii
			}
			if f.Changed("style") {
				cfg.UI.StyleVariant = style
			}
			if f.Changed("motion") {
				cfg.UI.MotionLevel = motion
			}
			if f.Changed("clipboard") {
				cfg.UI.Clipboard = clipboard
			}
			if f.Changed("export-dir") {
				cfg.Export.Dir = exportDir
			}
			rf.cfg = cfg
			cfg, err := rf.validated()
			if err != nil {
				return err
			}

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.BoolVar(&dev, "dev", false, "enable the dev HTTP control endpoint")
	f.StringVar(&devHTTP, "dev-http", "127.0.0.1:17321", "dev HTTP listen address")
	f.StringVar(&demo, "demo", "", "start from a demo scenario (fresh, midway, complete, editor, typing)")
	f.StringVar(&mode, "mode", "lesson", "start in lesson or editor mode")
	f.BoolVar(&ascii, "ascii", false, "ASCII-only borders and glyphs")
	f.StringVar(&style, "style", "modern_arcade", "style variant (modern_arcade, cozy_clean, retro_terminal)")
	f.StringVar(&motion, "motion", "full", "motion level (full, reduced, off)")
	f.StringVar(&clipboard, "clipboard", "osc52", "clipboard backend (osc52, system)")
	f.StringVar(&exportDir, "export-dir", ".", "directory for downloaded Markdown")
	return cmd
}
