package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mdplayground/internal/app"
)

type rootFlags struct {
	envFile string
	logPath string
	debug   bool
	lessons string
	glamour string

	cfg app.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "mdplayground:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rf := &rootFlags{}
	root := &cobra.Command{
		Use:           "mdplayground",
		Short:         "Learn Markdown by typing it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rf.load(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&rf.envFile, "env-file", ".env", "dotenv file with MDP_* settings (ignored if missing)")
	pf.StringVar(&rf.logPath, "log", "", "write JSON logs to this file")
	pf.BoolVar(&rf.debug, "debug", false, "enable debug logging")
	pf.StringVar(&rf.lessons, "lessons", "", "YAML lesson pool to use instead of the builtin one")
	pf.StringVar(&rf.glamour, "glamour-style", "", "glamour style for terminal previews (dark, light, notty, ...)")

	tui := newTUICmd(rf)
	root.AddCommand(tui, newServeCmd(rf), newLessonsCmd(rf), newRenderCmd(rf), newCheckCmd(rf), newDemoCmd(rf))
	root.RunE = tui.RunE
	root.Flags().AddFlagSet(tui.Flags())
	return root
}

// load reads the dotenv file, then MDP_* variables, then explicit flags.
func (rf *rootFlags) load(cmd *cobra.Command) error {
	if rf.envFile != "" {
		if err := godotenv.Load(rf.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", rf.envFile, err)
		}
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log") {
		cfg.LogPath = rf.logPath
	}
	if flags.Changed("debug") {
		cfg.Debug = rf.debug
	}
	if flags.Changed("lessons") {
		cfg.Lessons.File = rf.lessons
	}
	if flags.Changed("glamour-style") {
		cfg.UI.Glamour = rf.glamour
	}
	rf.cfg = cfg
	return nil
}

func (rf *rootFlags) validated() (app.Config, error) {
	cfg := rf.cfg
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
