package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mdplayground/internal/app"
	"mdplayground/internal/render"
	"mdplayground/internal/telemetry"
	"mdplayground/internal/web"
)

func newServeCmd(rf *rootFlags) *cobra.Command {
	var (
		addr    string
		release bool
		origins []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the playground to browsers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			if f.Changed("addr") {
				rf.cfg.Web.Addr = addr
			}
			if f.Changed("release") {
				rf.cfg.Web.ReleaseMode = release
			}
			if f.Changed("allow-origin") {
				rf.cfg.Web.AllowOrigins = origins
			}
			cfg, err := rf.validated()
			if err != nil {
				return err
			}
			logger, err := telemetry.NewLogger(cfg.LogPath, cfg.Debug)
			if err != nil {
				return err
			}
			defer logger.Close()

			pool, err := app.LoadPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			srv, err := web.New(web.Options{
				Pool:            pool,
				AdvanceDelay:    cfg.AdvanceDelay(),
				AllowOrigins:    cfg.Web.AllowOrigins,
				TrustedProxies:  cfg.Web.TrustedProxies,
				ReleaseMode:     cfg.Web.ReleaseMode,
				EnhanceDisabled: cfg.Web.EnhanceDisabled,
				EnhanceTimeout:  cfg.EnhanceTimeout(),
				SessionTTL:      cfg.SessionTTL(),
				SweepInterval:   cfg.SweepInterval(),
				MaxSessions:     cfg.Web.MaxSessions,
				Renderer:        render.NewHTML(logger),
				Enhancer:        app.NewEnhancer(cfg, logger),
				Logger:          logger,
			})
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return srv.ListenAndServe(gctx, cfg.Web.Addr)
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("web.stopping", map[string]any{"sessions": srv.Store().Len()})
				return nil
			})
			cmd.Printf("Markdown playground on http://%s\n", cfg.Web.Addr)
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	f.BoolVar(&release, "release", false, "run gin in release mode")
	f.StringSliceVar(&origins, "allow-origin", nil, "CORS origin allowed to call the API (repeatable)")
	return cmd
}
