package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"nmeafix/internal/config"
	"nmeafix/internal/web"
)

func newRunCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the receiver and the configured outputs until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runService(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "./nmeafix.yaml", "path to YAML or TOML config")
	return cmd
}

func runService(ctx context.Context, cfg config.Config) error {
	logs := web.NewLogBuffer(2000)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))
	defer log.SetOutput(os.Stderr)

	rt, err := newLiveRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	log.Printf("nmeafix starting source=%s", cfg.GPS.Source)

	if cfg.Web.Enable {
		h := web.Handler(rt.status, web.Options{Logs: logs, Fixes: rt.fixes, Metrics: rt.registry})
		log.Printf("web listen=%s", cfg.Web.Listen)
		if err := web.Serve(ctx, cfg.Web.Listen, h); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("web server: %w", err)
		}
	} else {
		<-ctx.Done()
	}
	log.Printf("nmeafix stopping")
	return nil
}
