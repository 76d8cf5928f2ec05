package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"medula/internal/blob"
	"medula/internal/config"
	appLog "medula/internal/log"
	"medula/internal/model"
	"medula/internal/snapshot"
	"medula/internal/store"
	"medula/internal/web"
)

var configPath string

// app bundles what every command needs: the effective config and a loaded
// store. close releases the blob store.
type app struct {
	cfg   *config.Config
	store *store.Store
	blob  blob.Store
}

func (a *app) close() {
	if err := a.blob.Close(); err != nil {
		appLog.Error("close storage failed", err)
	}
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	b, err := blob.New(blob.Config{Type: cfg.Storage.Type, Path: cfg.Storage.Path})
	if err != nil {
		return nil, err
	}

	st := store.New(b, store.WithDefaultView(model.View(cfg.DefaultView)))
	st.Load(ctx, store.LoadOptions{Seed: cfg.SeedOnEmpty})

	appLog.Debug("effective config",
		"listen", cfg.Listen,
		"storage", cfg.Storage.Type,
		"path", cfg.Storage.Path,
		"seed_on_empty", cfg.SeedOnEmpty,
		"snapshot_cron", cfg.Snapshot.Cron,
		"events", st.Len(),
	)
	return &app{cfg: cfg, store: st, blob: b}, nil
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "medula",
		Short:         "Patient portal appointment calendar",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./medula.yaml", "Path to config file")

	rootCmd.AddCommand(
		newServeCmd(),
		newAddCmd(),
		newListCmd(),
		newUpcomingCmd(),
		newRemoveCmd(),
		newClearCmd(),
		newCalendarCmd(),
		newExportCmd(),
		newImportCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Root context with cancellation on SIGINT/SIGTERM.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case sig := <-sigCh:
					appLog.Info("signal received, shutting down", "signal", sig.String())
					cancel()
				case <-ctx.Done():
				}
			}()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			// --listen overrides the config file.
			if listen != "" {
				a.cfg.Listen = listen
			}

			if a.cfg.Snapshot.Cron != "" {
				job := snapshot.New(a.store, a.cfg.Snapshot.Path, a.cfg.Snapshot.Cron)
				if err := job.Start(); err != nil {
					return err
				}
				defer job.Stop()
			}

			appLog.Info("medula starting", "listen", a.cfg.Listen, "storage", a.cfg.Storage.Type, "events", a.store.Len())
			err = web.NewServer(a.cfg, a.store).Serve(ctx)
			appLog.Info("medula exiting")
			return err
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "HTTP listen address (overrides config if set)")
	return cmd
}
