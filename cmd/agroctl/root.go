package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"agro-report/internal/app"
	"agro-report/internal/config"
	"agro-report/internal/remote"
	"agro-report/internal/storage/open"
)

type env struct {
	log        *slog.Logger
	configPath string
	legacyDump string
}

func newRootCmd(log *slog.Logger) *cobra.Command {
	e := &env{log: log}

	root := &cobra.Command{
		Use:   "agroctl",
		Short: "Operate the KLP1 Agro report store",
		Long: `agroctl works on the same local store as the agro server.

Sync commands talk to the spreadsheet endpoint from the config file.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", defaultConfigPath(), "path to the YAML config")
	root.PersistentFlags().StringVar(&e.legacyDump, "legacy-dump", "", "browser localStorage dump to migrate (overrides legacy_dump)")

	root.AddCommand(
		migrateCmd(e),
		pushCmd(e),
		pullMasterCmd(e),
		pullActualCmd(e),
		exportCmd(e),
		importCmd(e),
		listCmd(e),
		messageCmd(e),
	)

	return root
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/local.yaml"
}

func (e *env) config() (*config.Config, error) {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return nil, err
	}
	if e.legacyDump != "" {
		cfg.LegacyDump = e.legacyDump
	}
	return cfg, nil
}

// withStore opens the configured store for the duration of fn.
func (e *env) withStore(ctx context.Context, fn func(cfg *config.Config, store open.Store) error) error {
	cfg, err := e.config()
	if err != nil {
		return err
	}

	store, err := open.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	return fn(cfg, store)
}

// withApp starts the controller the way the server does, legacy migration
// included.
func (e *env) withApp(ctx context.Context, fn func(a *app.App) error) error {
	return e.withStore(ctx, func(cfg *config.Config, store open.Store) error {
		a := app.New(e.log, store, remote.New(cfg.Remote, e.log), remote.NewCallbackTransport(cfg.Remote), cfg.LegacyDump)
		if err := a.Start(ctx); err != nil {
			return err
		}
		return fn(a)
	})
}
