// Command grandline serves the Grandline catalog API and runs its database
// maintenance tasks.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/grandline/internal/config"
	"github.com/HerbHall/grandline/internal/logging"
	"github.com/HerbHall/grandline/internal/store"
	"github.com/HerbHall/grandline/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "grandline",
		Short:         "Grandline catalog API server",
		Long:          "Grandline serves a CRUD catalog of characters, crews, ships and devil fruits, and manages its SQLite database.",
		Version:       version.Info(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default: grandline.yaml in . or /etc/grandline)")

	load := func() (*env, error) { return loadEnv(configPath) }

	root.AddCommand(
		newServeCmd(load),
		newMigrateCmd(load),
		newDiagnoseCmd(load),
		newSQLCmd(load),
		newBackupCmd(load, &configPath),
		newRestoreCmd(load, &configPath),
		newUserCmd(load),
		newVersionCmd(),
	)
	return root
}

// env is the configuration and logger shared by every subcommand.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

type loader func() (*env, error)

func loadEnv(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.GetString("log.level"),
		Development: cfg.GetBool("log.development"),
	})
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger}, nil
}

// openStore opens the configured database, applying the schema when
// migrate is true.
func (e *env) openStore(ctx context.Context, migrate bool) (*store.SQLiteStore, error) {
	path := e.cfg.GetString("database.path")
	st, err := store.Open(path, store.Options{
		BusyTimeout: e.cfg.GetDuration("database.busy_timeout"),
	})
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := st.MigrateSchema(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("migrate %s: %w", path, err)
		}
	}
	return st, nil
}
