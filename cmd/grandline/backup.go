package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/HerbHall/grandline/internal/backup"
)

func newBackupCmd(load loader, configPath *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a tar.gz snapshot of the database and config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := load()
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("grandline-backup-%s.tar.gz", time.Now().Format("20060102-150405"))
			}
			m, err := backup.Backup(cmd.Context(), e.cfg.GetString("database.path"), *configPath, output)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Backup created: %s (schema v%d, %d tables)\n",
				okMark, output, m.SchemaVersion, len(m.Tables))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default: grandline-backup-{timestamp}.tar.gz)")
	return cmd
}

func newRestoreCmd(load loader, configPath *string) *cobra.Command {
	var input string
	var force bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace the database (and config file) from a backup archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := load()
			if err != nil {
				return err
			}
			dbPath := e.cfg.GetString("database.path")
			if _, err := os.Stat(dbPath); err == nil && !force {
				return fmt.Errorf("%s exists; pass --force to overwrite it", dbPath)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			m, err := backup.Restore(cmd.Context(), input, dbPath, *configPath)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Restore complete: %s (backup from %s, schema v%d)\n",
				okMark, dbPath, m.CreatedAt.Format(time.RFC3339), m.SchemaVersion)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "backup archive to restore (required)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing database")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
