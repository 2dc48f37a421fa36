package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HerbHall/grandline/internal/store"
)

func newMigrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := load()
			if err != nil {
				return err
			}
			st, err := e.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer st.Close()

			applied, err := st.Migrate(cmd.Context(), store.Migrations)
			if err != nil {
				return err
			}
			v, err := st.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Applied %d migration(s); schema at version %d (%s)\n",
				okMark, applied, v, st.Path())
			return nil
		},
	}
}
