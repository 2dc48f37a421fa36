package main

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/HerbHall/grandline/internal/diagnose"
)

func newDiagnoseCmd(load loader) *cobra.Command {
	var output string
	var strict bool

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Report database health without modifying it",
		Example: `  grandline diagnose
  grandline diagnose -o yaml
  grandline diagnose --strict   # exit non-zero when any issue is found`,
		Args: cobra.NoArgs,
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

			report := diagnose.New(st, e.logger).Diagnose(cmd.Context())
			if err := render(cmd.OutOrStdout(), output, report, func(w io.Writer) error {
				return diagnose.WriteText(w, report)
			}); err != nil {
				return err
			}
			if !report.ConnectionOK {
				return errors.New("database connection failed")
			}
			if strict && !report.Healthy() {
				return errors.New("database has issues")
			}
			return nil
		},
	}
	addOutputFlag(cmd, &output)
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any issue is found")
	return cmd
}
