package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/grandline/internal/scripts"
)

func newSQLCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Run and list seed scripts in " + scripts.Dir,
	}
	cmd.AddCommand(newSQLRunCmd(load), newSQLListCmd())
	return cmd
}

func newSQLRunCmd(load loader) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "run <file.sql>...",
		Short: "Execute seed scripts, one transaction per file",
		Example: `  grandline sql run 01_races.sql 02_ships.sql
  grandline sql run $(grandline sql list)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load()
			if err != nil {
				return err
			}
			st, err := e.openStore(cmd.Context(), e.cfg.GetBool("database.auto_migrate"))
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := scripts.NewRunner(st, e.logger, nil).Execute(cmd.Context(), args)
			if err != nil {
				return err
			}
			if err := render(cmd.OutOrStdout(), output, report, func(w io.Writer) error {
				return writeScriptReport(w, report)
			}); err != nil {
				return err
			}
			if report.FailedFiles > 0 {
				return fmt.Errorf("%d of %d script(s) failed", report.FailedFiles, report.TotalFiles)
			}
			return nil
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func writeScriptReport(w io.Writer, r *scripts.Report) error {
	for _, res := range r.Results {
		if res.Success {
			fmt.Fprintf(w, "%s %s: %d statement(s) in %dms\n", okMark, res.FileName, res.StatementsExecuted, res.DurationMs)
			continue
		}
		where := ""
		if res.FailedStatement > 0 {
			where = fmt.Sprintf(" at statement %d", res.FailedStatement)
		}
		fmt.Fprintf(w, "%s %s: failed%s: %s\n", failMark, res.FileName, where, res.Error)
	}
	_, err := fmt.Fprintf(w, "\n%d file(s): %d succeeded, %d failed\n", r.TotalFiles, r.SuccessfulFiles, r.FailedFiles)
	return err
}

func newSQLListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available seed scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := scripts.NewRunner(nil, zap.NewNop(), nil).Available()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
