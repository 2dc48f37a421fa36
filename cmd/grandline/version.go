package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/HerbHall/grandline/internal/version"
)

func newVersionCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b := version.Current()
			return render(cmd.OutOrStdout(), output, b, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, version.Info())
				return err
			})
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}
