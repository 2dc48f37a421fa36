package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/HerbHall/grandline/internal/auth"
	"github.com/HerbHall/grandline/internal/services"
)

func newUserCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage administrator accounts",
	}
	cmd.AddCommand(
		newUserAddCmd(load),
		newUserListCmd(load),
		newUserToggleCmd(load, "disable", true),
		newUserToggleCmd(load, "enable", false),
	)
	return cmd
}

func newUserAddCmd(load loader) *cobra.Command {
	var username, password, role string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := load()
			if err != nil {
				return err
			}
			st, err := e.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer st.Close()

			u, err := auth.CreateUser(cmd.Context(), services.NewSQLiteUserRepository(st.DB()), username, password, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created user %s (role %s, id %s)\n", okMark, u.Username, u.Role, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "login name (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password, at least 8 characters (required)")
	cmd.Flags().StringVar(&role, "role", auth.DefaultRole, "account role")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUserListCmd(load loader) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := load()
			if err != nil {
				return err
			}
			st, err := e.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer st.Close()

			users, err := services.NewSQLiteUserRepository(st.DB()).List(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, users, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "USERNAME\tROLE\tSTATUS\tLAST LOGIN")
				for _, u := range users {
					status, last := "active", "never"
					if u.Disabled {
						status = "disabled"
					}
					if u.LastLogin != nil {
						last = u.LastLogin.Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Username, u.Role, status, last)
				}
				return tw.Flush()
			})
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func newUserToggleCmd(load loader, verb string, disabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <username>",
		Short: "Mark an account " + verb + "d",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := load()
			if err != nil {
				return err
			}
			st, err := e.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer st.Close()

			err = services.NewSQLiteUserRepository(st.DB()).SetDisabled(cmd.Context(), args[0], disabled)
			if errors.Is(err, services.ErrNotFound) {
				return fmt.Errorf("user %q does not exist", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s User %s %sd\n", okMark, args[0], verb)
			return nil
		},
	}
}
