package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"eraser/internal/access"
	"eraser/internal/jobstore"
)

func newUsersCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users allowed to run jobs when access control is enabled",
	}
	cmd.AddCommand(newUsersAddCommand(ctx))
	cmd.AddCommand(newUsersListCommand(ctx))
	cmd.AddCommand(newUsersRemoveCommand(ctx))
	return cmd
}

func newUsersAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a user or reset their password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fmt.Errorf("user name must not be empty")
			}
			password, err := readPassword(cmd, fmt.Sprintf("New password for %s: ", name))
			if err != nil {
				return err
			}
			hash, err := access.HashPassword(password)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *jobstore.Store) error {
				if err := store.PutUser(cmd.Context(), name, hash); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %s saved\n", name)
				return nil
			})
		},
	}
}

func newUsersListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				users, err := store.Users(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(users) == 0 {
					fmt.Fprintln(out, "No users")
					return nil
				}
				rows := make([][]string, 0, len(users))
				for _, u := range users {
					rows = append(rows, []string{u.Name, formatTimestamp(u.CreatedAt), formatTimestamp(u.UpdatedAt)})
				}
				fmt.Fprintln(out, renderTable([]column{{title: "Name"}, {title: "Created"}, {title: "Updated"}}, rows))
				return nil
			})
		},
	}
}

func newUsersRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobstore.Store) error {
				removed, err := store.RemoveUser(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("user %q not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %s removed\n", args[0])
				return nil
			})
		},
	}
}
