package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"faceattend/internal/httpapi"
	"faceattend/internal/sqlstore"
)

func newCreateAdminCmd(opts *rootOptions) *cobra.Command {
	var (
		password   string
		department int64
	)
	cmd := &cobra.Command{
		Use:   "create-admin <username>",
		Short: "Create an admin account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return errors.New("--password is required")
			}
			var dept *int64
			if department > 0 {
				dept = &department
			}
			a, err := httpapi.NewAdmin(args[0], password, dept)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.SeedDepartments(ctx); err != nil {
				return err
			}

			if err := s.CreateAdmin(ctx, a); err != nil {
				if errors.Is(err, sqlstore.ErrDuplicate) {
					return fmt.Errorf("admin %q already exists", a.Username)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %q (id %d)\n", a.Username, a.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().Int64Var(&department, "department", 0, "department id the admin belongs to")
	return cmd
}
