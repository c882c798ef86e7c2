package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var skipSeed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema and seed departments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if !skipSeed {
				if err := s.SeedDepartments(ctx); err != nil {
					return err
				}
			}
			depts, err := s.ListDepartments(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready on %s, %d departments\n", s.Driver(), len(depts))
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipSeed, "skip-seed", false, "do not insert the default departments")
	return cmd
}
