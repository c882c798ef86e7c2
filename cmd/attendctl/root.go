package main

import (
	"context"

	"github.com/spf13/cobra"

	"faceattend/internal/config"
	"faceattend/internal/sqlstore"
)

type rootOptions struct {
	driver string
	dsn    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "attendctl",
		Short: "Administer the face attendance service",
		Long: `attendctl prepares the attendance database, manages admin accounts and
runs the local face detector against image files.

Connection settings come from DB_DRIVER and DATABASE_URL (a .env file in the
working directory is honoured) unless overridden by flags.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			if opts.driver == "" {
				opts.driver = cfg.DBDriver
			}
			if opts.dsn == "" {
				opts.dsn = cfg.DatabaseURL
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.driver, "driver", "", "database driver: postgres, mysql or sqlite3 (default $DB_DRIVER)")
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "database connection string (default $DATABASE_URL)")

	root.AddCommand(newMigrateCmd(opts), newCreateAdminCmd(opts), newDetectCmd())
	return root
}

func (o *rootOptions) open(ctx context.Context) (*sqlstore.Store, error) {
	s, err := sqlstore.Open(o.driver, o.dsn)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
