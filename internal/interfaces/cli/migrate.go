package cli

import (
	"github.com/spf13/cobra"

	"github.com/caseworks/appeal-engine/internal/infrastructure/database/postgres"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			return postgres.RunMigrations(cliCtx.Config.Database, cliCtx.Logger)
		},
	}
}
