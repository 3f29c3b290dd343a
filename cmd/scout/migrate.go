package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/mohammad-safakhou/scout/config"
	pgstore "github.com/mohammad-safakhou/scout/feedback/postgres"
	"github.com/spf13/cobra"
)

func migrateCMD(load func() (*config.Config, error)) *cobra.Command {
	var direction string
	var steps int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres feedback schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cfg.Storage.Postgres.Validate(); err != nil {
				return err
			}
			if err := pgstore.Migrate(cfg.Storage.Postgres.DSN(), direction, steps); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("migrations applied (%s)", direction))
			return nil
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "up", "up or down")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	return cmd
}
