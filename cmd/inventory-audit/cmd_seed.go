package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rogerio-castellano/inventory-audit/internal/pipeline"
	"github.com/rogerio-castellano/inventory-audit/internal/repo"
)

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Rebuild the local store from the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.validate(); err != nil {
				return err
			}
			res, err := pipeline.NewSeeder(a.cfg, repo.NewSQLStore(a.cfg.Store), a.log).Load(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %d products, corrupted ids %v\n", res.Stored, res.Corrupted)
			return nil
		},
	}
}
