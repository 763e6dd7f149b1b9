package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/rogerio-castellano/inventory-audit/internal/models"
	"github.com/rogerio-castellano/inventory-audit/internal/pipeline"
	"github.com/rogerio-castellano/inventory-audit/internal/repo"
)

func newScanCmd(a *app) *cobra.Command {
	var ids []int
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Compare the local store with the catalog and print mismatches as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.validate(); err != nil {
				return err
			}
			s := pipeline.NewScanner(a.cfg, repo.NewSQLStore(a.cfg.Store), a.log)

			var defects []models.Defect
			var err error
			if len(ids) > 0 {
				defects, err = s.ScanIDs(cmd.Context(), ids)
			} else {
				defects, err = s.Scan(cmd.Context())
			}
			if err != nil {
				a.log.Error().Err(err).Msg("integrity scan failed")
			}
			if defects == nil {
				defects = []models.Defect{}
			}
			return printJSON(cmd, defects)
		},
	}
	cmd.Flags().IntSliceVar(&ids, "id", nil, "Check only these product ids (repeatable), ignoring the scan limit")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
