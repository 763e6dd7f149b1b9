package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rogerio-castellano/inventory-audit/internal/ledger"
)

var errNoLedger = errors.New("run log needs a ticket ledger (set REDIS_ADDR)")

func newRunsCmd(a *app) *cobra.Command {
	var last int64
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Print the most recent run summaries from the ticket ledger as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if last <= 0 || last > ledger.MaxRunLogs {
				return fmt.Errorf("--last must be between 1 and %d", ledger.MaxRunLogs)
			}
			if a.cfg.Ledger.RedisAddr == "" {
				return errNoLedger
			}
			r, err := ledger.Dial(cmd.Context(), a.cfg.Ledger.RedisAddr, a.cfg.Ledger.TTL)
			if err != nil {
				return fmt.Errorf("connect ledger: %w", err)
			}
			defer r.Close()

			runs, err := r.Runs(cmd.Context(), last)
			if err != nil {
				return fmt.Errorf("read run log: %w", err)
			}
			return printJSON(cmd, runs)
		},
	}
	cmd.Flags().Int64Var(&last, "last", 10, "Number of runs to show, oldest first")
	return cmd
}
