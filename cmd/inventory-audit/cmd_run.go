package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rogerio-castellano/inventory-audit/internal/ledger"
	"github.com/rogerio-castellano/inventory-audit/internal/pipeline"
	"github.com/rogerio-castellano/inventory-audit/internal/repo"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Seed the local store, scan it and file tickets for mismatches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.validate(); err != nil {
				return err
			}
			if err := a.requireTracker(); err != nil {
				return err
			}
			ctx := cmd.Context()

			lg, closeLedger := a.openLedger(ctx)
			defer closeLedger()

			p := pipeline.FromConfig(a.cfg, repo.NewSQLStore(a.cfg.Store), lg, a.log)
			_, err := p.Run(ctx)
			return err
		},
	}
}

// openLedger connects to Redis when configured. An unreachable ledger only
// disables duplicate suppression.
func (a *app) openLedger(ctx context.Context) (ledger.Ledger, func()) {
	if a.cfg.Ledger.RedisAddr == "" {
		return ledger.Nop{}, func() {}
	}
	r, err := ledger.Dial(ctx, a.cfg.Ledger.RedisAddr, a.cfg.Ledger.TTL)
	if err != nil {
		a.log.Warn().Err(err).Str("addr", a.cfg.Ledger.RedisAddr).Msg("ticket ledger unavailable, continuing without it")
		return ledger.Nop{}, func() {}
	}
	return r, func() { r.Close() }
}
