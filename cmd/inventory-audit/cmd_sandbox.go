package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rogerio-castellano/inventory-audit/internal/models"
	"github.com/rogerio-castellano/inventory-audit/internal/sandbox"
)

var sandboxProducts = []models.Product{
	{ID: 1, Title: "Essence Mascara Lash Princess", Price: 9.99},
	{ID: 2, Title: "Eyeshadow Palette with Mirror", Price: 19.99},
	{ID: 3, Title: "Powder Canister", Price: 14.99},
	{ID: 4, Title: "Red Lipstick", Price: 12.99},
	{ID: 5, Title: "Red Nail Polish", Price: 8.99},
	{ID: 6, Title: "Calvin Klein CK One", Price: 49.99},
}

func newSandboxCmd(a *app) *cobra.Command {
	var catalogAddr, trackerAddr string
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Serve a local catalog and issue tracker for offline runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, token := a.cfg.Tracker.Email, a.cfg.Tracker.Token
			servers := []*http.Server{
				{Addr: catalogAddr, Handler: sandbox.NewCatalog(sandboxProducts...).Handler(), ReadHeaderTimeout: 5 * time.Second},
				{Addr: trackerAddr, Handler: sandbox.NewTracker(email, token).Handler(), ReadHeaderTimeout: 5 * time.Second},
			}
			a.log.Info().Str("catalog", "http://"+catalogAddr+"/products").Str("tracker", "http://"+trackerAddr).Msg("sandbox running")
			return serveAll(cmd.Context(), servers)
		},
	}
	cmd.Flags().StringVar(&catalogAddr, "catalog-addr", "localhost:8081", "Listen address for the fake catalog")
	cmd.Flags().StringVar(&trackerAddr, "tracker-addr", "localhost:8082", "Listen address for the fake tracker")
	return cmd
}

// serveAll runs the servers until ctx is done or one of them fails.
func serveAll(ctx context.Context, servers []*http.Server) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, srv := range servers {
			srv.Shutdown(shutdownCtx)
		}
		return nil
	})
	return g.Wait()
}
