// inventory-audit seeds a local product table from the catalog, injects a
// known defect, re-checks stored prices against the live catalog and files a
// tracker ticket per mismatch.
//
// Usage:
//
//	inventory-audit run     [--config=<file>]
//	inventory-audit seed    [--config=<file>]
//	inventory-audit scan    [--config=<file>]
//	inventory-audit sandbox [--catalog-addr=localhost:8081] [--tracker-addr=localhost:8082]
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
