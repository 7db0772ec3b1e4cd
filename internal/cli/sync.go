package cli

import (
	"context"
	"errors"

	"github.com/stapos/stapos/internal/common"
)

// Sync replays queued offline writes right now, without waiting for the
// watcher's next probe.
func (a *App) Sync(ctx context.Context) error {
	if err := a.router.Reconcile(ctx); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			printlnFn("Session expired, please login again to sync")
			return err
		}
		printlnFn("Sync failed:", err)
		return err
	}
	printlnFn("Sync complete")
	return nil
}
