package router

import (
	"context"
	"time"

	"github.com/stapos/stapos/internal/logging"
)

const pingTimeout = 5 * time.Second

// Watcher polls the backend and flips the router between online and
// offline. A transition back to online triggers reconciliation.
type Watcher struct {
	router   *Router
	interval time.Duration
	log      logging.Logger
	kick     chan struct{}
}

func NewWatcher(r *Router, interval time.Duration, log logging.Logger) *Watcher {
	return &Watcher{router: r, interval: interval, log: log, kick: make(chan struct{}, 1)}
}

// Notify requests an immediate probe, for callers that learn about a
// connectivity change out of band. Safe to call from any goroutine;
// a pending request coalesces with in-flight ones.
func (w *Watcher) Notify() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Run blocks until the context is cancelled. The first probe happens
// immediately so startup does not wait a full interval.
func (w *Watcher) Run(ctx context.Context) {
	w.probe(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.probe(ctx)
		case <-w.kick:
			w.probe(ctx)
		}
	}
}

func (w *Watcher) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := w.router.rem.Ping(pctx)
	cancel()

	w.router.SetOnline(err == nil)
	if err != nil {
		return
	}
	// Runs every successful probe, not just on reconnect, so a replay
	// interrupted by a mid-drain fault is picked up again.
	if err := w.router.Reconcile(ctx); err != nil {
		w.log.Warn(ctx, "reconciliation failed, will retry", "error", err)
	}
}
