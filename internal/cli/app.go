// Package cli implements the interactive terminal for cashiers: a small
// REPL over the connectivity-aware router, usable with or without a
// reachable backend.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/stapos/stapos/internal/auth"
	"github.com/stapos/stapos/internal/logging"
	"github.com/stapos/stapos/internal/pos/config"
	"github.com/stapos/stapos/internal/query"
	"github.com/stapos/stapos/internal/remote"
	"github.com/stapos/stapos/internal/router"
	"github.com/stapos/stapos/internal/store"
)

type App struct {
	config  *config.Config
	st      *store.Store
	router  *router.Router
	watcher *router.Watcher
	logger  logging.Logger

	session *remote.Session
	reader  *bufio.Reader
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewText(os.Stderr, slog.LevelWarn)

	st, err := store.Open(ctx, c.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening local database: %w", err)
	}

	rem := remote.NewClient(c.ServerEndpointAddr, logger)
	rt := router.New(query.NewEngine(st, logger), rem, auth.NewManager(st, logger), c.OfflineMode, logger)

	app := &App{
		config: c,
		st:     st,
		router: rt,
		logger: logger,
		reader: bufio.NewReader(os.Stdin),
	}
	if !c.OfflineMode {
		app.watcher = router.NewWatcher(rt, c.OnlineCheckInterval, logger)
	}

	// A session persisted by an earlier run survives restarts.
	if s, err := rt.GetSession(ctx); err == nil {
		app.session = s
	}

	return app, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.st.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.watcher != nil {
		go a.watcher.Run(ctx)
	}

	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) status() string {
	mode := "offline"
	if a.config.OfflineMode {
		mode = "standalone"
	} else if a.router.Online() {
		mode = "online"
	}
	if a.session != nil {
		if email, ok := a.session.User["email"].(string); ok {
			return fmt.Sprintf("%s %s", email, mode)
		}
	}
	return mode
}
