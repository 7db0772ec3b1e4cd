// Package remote defines the remote-service contract consumed by the
// connectivity-aware router, and an HTTP/JSON client implementing it
// against the hosted StaPOS backend. Any backend exposing this shape is
// interchangeable.
package remote

import (
	"context"

	"github.com/stapos/stapos/internal/query"
	"github.com/stapos/stapos/internal/store"
)

// Session is the remote identity state: a bearer token plus the signed-in
// user record.
type Session struct {
	AccessToken string       `json:"access_token"`
	User        store.Record `json:"user"`
}

// Service is the capability the router consumes: per-collection query
// verbs plus session operations and a liveness probe.
type Service interface {
	// Select returns records of table matching the request. Zero rows is
	// a normal outcome.
	Select(ctx context.Context, table string, req query.Request) ([]store.Record, error)
	// Insert creates (or, replaying queued writes, replaces) the record
	// and returns it fully populated.
	Insert(ctx context.Context, table string, rec store.Record) (store.Record, error)
	// Update shallow-merges patch into every record matching filters.
	Update(ctx context.Context, table string, patch store.Record, filters []query.Filter) error
	// Delete removes every record matching filters.
	Delete(ctx context.Context, table string, filters []query.Filter) error

	// GetSession returns the current session, or (nil, nil) when signed out.
	GetSession(ctx context.Context) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	// UpdateUser merges patch into the signed-in user and returns the
	// updated user record.
	UpdateUser(ctx context.Context, patch store.Record) (store.Record, error)

	// Ping checks remote reachability.
	Ping(ctx context.Context) error
	Close() error
}
