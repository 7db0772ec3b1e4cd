// Package router decides, per operation, whether to talk to the backend
// or to the embedded store. The embedded store is kept as a mirror of
// everything the backend returns, so a loss of connectivity degrades
// reads to slightly stale data instead of failures. Writes made while
// offline are recorded in the outbox and replayed on reconnect.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/stapos/stapos/internal/auth"
	"github.com/stapos/stapos/internal/common"
	"github.com/stapos/stapos/internal/logging"
	"github.com/stapos/stapos/internal/query"
	"github.com/stapos/stapos/internal/remote"
	"github.com/stapos/stapos/internal/store"
)

type Router struct {
	local   *query.Engine
	st      *store.Store
	rem     remote.Service
	offline *auth.Manager
	log     logging.Logger

	// offlineOnly pins the router to the embedded store, for terminals
	// deployed without a backend at all.
	offlineOnly bool
	online      atomic.Bool

	now   func() time.Time
	newID func() string
}

func New(local *query.Engine, rem remote.Service, offline *auth.Manager, offlineOnly bool, log logging.Logger) *Router {
	return &Router{
		local:       local,
		st:          local.Store(),
		rem:         rem,
		offline:     offline,
		log:         log,
		offlineOnly: offlineOnly,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (r *Router) Online() bool {
	return r.online.Load()
}

// SetOnline records a connectivity transition and returns true when the
// backend just became reachable again.
func (r *Router) SetOnline(online bool) bool {
	prev := r.online.Swap(online)
	if prev != online {
		r.log.Info(context.Background(), "connectivity changed", "online", online)
	}
	return online && !prev
}

func (r *Router) useRemote() bool {
	return !r.offlineOnly && r.online.Load()
}

// isFault reports whether the remote call failed for reachability
// reasons, as opposed to being rejected.
func isFault(err error) bool {
	return errors.Is(err, common.ErrUnavailable)
}

func (r *Router) Select(ctx context.Context, table string, req query.Request) ([]store.Record, error) {
	if r.useRemote() {
		recs, err := r.rem.Select(ctx, table, req)
		if err == nil {
			r.mirror(ctx, table, recs)
			return recs, nil
		}
		if !isFault(err) {
			return nil, err
		}
		r.log.Warn(ctx, "backend unreachable, serving local data", "table", table, "error", err)
	}
	return r.local.Select(ctx, table, req)
}

func (r *Router) SelectOne(ctx context.Context, table string, req query.Request) (store.Record, error) {
	recs, err := r.Select(ctx, table, req)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

func (r *Router) Insert(ctx context.Context, table string, rec store.Record) (store.Record, error) {
	rec = rec.Clone()
	if rec.ID() == "" {
		rec["id"] = r.newID()
	}
	if _, ok := rec["created_at"]; !ok {
		rec["created_at"] = common.FormatTimestamp(r.now())
	}
	if r.useRemote() {
		out, err := r.rem.Insert(ctx, table, rec)
		if err == nil {
			if perr := r.st.Put(ctx, table, out); perr != nil {
				r.log.Warn(ctx, "mirror write failed", "table", table, "error", perr)
			}
			return out, nil
		}
		if !isFault(err) {
			return nil, err
		}
		r.log.Warn(ctx, "backend unreachable, queueing insert", "table", table, "id", rec.ID())
	}
	if err := r.st.Put(ctx, table, rec); err != nil {
		return nil, err
	}
	if err := r.st.Enqueue(ctx, table, rec.ID(), store.OpUpsert); err != nil {
		return nil, fmt.Errorf("queueing insert: %w", err)
	}
	return rec, nil
}

func (r *Router) Update(ctx context.Context, table string, patch store.Record, filters []query.Filter) error {
	// One stamp shared by the backend and the mirror, so a later mirror
	// refresh does not strip it.
	patch = patch.Clone()
	patch["updated_at"] = common.FormatTimestamp(r.now())
	if r.useRemote() {
		err := r.rem.Update(ctx, table, patch, filters)
		if err == nil {
			return r.local.Update(ctx, table, patch, filters)
		}
		if !isFault(err) {
			return err
		}
		r.log.Warn(ctx, "backend unreachable, queueing update", "table", table)
	}
	// Must run before the patch lands locally: if the patch rewrites a
	// filtered field, the re-select would no longer find the records.
	if err := r.enqueueMatches(ctx, table, filters, store.OpUpsert); err != nil {
		return err
	}
	return r.local.Update(ctx, table, patch, filters)
}

func (r *Router) Delete(ctx context.Context, table string, filters []query.Filter) error {
	if r.useRemote() {
		err := r.rem.Delete(ctx, table, filters)
		if err == nil {
			return r.local.Delete(ctx, table, filters)
		}
		if !isFault(err) {
			return err
		}
		r.log.Warn(ctx, "backend unreachable, queueing delete", "table", table)
	}
	if err := r.enqueueMatches(ctx, table, filters, store.OpDelete); err != nil {
		return err
	}
	return r.local.Delete(ctx, table, filters)
}

// enqueueMatches records an outbox op for each record currently matching
// the filters. Must run before a local delete so the ids still resolve.
func (r *Router) enqueueMatches(ctx context.Context, table string, filters []query.Filter, op string) error {
	recs, err := r.local.Select(ctx, table, query.Request{Filters: filters})
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := r.st.Enqueue(ctx, table, rec.ID(), op); err != nil {
			return fmt.Errorf("queueing %s: %w", op, err)
		}
	}
	return nil
}

func (r *Router) mirror(ctx context.Context, table string, recs []store.Record) {
	for _, rec := range recs {
		if rec.ID() == "" {
			continue
		}
		if err := r.st.Put(ctx, table, rec); err != nil {
			r.log.Warn(ctx, "mirror write failed", "table", table, "id", rec.ID(), "error", err)
			return
		}
	}
}

// Reconcile replays queued offline writes against the backend in the
// order they happened. Replay stops at the first reachability fault so
// ordering is preserved for the next attempt.
func (r *Router) Reconcile(ctx context.Context) error {
	if !r.useRemote() {
		return common.ErrUnavailable
	}
	entries, err := r.st.PendingOps(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	r.log.Info(ctx, "reconciling queued writes", "count", len(entries))
	for _, e := range entries {
		if err := r.replay(ctx, e); err != nil {
			if isFault(err) {
				return err
			}
			if errors.Is(err, common.ErrUnauthorized) {
				// An expired token rejects every replay. The queue is
				// kept intact, a fresh sign-in makes it drain again.
				r.log.Warn(ctx, "reconcile needs a fresh sign-in", "collection", e.Collection, "id", e.RecordID)
				return err
			}
			// Other rejections are dropped: retrying them can never
			// succeed and would wedge the queue.
			r.log.Warn(ctx, "queued write rejected", "collection", e.Collection, "id", e.RecordID, "op", e.Op, "error", err)
		}
		if err := r.st.Dequeue(ctx, e.Seq); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) replay(ctx context.Context, e store.OutboxEntry) error {
	switch e.Op {
	case store.OpUpsert:
		rec, err := r.st.GetByKey(ctx, e.Collection, e.RecordID)
		if err != nil {
			return err
		}
		if rec == nil {
			// Deleted locally after being queued, nothing to push.
			return nil
		}
		_, err = r.rem.Insert(ctx, e.Collection, rec)
		return err
	case store.OpDelete:
		return r.rem.Delete(ctx, e.Collection, []query.Filter{query.Eq("id", e.RecordID)})
	default:
		return fmt.Errorf("unknown outbox op %q", e.Op)
	}
}

// GetSession always reads the durable local copy. Sessions obtained from
// the backend are persisted on sign-in, so this covers both modes.
func (r *Router) GetSession(ctx context.Context) (*remote.Session, error) {
	return r.offline.GetSession(ctx)
}

func (r *Router) SignIn(ctx context.Context, email, password string) (*remote.Session, error) {
	if r.useRemote() {
		s, err := r.rem.SignIn(ctx, email, password)
		if err == nil {
			if serr := r.offline.SaveSession(ctx, s); serr != nil {
				r.log.Warn(ctx, "session persist failed", "error", serr)
			}
			r.stampLastLogin(ctx, s)
			return s, nil
		}
		if errors.Is(err, common.ErrUnauthorized) {
			return nil, common.ErrInvalidCredentials
		}
		if !isFault(err) {
			return nil, err
		}
		r.log.Warn(ctx, "backend unreachable, signing in from cached profiles", "email", email)
	}
	return r.offline.SignIn(ctx, email, password)
}

func (r *Router) SignUp(ctx context.Context, email, password string) (*remote.Session, error) {
	if r.useRemote() {
		s, err := r.rem.SignUp(ctx, email, password)
		if err == nil {
			if serr := r.offline.SaveSession(ctx, s); serr != nil {
				r.log.Warn(ctx, "session persist failed", "error", serr)
			}
			return s, nil
		}
		if !isFault(err) {
			return nil, err
		}
		r.log.Warn(ctx, "backend unreachable, registering locally", "email", email)
	}
	return r.offline.SignUp(ctx, email, password)
}

func (r *Router) SignOut(ctx context.Context) error {
	if r.useRemote() {
		if err := r.rem.SignOut(ctx); err != nil {
			r.log.Warn(ctx, "remote sign-out failed", "error", err)
		}
	}
	return r.offline.SignOut(ctx)
}

func (r *Router) UpdateUser(ctx context.Context, patch store.Record) (*remote.Session, error) {
	if r.useRemote() {
		user, err := r.rem.UpdateUser(ctx, patch)
		if err == nil {
			s, serr := r.offline.GetSession(ctx)
			if serr != nil || s == nil {
				s = &remote.Session{}
			}
			s.User = user
			if serr := r.offline.SaveSession(ctx, s); serr != nil {
				r.log.Warn(ctx, "session persist failed", "error", serr)
			}
			return s, nil
		}
		if !isFault(err) {
			return nil, err
		}
		r.log.Warn(ctx, "backend unreachable, updating cached user")
	}
	return r.offline.UpdateUser(ctx, patch)
}

// stampLastLogin mirrors the sign-in time onto the user profile. Best
// effort on both sides, a failed stamp never fails the sign-in.
func (r *Router) stampLastLogin(ctx context.Context, s *remote.Session) {
	id := s.User.ID()
	if id == "" {
		return
	}
	stamp := common.FormatTimestamp(r.now())
	patch := store.Record{"last_login": stamp, "updated_at": stamp}
	filters := []query.Filter{query.Eq("id", id)}
	if err := r.rem.Update(ctx, "user_profiles", patch, filters); err != nil {
		r.log.Warn(ctx, "last_login stamp failed", "error", err)
		return
	}
	if err := r.local.Update(ctx, "user_profiles", patch, filters); err != nil {
		r.log.Warn(ctx, "last_login mirror failed", "error", err)
	}
}
