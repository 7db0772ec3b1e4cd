package query

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/stapos/stapos/internal/common"
	"github.com/stapos/stapos/internal/logging"
	"github.com/stapos/stapos/internal/store"
)

// Engine executes query requests against the embedded store. Collections
// are small: every select materializes the collection snapshot and filters
// in memory, which keeps the semantics identical to the remote query API
// without a planner.
type Engine struct {
	store *store.Store
	log   logging.Logger

	// test seams
	now   func() time.Time
	newID func() string
}

func NewEngine(st *store.Store, log logging.Logger) *Engine {
	return &Engine{
		store: st,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Select returns all records of table matching the request, ordered per
// the request. Zero matches yield an empty slice and no error; only
// storage faults produce an error.
func (e *Engine) Select(ctx context.Context, table string, req Request) ([]store.Record, error) {
	recs, err := e.store.GetAll(ctx, table)
	if err != nil {
		return nil, err
	}

	out := make([]store.Record, 0, len(recs))
	for _, rec := range recs {
		if matchesAll(rec, req.Filters) {
			out = append(out, rec)
		}
	}

	if req.OrderBy != "" {
		sortRecords(out, req.OrderBy, req.Descending)
	}
	return out, nil
}

// SelectOne returns the first matching record, or (nil, nil) when nothing
// matches. Absence is a normal outcome, never an error.
func (e *Engine) SelectOne(ctx context.Context, table string, req Request) (store.Record, error) {
	recs, err := e.Select(ctx, table, req)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// Insert persists the record, assigning an id and creation timestamp if
// the caller did not supply them, and returns the fully populated record.
// Callers depend on receiving the generated id synchronously to chain an
// insert with a follow-up single-row fetch.
func (e *Engine) Insert(ctx context.Context, table string, rec store.Record) (store.Record, error) {
	r := rec.Clone()
	if r.ID() == "" {
		r["id"] = e.newID()
	}
	if _, ok := r["created_at"]; !ok {
		r["created_at"] = common.FormatTimestamp(e.now())
	}

	if err := e.store.Put(ctx, table, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Update shallow-merges patch into every record matching the filters and
// stamps updated_at with the current time, overwriting any caller value.
// Callers needing the new state re-query.
func (e *Engine) Update(ctx context.Context, table string, patch store.Record, filters []Filter) error {
	recs, err := e.Select(ctx, table, Request{Filters: filters})
	if err != nil {
		return err
	}

	stamp := common.FormatTimestamp(e.now())
	for _, rec := range recs {
		merged := rec.Clone()
		merged.Merge(patch)
		merged["updated_at"] = stamp
		if err := e.store.Put(ctx, table, merged); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes every record matching the filters. Matching nothing is
// not an error.
func (e *Engine) Delete(ctx context.Context, table string, filters []Filter) error {
	recs, err := e.Select(ctx, table, Request{Filters: filters})
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := e.store.Delete(ctx, table, rec.ID()); err != nil {
			return err
		}
	}
	return nil
}

// Store exposes the underlying embedded store for components layered on
// the same database (session slot, outbox, index lookups).
func (e *Engine) Store() *store.Store {
	return e.store
}

func matchesAll(rec store.Record, filters []Filter) bool {
	for _, f := range filters {
		if !matches(rec, f) {
			return false
		}
	}
	return true
}

// sortRecords stable-sorts by the named field; ties keep retrieval
// (insertion) order. Records lacking the field sort first ascending.
func sortRecords(recs []store.Record, field string, descending bool) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, aok := recs[i][field]
		b, bok := recs[j][field]
		if !aok || !bok {
			// records lacking the field sort before those carrying it
			if aok == bok {
				return false
			}
			if descending {
				return aok
			}
			return bok
		}
		c, ok := compareValues(a, b)
		if !ok {
			return false
		}
		if descending {
			return c > 0
		}
		return c < 0
	})
}
