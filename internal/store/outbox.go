package store

import (
	"context"
	"fmt"

	"github.com/stapos/stapos/internal/common"
)

// Outbox ops record local mutations applied while the remote service was
// unreachable. They are replayed in enqueue order by the reconciliation
// pass and removed one by one as the remote accepts them.

const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// OutboxEntry is one queued mutation. For OpUpsert the current record is
// looked up by id at replay time, so several queued upserts of the same
// record collapse into its latest state.
type OutboxEntry struct {
	Seq        int64
	Collection string
	RecordID   string
	Op         string
	QueuedAt   string
}

// Enqueue appends a mutation to the outbox.
func (s *Store) Enqueue(ctx context.Context, collection, recordID, op string) error {
	if err := s.check(); err != nil {
		return err
	}
	if !Known(collection) {
		return fmt.Errorf("%w: %s", common.ErrUnknownCollection, collection)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox (collection, record_id, op, queued_at) VALUES (?, ?, ?, ?)
	`, collection, recordID, op, common.NowTimestamp())
	if err != nil {
		return fmt.Errorf("failed to enqueue %s %s[%s]: %w", op, collection, recordID, err)
	}
	return nil
}

// PendingOps returns all queued mutations in enqueue order.
func (s *Store) PendingOps(ctx context.Context) ([]OutboxEntry, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, collection, record_id, op, queued_at FROM outbox ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read outbox: %w", err)
	}
	defer rows.Close()

	var pending []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.Seq, &e.Collection, &e.RecordID, &e.Op, &e.QueuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}
		pending = append(pending, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox rows: %w", err)
	}
	return pending, nil
}

// Dequeue removes a replayed mutation.
func (s *Store) Dequeue(ctx context.Context, seq int64) error {
	if err := s.check(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM outbox WHERE seq = ?`, seq); err != nil {
		return fmt.Errorf("failed to dequeue outbox[%d]: %w", seq, err)
	}
	return nil
}
