package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stapos/stapos/internal/dbx"
	"github.com/stapos/stapos/internal/query"
	"github.com/stapos/stapos/internal/store"
)

// RecordRepository stores synced collection documents.
type RecordRepository interface {
	List(ctx context.Context, collection string, req query.Request) ([]store.Record, error)
	Upsert(ctx context.Context, collection string, rec store.Record) (store.Record, error)
	Update(ctx context.Context, collection string, patch store.Record, filters []query.Filter) error
	Delete(ctx context.Context, collection string, filters []query.Filter) error
}

type PostgresRecordRepository struct {
	db dbx.DBTX
}

func NewPostgresRecordRepository(db dbx.DBTX) *PostgresRecordRepository {
	return &PostgresRecordRepository{db: db}
}

func (r *PostgresRecordRepository) List(ctx context.Context, collection string, req query.Request) ([]store.Record, error) {
	where, args, err := buildWhere(req.Filters, 1)
	if err != nil {
		return nil, err
	}
	order, err := buildOrder(req)
	if err != nil {
		return nil, err
	}
	q := "SELECT doc FROM records WHERE collection = $1" + where + order
	rows, err := r.db.QueryContext(ctx, q, append([]any{collection}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	recs := []store.Record{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		var rec store.Record
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, fmt.Errorf("decoding %s document: %w", collection, err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *PostgresRecordRepository) Upsert(ctx context.Context, collection string, rec store.Record) (store.Record, error) {
	id := rec.ID()
	if id == "" {
		return nil, fmt.Errorf("record in %s has no id", collection)
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding %s document: %w", collection, err)
	}
	q := `INSERT INTO records (collection, id, doc)
	      VALUES ($1, $2, $3)
	      ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc`
	if _, err := r.db.ExecContext(ctx, q, collection, id, doc); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRecordRepository) Update(ctx context.Context, collection string, patch store.Record, filters []query.Filter) error {
	doc, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encoding patch: %w", err)
	}
	where, args, err := buildWhere(filters, 2)
	if err != nil {
		return err
	}
	q := "UPDATE records SET doc = doc || $2::jsonb WHERE collection = $1" + where
	if _, err := r.db.ExecContext(ctx, q, append([]any{collection, doc}, args...)...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRecordRepository) Delete(ctx context.Context, collection string, filters []query.Filter) error {
	where, args, err := buildWhere(filters, 1)
	if err != nil {
		return err
	}
	q := "DELETE FROM records WHERE collection = $1" + where
	if _, err := r.db.ExecContext(ctx, q, append([]any{collection}, args...)...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
