// Package store implements the embedded object store backing offline
// operation: durable named collections of JSON records keyed by id, with
// secondary-index lookup, a small metadata slot table, and an outbox of
// queued local mutations awaiting reconciliation.
//
// Records are stored whole (put replaces, never merges); merge semantics
// live in the query layer above. Secondary indexes are generated columns
// over the JSON document, kept consistent by the engine itself, so index
// reads never observe a half-applied write.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/stapos/stapos/internal/common"
	"github.com/stapos/stapos/internal/dbx"
	"github.com/stapos/stapos/internal/logging"
	"github.com/stapos/stapos/internal/store/migrations"
)

type Store struct {
	db  *sql.DB
	log logging.Logger
}

// Open opens (or creates) the local database at dsn, applies pending schema
// migrations and returns a ready Store. Failures to open or migrate are
// reported as ErrStorageUnavailable.
func Open(ctx context.Context, dsn string, log logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	// sqlite has a single writer; one pooled connection avoids SQLITE_BUSY
	// and keeps readers from observing a half-applied write.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrations: %v", common.ErrStorageUnavailable, err)
	}
	log.Info(ctx, "local store opened", "dsn", dsn)
	return &Store{db: db, log: log}, nil
}

// runMigrations applies the embedded goose migrations. Goose only runs
// migrations whose version exceeds the database's recorded version, which
// gives the upgrade-on-version-increase behavior expected from the host
// persistence layer.
func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) check() error {
	if s == nil || s.db == nil {
		return common.ErrStorageUnavailable
	}
	return nil
}

func lookup(collection string) (collectionDef, error) {
	def, ok := collections[collection]
	if !ok {
		return collectionDef{}, fmt.Errorf("%w: %s", common.ErrUnknownCollection, collection)
	}
	return def, nil
}

// GetAll returns every record in the collection in insertion order.
func (s *Store) GetAll(ctx context.Context, collection string) ([]Record, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	def, err := lookup(collection)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT doc FROM %s ORDER BY rowid`, def.table))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}
	defer rows.Close()

	return scanRecords(rows, collection)
}

// GetByKey returns the record with the given id, or (nil, nil) if absent.
func (s *Store) GetByKey(ctx context.Context, collection, id string) (Record, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	def, err := lookup(collection)
	if err != nil {
		return nil, err
	}

	var doc []byte
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT doc FROM %s WHERE id = ?`, def.table), id)
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s[%s]: %w", collection, id, err)
	}
	return unmarshalRecord(doc)
}

// Put inserts the record if its id is absent from the collection, otherwise
// replaces the stored record entirely. The record must carry an id.
func (s *Store) Put(ctx context.Context, collection string, rec Record) error {
	if err := s.check(); err != nil {
		return err
	}
	def, err := lookup(collection)
	if err != nil {
		return err
	}
	id := rec.ID()
	if id == "" {
		return fmt.Errorf("put into %s: record has no id", collection)
	}

	doc, err := marshalRecord(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s[%s]: %w", collection, id, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, doc) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc
	`, def.table)
	if _, err := s.db.ExecContext(ctx, query, id, doc); err != nil {
		return fmt.Errorf("failed to upsert %s[%s]: %w", collection, id, err)
	}
	return nil
}

// Delete removes the record with the given id. Deleting an absent id is a
// no-op, not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := s.check(); err != nil {
		return err
	}
	def, err := lookup(collection)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, def.table), id); err != nil {
		return fmt.Errorf("failed to delete %s[%s]: %w", collection, id, err)
	}
	return nil
}

// Clear removes all records from the collection. Used only by full
// data re-import.
func (s *Store) Clear(ctx context.Context, collection string) error {
	if err := s.check(); err != nil {
		return err
	}
	def, err := lookup(collection)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, def.table)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", collection, err)
	}
	return nil
}

// QueryByIndex returns all records whose indexed field equals value, in
// insertion order. The lookup uses the collection's secondary index.
func (s *Store) QueryByIndex(ctx context.Context, collection, indexName string, value any) ([]Record, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	def, err := lookup(collection)
	if err != nil {
		return nil, err
	}
	column, ok := def.indexes[indexName]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", common.ErrUnknownIndex, indexName, collection)
	}

	query := fmt.Sprintf(`SELECT doc FROM %s WHERE %s = ? ORDER BY rowid`, def.table, column)
	rows, err := s.db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by %s: %w", collection, indexName, err)
	}
	defer rows.Close()

	return scanRecords(rows, collection)
}

// Export dumps every collection as a snapshot keyed by collection name.
func (s *Store) Export(ctx context.Context) (map[string][]Record, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	out := make(map[string][]Record, len(collections))
	for _, name := range Collections() {
		recs, err := s.GetAll(ctx, name)
		if err != nil {
			return nil, err
		}
		out[name] = recs
	}
	return out, nil
}

// Import replaces the entire dataset with the given snapshot inside one
// transaction: every collection is cleared and re-filled. Collections not
// present in the snapshot are emptied too.
func (s *Store) Import(ctx context.Context, data map[string][]Record) error {
	if err := s.check(); err != nil {
		return err
	}
	for name := range data {
		if !Known(name) {
			return fmt.Errorf("%w: %s", common.ErrUnknownCollection, name)
		}
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, name := range Collections() {
			def := collections[name]
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, def.table)); err != nil {
				return fmt.Errorf("failed to clear %s: %w", name, err)
			}
			for _, rec := range data[name] {
				id := rec.ID()
				if id == "" {
					return fmt.Errorf("import into %s: record has no id", name)
				}
				doc, err := marshalRecord(rec)
				if err != nil {
					return fmt.Errorf("failed to encode %s[%s]: %w", name, id, err)
				}
				if _, err := tx.ExecContext(ctx,
					fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES (?, ?)`, def.table), id, doc); err != nil {
					return fmt.Errorf("failed to import %s[%s]: %w", name, id, err)
				}
			}
		}
		return nil
	})
}

func scanRecords(rows *sql.Rows, collection string) ([]Record, error) {
	var result []Record
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", collection, err)
		}
		rec, err := unmarshalRecord(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s row: %w", collection, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", collection, err)
	}
	return result, nil
}
