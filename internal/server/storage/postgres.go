// Package storage wires the backend's PostgreSQL repositories together,
// running embedded migrations on startup.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/stapos/stapos/internal/server/storage/migrations"
)

type Manager struct {
	db      *sql.DB
	users   UserRepository
	records RecordRepository
}

func (m *Manager) Users() UserRepository     { return m.users }
func (m *Manager) Records() RecordRepository { return m.records }

func (m *Manager) Close() error {
	return m.db.Close()
}

func (m *Manager) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, m.db, ".")
}

func NewManager(ctx context.Context, dsn string) (*Manager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &Manager{
		db:      db,
		users:   NewPostgresUserRepository(db),
		records: NewPostgresRecordRepository(db),
	}

	if err := m.runMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
