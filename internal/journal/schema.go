package journal

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
)

//go:embed schema.sql
var schemaSQL string

// journalVersion is stored in the SQLite user_version header. Bump it when
// schema.sql changes; older journals are rejected rather than migrated.
const journalVersion = 1

// ErrSchemaMismatch is returned when an existing journal was written with a
// different layout.
var ErrSchemaMismatch = errors.New("journal schema version mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read journal version: %w", err)
	}
	switch version {
	case journalVersion:
		return nil
	case 0:
		return s.createSchema(ctx)
	default:
		return fmt.Errorf("%w: %s has version %d, want %d; remove it to start a fresh journal",
			ErrSchemaMismatch, s.path, version, journalVersion)
	}
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create journal tables: %w", err)
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, "PRAGMA user_version = "+strconv.Itoa(journalVersion)); err != nil {
		return fmt.Errorf("stamp journal version: %w", err)
	}
	return tx.Commit()
}
