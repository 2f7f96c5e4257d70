// Package sqlstore persists a collection in sqlite or postgres through
// database/sql. The schema is applied with golang-migrate from embedded
// migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/querygen"
	"github.com/domino14/srs_scheduler/internal/stores"
)

const (
	DriverSqlite   = "sqlite3"
	DriverPostgres = "pgx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is not safe for concurrent use.
type Store struct {
	db      *sql.DB
	tx      *sql.Tx
	dialect querygen.Dialect
}

var _ stores.Storage = (*Store)(nil)

// Open connects to the database and brings its schema up to date.
func Open(ctx context.Context, driver, uri string) (*Store, error) {
	var dialect querygen.Dialect
	switch driver {
	case DriverSqlite:
		dialect = querygen.Question
	case DriverPostgres:
		dialect = querygen.Dollar
	default:
		return nil, errs.InvalidInput("unsupported db driver %q", driver)
	}
	db, err := sql.Open(driver, uri)
	if err != nil {
		return nil, errs.DB(err)
	}
	if driver == DriverSqlite {
		// One connection, so a transaction sees its own writes.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errs.DB(err)
	}
	if err := migrateUp(db, driver); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, dialect: dialect}, nil
}

func migrateUp(db *sql.DB, driver string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errs.DB(err)
	}
	var m *migrate.Migrate
	switch driver {
	case DriverSqlite:
		instance, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
		if err != nil {
			return errs.DB(err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "sqlite3", instance)
		if err != nil {
			return errs.DB(err)
		}
	default:
		instance, err := migratepgx.WithInstance(db, &migratepgx.Config{})
		if err != nil {
			return errs.DB(err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "pgx", instance)
		if err != nil {
			return errs.DB(err)
		}
	}
	// m is not closed: that would close db as well.
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return errs.DB(fmt.Errorf("migrating: %w", err))
	}
	version, _, _ := m.Version()
	log.Info().Uint("version", version).Str("driver", driver).Msg("db-migrated")
	return nil
}

func (s *Store) Close() error {
	if s.tx != nil {
		s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}

func (s *Store) Begin(ctx context.Context) error {
	if s.tx != nil {
		return errs.InvalidInput("transaction already open")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.DB(err)
	}
	s.tx = tx
	return nil
}

func (s *Store) Commit(ctx context.Context) error {
	if s.tx == nil {
		return errs.InvalidInput("no transaction open")
	}
	err := s.tx.Commit()
	s.tx = nil
	return errs.DB(err)
}

func (s *Store) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return errs.DB(err)
}

func (s *Store) InTransaction() bool {
	return s.tx != nil
}

func (s *Store) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *Store) writer() (querier, error) {
	if s.tx == nil {
		return nil, errs.InvalidInput("write outside of a transaction")
	}
	return s.tx, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	w, err := s.writer()
	if err != nil {
		return err
	}
	_, err = w.ExecContext(ctx, querygen.Rebind(s.dialect, query), args...)
	return errs.DB(err)
}

// update runs an UPDATE and fails with NotFound when no row matched.
func (s *Store) update(ctx context.Context, what string, id any, query string, args ...any) error {
	w, err := s.writer()
	if err != nil {
		return err
	}
	res, err := w.ExecContext(ctx, querygen.Rebind(s.dialect, query), args...)
	if err != nil {
		return errs.DB(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.DB(err)
	}
	if n == 0 {
		return errs.NotFound(what, id)
	}
	return nil
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q().QueryRowContext(ctx, querygen.Rebind(s.dialect, query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := s.q().QueryContext(ctx, querygen.Rebind(s.dialect, query), args...)
	return rows, errs.DB(err)
}

func (s *Store) nextID(ctx context.Context, table string) (int64, error) {
	var id int64
	err := s.queryRow(ctx, "SELECT COALESCE(MAX(id), 0) + 1 FROM "+table).Scan(&id)
	return id, errs.DB(err)
}

func (s *Store) exists(ctx context.Context, table string, id int64) (bool, error) {
	var one int
	err := s.queryRow(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, errs.DB(err)
}

func notFoundOr(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errs.NotFound(what, id)
	}
	return errs.DB(err)
}
