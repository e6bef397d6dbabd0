package store

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate brings the schema up to the latest embedded migration of the
// store's dialect. It is a no-op when the schema is current.
//
// SQLite migrates on the store's own handle, because an in-memory database
// is only visible there. Other dialects migrate on a short-lived handle that
// is closed afterwards.
func (s *Store) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations/"+s.dialect.Name)
	if err != nil {
		return errors.Wrap(err, "store: load migrations")
	}

	var (
		drv   database.Driver
		owned *sql.DB
	)
	switch s.dialect {
	case SQLite:
		drv, err = migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	case Postgres, MySQL:
		if s.dsn == "" {
			return errors.Errorf("store: migrating %s needs a dsn", s.dialect.Name)
		}
		owned, err = sql.Open(s.dialect.Driver, s.dsn)
		if err != nil {
			return errors.Wrap(err, "store: open migration connection")
		}
		if s.dialect == Postgres {
			drv, err = migratepg.WithInstance(owned, &migratepg.Config{})
		} else {
			drv, err = migratemysql.WithInstance(owned, &migratemysql.Config{})
		}
	default:
		err = errors.Errorf("store: no migrations for dialect %q", s.dialect.Name)
	}
	if err != nil {
		_ = src.Close()
		if owned != nil {
			_ = owned.Close()
		}
		return errors.Wrap(err, "store: migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", src, s.dialect.Name, drv)
	if err != nil {
		_ = src.Close()
		if owned != nil {
			_ = drv.Close()
		}
		return errors.Wrap(err, "store: init migrations")
	}
	if owned != nil {
		defer m.Close()
	} else {
		defer src.Close()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "store: apply migrations")
	}
	return nil
}
