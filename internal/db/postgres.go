// Package db opens the Postgres record store and runs embedded migrations.
package db

import (
	"database/sql"
	"time"

	"github.com/avast/retry-go"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a Postgres connection using the given DSN. Caller must call Close when done.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Connect opens the store with a bounded number of attempts, then gives up.
// Used at process startup: an unreachable store is fatal, but a store that is
// still coming up (e.g. under docker-compose) gets a short grace period.
func Connect(dsn string, attempts uint) (*sql.DB, error) {
	var conn *sql.DB
	err := retry.Do(
		func() error {
			var err error
			conn, err = Open(dsn)
			return err
		},
		retry.Attempts(attempts),
		retry.Delay(time.Second),
	)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
