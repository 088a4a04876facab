// Package sqlite guarda las mascotas en SQLite (driver ncruces, sin cgo).
// Sirve para dev local y para tests sin levantar Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const defaultDSN = "file:petsoft.sqlite?_pragma=busy_timeout(5000)"

// Open abre la base. dsn vacío => archivo local petsoft.sqlite.
func Open(dsn string) (*sql.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = defaultDSN
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serializa escrituras; una sola conexión evita SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS pets (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	owner_name  TEXT NOT NULL,
	image_url   TEXT NOT NULL,
	age         INTEGER NOT NULL,
	notes       TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
`

func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
