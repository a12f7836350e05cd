package storage

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"
)

//go:embed migrations_sqlite.sql
var sqliteSchema string

// NewSQLiteSink opens (or creates) the SQLite database at path.
func NewSQLiteSink(path string) (*SQLSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	sink, err := newSQLSink(db, sqliteSchema, func(int) string { return "?" })
	if err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}
