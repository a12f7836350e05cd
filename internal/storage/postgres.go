package storage

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresSchema string

// NewPostgresSink connects to PostgreSQL and applies the log schema.
func NewPostgresSink(dsn string) (*SQLSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	sink, err := newSQLSink(db, postgresSchema, func(n int) string { return "$" + strconv.Itoa(n) })
	if err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}
