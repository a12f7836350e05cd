package storage

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/xaenox/relay-bot/internal/models"
)

// LogSink persists message log buckets. Append must add records after any
// already stored for key, in order.
type LogSink interface {
	Append(ctx context.Context, key models.BucketKey, records []models.MessageRecord) error
	Records(ctx context.Context, key models.BucketKey) ([]models.MessageRecord, error)
	Close() error
}

// Driver names accepted by Open.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and configures a LogSink.
type Config struct {
	Driver string
	DSN    string
	Dir    string
}

// Open returns the sink named by cfg.Driver. File sinks live under cfg.Dir on
// fs; SQL sinks connect to cfg.DSN.
func Open(cfg Config, fs afero.Fs) (LogSink, error) {
	switch cfg.Driver {
	case "", DriverFile:
		return NewFileSink(fs, cfg.Dir)
	case DriverMemory:
		return NewMemorySink(), nil
	case DriverSQLite:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("sqlite storage requires a dsn")
		}
		return NewSQLiteSink(cfg.DSN)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres storage requires a dsn")
		}
		return NewPostgresSink(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
