package store

import (
	"context"
	"fmt"
	"strings"

	"vistora/internal/domain"
)

// Options selects and configures a Store backend.
type Options struct {
	Driver      string // memory | sqlite | postgres
	SQLitePath  string
	DatabaseURL string
}

// Open returns the Store named by opts.Driver. An empty driver means memory.
func Open(ctx context.Context, opts Options) (domain.Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		if opts.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite driver requires a path")
		}
		return OpenSQLite(opts.SQLitePath)
	case "postgres", "postgresql", "pg":
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres driver requires a database url")
		}
		return OpenPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
