package todos

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

// Location is a parsed DATABASE_URL.
type Location struct {
	Backend Backend
	// Path is the SQLite file path or ":memory:".
	Path string
	// DSN is the connection string handed to the PostgreSQL driver.
	DSN string
}

// ParseDatabaseURL accepts sqlite:///relative.db, sqlite:////abs/path.db,
// sqlite:///:memory:, postgres:// or postgresql:// URLs and memory://.
func ParseDatabaseURL(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return Location{}, fmt.Errorf("database url is empty")
	case strings.HasPrefix(raw, "sqlite:///"):
		path := strings.TrimPrefix(raw, "sqlite:///")
		if path == "" {
			return Location{}, fmt.Errorf("sqlite url %q has no path", raw)
		}
		return Location{Backend: BackendSQLite, Path: path}, nil
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		if _, err := url.Parse(raw); err != nil {
			return Location{}, fmt.Errorf("parse postgres url: %w", err)
		}
		return Location{Backend: BackendPostgres, DSN: raw}, nil
	case raw == "memory://":
		return Location{Backend: BackendMemory}, nil
	default:
		return Location{}, fmt.Errorf("unsupported database url %q", raw)
	}
}

// String is safe to log: PostgreSQL passwords are redacted.
func (l Location) String() string {
	switch l.Backend {
	case BackendSQLite:
		return "sqlite:///" + l.Path
	case BackendPostgres:
		u, err := url.Parse(l.DSN)
		if err != nil {
			return "postgres://(invalid)"
		}
		return u.Redacted()
	default:
		return string(l.Backend) + "://"
	}
}

// OpenStore opens the store behind loc and makes sure the todos table exists.
func OpenStore(ctx context.Context, loc Location) (Store, error) {
	var (
		s   *SQLStore
		err error
	)
	switch loc.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		dsn := loc.Path
		if loc.Path != ":memory:" {
			dsn, err = SQLiteFileDSN(loc.Path)
			if err != nil {
				return nil, fmt.Errorf("sqlite dsn: %w", err)
			}
		}
		s, err = NewSQLiteStore(dsn)
	case BackendPostgres:
		s, err = NewPostgresStore(loc.DSN)
	default:
		return nil, fmt.Errorf("unsupported backend %q", loc.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", loc.Backend, err)
	}
	if err := s.ApplyMigrations(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate %s: %w", loc.Backend, err)
	}
	return s, nil
}
