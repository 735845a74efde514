package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) driverName() string {
	if d == dialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

func newSQLStore(d dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// NewSQLiteStore opens a SQLite database. An in-memory database is limited to
// one connection, since every new connection would see an empty database.
func NewSQLiteStore(dsn string) (*SQLStore, error) {
	s, err := newSQLStore(dialectSQLite, dsn)
	if err != nil {
		return nil, err
	}
	if strings.Contains(dsn, ":memory:") {
		s.db.SetMaxOpenConns(1)
	}
	return s, nil
}

func NewPostgresStore(dsn string) (*SQLStore, error) {
	return newSQLStore(dialectPostgres, dsn)
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// List returns every todo in insertion order.
func (s *SQLStore) List(ctx context.Context) ([]Todo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, complete
		FROM todos
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	out := []Todo{}
	for rows.Next() {
		var t Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.Complete); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) Get(ctx context.Context, id int64) (Todo, error) {
	var t Todo
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT id, title, complete
		FROM todos
		WHERE id = ?
	`), id).Scan(&t.ID, &t.Title, &t.Complete)
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, ErrNotFound
	}
	if err != nil {
		return Todo{}, fmt.Errorf("get todo %d: %w", id, err)
	}
	return t, nil
}

func (s *SQLStore) Create(ctx context.Context, title string) (Todo, error) {
	if strings.TrimSpace(title) == "" {
		return Todo{}, ErrTitleRequired
	}
	t := Todo{Title: title}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, s.dialect.rebind(`
			INSERT INTO todos (title, complete)
			VALUES (?, ?)
			RETURNING id
		`), title, false).Scan(&t.ID)
	})
	if err != nil {
		return Todo{}, fmt.Errorf("create todo: %w", err)
	}
	return t, nil
}

// Toggle negates complete in place and returns the updated row.
func (s *SQLStore) Toggle(ctx context.Context, id int64) (Todo, error) {
	var t Todo
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, s.dialect.rebind(`
			UPDATE todos
			SET complete = NOT complete
			WHERE id = ?
			RETURNING id, title, complete
		`), id).Scan(&t.ID, &t.Title, &t.Complete)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return Todo{}, ErrNotFound
	}
	if err != nil {
		return Todo{}, fmt.Errorf("toggle todo %d: %w", id, err)
	}
	return t, nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM todos WHERE id = ?`), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	return nil
}

// withTx runs fn in a transaction and commits it. Any failure, including a
// failed commit, rolls the transaction back.
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(fmt.Errorf("commit: %w", err), fmt.Errorf("rollback: %w", rbErr))
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ApplyMigrations ensures schema exists
func (s *SQLStore) ApplyMigrations(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS todos (
	id INTEGER PRIMARY KEY,
	title VARCHAR(100) NOT NULL,
	complete BOOLEAN NOT NULL DEFAULT FALSE
);
	`
	if s.dialect == dialectPostgres {
		schema = `
CREATE TABLE IF NOT EXISTS todos (
	id INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	title VARCHAR(100) NOT NULL,
	complete BOOLEAN NOT NULL DEFAULT FALSE
);
	`
	}
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SQLiteFileDSN builds a DSN like file:/absolute/path?_pragma=busy_timeout(5000)
// and creates the parent directory.
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", nil
}
