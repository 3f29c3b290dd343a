// Package postgres stores session feedback as rows in feedback_entries,
// one namespace per logical store.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/mohammad-safakhou/scout/feedback"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open connects with lib/pq and pings the server.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded migrations. direction is "up" or "down";
// steps > 0 limits how many are applied. No change is not an error.
func Migrate(dsn string, direction string, steps int) error {
	if direction != "up" && direction != "down" && direction != "" {
		return fmt.Errorf("unknown direction: %s", direction)
	}
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	switch direction {
	case "up", "":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	default:
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

type Store struct {
	db        *sql.DB
	namespace string
}

func New(db *sql.DB, namespace string) *Store {
	if namespace == "" {
		namespace = "default"
	}
	return &Store{db: db, namespace: namespace}
}

// EnsureInitialized checks that the schema is in place.
func (s *Store) EnsureInitialized(ctx context.Context) error {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feedback_entries WHERE namespace = $1`, s.namespace).Scan(&n)
	if err != nil {
		return fmt.Errorf("feedback_entries not ready (run scout migrate): %w", err)
	}
	return nil
}

func (s *Store) Read(ctx context.Context) ([]feedback.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT feedback FROM feedback_entries WHERE namespace = $1 ORDER BY id`, s.namespace)
	if err != nil {
		return nil, fmt.Errorf("read feedback: %w", err)
	}
	defer rows.Close()

	var out []feedback.Entry
	for rows.Next() {
		var e feedback.Entry
		if err := rows.Scan(&e.Feedback); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Append(ctx context.Context, e feedback.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback_entries (namespace, feedback) VALUES ($1, $2)`, s.namespace, e.Feedback)
	if err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM feedback_entries WHERE namespace = $1`, s.namespace); err != nil {
		return fmt.Errorf("clear feedback: %w", err)
	}
	return nil
}
