// Package sqlite provides single-file SQLite persistence for drafts and tokens.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/otomato/pkg/persistence"
	"github.com/dukex/otomato/pkg/persistence/sqlbase"
	"github.com/go-playground/validator/v10"
	_ "modernc.org/sqlite"
)

type Persistence struct {
	db        *sql.DB
	draftRepo *DraftRepository
	tokenRepo *TokenRepository
}

// NewPersistence opens the database at databaseURL (sqlite://path or a
// plain DSN) and migrates it.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	dsn := strings.TrimPrefix(databaseURL, "sqlite://")

	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// One writer at a time; avoids SQLITE_BUSY between pooled connections.
	database.SetMaxOpenConns(1)

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	err = sqlbase.NewMigrationManager(logger, database, migrations(), sqlbase.WithDialect(sqlbase.SQLite)).RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	return &Persistence{
		db:        database,
		draftRepo: &DraftRepository{db: database, logger: logger, validate: validate},
		tokenRepo: &TokenRepository{db: database, validate: validate},
	}, nil
}

func (p *Persistence) Close(_ context.Context) error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) DraftRepository() persistence.DraftRepository { return p.draftRepo }

func (p *Persistence) TokenRepository() persistence.TokenRepository { return p.tokenRepo }

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE drafts (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				workflow BLOB NOT NULL,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			);
		`,
		2: `CREATE INDEX idx_drafts_created_at ON drafts(created_at);`,
		3: `
			CREATE TABLE tokens (
				name TEXT PRIMARY KEY,
				token TEXT NOT NULL,
				address TEXT NOT NULL DEFAULT '',
				expires_at INTEGER,
				created_at INTEGER NOT NULL
			);
		`,
	}
}

// Times are stored as Unix nanoseconds.
func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }
