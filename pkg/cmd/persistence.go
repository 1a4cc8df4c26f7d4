package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/otomato/pkg/persistence"
	"github.com/dukex/otomato/pkg/persistence/file"
	"github.com/dukex/otomato/pkg/persistence/mongodb"
	"github.com/dukex/otomato/pkg/persistence/postgresql"
	"github.com/dukex/otomato/pkg/persistence/redis"
	"github.com/dukex/otomato/pkg/persistence/sqlite"
)

var (
	ErrUnsupportedPersistence = errors.New("unsupported persistence provider")
	ErrUnsupportedEventBus    = errors.New("unsupported event bus provider")
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql", "redis", "rediss", "sqlite", "mongodb", "mongodb+srv"}

// NewPersistence picks a backend from the scheme of databaseURL. A bare
// path is treated as a file:// root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider, err := parsePersistenceProvider(databaseURL)
	if err != nil {
		return nil, err
	}

	switch provider {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case "redis", "rediss":
		return redis.NewPersistence(ctx, logger, databaseURL)
	case "mongodb", "mongodb+srv":
		return mongodb.NewPersistence(ctx, logger, databaseURL)
	case "sqlite":
		return sqlite.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) (string, error) {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file", nil
	}

	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedPersistence, provider)
}
