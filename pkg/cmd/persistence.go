package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/carebridge/chartflow/pkg/persistence"
	"github.com/carebridge/chartflow/pkg/persistence/file"
	"github.com/carebridge/chartflow/pkg/persistence/postgresql"
)

// NewPersistence selects the persistence backend from the database URL scheme:
// postgres:// connects to PostgreSQL, anything else is treated as a file root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseProvider(databaseURL) {
	case "postgresql":
		persist, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgresql persistence: %w", err)
		}

		return persist, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	switch provider {
	case "postgres", "postgresql":
		return "postgresql"
	default:
		return "file"
	}
}
