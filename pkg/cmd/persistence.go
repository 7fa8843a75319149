package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/demodeck/pkg/host"
	"github.com/dukex/demodeck/pkg/persistence"
	"github.com/dukex/demodeck/pkg/persistence/file"
	"github.com/dukex/demodeck/pkg/persistence/postgresql"
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql"}

// NewPersistence picks the instance repository from the URL scheme. Anything that is
// not a database URL is a base directory for the file repository.
func NewPersistence(ctx context.Context, logger *slog.Logger, h host.Host, databaseURL, baseDir string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return p, nil
	default:
		root := strings.TrimPrefix(databaseURL, "file://")
		if root == "" {
			root = baseDir
		}

		return file.NewPersistence(h, root), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
