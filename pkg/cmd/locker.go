package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/demodeck/pkg/locking"
)

// NewLocker returns a Redis locker for redis:// and rediss:// URLs and an in-process
// one when url is empty.
func NewLocker(ctx context.Context, url string, logger *slog.Logger) (locking.Locker, error) {
	switch {
	case url == "" || url == "memory":
		return locking.NewMemory(), nil
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		locker, err := locking.NewRedis(ctx, url, logger)
		if err != nil {
			return nil, err
		}

		return locker, nil
	default:
		return nil, fmt.Errorf("unsupported locker url: %s", url)
	}
}
