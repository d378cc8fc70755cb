package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mohammadpnp/job-feed-import/internal/bootstrap"
	"github.com/mohammadpnp/job-feed-import/internal/platform/config"
	"github.com/mohammadpnp/job-feed-import/internal/platform/logger"
)

// AppContext is the dependency set one command invocation works with.
type AppContext struct {
	*bootstrap.Container
}

func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Commands print to stdout; logs go to stderr so they never mix.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logger.ParseLevel(cfg.LogLevel)}))

	container, err := bootstrap.NewContainer(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &AppContext{Container: container}, nil
}
