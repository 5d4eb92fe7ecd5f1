// Command chargepoint is a demo binary showing the core driven
// end-to-end: a real websocket dial, YAML+env configuration, zap
// structured logging, and a choice of on-disk / Postgres / Redis
// persistence backends. It is illustrative, not part of the module's
// public contract.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kochedykov/MicroOcpp/backend/libs/logging"
	"github.com/kochedykov/MicroOcpp/internal/config"
	"github.com/kochedykov/MicroOcpp/internal/demo/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadBootstrap()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to init application", zap.Error(err))
	}
	defer application.Close()

	if err := application.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("application stopped with error", zap.Error(err))
	}
}
