// Package app wires the chargepoint core into a runnable demo binary:
// a real websocket dial, a persistence backend chosen at deploy time,
// and a tick loop driving Poll. It is illustrative, not part of the
// core's public contract (see SPEC_FULL.md's OVERVIEW).
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kochedykov/MicroOcpp/internal/chargepoint"
	"github.com/kochedykov/MicroOcpp/internal/config"
	"github.com/kochedykov/MicroOcpp/internal/ops"
	"github.com/kochedykov/MicroOcpp/internal/rpc"
	"github.com/kochedykov/MicroOcpp/internal/storage"
)

// pollInterval is how often the demo drives Context.Poll. The core
// itself has no opinion on cadence — spec.md §5 only requires that
// poll be invoked "repeatedly"; one second matches the clock's
// stated resolution.
const pollInterval = time.Second

// App wires one chargepoint.Context to a real transport and
// persistence backend for the demo binary.
type App struct {
	logger *zap.Logger
	ctx    *chargepoint.Context
	conn   *rpc.WebsocketConnection
	fs     storage.Filesystem
}

// New constructs the demo application from a loaded Bootstrap.
func New(cfg *config.Bootstrap, logger *zap.Logger) (*App, error) {
	fs, err := newFilesystem(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app: storage: %w", err)
	}

	conn := rpc.NewWebsocketConnection(logger)

	identity := ops.Identity{
		Vendor:          cfg.ChargePoint.Vendor,
		Model:           cfg.ChargePoint.Model,
		SerialNumber:    cfg.ChargePoint.ID,
		FirmwareVersion: cfg.ChargePoint.FirmwareVersion,
	}

	cctx := chargepoint.New(identity, fs, realTick, logger)
	if err := cctx.Initialize(conn, 1); err != nil {
		return nil, fmt.Errorf("app: initialize: %w", err)
	}

	return &App{logger: logger, ctx: cctx, conn: conn, fs: fs}, nil
}

func newFilesystem(cfg *config.Bootstrap, logger *zap.Logger) (storage.Filesystem, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "", "disk":
		return storage.NewDiskFilesystem(cfg.Storage.Dir)
	case "postgres":
		return storage.NewPostgresFilesystem(context.Background(), cfg.Storage.DSN)
	case "redis":
		return storage.NewRedisFilesystem(context.Background(), cfg.Storage.DSN, "", "microocpp:")
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func realTick() uint64 { return uint64(time.Now().Unix()) }

func dialEndpoint(cfg *config.Bootstrap) string {
	return strings.TrimRight(cfg.Backend.URL, "/") + "/" + cfg.ChargePoint.ID
}

// Run dials the backend and drives Poll until ctx is cancelled. A
// dial failure is not fatal: the outbox simply queues while
// Connection.IsConnected reports false, per spec.md §6's "the core
// treats disconnection as backpressure on the outbox" — Run retries
// the dial on a backoff instead of giving up.
func (a *App) Run(ctx context.Context, cfg *config.Bootstrap) error {
	go a.dialLoop(ctx, cfg)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.ctx.Poll(realTick())
		}
	}
}

func (a *App) dialLoop(ctx context.Context, cfg *config.Bootstrap) {
	creds := &rpc.Credentials{
		BasicUser: cfg.ChargePoint.ID,
		BasicPass: cfg.Backend.Password,
		Token:     cfg.Backend.Token,
	}
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if !a.conn.IsConnected() {
			dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := a.conn.Dial(dialCtx, dialEndpoint(cfg), creds)
			cancel()
			if err != nil {
				a.logger.Warn("dial failed, retrying", zap.Error(err), zap.Duration("backoff", backoff))
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				if backoff < maxBackoff {
					backoff *= 2
				}
				continue
			}
			backoff = time.Second
			a.logger.Info("connected", zap.String("endpoint", dialEndpoint(cfg)))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// Close releases the demo application's resources.
func (a *App) Close() {
	a.ctx.Deinitialize()
}
