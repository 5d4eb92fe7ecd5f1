package chargepoint

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kochedykov/MicroOcpp/internal/clock"
	"github.com/kochedykov/MicroOcpp/internal/ops"
	"github.com/kochedykov/MicroOcpp/internal/rpc"
	"github.com/kochedykov/MicroOcpp/internal/storage"
)

// Global is the thin package-level wrapper spec.md §9 calls for over
// an explicit Context: hosts ported from a C-library-style single
// global charge point ("OCPP_initialize/deinitialize") get the same
// API here, backed by exactly one *Context at a time. A host that
// wants several charge points in one process should construct
// Contexts directly with New instead.
var (
	globalMu sync.Mutex
	global   *Context
)

// Initialize constructs a fresh Context and starts its boot sequence,
// replacing whatever Context Global previously held. It is safe to
// call again after Deinitialize: because all persisted state lives in
// fs, this reproduces spec.md §9's "dropping and recreating the
// Context" recovery path, including the pre-boot/lost-timestamp
// scenarios of §8 S5–S7.
func Initialize(identity ops.Identity, fs storage.Filesystem, tick clock.TickSource, logger *zap.Logger, conn rpc.Connection, numConnectors int) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	ctx := New(identity, fs, tick, logger)
	if err := ctx.Initialize(conn, numConnectors); err != nil {
		return err
	}
	global = ctx
	return nil
}

// Deinitialize releases the current global Context, if any. Persisted
// state is left in place for the next Initialize to reload.
func Deinitialize() {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		global.Deinitialize()
		global = nil
	}
}

// Poll drives the global Context. It is a no-op if Initialize was
// never called or Deinitialize has already run.
func Poll(tick uint64) {
	globalMu.Lock()
	ctx := global
	globalMu.Unlock()
	if ctx != nil {
		ctx.Poll(tick)
	}
}

// Instance returns the current global Context, or nil if none is
// active. Provided for hosts that need to reach an operation the thin
// wrappers below don't cover, without giving up the global-style
// lifecycle.
func Instance() *Context {
	globalMu.Lock()
	defer globalMu.Unlock()
	return global
}

func BeginTransaction(idTag string) {
	if c := Instance(); c != nil {
		c.BeginTransaction(idTag)
	}
}

func BeginTransactionAuthorized(idTag string) {
	if c := Instance(); c != nil {
		c.BeginTransactionAuthorized(idTag)
	}
}

func EndTransaction(reason string) {
	if c := Instance(); c != nil {
		c.EndTransaction(reason)
	}
}

func StartTransaction(idTag string) {
	if c := Instance(); c != nil {
		c.StartTransaction(idTag)
	}
}

func StopTransaction() {
	if c := Instance(); c != nil {
		c.StopTransaction()
	}
}

func IsTransactionRunning() bool {
	c := Instance()
	return c != nil && c.IsTransactionRunning()
}

func OcppPermitsCharge() bool {
	c := Instance()
	return c != nil && c.OcppPermitsCharge()
}

func IsOperative() bool {
	c := Instance()
	return c != nil && c.IsOperative()
}

func SetConnectorPluggedInput(cb func() bool) {
	if c := Instance(); c != nil {
		c.SetConnectorPluggedInput(cb)
	}
}

func SetEvReadyInput(cb func() bool) {
	if c := Instance(); c != nil {
		c.SetEvReadyInput(cb)
	}
}

func SetEvseReadyInput(cb func() bool) {
	if c := Instance(); c != nil {
		c.SetEvseReadyInput(cb)
	}
}

func SetEnergyActiveImportSampler(cb func() int32) {
	if c := Instance(); c != nil {
		c.SetEnergyActiveImportSampler(cb)
	}
}
