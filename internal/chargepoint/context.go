// Package chargepoint implements spec.md §4.H's charge-control
// façade: the boot/heartbeat sequencing, the caller-facing operations
// of §6, and the ops.Target surface that services server-initiated
// actions. Context is the explicit value spec.md §9 calls for; Global
// (see global.go) is the thin package-level wrapper around one.
package chargepoint

import (
	"context"
	"encoding/json"
	"strconv"

	"go.uber.org/zap"

	"github.com/kochedykov/MicroOcpp/internal/clock"
	"github.com/kochedykov/MicroOcpp/internal/config"
	"github.com/kochedykov/MicroOcpp/internal/connector"
	"github.com/kochedykov/MicroOcpp/internal/ops"
	"github.com/kochedykov/MicroOcpp/internal/rpc"
	"github.com/kochedykov/MicroOcpp/internal/storage"
	"github.com/kochedykov/MicroOcpp/internal/txstore"
)

var bgCtx = context.Background()

const (
	defaultNumberOfConnectors       = 1
	defaultHeartbeatInterval        = 86400
	defaultMeterValueSampleInterval = 60
	defaultSupportedFeatureProfiles = "Core,RemoteTrigger"
)

// Context owns every core subcomponent for one charge point, per
// spec.md §9's "Context owns all subcomponents, passes a borrowing
// handle into each operation factory" design note — nothing here is a
// package-level global, so a host can run several charge points in
// one process by holding several Contexts.
type Context struct {
	logger   *zap.Logger
	identity ops.Identity
	cfg      *config.Registry
	store    *txstore.Store
	clk      *clock.Clock
	fs       storage.Filesystem
	eng      *rpc.Engine

	connectors []*connector.Connector

	bootAccepted     bool
	heartbeatPending bool
	lastOutboundTick uint64

	stationStatus    string
	stationLast      string
	stationPending   bool
	stationSince     clock.Timestamp
	stationReportedAt uint64
}

// New constructs a Context backed by fs for persistence and tick for
// the core's notion of time. Call Initialize once conn is available
// to start the boot sequence.
func New(identity ops.Identity, fs storage.Filesystem, tick clock.TickSource, logger *zap.Logger) *Context {
	return &Context{
		logger:        logger,
		identity:      identity,
		fs:            fs,
		clk:           clock.New(tick),
		stationStatus: ops.StatusAvailable,
	}
}

// Initialize loads configuration and transaction state, builds one
// connector.Connector per NumberOfConnectors, registers the
// server-initiated handlers, and enqueues BootNotification. Per
// spec.md §4.H, every other outbound CALL is held back until boot is
// accepted, subject to AO_PreBootTransactions.
func (c *Context) Initialize(conn rpc.Connection, numConnectors int) error {
	if numConnectors <= 0 {
		numConnectors = defaultNumberOfConnectors
	}

	c.cfg = config.New(c.fs)
	c.declareConfig(numConnectors)
	if err := c.cfg.Load(bgCtx); err != nil {
		return err
	}

	c.store = txstore.New(c.fs, 0)
	ids := make([]int, numConnectors)
	for i := range ids {
		ids[i] = i + 1
	}
	if err := c.store.Load(bgCtx, ids); err != nil {
		return err
	}

	registry := rpc.NewRegistry()
	ops.NewHandlerSet(c).Register(registry)
	c.eng = rpc.NewEngine(conn, registry, c.logger)

	c.connectors = make([]*connector.Connector, numConnectors)
	for i, id := range ids {
		cn := connector.New(id, c.store, c.clk, c.cfg, c.eng)
		cn.SetGate(c.preBootGate)
		c.connectors[i] = cn
	}

	c.stationPending = true
	c.stationSince = c.clk.Now()

	c.eng.Outbox().Enqueue("BootNotification", ops.BuildBootNotification(c.identity), nil, c.onBootResult)
	return nil
}

// Deinitialize saves configuration and releases the transport. It
// does not erase transaction records: those survive in fs for the
// next Initialize to reload, per spec.md §4.D.
func (c *Context) Deinitialize() {
	if c.cfg != nil {
		_ = c.cfg.Save(bgCtx)
	}
	if c.eng != nil {
		_ = c.eng.Connection().Close()
	}
}

func (c *Context) declareConfig(numConnectors int) {
	c.cfg.Declare("ConnectionTimeOut", config.TypeInt, 120, config.Flags{})
	c.cfg.Declare("MinimumStatusDuration", config.TypeInt, 0, config.Flags{})
	c.cfg.Declare("HeartbeatInterval", config.TypeInt, defaultHeartbeatInterval, config.Flags{})
	c.cfg.Declare("MeterValueSampleInterval", config.TypeInt, defaultMeterValueSampleInterval, config.Flags{})
	c.cfg.Declare("NumberOfConnectors", config.TypeInt, numConnectors, config.Flags{Readonly: true})
	c.cfg.Declare("SupportedFeatureProfiles", config.TypeString, defaultSupportedFeatureProfiles, config.Flags{Readonly: true})
	c.cfg.Declare("AuthorizeRemoteTxRequests", config.TypeBool, true, config.Flags{})
	c.cfg.Declare("AO_PreBootTransactions", config.TypeBool, false, config.Flags{})
}

// preBootGate is installed on every connector: their outbound CALLs
// wait for boot acceptance unless AO_PreBootTransactions permits
// otherwise, per spec.md §4.D/§4.H and §8 scenario S5.
func (c *Context) preBootGate() bool {
	return c.bootAccepted || c.cfg.GetBool("AO_PreBootTransactions", false)
}

func (c *Context) onBootResult(result json.RawMessage, callErr *rpc.Error) {
	if callErr != nil {
		c.logger.Warn("BootNotification failed", zap.String("code", callErr.Code))
		return
	}
	var resp ops.BootNotificationResponse
	if err := json.Unmarshal(result, &resp); err != nil {
		c.logger.Warn("BootNotification: malformed response", zap.Error(err))
		return
	}
	if resp.Status != ops.RegistrationAccepted {
		c.logger.Info("BootNotification pending/rejected", zap.String("status", resp.Status))
		return
	}

	c.clk.SetTimeFromServer(resp.CurrentTime)
	if resp.Interval > 0 {
		c.cfg.Set("HeartbeatInterval", strconv.Itoa(resp.Interval))
	}
	c.bootAccepted = true
	if c.stationStatus != c.stationLast {
		c.enqueueStationStatus()
	}
}

// Poll drives the RPC engine, every connector, the virtual
// connectorId=0 status, and Heartbeat scheduling. Call it once per
// tick from the host's main loop; it never blocks.
func (c *Context) Poll(tick uint64) {
	c.eng.Poll(tick)
	for _, conn := range c.connectors {
		conn.Poll(tick)
	}
	c.pollStationStatus(tick)
	c.maybeSendHeartbeat(tick)
}

func (c *Context) pollStationStatus(tick uint64) {
	if !c.stationPending {
		return
	}
	minDuration := uint64(c.cfg.GetInt("MinimumStatusDuration", 0))
	if c.stationReportedAt != 0 && tick-c.stationReportedAt < minDuration {
		return
	}
	if c.stationStatus == c.stationLast {
		c.stationPending = false
		return
	}
	c.enqueueStationStatus()
	c.stationReportedAt = tick
}

func (c *Context) enqueueStationStatus() {
	req := ops.BuildStatusNotification(0, c.stationStatus, ops.NoError, c.stationSince)
	c.eng.Outbox().Enqueue("StatusNotification", req, rpc.Eligible(c.preBootGate), nil)
	c.stationLast = c.stationStatus
	c.stationPending = false
}

// maybeSendHeartbeat enqueues Heartbeat once HeartbeatInterval has
// elapsed since the last outbound CALL of any kind, per spec.md §4.H
// ("subtracting any time since the last outbound CALL").
func (c *Context) maybeSendHeartbeat(tick uint64) {
	if !c.bootAccepted || c.heartbeatPending {
		return
	}
	interval := uint64(c.cfg.GetInt("HeartbeatInterval", defaultHeartbeatInterval))
	if interval == 0 {
		return
	}
	last := c.lastOutboundTick
	if lt, ok := c.eng.Outbox().LastDispatchTick(); ok && lt > last {
		last = lt
	}
	if tick-last < interval {
		return
	}

	c.heartbeatPending = true
	c.eng.Outbox().Enqueue("Heartbeat", ops.BuildHeartbeat(), rpc.Eligible(c.preBootGate), func(result json.RawMessage, callErr *rpc.Error) {
		c.heartbeatPending = false
		c.lastOutboundTick = tick
		if callErr != nil {
			return
		}
		var resp ops.HeartbeatResponse
		if json.Unmarshal(result, &resp) == nil {
			c.clk.SetTimeFromServer(resp.CurrentTime)
		}
	})
}

