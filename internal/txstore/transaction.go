// Package txstore implements the per-connector persistent transaction
// ring described in spec.md §3/§4.D: a bounded, crash-survivable
// sequence of transaction records, including pre-boot transactions and
// deferred-timestamp ("back-dated") semantics.
package txstore

import "github.com/kochedykov/MicroOcpp/internal/clock"

// RPCSync tracks whether a StartTransaction/StopTransaction call has
// been requested (enqueued) and confirmed (CALLRESULT received),
// grounded on original_source's RpcSync.
type RPCSync struct {
	Requested bool `json:"requested"`
	Confirmed bool `json:"confirmed"`
}

// Completed reports whether both halves of the round trip happened.
func (s RPCSync) Completed() bool { return s.Requested && s.Confirmed }

// Session is the user-initiated half of a transaction record.
type Session struct {
	IDTag       string           `json:"idTag"`
	Authorized  bool             `json:"authorized"`
	Deauthorized bool            `json:"deauthorized"`
	TimestampTag clock.PendingTag `json:"-"`
	Timestamp   clock.Timestamp  `json:"timestamp"`
	Active      bool             `json:"active"`
}

// StartClient is the charge-point-collected half of StartTransaction.
type StartClient struct {
	TimestampTag  clock.PendingTag `json:"-"`
	Timestamp     clock.Timestamp  `json:"timestamp"`
	Meter         int32            `json:"meter"`
	ReservationID int32            `json:"reservationId"`
}

// StartServer is the central-system-assigned half of StartTransaction.
type StartServer struct {
	TransactionID int32 `json:"transactionId"`
}

// TransactionStart bundles the StartTransaction round trip.
type TransactionStart struct {
	RPC    RPCSync     `json:"rpc"`
	Client StartClient `json:"client"`
	Server StartServer `json:"server"`
}

// StopClient is the charge-point-collected half of StopTransaction.
type StopClient struct {
	IDTag       string           `json:"idTag"`
	TimestampTag clock.PendingTag `json:"-"`
	Timestamp   clock.Timestamp  `json:"timestamp"`
	Meter       int32            `json:"meter"`
	Reason      string           `json:"reason"`
}

// TransactionStop bundles the StopTransaction round trip.
type TransactionStop struct {
	RPC    RPCSync    `json:"rpc"`
	Client StopClient `json:"client"`
}

// Transaction is one slot of a connector's transaction ring, per
// spec.md §3's composite record. TxProfileID and Client.ReservationID
// are carried opaquely per SPEC_FULL.md's smart-charging/reservation
// supplement, even though neither subsystem is implemented here.
type Transaction struct {
	ConnectorID int    `json:"connectorId"`
	TxNr        uint32 `json:"txNr"`
	Silent      bool   `json:"silent"`
	TxProfileID int32  `json:"txProfileId"`

	Session Session          `json:"session"`
	Start   TransactionStart `json:"start"`
	Stop    TransactionStop  `json:"stop"`
}

// NewTransaction allocates a fresh, empty record for the given slot.
func NewTransaction(connectorID int, txNr uint32, silent bool) *Transaction {
	return &Transaction{
		ConnectorID: connectorID,
		TxNr:        txNr,
		Silent:      silent,
		TxProfileID: -1,
		Session: Session{
			Active: true,
		},
		Start: TransactionStart{
			Client: StartClient{Timestamp: clock.MinTime, Meter: -1, ReservationID: -1},
			Server: StartServer{TransactionID: -1},
		},
		Stop: TransactionStop{
			Client: StopClient{Timestamp: clock.MinTime},
		},
	}
}

// IsPreparing: session is live but StartTransaction has not been sent.
func (t *Transaction) IsPreparing() bool {
	return t.Session.Active && !t.Start.RPC.Requested
}

// IsRunning: StartTransaction sent, StopTransaction not yet sent.
func (t *Transaction) IsRunning() bool {
	return t.Start.RPC.Requested && !t.Stop.RPC.Requested
}

// IsAborted: the session ended before StartTransaction was ever sent.
func (t *Transaction) IsAborted() bool {
	return !t.Start.RPC.Requested && !t.Session.Active
}

// IsCompleted: StopTransaction has been confirmed by the server.
func (t *Transaction) IsCompleted() bool {
	return t.Stop.RPC.Completed()
}

// IsReclaimable reports whether the slot may be recycled by the store.
func (t *Transaction) IsReclaimable() bool {
	return t.IsCompleted() || t.IsAborted()
}

// IsMeterStartDefined reports whether a StartTransaction meter value
// has been captured.
func (t *Transaction) IsMeterStartDefined() bool { return t.Start.Client.Meter >= 0 }

// IsMeterStopDefined reports whether a StopTransaction meter value has
// been captured.
func (t *Transaction) IsMeterStopDefined() bool { return t.Stop.Client.Meter >= 0 }

// ApplyStopFallback gives up waiting for the clock to resync and
// anchors the StopTransaction timestamp one second after the (already
// resolved) StartTransaction timestamp instead. Call it only once the
// caller has decided to dispatch StopTransaction regardless — it
// freezes the tag, so a later clock sync will not override the
// fallback value. It is a no-op if the stop timestamp is not pending
// or the start timestamp is itself unresolved (nothing to anchor to;
// the store's reload path is responsible for giving up on that case
// entirely, see Store.Load). Grounded on spec.md §8's "lose StopTx
// timestamp" scenario, which accepts exactly this one-second minimum
// separation once the clock is permanently lost.
func (t *Transaction) ApplyStopFallback() {
	if !t.Stop.Client.TimestampTag.Pending() {
		return
	}
	if t.Start.Client.TimestampTag.Pending() || t.Start.Client.Timestamp.IsMin() {
		return
	}
	t.Stop.Client.Timestamp = t.Start.Client.Timestamp.Add(1)
	t.Stop.Client.TimestampTag = clock.TagResolved()
}

// ResolvePendingTimestamps re-bases any timestamp that was captured
// before the clock was valid, once the clock has since become valid.
// It is a no-op for timestamps that were never pending or whose clock
// still is not valid — callers call it on every poll so a session
// begun hours before the first BootNotification still ends up with a
// correct StartTransaction timestamp (spec.md §4.A back-dating, §8 S5).
func (t *Transaction) ResolvePendingTimestamps(clk *clock.Clock) {
	if !clk.IsValid() {
		return
	}
	if t.Session.TimestampTag.Pending() {
		t.Session.Timestamp = clk.Resolve(t.Session.TimestampTag, t.Session.Timestamp)
		t.Session.TimestampTag = clock.TagResolved()
	}
	if t.Start.Client.TimestampTag.Pending() {
		t.Start.Client.Timestamp = clk.Resolve(t.Start.Client.TimestampTag, t.Start.Client.Timestamp)
		t.Start.Client.TimestampTag = clock.TagResolved()
	}
	if t.Stop.Client.TimestampTag.Pending() {
		t.Stop.Client.Timestamp = clk.Resolve(t.Stop.Client.TimestampTag, t.Stop.Client.Timestamp)
		t.Stop.Client.TimestampTag = clock.TagResolved()
	}
}
