package rpc

import (
	"encoding/json"
)

// MessageTimeoutSeconds is the default time an outstanding CALL is
// given to draw a CALLRESULT/CALLERROR before the outbox times it out
// and moves on, per spec.md §4.E.
const MessageTimeoutSeconds = 30

// Eligible re-checks, at each dispatch attempt, whether an outbox entry
// may be sent yet — the mechanism spec.md §4.E uses to keep
// StartTransaction ahead of StopTransaction and BootNotification ahead
// of everything but pre-boot-eligible operations.
type Eligible func() bool

// ResultHandler is invoked once with either the CALLRESULT payload
// (callErr nil) or a non-nil callErr: the server's CALLERROR, a
// GenericError for a local timeout, or an InternalError if the CALL
// could not be encoded.
type ResultHandler func(result json.RawMessage, callErr *Error)

type outboxEntry struct {
	uniqueID  string
	action    string
	payload   any
	eligible  Eligible
	onResult  ResultHandler
}

// Outbox is the ordered queue of pending outbound CALLs, grounded on
// the teacher's stationSession (csms/internal/ocpp.CommandManager) but
// rewritten around Poll-driven ticks instead of goroutines and
// time.AfterFunc, and restricted to a single outstanding CALL as the
// OCPP-J profile requires rather than the teacher's per-station queue
// with unlimited concurrent commands server-side.
type Outbox struct {
	queue    []*outboxEntry
	pending  *outboxEntry
	sentTick uint64
	everSent bool
	nextID   func() string
}

// NewOutbox returns an empty Outbox. nextID generates unique message
// ids (see NewUUIDGenerator).
func NewOutbox(nextID func() string) *Outbox {
	return &Outbox{nextID: nextID}
}

// Enqueue appends action/payload to the tail of the queue. eligible
// may be nil, meaning always-eligible.
func (o *Outbox) Enqueue(action string, payload any, eligible Eligible, onResult ResultHandler) {
	if eligible == nil {
		eligible = func() bool { return true }
	}
	o.queue = append(o.queue, &outboxEntry{
		action:   action,
		payload:  payload,
		eligible: eligible,
		onResult: onResult,
	})
}

// Len reports how many entries are queued (not counting one in flight).
func (o *Outbox) Len() int { return len(o.queue) }

// Pending reports whether a CALL is currently awaiting a response.
func (o *Outbox) Pending() bool { return o.pending != nil }

// Dispatch sends the head of the queue if the connection is up, no
// CALL is outstanding, and the head is currently eligible. Ineligible
// heads are skipped without being dropped, per spec.md §4.E — they
// stay queued for a later tick when their precondition may hold.
func (o *Outbox) Dispatch(conn Connection, tick uint64) error {
	if o.pending != nil || !conn.IsConnected() {
		return nil
	}
	idx := -1
	for i, e := range o.queue {
		if e.eligible() {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	entry := o.queue[idx]
	entry.uniqueID = o.nextID()
	frame, err := EncodeCall(entry.uniqueID, entry.action, entry.payload)
	if err != nil {
		o.queue = append(o.queue[:idx], o.queue[idx+1:]...)
		if entry.onResult != nil {
			entry.onResult(nil, InternalError("encode "+entry.action+": "+err.Error()))
		}
		return err
	}
	if err := conn.Send(frame); err != nil {
		return err
	}

	o.queue = append(o.queue[:idx], o.queue[idx+1:]...)
	o.pending = entry
	o.sentTick = tick
	o.everSent = true
	return nil
}

// LastDispatchTick returns the tick at which the most recent CALL was
// sent, and whether any CALL has ever been sent — chargepoint.Context
// uses this to schedule Heartbeat "subtracting any time since the last
// outbound CALL" per spec.md §4.H, rather than tracking its own
// duplicate bookkeeping of outbound activity.
func (o *Outbox) LastDispatchTick() (uint64, bool) { return o.sentTick, o.everSent }

// PollTimeout checks whether the outstanding CALL, if any, has exceeded
// MessageTimeoutSeconds since it was sent, and if so pops it and
// delivers a local timeout to its handler.
func (o *Outbox) PollTimeout(tick uint64) {
	if o.pending == nil {
		return
	}
	if tick-o.sentTick < MessageTimeoutSeconds {
		return
	}
	entry := o.pending
	o.pending = nil
	if entry.onResult != nil {
		entry.onResult(nil, NewError(ErrGenericError, "no response within MessageTimeout"))
	}
}

// Resolve matches an inbound CALLRESULT/CALLERROR uid against the
// outstanding CALL and, if it matches, delivers the result and frees
// the outbox for the next entry. It reports whether the uid matched.
func (o *Outbox) Resolve(uniqueID string, result json.RawMessage, callErr *Error) bool {
	if o.pending == nil || o.pending.uniqueID != uniqueID {
		return false
	}
	entry := o.pending
	o.pending = nil
	if entry.onResult != nil {
		entry.onResult(result, callErr)
	}
	return true
}
