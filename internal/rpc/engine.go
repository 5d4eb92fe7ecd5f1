package rpc

import (
	"crypto/rand"
	"encoding/hex"

	"go.uber.org/zap"
)

// NewUUIDGenerator returns a message-id generator grounded on the
// teacher's generateID (csms/internal/ocpp.commands.go), minus the
// time.Now fallback: a poll-driven engine never calls this before a
// tick source exists, so a read-failure on crypto/rand is treated as
// fatal misconfiguration rather than papered over.
func NewUUIDGenerator() func() string {
	return func() string {
		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			panic("rpc: failed to read random bytes for message id: " + err.Error())
		}
		return hex.EncodeToString(b)
	}
}

// Engine is the complete RPC stack a chargepoint.Context drives: one
// Connection, one inbound Registry, one outbound Outbox. Call Poll
// once per tick; it never blocks.
type Engine struct {
	conn     Connection
	registry *Registry
	outbox   *Outbox
	logger   *zap.Logger
}

// NewEngine wires conn, registry and a fresh Outbox into an Engine.
func NewEngine(conn Connection, registry *Registry, logger *zap.Logger) *Engine {
	return &Engine{
		conn:     conn,
		registry: registry,
		outbox:   NewOutbox(NewUUIDGenerator()),
		logger:   logger,
	}
}

// Outbox exposes the underlying queue so connector/ops code can
// Enqueue outbound CALLs.
func (e *Engine) Outbox() *Outbox { return e.outbox }

// Connection exposes the underlying transport, e.g. so chargepoint can
// Close it on Deinitialize.
func (e *Engine) Connection() Connection { return e.conn }

// Poll drains every inbound frame currently available, dispatches the
// outbox head if eligible, and times out the outstanding CALL if its
// deadline has passed. Per spec.md §5 the asymmetry runs the other way
// from the outbound side: at most one outbound CALL is dispatched per
// poll, but every already-buffered inbound frame is parsed and routed
// (wsconnection's recv channel can accumulate several between polls;
// nothing else ever drains it). tick is the current value from the
// same clock.TickSource the rest of the core uses.
func (e *Engine) Poll(tick uint64) {
	for {
		data, ok := e.conn.TryRecv()
		if !ok {
			break
		}
		e.handleFrame(data)
	}

	e.outbox.PollTimeout(tick)

	if err := e.outbox.Dispatch(e.conn, tick); err != nil {
		e.logger.Warn("outbox dispatch failed", zap.Error(err))
	}
}

func (e *Engine) handleFrame(data []byte) {
	frame, err := ParseFrame(data)
	if err != nil {
		e.logger.Warn("dropping malformed frame", zap.Error(err))
		return
	}

	switch frame.Type {
	case TypeCall:
		e.handleCall(frame)
	case TypeCallResult:
		e.outbox.Resolve(frame.UniqueID, frame.Payload, nil)
	case TypeCallError:
		e.outbox.Resolve(frame.UniqueID, nil, NewError(frame.ErrorCode, frame.ErrorDesc))
	}
}

func (e *Engine) handleCall(frame *Frame) {
	result, err := e.registry.Dispatch(frame.Action, frame.Payload)
	if err != nil {
		ocppErr, ok := err.(*Error)
		if !ok {
			ocppErr = InternalError(err.Error())
		}
		reply, encErr := EncodeCallError(frame.UniqueID, ocppErr)
		if encErr != nil {
			e.logger.Error("failed to encode CALLERROR", zap.Error(encErr))
			return
		}
		if sendErr := e.conn.Send(reply); sendErr != nil {
			e.logger.Warn("failed to send CALLERROR", zap.Error(sendErr))
		}
		return
	}

	reply, encErr := EncodeCallResult(frame.UniqueID, result)
	if encErr != nil {
		e.logger.Error("failed to encode CALLRESULT", zap.Error(encErr))
		return
	}
	if sendErr := e.conn.Send(reply); sendErr != nil {
		e.logger.Warn("failed to send CALLRESULT", zap.Error(sendErr))
	}
}
