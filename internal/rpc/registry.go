package rpc

import "encoding/json"

// Handler processes one inbound CALL payload and returns either a
// result payload to frame as CALLRESULT, or a non-nil error (ideally
// an *Error, framed as CALLERROR verbatim; any other error is framed
// as InternalError) to frame as CALLERROR. Handlers run synchronously
// within a single Poll, per spec.md §4.E — no handler may block.
type Handler func(payload json.RawMessage) (any, error)

// Registry maps inbound Action names to handlers, grounded on the
// teacher's ocpp.Router (backend/services/ocpp-server/internal/ocpp)
// but reworked for synchronous, return-value dispatch instead of the
// teacher's side-effecting repository calls.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// On registers handler for action, overwriting any previous
// registration — ops wires every supported action exactly once at
// startup.
func (r *Registry) On(action string, handler Handler) {
	r.handlers[action] = handler
}

// Dispatch runs the handler registered for action, or NotImplemented
// if none is registered.
func (r *Registry) Dispatch(action string, payload json.RawMessage) (any, error) {
	h, ok := r.handlers[action]
	if !ok {
		return nil, NotImplemented(action)
	}
	return h(payload)
}
