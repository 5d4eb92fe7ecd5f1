package rpc

// Connection is the transport capability the core consumes. It is
// deliberately non-blocking: Poll drives the entire stack from a
// single thread, so neither TryRecv nor Send may block. A concrete
// implementation (WebsocketConnection, or a test fake) is responsible
// for bridging to whatever blocking I/O its transport actually needs,
// exactly as the teacher's ws.Connection bridges a blocking
// gorilla/websocket.Conn to buffered channels — the bridging
// goroutines live entirely inside the adapter and are invisible to the
// core.
type Connection interface {
	// IsConnected reports whether the transport currently believes it
	// has a live session with the server.
	IsConnected() bool
	// TryRecv returns the next received text frame, if any, without
	// blocking.
	TryRecv() ([]byte, bool)
	// Send enqueues data for transmission. It never blocks; an
	// implementation that cannot keep up may drop the frame
	// (WebsocketConnection drops the new frame, logs a warning and
	// returns nil). The outbox is the authoritative outbound queue and
	// keeps at most one CALL outstanding, so besides CALLRESULT and
	// CALLERROR replies Connection sees one outbound CALL at a time
	// (see engine.go).
	Send(data []byte) error
	// Close tears the transport down. It is safe to call multiple
	// times.
	Close() error
}
