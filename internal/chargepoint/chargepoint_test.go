package chargepoint

import (
	"testing"

	"go.uber.org/zap"

	"github.com/kochedykov/MicroOcpp/internal/ops"
	"github.com/kochedykov/MicroOcpp/internal/rpc"
	"github.com/kochedykov/MicroOcpp/internal/storage"
)

// fakeConnection is an in-memory rpc.Connection, the same role the
// rpc package's own fakeConnection plays for Engine/Outbox tests.
type fakeConnection struct {
	connected bool
	inbox     [][]byte
	sent      [][]byte
}

func newFakeConnection() *fakeConnection { return &fakeConnection{connected: true} }

func (f *fakeConnection) IsConnected() bool { return f.connected }

func (f *fakeConnection) TryRecv() ([]byte, bool) {
	if len(f.inbox) == 0 {
		return nil, false
	}
	data := f.inbox[0]
	f.inbox = f.inbox[1:]
	return data, true
}

func (f *fakeConnection) Send(data []byte) error {
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeConnection) Close() error { f.connected = false; return nil }

func (f *fakeConnection) deliver(data []byte) { f.inbox = append(f.inbox, data) }

// acceptBootNotification replies "Accepted" to the most recently sent
// frame, which by construction of these tests is always the
// BootNotification.
func (f *fakeConnection) acceptBootNotification(t *testing.T) {
	t.Helper()
	frame := f.lastCall(t)
	result, err := rpc.EncodeCallResult(frame.UniqueID, ops.BootNotificationResponse{
		Status:      ops.RegistrationAccepted,
		CurrentTime: "2023-01-01T00:00:00.000Z",
		Interval:    300,
	})
	if err != nil {
		t.Fatal(err)
	}
	f.deliver(result)
}

// acked tracks which outstanding CALLs this connection has already
// answered, keyed by uniqueId, so ackOutstanding never double-replies
// to the same frame.
type acked map[string]bool

// ackOutstanding replies to the most recently sent CALL with a generic
// "Accepted" verdict, if it hasn't already been answered. The outbox
// only ever has one outstanding CALL at a time (spec.md §4.H), so this
// is enough to drain a full sequence of enqueued messages across
// repeated Poll calls without hand-tracking each action.
func (f *fakeConnection) ackOutstanding(t *testing.T, seen acked) {
	t.Helper()
	if len(f.sent) == 0 {
		return
	}
	frame, err := rpc.ParseFrame(f.sent[len(f.sent)-1])
	if err != nil {
		t.Fatal(err)
	}
	if frame.Type != rpc.TypeCall || seen[frame.UniqueID] {
		return
	}
	seen[frame.UniqueID] = true

	var payload any
	switch frame.Action {
	case "BootNotification":
		payload = ops.BootNotificationResponse{
			Status:      ops.RegistrationAccepted,
			CurrentTime: "2023-01-01T00:00:00.000Z",
			Interval:    300,
		}
	case "Authorize":
		payload = ops.AuthorizeResponse{IDTagInfo: ops.IDTagInfo{Status: ops.AuthAccepted}}
	case "StartTransaction":
		payload = ops.StartTransactionResponse{TransactionID: 1, IDTagInfo: ops.IDTagInfo{Status: ops.AuthAccepted}}
	case "StopTransaction":
		payload = ops.StopTransactionResponse{}
	default: // StatusNotification, Heartbeat: empty-object ack
		payload = struct{}{}
	}

	result, err := rpc.EncodeCallResult(frame.UniqueID, payload)
	if err != nil {
		t.Fatal(err)
	}
	f.deliver(result)
}

func (f *fakeConnection) lastCall(t *testing.T) *rpc.Frame {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("no frame sent yet")
	}
	frame, err := rpc.ParseFrame(f.sent[len(f.sent)-1])
	if err != nil {
		t.Fatal(err)
	}
	return frame
}

func (f *fakeConnection) actions() []string {
	var out []string
	for _, raw := range f.sent {
		frame, err := rpc.ParseFrame(raw)
		if err != nil || frame.Type != rpc.TypeCall {
			continue
		}
		out = append(out, frame.Action)
	}
	return out
}

func newTestContext(t *testing.T, conn rpc.Connection, tick func() uint64, numConnectors int) *Context {
	t.Helper()
	identity := ops.Identity{Vendor: "test-vendor", Model: "test-runner1234"}
	ctx := New(identity, storage.NewMemFilesystem(), tick, zap.NewNop())
	if err := ctx.Initialize(conn, numConnectors); err != nil {
		t.Fatal(err)
	}
	return ctx
}

// drive polls ctx n times, advancing now by one tick and acknowledging
// whatever CALL is outstanding after each poll. The outbox's
// single-outstanding-CALL discipline means a sequence of enqueued
// messages only drains this way, one per round trip.
func drive(t *testing.T, ctx *Context, conn *fakeConnection, seen acked, now *uint64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		ctx.Poll(*now)
		conn.ackOutstanding(t, seen)
		*now++
	}
}

// driveUntil polls ctx, draining and acknowledging any outstanding CALL
// that isn't action, until action itself becomes the outstanding CALL —
// then returns that frame unacknowledged, for the caller to inspect or
// reply to directly.
func driveUntil(t *testing.T, ctx *Context, conn *fakeConnection, seen acked, now *uint64, action string, maxIters int) *rpc.Frame {
	t.Helper()
	for i := 0; i < maxIters; i++ {
		ctx.Poll(*now)
		if len(conn.sent) > 0 {
			frame, err := rpc.ParseFrame(conn.sent[len(conn.sent)-1])
			if err != nil {
				t.Fatal(err)
			}
			if frame.Type == rpc.TypeCall && !seen[frame.UniqueID] {
				if frame.Action == action {
					return frame
				}
				conn.ackOutstanding(t, seen)
			}
		}
		*now++
	}
	t.Fatalf("timed out waiting for %s to become outstanding", action)
	return nil
}

// TestIdleBoot is spec.md §8 scenario S1: the first outbound CALL is
// BootNotification, followed by one StatusNotification "Available" per
// connector once boot is accepted.
func TestIdleBoot(t *testing.T) {
	conn := newFakeConnection()
	var now uint64
	tick := func() uint64 { return now }

	ctx := newTestContext(t, conn, tick, 1)

	ctx.Poll(now)
	if got := conn.actions(); len(got) != 1 || got[0] != "BootNotification" {
		t.Fatalf("expected only BootNotification dispatched first, got %v", got)
	}

	seen := acked{}
	conn.acceptBootNotification(t)
	seen[conn.lastCall(t).UniqueID] = true
	drive(t, ctx, conn, seen, &now, 4)

	actions := conn.actions()
	if len(actions) < 3 {
		t.Fatalf("expected BootNotification + two StatusNotifications, got %v", actions)
	}
	if actions[0] != "BootNotification" {
		t.Fatalf("expected BootNotification first, got %v", actions)
	}
	statusCount := 0
	for _, a := range actions[1:] {
		if a == "StatusNotification" {
			statusCount++
		}
	}
	if statusCount != 2 {
		t.Fatalf("expected 2 StatusNotifications (cid 0 and cid 1), got %d in %v", statusCount, actions)
	}
	if !ctx.IsOperative() {
		t.Error("expected IsOperative() == true after boot")
	}
	if ctx.IsTransactionRunning() {
		t.Error("expected no transaction running after idle boot")
	}
}

// TestPlugThenAuth is spec.md §8 scenario S2.
func TestPlugThenAuth(t *testing.T) {
	conn := newFakeConnection()
	var now uint64
	tick := func() uint64 { return now }
	ctx := newTestContext(t, conn, tick, 1)
	seen := acked{}

	ctx.Poll(now)
	conn.acceptBootNotification(t)
	seen[conn.lastCall(t).UniqueID] = true
	now++

	ctx.SetConnectorPluggedInput(func() bool { return true })

	cn1 := ctx.Connector(1)
	// Drain the initial StatusNotifications (connector 1's Available is
	// queued ahead of the cid 0 one) while polling until connector 1
	// reports Preparing.
	for i := 0; i < 10 && cn1.Status() != ops.StatusPreparing; i++ {
		ctx.Poll(now)
		conn.ackOutstanding(t, seen)
		now++
	}
	if cn1.Status() != ops.StatusPreparing {
		t.Fatalf("expected connector 1 to report Preparing after plug-in, got %s", cn1.Status())
	}

	ctx.BeginTransaction("mIdTag")

	authFrame := driveUntil(t, ctx, conn, seen, &now, "Authorize", 10)
	result, err := rpc.EncodeCallResult(authFrame.UniqueID, ops.AuthorizeResponse{
		IDTagInfo: ops.IDTagInfo{Status: ops.AuthAccepted},
	})
	if err != nil {
		t.Fatal(err)
	}
	conn.deliver(result)
	seen[authFrame.UniqueID] = true
	now++

	for i := 0; i < 10 && cn1.Status() != ops.StatusCharging; i++ {
		ctx.Poll(now)
		conn.ackOutstanding(t, seen)
		now++
	}
	if cn1.Status() != ops.StatusCharging {
		t.Fatalf("expected connector 1 to report Charging after accepted auth, got %s", cn1.Status())
	}
	// StartTransaction is enqueued on the poll that reaches Charging,
	// behind that poll's StatusNotification; keep polling until the
	// outbox has sent it.
	foundStart := false
	for i := 0; i < 10 && !foundStart; i++ {
		for _, a := range conn.actions() {
			if a == "StartTransaction" {
				foundStart = true
			}
		}
		if !foundStart {
			ctx.Poll(now)
			conn.ackOutstanding(t, seen)
			now++
		}
	}
	if !foundStart {
		t.Error("expected StartTransaction to have been sent")
	}
	if !ctx.OcppPermitsCharge() {
		t.Error("expected OcppPermitsCharge() == true once Charging")
	}
}

// TestConnectionTimeOut is spec.md §8 scenario S4: a session that
// never plugs in aborts after ConnectionTimeOut and never sends
// StartTransaction.
func TestConnectionTimeOut(t *testing.T) {
	conn := newFakeConnection()
	var now uint64
	tick := func() uint64 { return now }
	ctx := newTestContext(t, conn, tick, 1)
	seen := acked{}

	ctx.Poll(now)
	conn.acceptBootNotification(t)
	seen[conn.lastCall(t).UniqueID] = true
	now++

	// spec.md §8 S4 starts this scenario unplugged: with the permissive
	// default sampler still wired, Authorized+plugged+evseReady would
	// all read true and the very next poll would reach Charging instead
	// of ever hitting the timeout path.
	ctx.SetConnectorPluggedInput(func() bool { return false })
	ctx.Configuration().Set("ConnectionTimeOut", "30")
	ctx.BeginTransactionAuthorized("mIdTag")
	ctx.Poll(now)
	conn.ackOutstanding(t, seen)

	cn1 := ctx.Connector(1)
	if cn1.Status() != ops.StatusPreparing {
		t.Fatalf("expected Preparing before timeout, got %s", cn1.Status())
	}

	now += 30
	ctx.Poll(now)

	if cn1.Status() != ops.StatusAvailable {
		t.Fatalf("expected Available after ConnectionTimeOut elapses, got %s", cn1.Status())
	}
	for _, a := range conn.actions() {
		if a == "StartTransaction" {
			t.Error("expected no StartTransaction after a timed-out session")
		}
	}
}

// TestDeinitializeReinitializeRecoversPersistedState exercises
// spec.md §9's note that dropping and recreating the Context is how
// "deinit then reinit" is expressed: transaction and configuration
// state committed to the shared Filesystem survive across the two
// Contexts.
func TestDeinitializeReinitializeRecoversPersistedState(t *testing.T) {
	fs := storage.NewMemFilesystem()
	var now uint64
	tick := func() uint64 { return now }

	conn1 := newFakeConnection()
	ctx1 := New(ops.Identity{Vendor: "v", Model: "m"}, fs, tick, zap.NewNop())
	if err := ctx1.Initialize(conn1, 1); err != nil {
		t.Fatal(err)
	}
	ctx1.Configuration().Set("ConnectionTimeOut", "999")
	ctx1.Deinitialize()

	conn2 := newFakeConnection()
	ctx2 := New(ops.Identity{Vendor: "v", Model: "m"}, fs, tick, zap.NewNop())
	if err := ctx2.Initialize(conn2, 1); err != nil {
		t.Fatal(err)
	}
	if got := ctx2.Configuration().GetInt("ConnectionTimeOut", 0); got != 999 {
		t.Fatalf("expected ConnectionTimeOut to survive reinitialize, got %d", got)
	}
}
