package ops

import (
	"testing"

	"github.com/kochedykov/MicroOcpp/internal/clock"
	"github.com/kochedykov/MicroOcpp/internal/txstore"
)

func TestBuildStartTransactionRequiresResolvedTimestamp(t *testing.T) {
	tx := txstore.NewTransaction(1, 0, false)
	var now uint64
	clk := clock.New(func() uint64 { return now })
	tx.Start.Client.TimestampTag = clk.Tag()

	if _, err := BuildStartTransaction(tx); err == nil {
		t.Error("expected an error while the start timestamp is still pending")
	}

	clk.SetTime("2023-05-01T10:00:00Z")
	tx.ResolvePendingTimestamps(clk)

	req, err := BuildStartTransaction(tx)
	if err != nil {
		t.Fatal(err)
	}
	if req.ConnectorID != 1 || req.Timestamp == "" {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestBuildStopTransactionFallsBackAfterClockLoss(t *testing.T) {
	var now uint64
	clk := clock.New(func() uint64 { return now })

	tx := txstore.NewTransaction(2, 0, false)
	tx.Start.Client.TimestampTag = clk.Tag()
	now += 10

	// The clock becomes valid only long enough to resolve the start
	// timestamp; the stop timestamp is then captured on a clock that is
	// never set — simulating a reboot that loses the StopTransaction
	// timestamp for good.
	clk.SetTime("2023-05-01T10:00:00Z")
	tx.ResolvePendingTimestamps(clk)
	if tx.Start.Client.TimestampTag.Pending() {
		t.Fatal("start timestamp should have resolved")
	}

	lostClk := clock.New(func() uint64 { return 0 })
	tx.Stop.Client.TimestampTag = lostClk.Tag()
	req, err := BuildStopTransaction(tx, lostClk, true)
	if err != nil {
		t.Fatal(err)
	}
	want := tx.Start.Client.Timestamp.Add(1).String()
	if req.Timestamp != want {
		t.Errorf("expected the stop timestamp to fall back to start+1s, got %s want %s", req.Timestamp, want)
	}
}

func TestBuildStopTransactionErrorsWithoutGivingUp(t *testing.T) {
	var now uint64
	clk := clock.New(func() uint64 { return now })
	tx := txstore.NewTransaction(1, 0, false)
	tx.Stop.Client.TimestampTag = clk.Tag()

	if _, err := BuildStopTransaction(tx, clk, false); err == nil {
		t.Error("expected an error when not told to give up on the clock yet")
	}
}

func TestBuildStatusNotificationOmitsTimestampWhenUnresolved(t *testing.T) {
	req := BuildStatusNotification(1, StatusAvailable, NoError, clock.MinTime)
	if req.Timestamp != "" {
		t.Errorf("expected an empty timestamp for MinTime, got %q", req.Timestamp)
	}
}
