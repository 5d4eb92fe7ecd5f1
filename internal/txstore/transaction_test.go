package txstore

import (
	"testing"

	"github.com/kochedykov/MicroOcpp/internal/clock"
)

func TestTransactionLifecyclePredicates(t *testing.T) {
	tx := NewTransaction(1, 0, false)
	if !tx.IsPreparing() {
		t.Error("a fresh transaction should be preparing")
	}
	if tx.IsRunning() || tx.IsCompleted() || tx.IsAborted() {
		t.Error("a fresh transaction should be neither running, completed, nor aborted")
	}

	tx.Start.RPC.Requested = true
	if tx.IsPreparing() {
		t.Error("requesting StartTransaction should end the preparing phase")
	}
	if !tx.IsRunning() {
		t.Error("requested-but-not-stopped should be running")
	}

	tx.Start.RPC.Confirmed = true
	tx.Stop.RPC.Requested = true
	if tx.IsRunning() {
		t.Error("requesting StopTransaction should end the running phase")
	}

	tx.Stop.RPC.Confirmed = true
	if !tx.IsCompleted() || !tx.IsReclaimable() {
		t.Error("a confirmed StopTransaction should be completed and reclaimable")
	}
}

func TestTransactionAbortedWithoutStart(t *testing.T) {
	tx := NewTransaction(1, 0, false)
	tx.Session.Active = false
	if !tx.IsAborted() || !tx.IsReclaimable() {
		t.Error("ending a session before StartTransaction was ever sent is an abort")
	}
}

func TestResolvePendingTimestampsBacksDateAcrossComponents(t *testing.T) {
	var now uint64
	clk := clock.New(func() uint64 { return now })

	tx := NewTransaction(1, 0, false)
	tx.Session.TimestampTag = clk.Tag()
	tx.Start.Client.TimestampTag = clk.Tag()

	now += 3600 // an hour passes with no clock set
	tx.Stop.Client.TimestampTag = clk.Tag()

	now += 3600
	if !clk.SetTime("2023-01-01T12:00:00Z") {
		t.Fatal("SetTime should accept a well-formed ISO timestamp")
	}

	tx.ResolvePendingTimestamps(clk)

	if tx.Session.TimestampTag.Pending() || tx.Start.Client.TimestampTag.Pending() || tx.Stop.Client.TimestampTag.Pending() {
		t.Error("resolving against a valid clock should clear every pending tag")
	}
	if !tx.Start.Client.Timestamp.Before(tx.Stop.Client.Timestamp) {
		t.Error("start should resolve to an earlier instant than stop")
	}
	wantDelta := tx.Stop.Client.Timestamp.Sub(tx.Start.Client.Timestamp)
	if wantDelta != 3600 {
		t.Errorf("expected a 3600s gap between start and stop, got %d", wantDelta)
	}
}

func TestResolvePendingTimestampsNoopWithoutValidClock(t *testing.T) {
	var now uint64
	clk := clock.New(func() uint64 { return now })

	tx := NewTransaction(1, 0, false)
	tx.Start.Client.TimestampTag = clk.Tag()

	now += 1
	tx.ResolvePendingTimestamps(clk)

	if !tx.Start.Client.TimestampTag.Pending() {
		t.Error("a tag must stay pending until the clock becomes valid")
	}
}
