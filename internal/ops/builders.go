package ops

import (
	"fmt"

	"github.com/kochedykov/MicroOcpp/internal/clock"
	"github.com/kochedykov/MicroOcpp/internal/txstore"
)

// Identity is the static charge-point identity BootNotification
// carries, populated from config.Bootstrap at startup.
type Identity struct {
	Vendor          string
	Model           string
	SerialNumber    string
	FirmwareVersion string
}

// BuildBootNotification builds the BootNotificationRequest sent at
// initialization and on TriggerMessage.
func BuildBootNotification(id Identity) BootNotificationRequest {
	return BootNotificationRequest{
		ChargePointVendor: id.Vendor,
		ChargePointModel:  id.Model,
		ChargeBoxSerialNumber: id.SerialNumber,
		FirmwareVersion:   id.FirmwareVersion,
	}
}

// BuildHeartbeat builds the (empty) HeartbeatRequest.
func BuildHeartbeat() HeartbeatRequest { return HeartbeatRequest{} }

// BuildAuthorize builds an AuthorizeRequest for idTag.
func BuildAuthorize(idTag string) AuthorizeRequest {
	return AuthorizeRequest{IDTag: idTag}
}

// BuildStatusNotification builds a StatusNotificationRequest. ts is
// the timestamp at which the new status was first observed, per
// spec.md §4.G ("not when finally emitted").
func BuildStatusNotification(connectorID int, status, errorCode string, ts clock.Timestamp) StatusNotificationRequest {
	req := StatusNotificationRequest{
		ConnectorID: connectorID,
		ErrorCode:   errorCode,
		Status:      status,
	}
	if !ts.IsMin() {
		req.Timestamp = ts.String()
	}
	return req
}

// BuildStartTransaction builds a StartTransactionRequest from tx. It
// returns an error if the start timestamp is still pending — callers
// must not reach this point until ResolvePendingTimestamps has cleared
// it (or the clock was already valid when the session began).
func BuildStartTransaction(tx *txstore.Transaction) (StartTransactionRequest, error) {
	if tx.Start.Client.TimestampTag.Pending() {
		return StartTransactionRequest{}, fmt.Errorf("ops: StartTransaction timestamp still pending for connector %d", tx.ConnectorID)
	}
	req := StartTransactionRequest{
		ConnectorID: tx.ConnectorID,
		IDTag:       tx.Session.IDTag,
		MeterStart:  tx.Start.Client.Meter,
		Timestamp:   tx.Start.Client.Timestamp.String(),
	}
	if tx.Start.Client.ReservationID >= 0 {
		rid := tx.Start.Client.ReservationID
		req.ReservationID = &rid
	}
	return req, nil
}

// BuildStopTransaction builds a StopTransactionRequest from tx,
// applying the clock-loss fallback (spec.md §8 "lose StopTx
// timestamp") if the stop timestamp never resolved and the clock has
// given up on ever resyncing before this call. Callers decide when
// "given up" is — typically once a bounded number of polls have
// elapsed with the clock still invalid while the outbox is otherwise
// ready to send.
func BuildStopTransaction(tx *txstore.Transaction, clk *clock.Clock, giveUpOnClock bool) (StopTransactionRequest, error) {
	if tx.Stop.Client.TimestampTag.Pending() {
		if !clk.IsValid() && giveUpOnClock {
			tx.ApplyStopFallback()
		}
		if tx.Stop.Client.TimestampTag.Pending() {
			return StopTransactionRequest{}, fmt.Errorf("ops: StopTransaction timestamp still pending for connector %d", tx.ConnectorID)
		}
	}
	return StopTransactionRequest{
		TransactionID: tx.Start.Server.TransactionID,
		IDTag:         tx.Stop.Client.IDTag,
		MeterStop:     tx.Stop.Client.Meter,
		Timestamp:     tx.Stop.Client.Timestamp.String(),
		Reason:        tx.Stop.Client.Reason,
	}, nil
}
