package chargepoint

import (
	"go.uber.org/zap"

	"github.com/kochedykov/MicroOcpp/internal/config"
	"github.com/kochedykov/MicroOcpp/internal/connector"
	"github.com/kochedykov/MicroOcpp/internal/ops"
	"github.com/kochedykov/MicroOcpp/internal/rpc"
)

// Configuration implements ops.Target.
func (c *Context) Configuration() *config.Registry { return c.cfg }

// RequestReset implements ops.Target. The core has no notion of an
// OS-level reboot; it reports acceptance and leaves the actual restart
// to whatever wraps Poll in a process (typically: exit and let a
// supervisor restart the binary, re-running Initialize against the
// persisted state).
func (c *Context) RequestReset(hard bool) bool {
	c.logger.Info("Reset requested", zap.Bool("hard", hard))
	return true
}

// RequestRemoteStart implements ops.Target. connectorID 0 means "any
// connector the charge point chooses"; AuthorizeRemoteTxRequests
// decides whether an Authorize round trip precedes StartTransaction.
func (c *Context) RequestRemoteStart(connectorID int, idTag string) bool {
	cn := c.connectorFor(connectorID)
	if cn == nil || cn.CurrentTransaction() != nil {
		return false
	}
	if c.cfg.GetBool("AuthorizeRemoteTxRequests", true) {
		cn.BeginTransaction(idTag, nil)
	} else {
		cn.BeginTransactionAuthorized(idTag)
	}
	return true
}

// RequestRemoteStop implements ops.Target.
func (c *Context) RequestRemoteStop(transactionID int32) bool {
	for _, cn := range c.connectors {
		tx := cn.CurrentTransaction()
		if tx != nil && tx.Start.Server.TransactionID == transactionID {
			cn.EndTransaction(ops.ReasonRemote)
			return true
		}
	}
	return false
}

// RequestTriggerMessage implements ops.Target. Only the messages this
// core can actually re-send on demand are supported.
func (c *Context) RequestTriggerMessage(message string, connectorID int) string {
	switch message {
	case "BootNotification":
		c.eng.Outbox().Enqueue("BootNotification", ops.BuildBootNotification(c.identity), nil, c.onBootResult)
		return ops.TriggerAccepted
	case "Heartbeat":
		c.eng.Outbox().Enqueue("Heartbeat", ops.BuildHeartbeat(), rpc.Eligible(c.preBootGate), nil)
		return ops.TriggerAccepted
	case "StatusNotification":
		cn := c.connectorFor(connectorID)
		if connectorID == 0 || cn == nil {
			c.stationPending = true
			c.stationLast = ""
			return ops.TriggerAccepted
		}
		cn.ForceStatusReport()
		return ops.TriggerAccepted
	default:
		return ops.TriggerNotImplemented
	}
}

// RequestUnlockConnector implements ops.Target. No physical lock
// actuator is modeled, so every request reports NotSupported.
func (c *Context) RequestUnlockConnector(connectorID int) string {
	return ops.UnlockNotSupported
}

// RequestClearCache implements ops.Target. No local authorization
// cache is kept, so there is nothing to clear, which
// is itself a trivially successful ClearCache.
func (c *Context) RequestClearCache() bool { return true }

// RequestChangeAvailability implements ops.Target. connectorID 0
// addresses every connector plus the virtual whole-station status.
func (c *Context) RequestChangeAvailability(connectorID int, operative bool) string {
	if connectorID == 0 {
		for _, cn := range c.connectors {
			cn.SetAvailability(operative)
		}
		if operative {
			c.stationStatus = ops.StatusAvailable
		} else {
			c.stationStatus = ops.StatusUnavailable
		}
		c.stationPending = true
		return ops.AvailabilityAccepted
	}
	cn := c.connectorFor(connectorID)
	if cn == nil {
		return ops.AvailabilityRejected
	}
	cn.SetAvailability(operative)
	if !operative && cn.CurrentTransaction() != nil {
		return ops.AvailabilityScheduled
	}
	return ops.AvailabilityAccepted
}

func (c *Context) connectorFor(connectorID int) *connector.Connector {
	if connectorID == 0 {
		for _, cn := range c.connectors {
			if cn.CurrentTransaction() == nil {
				return cn
			}
		}
		if len(c.connectors) > 0 {
			return c.connectors[0]
		}
		return nil
	}
	for _, cn := range c.connectors {
		if cn.ID() == connectorID {
			return cn
		}
	}
	return nil
}
