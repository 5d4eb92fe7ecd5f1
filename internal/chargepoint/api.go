package chargepoint

import (
	"github.com/kochedykov/MicroOcpp/internal/connector"
	"github.com/kochedykov/MicroOcpp/internal/ops"
)

// defaultConnector is the connector every single-idTag-argument
// caller-facing operation addresses, per spec.md §6's convention (the
// literal scenarios of §8 never name a connector explicitly).
func (c *Context) defaultConnector() *connector.Connector {
	if len(c.connectors) == 0 {
		return nil
	}
	return c.connectors[0]
}

// BeginTransaction starts a session on the default connector that
// still needs an Authorize round trip.
func (c *Context) BeginTransaction(idTag string) {
	if cn := c.defaultConnector(); cn != nil {
		cn.BeginTransaction(idTag, nil)
	}
}

// BeginTransactionAuthorized starts a session on the default connector
// whose authorization is already known (cached, or offline).
func (c *Context) BeginTransactionAuthorized(idTag string) {
	if cn := c.defaultConnector(); cn != nil {
		cn.BeginTransactionAuthorized(idTag)
	}
}

// EndTransaction ends the default connector's active session.
func (c *Context) EndTransaction(reason string) {
	if cn := c.defaultConnector(); cn != nil {
		cn.EndTransaction(reason)
	}
}

// StartTransaction is StartTransaction's direct form on the default
// connector.
func (c *Context) StartTransaction(idTag string) {
	if cn := c.defaultConnector(); cn != nil {
		cn.StartTransaction(idTag)
	}
}

// StopTransaction ends the default connector's session with reason
// "Local".
func (c *Context) StopTransaction() {
	if cn := c.defaultConnector(); cn != nil {
		cn.StopTransaction()
	}
}

// IsTransactionRunning reports whether the default connector has sent
// StartTransaction for its current session and has not yet sent
// StopTransaction.
func (c *Context) IsTransactionRunning() bool {
	cn := c.defaultConnector()
	if cn == nil {
		return false
	}
	tx := cn.CurrentTransaction()
	return tx != nil && tx.IsRunning()
}

// OcppPermitsCharge reports whether the default connector is actually
// delivering energy right now.
func (c *Context) OcppPermitsCharge() bool {
	cn := c.defaultConnector()
	return cn != nil && cn.Status() == ops.StatusCharging
}

// IsOperative reports whether the whole-station status (connectorId 0,
// set by ChangeAvailability on connectorId 0) is currently Operative.
// Availability changes addressed to a single connector do not affect it.
func (c *Context) IsOperative() bool {
	return c.stationStatus != ops.StatusUnavailable
}

// SetConnectorPluggedInput wires the default connector's cable sensor.
func (c *Context) SetConnectorPluggedInput(cb func() bool) {
	if cn := c.defaultConnector(); cn != nil {
		cn.SetPluggedInput(cb)
	}
}

// SetEvReadyInput wires the default connector's EV-ready sensor.
func (c *Context) SetEvReadyInput(cb func() bool) {
	if cn := c.defaultConnector(); cn != nil {
		cn.SetEvReadyInput(cb)
	}
}

// SetEvseReadyInput wires the default connector's EVSE-ready sensor.
func (c *Context) SetEvseReadyInput(cb func() bool) {
	if cn := c.defaultConnector(); cn != nil {
		cn.SetEvseReadyInput(cb)
	}
}

// SetEnergyActiveImportSampler wires the default connector's meter
// reading, captured into meterStart/meterStop.
func (c *Context) SetEnergyActiveImportSampler(cb func() int32) {
	if cn := c.defaultConnector(); cn != nil {
		cn.SetEnergyActiveImportSampler(cb)
	}
}

// Connector returns the Nth connector (1-indexed, matching OCPP
// connectorId) for hosts managing more than one socket, bypassing the
// single-connector convenience methods above.
func (c *Context) Connector(connectorID int) *connector.Connector {
	return c.connectorFor(connectorID)
}
