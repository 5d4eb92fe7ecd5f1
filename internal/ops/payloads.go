// Package ops defines the OCPP 1.6J action payloads the charge point
// sends and receives, builds outbound requests from core state, and
// wires inbound handlers into an rpc.Registry. Field names and JSON
// tags follow the teacher's protocol.messages shapes
// (backend/services/ocpp-server/internal/ocpp/protocol), trimmed of
// the teacher's server-only routing fields (StationID, TransactionID
// as a server-assigned string) and extended to the full action set a
// charge point — not a central system — needs to send.
package ops

// IDTagInfo is the nested status object almost every
// authorization-bearing response carries.
type IDTagInfo struct {
	Status      string `json:"status"`
	ParentIDTag string `json:"parentIdTag,omitempty"`
	ExpiryDate  string `json:"expiryDate,omitempty"`
}

// BootNotificationRequest is sent once at initialization and again
// whenever a TriggerMessage asks for it.
type BootNotificationRequest struct {
	ChargePointVendor       string `json:"chargePointVendor"`
	ChargePointModel        string `json:"chargePointModel"`
	ChargePointSerialNumber string `json:"chargePointSerialNumber,omitempty"`
	ChargeBoxSerialNumber   string `json:"chargeBoxSerialNumber,omitempty"`
	FirmwareVersion         string `json:"firmwareVersion,omitempty"`
	Iccid                   string `json:"iccid,omitempty"`
	Imsi                    string `json:"imsi,omitempty"`
	MeterType               string `json:"meterType,omitempty"`
	MeterSerialNumber       string `json:"meterSerialNumber,omitempty"`
}

// BootNotificationResponse carries the server's clock and the
// effective heartbeat interval.
type BootNotificationResponse struct {
	Status      string `json:"status"`
	CurrentTime string `json:"currentTime"`
	Interval    int    `json:"interval"`
}

// AuthorizeRequest asks the backend whether an idTag may start a
// transaction.
type AuthorizeRequest struct {
	IDTag string `json:"idTag"`
}

// AuthorizeResponse carries the authorization verdict.
type AuthorizeResponse struct {
	IDTagInfo IDTagInfo `json:"idTagInfo"`
}

// HeartbeatRequest has no fields.
type HeartbeatRequest struct{}

// HeartbeatResponse returns the server's current time.
type HeartbeatResponse struct {
	CurrentTime string `json:"currentTime"`
}

// StatusNotificationRequest reports a connector's status transition.
type StatusNotificationRequest struct {
	ConnectorID     int    `json:"connectorId"`
	ErrorCode       string `json:"errorCode"`
	Info            string `json:"info,omitempty"`
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp,omitempty"`
	VendorID        string `json:"vendorId,omitempty"`
	VendorErrorCode string `json:"vendorErrorCode,omitempty"`
}

// StatusNotificationResponse is an empty ack.
type StatusNotificationResponse struct{}

// StartTransactionRequest reports the beginning of a charging session.
type StartTransactionRequest struct {
	ConnectorID   int    `json:"connectorId"`
	IDTag         string `json:"idTag"`
	MeterStart    int32  `json:"meterStart"`
	ReservationID *int32 `json:"reservationId,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// StartTransactionResponse carries the server-assigned transactionId.
type StartTransactionResponse struct {
	TransactionID int32     `json:"transactionId"`
	IDTagInfo     IDTagInfo `json:"idTagInfo"`
}

// StopTransactionRequest reports the end of a charging session.
type StopTransactionRequest struct {
	TransactionID   int32            `json:"transactionId"`
	IDTag           string           `json:"idTag,omitempty"`
	MeterStop       int32            `json:"meterStop"`
	Timestamp       string           `json:"timestamp"`
	Reason          string           `json:"reason,omitempty"`
	TransactionData []MeterValue     `json:"transactionData,omitempty"`
}

// StopTransactionResponse optionally carries a new idTagInfo (e.g. a
// local-auth-list verdict refreshed while the session ran).
type StopTransactionResponse struct {
	IDTagInfo *IDTagInfo `json:"idTagInfo,omitempty"`
}

// MeterValue is one sampled-values record, per OCPP 1.6J §6.45.
type MeterValue struct {
	Timestamp    string         `json:"timestamp"`
	SampledValue []SampledValue `json:"sampledValue"`
}

// SampledValue is one measurement within a MeterValue.
type SampledValue struct {
	Value     string `json:"value"`
	Context   string `json:"context,omitempty"`
	Format    string `json:"format,omitempty"`
	Measurand string `json:"measurand,omitempty"`
	Phase     string `json:"phase,omitempty"`
	Location  string `json:"location,omitempty"`
	Unit      string `json:"unit,omitempty"`
}

// MeterValuesRequest reports sampled measurements, optionally tied to
// a running transaction.
type MeterValuesRequest struct {
	ConnectorID   int          `json:"connectorId"`
	TransactionID *int32       `json:"transactionId,omitempty"`
	MeterValue    []MeterValue `json:"meterValue"`
}

// MeterValuesResponse is an empty ack.
type MeterValuesResponse struct{}

// DiagnosticsStatusNotificationRequest reports diagnostics-upload
// progress, supplementing the distilled action set per SPEC_FULL.md.
type DiagnosticsStatusNotificationRequest struct {
	Status string `json:"status"`
}

// FirmwareStatusNotificationRequest reports firmware-update progress.
type FirmwareStatusNotificationRequest struct {
	Status string `json:"status"`
}

// -- Inbound (server-initiated) actions --

// GetConfigurationRequest asks for one or more (or, if empty, every)
// configuration key.
type GetConfigurationRequest struct {
	Key []string `json:"key,omitempty"`
}

// ConfigurationKeyValue is one row of a GetConfiguration response.
type ConfigurationKeyValue struct {
	Key      string `json:"key"`
	Readonly bool   `json:"readonly"`
	Value    string `json:"value,omitempty"`
}

// GetConfigurationResponse echoes known keys and names any requested
// key that has no declared value.
type GetConfigurationResponse struct {
	ConfigurationKey []ConfigurationKeyValue `json:"configurationKey,omitempty"`
	UnknownKey       []string                `json:"unknownKey,omitempty"`
}

// ChangeConfigurationRequest requests a single key/value write.
type ChangeConfigurationRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ChangeConfigurationResponse reports the outcome.
type ChangeConfigurationResponse struct {
	Status string `json:"status"`
}

// ResetRequest asks for a soft or hard reset.
type ResetRequest struct {
	Type string `json:"type"`
}

// ResetResponse reports whether the reset was accepted.
type ResetResponse struct {
	Status string `json:"status"`
}

// RemoteStartTransactionRequest asks the charge point to begin a
// session on the server's behalf.
type RemoteStartTransactionRequest struct {
	ConnectorID     *int   `json:"connectorId,omitempty"`
	IDTag           string `json:"idTag"`
}

// RemoteStartTransactionResponse reports whether the request was
// accepted.
type RemoteStartTransactionResponse struct {
	Status string `json:"status"`
}

// RemoteStopTransactionRequest asks for a running transaction to stop.
type RemoteStopTransactionRequest struct {
	TransactionID int32 `json:"transactionId"`
}

// RemoteStopTransactionResponse reports whether the request was
// accepted.
type RemoteStopTransactionResponse struct {
	Status string `json:"status"`
}

// TriggerMessageRequest asks the charge point to (re-)send one of its
// own status messages out of band.
type TriggerMessageRequest struct {
	RequestedMessage string `json:"requestedMessage"`
	ConnectorID      *int   `json:"connectorId,omitempty"`
}

// TriggerMessageResponse reports whether the trigger was accepted.
type TriggerMessageResponse struct {
	Status string `json:"status"`
}

// UnlockConnectorRequest asks the charge point to release a connector
// lock.
type UnlockConnectorRequest struct {
	ConnectorID int `json:"connectorId"`
}

// UnlockConnectorResponse reports the outcome.
type UnlockConnectorResponse struct {
	Status string `json:"status"`
}

// ClearCacheRequest has no fields.
type ClearCacheRequest struct{}

// ClearCacheResponse reports the outcome.
type ClearCacheResponse struct {
	Status string `json:"status"`
}

// ChangeAvailabilityRequest asks a connector (or the whole charge
// point, if ConnectorID is 0) to change availability.
type ChangeAvailabilityRequest struct {
	ConnectorID int    `json:"connectorId"`
	Type        string `json:"type"`
}

// ChangeAvailabilityResponse reports the outcome.
type ChangeAvailabilityResponse struct {
	Status string `json:"status"`
}
