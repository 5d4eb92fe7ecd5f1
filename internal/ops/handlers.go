package ops

import (
	"encoding/json"

	"github.com/kochedykov/MicroOcpp/internal/config"
	"github.com/kochedykov/MicroOcpp/internal/rpc"
)

// Target is the narrow surface ops needs from the rest of the core to
// service server-initiated actions. chargepoint.Context implements
// it; defining the interface here (rather than importing chargepoint)
// keeps ops free of a dependency on the package that in turn depends
// on ops for payload types.
type Target interface {
	Configuration() *config.Registry
	RequestReset(hard bool) bool
	RequestRemoteStart(connectorID int, idTag string) bool
	RequestRemoteStop(transactionID int32) bool
	RequestTriggerMessage(message string, connectorID int) string
	RequestUnlockConnector(connectorID int) string
	RequestClearCache() bool
	RequestChangeAvailability(connectorID int, operative bool) string
}

// HandlerSet binds Target to an rpc.Registry.
type HandlerSet struct {
	target Target
}

// NewHandlerSet returns a HandlerSet servicing target.
func NewHandlerSet(target Target) *HandlerSet {
	return &HandlerSet{target: target}
}

// Register wires every server-initiated action this package knows
// about into reg. BootNotification/Authorize/StartTransaction/
// StopTransaction/Heartbeat/StatusNotification are outbound-only and
// have no inbound handler.
func (h *HandlerSet) Register(reg *rpc.Registry) {
	reg.On("GetConfiguration", h.getConfiguration)
	reg.On("ChangeConfiguration", h.changeConfiguration)
	reg.On("Reset", h.reset)
	reg.On("RemoteStartTransaction", h.remoteStartTransaction)
	reg.On("RemoteStopTransaction", h.remoteStopTransaction)
	reg.On("TriggerMessage", h.triggerMessage)
	reg.On("UnlockConnector", h.unlockConnector)
	reg.On("ClearCache", h.clearCache)
	reg.On("ChangeAvailability", h.changeAvailability)
}

func (h *HandlerSet) getConfiguration(payload json.RawMessage) (any, error) {
	var req GetConfigurationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, rpc.FormationViolation("GetConfiguration: " + err.Error())
	}

	entries := h.target.Configuration().Enumerate(req.Key)
	found := make(map[string]bool, len(entries))
	resp := GetConfigurationResponse{}
	for _, e := range entries {
		found[e.Key] = true
		resp.ConfigurationKey = append(resp.ConfigurationKey, ConfigurationKeyValue{
			Key:      e.Key,
			Readonly: e.Readonly,
			Value:    decodeConfigValue(e.Value),
		})
	}
	for _, k := range req.Key {
		if !found[k] {
			resp.UnknownKey = append(resp.UnknownKey, k)
		}
	}
	return resp, nil
}

func decodeConfigValue(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return string(raw)
	}
}

func (h *HandlerSet) changeConfiguration(payload json.RawMessage) (any, error) {
	var req ChangeConfigurationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, rpc.FormationViolation("ChangeConfiguration: " + err.Error())
	}

	switch h.target.Configuration().Set(req.Key, req.Value) {
	case config.SetAccepted:
		return ChangeConfigurationResponse{Status: ConfigAccepted}, nil
	case config.SetRebootRequired:
		return ChangeConfigurationResponse{Status: ConfigRebootRequired}, nil
	case config.SetNotSupported:
		return ChangeConfigurationResponse{Status: ConfigNotSupported}, nil
	default:
		return ChangeConfigurationResponse{Status: ConfigRejected}, nil
	}
}

func (h *HandlerSet) reset(payload json.RawMessage) (any, error) {
	var req ResetRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, rpc.FormationViolation("Reset: " + err.Error())
	}
	accepted := h.target.RequestReset(req.Type == "Hard")
	if accepted {
		return ResetResponse{Status: ResetAccepted}, nil
	}
	return ResetResponse{Status: ResetRejected}, nil
}

func (h *HandlerSet) remoteStartTransaction(payload json.RawMessage) (any, error) {
	var req RemoteStartTransactionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, rpc.FormationViolation("RemoteStartTransaction: " + err.Error())
	}
	connectorID := 0
	if req.ConnectorID != nil {
		connectorID = *req.ConnectorID
	}
	if h.target.RequestRemoteStart(connectorID, req.IDTag) {
		return RemoteStartTransactionResponse{Status: RemoteAccepted}, nil
	}
	return RemoteStartTransactionResponse{Status: RemoteRejected}, nil
}

func (h *HandlerSet) remoteStopTransaction(payload json.RawMessage) (any, error) {
	var req RemoteStopTransactionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, rpc.FormationViolation("RemoteStopTransaction: " + err.Error())
	}
	if h.target.RequestRemoteStop(req.TransactionID) {
		return RemoteStopTransactionResponse{Status: RemoteAccepted}, nil
	}
	return RemoteStopTransactionResponse{Status: RemoteRejected}, nil
}

func (h *HandlerSet) triggerMessage(payload json.RawMessage) (any, error) {
	var req TriggerMessageRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, rpc.FormationViolation("TriggerMessage: " + err.Error())
	}
	connectorID := 0
	if req.ConnectorID != nil {
		connectorID = *req.ConnectorID
	}
	status := h.target.RequestTriggerMessage(req.RequestedMessage, connectorID)
	if status == "" {
		status = TriggerNotImplemented
	}
	return TriggerMessageResponse{Status: status}, nil
}

func (h *HandlerSet) unlockConnector(payload json.RawMessage) (any, error) {
	var req UnlockConnectorRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, rpc.FormationViolation("UnlockConnector: " + err.Error())
	}
	status := h.target.RequestUnlockConnector(req.ConnectorID)
	if status == "" {
		status = UnlockNotSupported
	}
	return UnlockConnectorResponse{Status: status}, nil
}

func (h *HandlerSet) clearCache(payload json.RawMessage) (any, error) {
	if h.target.RequestClearCache() {
		return ClearCacheResponse{Status: ClearCacheAccepted}, nil
	}
	return ClearCacheResponse{Status: ClearCacheRejected}, nil
}

func (h *HandlerSet) changeAvailability(payload json.RawMessage) (any, error) {
	var req ChangeAvailabilityRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, rpc.FormationViolation("ChangeAvailability: " + err.Error())
	}
	status := h.target.RequestChangeAvailability(req.ConnectorID, req.Type == AvailabilityOperative)
	if status == "" {
		status = AvailabilityRejected
	}
	return ChangeAvailabilityResponse{Status: status}, nil
}
