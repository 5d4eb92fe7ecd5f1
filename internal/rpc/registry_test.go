package rpc

import (
	"encoding/json"
	"testing"
)

func TestRegistryDispatchesRegisteredAction(t *testing.T) {
	r := NewRegistry()
	r.On("Heartbeat", func(payload json.RawMessage) (any, error) {
		return map[string]string{"currentTime": "2023-01-01T00:00:00Z"}, nil
	})

	result, err := r.Dispatch("Heartbeat", json.RawMessage(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if result == nil {
		t.Error("expected a non-nil result")
	}
}

func TestRegistryReturnsNotImplementedForUnknownAction(t *testing.T) {
	r := NewRegistry()
	_, err := r.Dispatch("UnlockConnector", json.RawMessage(`{}`))
	ocppErr, ok := err.(*Error)
	if !ok || ocppErr.Code != ErrNotImplemented {
		t.Errorf("expected NotImplemented, got %v", err)
	}
}
