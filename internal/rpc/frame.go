// Package rpc implements the OCPP-J message layer: frame encode/decode,
// the transport capability the core consumes, and the single-outstanding-
// CALL outbox/dispatch engine a cooperative Poll driver runs.
package rpc

import (
	"encoding/json"
	"fmt"
)

// MessageType is the first element of every OCPP-J frame.
type MessageType int

const (
	TypeCall       MessageType = 2
	TypeCallResult MessageType = 3
	TypeCallError  MessageType = 4
)

// Frame is a parsed inbound OCPP-J message, any of the three shapes
// the protocol defines.
type Frame struct {
	Type      MessageType
	UniqueID  string
	Action    string          // set only for TypeCall
	Payload   json.RawMessage // CALL payload or CALLRESULT payload
	ErrorCode string          // set only for TypeCallError
	ErrorDesc string
	ErrorDet  json.RawMessage
}

// ParseFrame decodes a raw websocket text frame into a Frame, grounded
// on the teacher's ocpp.Parser but generalized to all three message
// types since the charge point, unlike the teacher's server, must also
// parse CALLRESULT and CALLERROR.
func ParseFrame(data []byte) (*Frame, error) {
	var array []json.RawMessage
	if err := json.Unmarshal(data, &array); err != nil {
		return nil, FormationViolation("frame is not a JSON array: " + err.Error())
	}
	if len(array) < 3 {
		return nil, FormationViolation("frame has fewer than 3 elements")
	}

	var rawType int
	if err := json.Unmarshal(array[0], &rawType); err != nil {
		return nil, FormationViolation("message type is not an integer")
	}

	f := &Frame{Type: MessageType(rawType)}
	if err := json.Unmarshal(array[1], &f.UniqueID); err != nil {
		return nil, FormationViolation("unique id is not a string")
	}

	switch f.Type {
	case TypeCall:
		if len(array) != 4 {
			return nil, FormationViolation("CALL frame must have 4 elements")
		}
		if err := json.Unmarshal(array[2], &f.Action); err != nil {
			return nil, FormationViolation("action is not a string")
		}
		f.Payload = array[3]
	case TypeCallResult:
		if len(array) != 3 {
			return nil, FormationViolation("CALLRESULT frame must have 3 elements")
		}
		f.Payload = array[2]
	case TypeCallError:
		if len(array) != 5 {
			return nil, FormationViolation("CALLERROR frame must have 5 elements")
		}
		if err := json.Unmarshal(array[2], &f.ErrorCode); err != nil {
			return nil, FormationViolation("error code is not a string")
		}
		if err := json.Unmarshal(array[3], &f.ErrorDesc); err != nil {
			return nil, FormationViolation("error description is not a string")
		}
		f.ErrorDet = array[4]
	default:
		return nil, ProtocolErrorf("unsupported message type %d", rawType)
	}

	return f, nil
}

// ProtocolErrorf builds a *Error with ErrProtocolError and a formatted
// description.
func ProtocolErrorf(format string, args ...any) *Error {
	return NewError(ErrProtocolError, fmt.Sprintf(format, args...))
}

// EncodeCall renders a CALL frame for the given unique id, action and
// payload.
func EncodeCall(uniqueID, action string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal([]any{TypeCall, uniqueID, action, json.RawMessage(body)})
}

// EncodeCallResult renders a CALLRESULT frame.
func EncodeCallResult(uniqueID string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal([]any{TypeCallResult, uniqueID, json.RawMessage(body)})
}

// EncodeCallError renders a CALLERROR frame.
func EncodeCallError(uniqueID string, ocppErr *Error) ([]byte, error) {
	details := ocppErr.Details
	if details == nil {
		details = map[string]any{}
	}
	return json.Marshal([]any{TypeCallError, uniqueID, ocppErr.Code, ocppErr.Description, details})
}
