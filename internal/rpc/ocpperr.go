package rpc

// Error is a CALLERROR as OCPP 1.6J's error-code taxonomy defines it.
// Handlers in ops return one of these, unwrapped, as their error value
// to have the engine reply with CALLERROR instead of CALLRESULT; any
// other error, including a wrapped *Error, is replied to as
// InternalError.
type Error struct {
	Code        string
	Description string
	Details     map[string]any
}

func (e *Error) Error() string { return e.Code + ": " + e.Description }

// NewError builds an *Error with the given code and description and no
// details payload.
func NewError(code, description string) *Error {
	return &Error{Code: code, Description: description}
}

// The well-known CALLERROR codes OCPP 1.6J section 4.3 defines.
const (
	ErrNotImplemented                 = "NotImplemented"
	ErrNotSupported                   = "NotSupported"
	ErrInternalError                  = "InternalError"
	ErrProtocolError                  = "ProtocolError"
	ErrSecurityError                  = "SecurityError"
	ErrFormationViolation             = "FormationViolation"
	ErrPropertyConstraintViolation    = "PropertyConstraintViolation"
	ErrOccurenceConstraintViolation   = "OccurenceConstraintViolation"
	ErrTypeConstraintViolation        = "TypeConstraintViolation"
	ErrGenericError                   = "GenericError"
)

// NotImplemented, FormationViolation, ... are convenience constructors for
// the errors registry.go and ops handlers raise most often.
func NotImplemented(action string) *Error {
	return NewError(ErrNotImplemented, "no handler registered for action "+action)
}

func FormationViolation(description string) *Error {
	return NewError(ErrFormationViolation, description)
}

func TypeConstraintViolation(description string) *Error {
	return NewError(ErrTypeConstraintViolation, description)
}

func PropertyConstraintViolation(description string) *Error {
	return NewError(ErrPropertyConstraintViolation, description)
}

func InternalError(description string) *Error {
	return NewError(ErrInternalError, description)
}
