package ops

// Registration statuses, returned in BootNotificationResponse.
const (
	RegistrationAccepted = "Accepted"
	RegistrationPending  = "Pending"
	RegistrationRejected = "Rejected"
)

// Authorization statuses, carried in IDTagInfo.Status.
const (
	AuthAccepted     = "Accepted"
	AuthBlocked      = "Blocked"
	AuthExpired      = "Expired"
	AuthInvalid      = "Invalid"
	AuthConcurrentTx = "ConcurrentTx"
)

// Connector statuses, per OCPP 1.6J §6.35, matching spec.md §4.G's
// state machine one for one.
const (
	StatusAvailable     = "Available"
	StatusPreparing     = "Preparing"
	StatusCharging      = "Charging"
	StatusSuspendedEV   = "SuspendedEV"
	StatusSuspendedEVSE = "SuspendedEVSE"
	StatusFinishing     = "Finishing"
	StatusReserved      = "Reserved"
	StatusUnavailable   = "Unavailable"
	StatusFaulted       = "Faulted"
)

// Connector error codes, per OCPP 1.6J §6.34. NoError is the default
// carried by every StatusNotification that is not fault-related.
const NoError = "NoError"

// StopTransaction reasons, per OCPP 1.6J §6.51.
const (
	ReasonEVDisconnected = "EVDisconnected"
	ReasonLocal          = "Local"
	ReasonOther          = "Other"
	ReasonPowerLoss      = "PowerLoss"
	ReasonRemote         = "Remote"
	ReasonHardReset      = "HardReset"
	ReasonSoftReset      = "SoftReset"
	ReasonUnlockCommand  = "UnlockCommand"
	ReasonDeAuthorized   = "DeAuthorized"
)

// ConfigurationStatus, returned by ChangeConfiguration.
const (
	ConfigAccepted       = "Accepted"
	ConfigRejected       = "Rejected"
	ConfigRebootRequired = "RebootRequired"
	ConfigNotSupported   = "NotSupported"
)

// AvailabilityStatus, returned by ChangeAvailability.
const (
	AvailabilityAccepted  = "Accepted"
	AvailabilityRejected  = "Rejected"
	AvailabilityScheduled = "Scheduled"
)

// ResetStatus, returned by Reset.
const (
	ResetAccepted = "Accepted"
	ResetRejected = "Rejected"
)

// RemoteStartStopStatus, returned by RemoteStartTransaction/
// RemoteStopTransaction.
const (
	RemoteAccepted = "Accepted"
	RemoteRejected = "Rejected"
)

// TriggerMessageStatus, returned by TriggerMessage.
const (
	TriggerAccepted       = "Accepted"
	TriggerRejected       = "Rejected"
	TriggerNotImplemented = "NotImplemented"
)

// UnlockStatus, returned by UnlockConnector.
const (
	UnlockUnlocked     = "Unlocked"
	UnlockUnlockFailed = "UnlockFailed"
	UnlockNotSupported = "NotSupported"
)

// ClearCacheStatus, returned by ClearCache.
const (
	ClearCacheAccepted = "Accepted"
	ClearCacheRejected = "Rejected"
)

// Availability, the input spec.md §4.G samples each poll.
const (
	AvailabilityOperative   = "Operative"
	AvailabilityInoperative = "Inoperative"
)
