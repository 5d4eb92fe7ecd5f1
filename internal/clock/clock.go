package clock

// TickSource returns a monotonically non-decreasing count of seconds
// since an arbitrary epoch. It is injected rather than read from
// time.Now() directly so tests can advance it deterministically, the
// same hook the original firmware exposed as ao_set_timer().
type TickSource func() uint64

// Clock reconstructs wall-clock time from a tick source plus a
// server-provided reference. Before the reference is set, every
// reported timestamp is MinTime.
type Clock struct {
	tick TickSource

	baseTime Timestamp
	baseTick uint64
	isValid  bool
}

// New returns a Clock driven by the given tick source. The clock
// starts invalid: Now returns MinTime until SetTime
// succeeds.
func New(tick TickSource) *Clock {
	return &Clock{tick: tick}
}

// TickMs returns the raw tick count, exposed for components (the
// connector's ConnectionTimeOut and stop-timestamp fallback
// bookkeeping) that need tick deltas rather than wall-clock time.
func (c *Clock) TickMs() uint64 { return c.tick() }

// IsValid reports whether SetTime has ever succeeded.
func (c *Clock) IsValid() bool { return c.isValid }

// Now returns the current wall-clock timestamp, or MinTime if the
// clock has never been set.
func (c *Clock) Now() Timestamp {
	if !c.isValid {
		return MinTime
	}
	delta := int64(c.tick() - c.baseTick)
	return c.baseTime.Add(delta)
}

// SetTime parses iso (tolerating fractional seconds and a trailing Z
// beyond the first 19 characters) and, on success, anchors the clock
// to it at the current tick. Invalid input leaves the clock untouched
// and returns false.
func (c *Clock) SetTime(iso string) bool {
	parsed, err := ParseTimestamp(iso)
	if err != nil {
		return false
	}
	c.baseTime = parsed
	c.baseTick = c.tick()
	c.isValid = true
	return true
}

// SetTimeFromServer is the production entry point the charge-control
// façade calls whenever a CALLRESULT carries a currentTime field —
// BootNotification and Heartbeat today, any future response that
// offers one tomorrow. currentTime is empty for responses that don't
// carry a timestamp, which is not an error: it just leaves the clock
// as it was.
func (c *Clock) SetTimeFromServer(currentTime string) bool {
	if currentTime == "" {
		return false
	}
	return c.SetTime(currentTime)
}

// CreateTimestamp converts an OCPP scalar (seconds since MinTime) into
// a Timestamp, the inverse of ToScalar.
func (c *Clock) CreateTimestamp(scalar int32) Timestamp {
	return MinTime.Add(int64(scalar))
}

// ToScalar converts a Timestamp into an OCPP scalar (seconds since
// MinTime), saturating via Timestamp.Sub's infinity threshold.
func (c *Clock) ToScalar(t Timestamp) int32 {
	return int32(t.Sub(MinTime))
}

// PendingTag is a capture-time placeholder for a timestamp taken while
// the clock might not yet be valid. Call Tag at the moment of capture
// and Resolve once the value is needed on the wire; Resolve re-bases
// the captured tick against whatever basetime is known by then,
// implementing the "back-dating" behaviour spec.md describes: a
// StartTransaction captured hours before the first successful
// BootNotification still gets a correct timestamp once the server
// tells us the time.
type PendingTag struct {
	tick    uint64
	pending bool
}

// Tag returns a non-pending tag if the clock is already valid (the
// caller's own Now() reading is then final), or a pending tag holding
// the current tick to be resolved later.
func (c *Clock) Tag() PendingTag {
	if c.isValid {
		return PendingTag{tick: 0, pending: false}
	}
	return PendingTag{tick: c.tick(), pending: true}
}

// TagResolved wraps an already-known timestamp that never needs
// back-dating (used when recovering a record from persistent storage,
// where the stored timestamp is already final).
func TagResolved() PendingTag {
	return PendingTag{pending: false}
}

// Resolve returns the final timestamp for a tag captured at capture
// time t0 (the Timestamp that was recorded then, MinTime if the clock
// was not valid yet), re-basing it against the clock's current
// reference if it was still pending.
func (c *Clock) Resolve(tag PendingTag, capturedAt Timestamp) Timestamp {
	if !tag.pending {
		return capturedAt
	}
	if !c.isValid {
		return MinTime
	}
	delta := int64(c.baseTick - tag.tick)
	return c.baseTime.Add(-delta)
}

// Pending reports whether a tag is still waiting on the clock to
// become valid.
func (tag PendingTag) Pending() bool { return tag.pending }
