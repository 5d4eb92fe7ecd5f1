// Package clock reconstructs wall-clock time from a monotonic tick
// source plus a server-provided reference, the way an unconnected
// charge point has to: there is no RTC battery backup to rely on, only
// whatever time the central system last told it.
package clock

import (
	"fmt"
	"strconv"
)

// daysInMonth is indexed by a zero-based month (January == 0), matching
// the internal representation the original firmware used.
var daysInMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// infinityThreshold is "400 days before the year-2038 problem": scalar
// differences at or beyond this value are reported as effectively
// infinite rather than risking 32-bit overflow.
const infinityThreshold = int64(1<<31-1) - 400*24*3600

// Timestamp is a calendar moment with one-second resolution. Month and
// day are zero-based (January is month 0, the first of the month is
// day 0) to match the wire format's arithmetic, not its printed form.
type Timestamp struct {
	Year   int16
	Month  int16 // 0..11
	Day    int16 // 0..30
	Hour   int32
	Minute int32
	Second int32
}

// MinTime and MaxTime bound the representable range. MinTime is
// reported for "the clock has never been set".
var (
	MinTime = Timestamp{Year: 1970, Month: 0, Day: 0, Hour: 0, Minute: 0, Second: 0}
	MaxTime = Timestamp{Year: 9999, Month: 11, Day: 30, Hour: 23, Minute: 59, Second: 59}
)

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysInMonthOf(year, month int) int {
	if month == 1 && isLeap(year) {
		return 29
	}
	return daysInMonth[month]
}

// ParseTimestamp parses the first 19 characters of an ISO-8601 Zulu
// string of the form "2020-10-01T20:53:32", tolerating an optional
// ".nnn" fractional-seconds suffix and trailing "Z" beyond that point.
// Any deviation in the first 19 characters returns an error and no
// partial state.
func ParseTimestamp(s string) (Timestamp, error) {
	if len(s) < 19 {
		return Timestamp{}, fmt.Errorf("clock: timestamp %q too short", s)
	}
	b := s[:19]
	if b[4] != '-' || b[7] != '-' || b[10] != 'T' || b[13] != ':' || b[16] != ':' {
		return Timestamp{}, fmt.Errorf("clock: timestamp %q has wrong separators", s)
	}

	year, err := strconv.Atoi(b[0:4])
	if err != nil {
		return Timestamp{}, fmt.Errorf("clock: bad year in %q: %w", s, err)
	}
	month, err := strconv.Atoi(b[5:7])
	if err != nil {
		return Timestamp{}, fmt.Errorf("clock: bad month in %q: %w", s, err)
	}
	day, err := strconv.Atoi(b[8:10])
	if err != nil {
		return Timestamp{}, fmt.Errorf("clock: bad day in %q: %w", s, err)
	}
	hour, err := strconv.Atoi(b[11:13])
	if err != nil {
		return Timestamp{}, fmt.Errorf("clock: bad hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(b[14:16])
	if err != nil {
		return Timestamp{}, fmt.Errorf("clock: bad minute in %q: %w", s, err)
	}
	second, err := strconv.Atoi(b[17:19])
	if err != nil {
		return Timestamp{}, fmt.Errorf("clock: bad second in %q: %w", s, err)
	}

	if month < 1 || month > 12 {
		return Timestamp{}, fmt.Errorf("clock: month %d out of range in %q", month, s)
	}
	if day < 1 || day > daysInMonthOf(year, month-1) {
		return Timestamp{}, fmt.Errorf("clock: day %d out of range in %q", day, s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return Timestamp{}, fmt.Errorf("clock: time-of-day out of range in %q", s)
	}

	return Timestamp{
		Year:   int16(year),
		Month:  int16(month - 1),
		Day:    int16(day - 1),
		Hour:   int32(hour),
		Minute: int32(minute),
		Second: int32(second),
	}, nil
}

// String renders the timestamp as a 24-character ISO-8601 Zulu string
// including ".000Z", the form every OCPP 1.6J message expects.
func (t Timestamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.000Z",
		t.Year, t.Month+1, t.Day+1, t.Hour, t.Minute, t.Second)
}

// MarshalJSON renders the timestamp the same way String does, quoted.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted ISO-8601 string.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("clock: timestamp %s is not a JSON string", data)
	}
	parsed, err := ParseTimestamp(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// toDaysAndSeconds converts to days-since-epoch plus seconds-of-day, internally
// used by arithmetic and ordering so every operation shares one
// normalization path.
func (t Timestamp) toDaysAndSeconds() (days int64, secs int64) {
	days = 0
	if t.Year >= 1970 {
		for y := 1970; y < int(t.Year); y++ {
			days += 365
			if isLeap(y) {
				days++
			}
		}
	} else {
		for y := int(t.Year); y < 1970; y++ {
			days -= 365
			if isLeap(y) {
				days--
			}
		}
	}
	for m := 0; m < int(t.Month); m++ {
		days += int64(daysInMonthOf(int(t.Year), m))
	}
	days += int64(t.Day)
	secs = int64(t.Hour)*3600 + int64(t.Minute)*60 + int64(t.Second)
	return days, secs
}

// fromScalar is the inverse of toDaysAndSeconds, used by Add/Sub.
func fromScalar(totalSeconds int64) Timestamp {
	days := totalSeconds / 86400
	rem := totalSeconds % 86400
	if rem < 0 {
		rem += 86400
		days--
	}

	year := 1970
	for {
		length := int64(365)
		if isLeap(year) {
			length = 366
		}
		if days >= 0 && days < length {
			break
		}
		if days < 0 {
			year--
			length = 365
			if isLeap(year) {
				length = 366
			}
			days += length
		} else {
			days -= length
			year++
		}
	}

	month := 0
	for {
		dim := int64(daysInMonthOf(year, month))
		if days < dim {
			break
		}
		days -= dim
		month++
	}

	return Timestamp{
		Year:   int16(year),
		Month:  int16(month),
		Day:    int16(days),
		Hour:   int32(rem / 3600),
		Minute: int32((rem % 3600) / 60),
		Second: int32(rem % 60),
	}
}

// toAbsoluteSeconds returns a seconds count anchored at the 1970-01-01
// epoch, used internally for arithmetic; it is not the OCPP "scalar"
// representation (see ToScalar), which is anchored at MinTime instead.
func (t Timestamp) toAbsoluteSeconds() int64 {
	days, secs := t.toDaysAndSeconds()
	return days*86400 + secs
}

// Add returns t advanced by secs seconds (secs may be negative).
func (t Timestamp) Add(secs int64) Timestamp {
	return fromScalar(t.toAbsoluteSeconds() + secs)
}

// Sub returns t-other in whole seconds, saturating to +/- the
// "infinity" sentinel once the true difference would be within 400
// days of 32-bit overflow.
func (t Timestamp) Sub(other Timestamp) int64 {
	diff := t.toAbsoluteSeconds() - other.toAbsoluteSeconds()
	if diff > infinityThreshold {
		return infinityThreshold
	}
	if diff < -infinityThreshold {
		return -infinityThreshold
	}
	return diff
}

// Before reports whether t occurs strictly before other.
func (t Timestamp) Before(other Timestamp) bool { return t.Sub(other) < 0 }

// After reports whether t occurs strictly after other.
func (t Timestamp) After(other Timestamp) bool { return t.Sub(other) > 0 }

// Equal reports calendar equality.
func (t Timestamp) Equal(other Timestamp) bool { return t.Sub(other) == 0 }

// IsMin reports whether t is the MinTime sentinel, the "never set" marker.
func (t Timestamp) IsMin() bool { return t.Equal(MinTime) }
