package clock

import "testing"

func TestParseTimestampValid(t *testing.T) {
	cases := []string{
		"2023-01-01T00:00:00.000Z",
		"2023-01-01T00:00:00Z",
		"2023-01-01T00:00:00",
		"2020-10-01T20:53:32.486Z",
	}
	for _, c := range cases {
		if _, err := ParseTimestamp(c); err != nil {
			t.Errorf("ParseTimestamp(%q) unexpected error: %v", c, err)
		}
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	cases := []string{
		"",
		"2023-01-01 00:00:00",
		"2023-13-01T00:00:00Z",
		"2023-01-32T00:00:00Z",
		"2023-01-01T25:00:00Z",
		"not-a-date-at-all-19",
	}
	for _, c := range cases {
		if _, err := ParseTimestamp(c); err == nil {
			t.Errorf("ParseTimestamp(%q) expected error, got none", c)
		}
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	ts, err := ParseTimestamp("2023-02-01T00:00:00.000Z")
	if err != nil {
		t.Fatal(err)
	}
	if got := ts.String(); got != "2023-02-01T00:00:00.000Z" {
		t.Errorf("String() = %q", got)
	}
}

func TestTimestampAddSub(t *testing.T) {
	ts, _ := ParseTimestamp("2023-01-01T00:00:00Z")
	later := ts.Add(3661)
	if later.String() != "2023-01-01T01:01:01.000Z" {
		t.Errorf("Add(3661) = %s", later)
	}
	if got := later.Sub(ts); got != 3661 {
		t.Errorf("Sub = %d, want 3661", got)
	}
	if got := ts.Sub(later); got != -3661 {
		t.Errorf("Sub reversed = %d, want -3661", got)
	}
}

func TestTimestampAddCrossesMonthAndLeapYear(t *testing.T) {
	ts, _ := ParseTimestamp("2024-02-28T23:59:59Z")
	next := ts.Add(2)
	if next.String() != "2024-02-29T00:00:01.000Z" {
		t.Errorf("leap day rollover: got %s", next)
	}

	ts2, _ := ParseTimestamp("2023-02-28T23:59:59Z")
	next2 := ts2.Add(2)
	if next2.String() != "2023-03-01T00:00:01.000Z" {
		t.Errorf("non-leap rollover: got %s", next2)
	}
}

func TestTimestampOrdering(t *testing.T) {
	a, _ := ParseTimestamp("2023-01-01T00:00:00Z")
	b, _ := ParseTimestamp("2023-01-01T00:00:01Z")
	if !a.Before(b) || b.Before(a) {
		t.Error("ordering broken")
	}
	if !b.After(a) {
		t.Error("After broken")
	}
	if !a.Equal(a) {
		t.Error("Equal broken")
	}
}

func TestSubSaturatesToInfinity(t *testing.T) {
	diff := MaxTime.Sub(MinTime)
	if diff != infinityThreshold {
		t.Errorf("Sub should saturate to infinityThreshold, got %d", diff)
	}
}

func TestIsMin(t *testing.T) {
	if !MinTime.IsMin() {
		t.Error("MinTime.IsMin() should be true")
	}
	ts, _ := ParseTimestamp("2023-01-01T00:00:00Z")
	if ts.IsMin() {
		t.Error("non-min timestamp reported as min")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	ts, _ := ParseTimestamp("2023-06-15T12:30:45Z")
	data, err := ts.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	var out Timestamp
	if err := out.UnmarshalJSON(data); err != nil {
		t.Fatal(err)
	}
	if !out.Equal(ts) {
		t.Errorf("round trip mismatch: %s != %s", out, ts)
	}
}
