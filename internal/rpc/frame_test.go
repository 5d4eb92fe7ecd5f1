package rpc

import (
	"encoding/json"
	"testing"
)

func TestParseFrameCall(t *testing.T) {
	data := []byte(`[2,"uid-1","Heartbeat",{}]`)
	f, err := ParseFrame(data)
	if err != nil {
		t.Fatal(err)
	}
	if f.Type != TypeCall || f.UniqueID != "uid-1" || f.Action != "Heartbeat" {
		t.Errorf("unexpected frame: %+v", f)
	}
}

func TestParseFrameCallResult(t *testing.T) {
	data := []byte(`[3,"uid-1",{"status":"Accepted"}]`)
	f, err := ParseFrame(data)
	if err != nil {
		t.Fatal(err)
	}
	if f.Type != TypeCallResult {
		t.Errorf("expected CALLRESULT, got %v", f.Type)
	}
	var body struct{ Status string }
	if err := json.Unmarshal(f.Payload, &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "Accepted" {
		t.Errorf("unexpected payload: %s", f.Payload)
	}
}

func TestParseFrameCallError(t *testing.T) {
	data := []byte(`[4,"uid-1","NotImplemented","no handler",{}]`)
	f, err := ParseFrame(data)
	if err != nil {
		t.Fatal(err)
	}
	if f.Type != TypeCallError || f.ErrorCode != "NotImplemented" || f.ErrorDesc != "no handler" {
		t.Errorf("unexpected frame: %+v", f)
	}
}

func TestParseFrameRejectsMalformed(t *testing.T) {
	cases := []string{
		`not json`,
		`[]`,
		`["2","uid","Action",{}]`,
		`[2,"uid"]`,
		`[9,"uid","x"]`,
	}
	for _, c := range cases {
		if _, err := ParseFrame([]byte(c)); err == nil {
			t.Errorf("expected an error parsing %q", c)
		}
	}
}

func TestEncodeCallRoundTrips(t *testing.T) {
	type payload struct {
		ChargePointVendor string `json:"chargePointVendor"`
	}
	data, err := EncodeCall("uid-2", "BootNotification", payload{ChargePointVendor: "Acme"})
	if err != nil {
		t.Fatal(err)
	}
	f, err := ParseFrame(data)
	if err != nil {
		t.Fatal(err)
	}
	if f.Action != "BootNotification" || f.UniqueID != "uid-2" {
		t.Errorf("unexpected round trip: %+v", f)
	}
}

func TestEncodeCallErrorCarriesDetails(t *testing.T) {
	data, err := EncodeCallError("uid-3", FormationViolation("missing field"))
	if err != nil {
		t.Fatal(err)
	}
	f, err := ParseFrame(data)
	if err != nil {
		t.Fatal(err)
	}
	if f.ErrorCode != ErrFormationViolation || f.ErrorDesc != "missing field" {
		t.Errorf("unexpected error frame: %+v", f)
	}
}
