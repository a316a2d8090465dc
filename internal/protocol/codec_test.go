package protocol

import "testing"

func TestParseGetFilteredFullReply(t *testing.T) {
	r, err := Parse("OK G1 TDS1 611.2 PH1 6.8 T1 21.4 STATUS 3")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !r.Success || r.Kind != ReplyGetFiltered {
		t.Fatalf("unexpected reply: %+v", r)
	}
	if v, ok := r.Reading(TDS); !ok || v != 611.2 {
		t.Fatalf("TDS reading: %v %v", v, ok)
	}
	if v, ok := r.Reading(PH); !ok || v != 6.8 {
		t.Fatalf("PH reading: %v %v", v, ok)
	}
	if v, ok := r.Reading(Temperature); !ok || v != 21.4 {
		t.Fatalf("Temperature reading: %v %v", v, ok)
	}
	if r.Status == nil || *r.Status != (TDSConnected|PHConnected) {
		t.Fatalf("Status: %+v", r.Status)
	}
}

func TestParsePartialReplyIsValid(t *testing.T) {
	r, err := Parse("OK G1 TDS1 500.0")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := r.Reading(TDS); !ok {
		t.Fatal("expected TDS reading present")
	}
	if _, ok := r.Reading(PH); ok {
		t.Fatal("expected PH reading absent")
	}
	if r.Status != nil {
		t.Fatal("expected Status absent")
	}
}

func TestParseUnknownStatusBitsIsNotAnError(t *testing.T) {
	r, err := Parse("OK G1 STATUS 4294967295")
	if err != nil {
		t.Fatalf("want no error for an out-of-range status word, got %v", err)
	}
	if r.Status != nil {
		t.Fatal("expected Status to be silently absent, not truncated")
	}
}

func TestParseSetValveEchoesState(t *testing.T) {
	r, err := Parse("OK S0 ON")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Kind != ReplySetValve || r.On == nil || !*r.On {
		t.Fatalf("unexpected reply: %+v", r)
	}
}

func TestParseSetValveWithoutEcho(t *testing.T) {
	r, err := Parse("OK S0")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.On != nil {
		t.Fatal("expected On absent when the board doesn't echo")
	}
}

func TestParseErrStatus(t *testing.T) {
	r, err := Parse("ERR S1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Success {
		t.Fatal("expected Success=false for ERR")
	}
}

func TestParseUnknownOpcodeIsNotAnError(t *testing.T) {
	r, err := Parse("OK Q9 whatever")
	if err != nil {
		t.Fatalf("want no error for an unrecognised opcode, got %v", err)
	}
	if r.Kind != ReplyUnknown || r.Raw != "OK Q9 whatever" {
		t.Fatalf("unexpected reply: %+v", r)
	}
}

func TestParseMissingStatusTokenIsAnError(t *testing.T) {
	if _, err := Parse("G1 TDS1 500"); err == nil {
		t.Fatal("expected a ParseError for a missing OK/ERR token")
	}
}

func TestParseUnrecognisedKeyIsAnError(t *testing.T) {
	if _, err := Parse("OK G1 BOGUS 1"); err == nil {
		t.Fatal("expected a ParseError for an unrecognised key")
	}
}

func TestParseBadNumberIsAnError(t *testing.T) {
	if _, err := Parse("OK G1 TDS1 notanumber"); err == nil {
		t.Fatal("expected a ParseError for an unparsable value")
	}
}

func TestParseEmptyLineIsAnError(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Fatal("expected a ParseError for an empty line")
	}
}

// TestRoundTrip covers invariant 1: rendering a command and parsing the
// board's literal echo of it recovers the same actuator state.
func TestRoundTrip(t *testing.T) {
	cmd := ForActuator(Valve, true)
	if cmd.Render() != "S0 ON\n" {
		t.Fatalf("unexpected render: %q", cmd.Render())
	}
	r, err := Parse("OK " + cmd.Render()[:len(cmd.Render())-1])
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.On == nil || *r.On != true {
		t.Fatalf("round trip mismatch: %+v", r)
	}
}

func TestDecodeStatusRejectsUnknownBits(t *testing.T) {
	if _, ok := DecodeStatus(uint32(knownBits) + 1); ok {
		t.Fatal("expected unknown bits to be rejected")
	}
	if s, ok := DecodeStatus(uint32(knownBits)); !ok || s != Status(knownBits) {
		t.Fatalf("expected every known bit to decode cleanly, got %v %v", s, ok)
	}
}
