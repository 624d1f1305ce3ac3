package invalidation

import (
	"testing"
	"time"
)

func mustTS() time.Time { return time.Date(2025, 10, 26, 12, 30, 45, 0, time.UTC) }

func TestEvent_Validate_HappyPath(t *testing.T) {
	for _, op := range []string{OpUpsert, OpDelete} {
		ev := Event{Version: 1, Op: op, Source: "cities", TS: mustTS(), Seq: 3}
		if err := ev.Validate(); err != nil {
			t.Fatalf("%s: unexpected: %v", op, err)
		}
	}
}

func TestEvent_Validate_Rejects(t *testing.T) {
	cases := map[string]Event{
		"version": {Version: 2, Op: OpUpsert, Source: "cities", TS: mustTS()},
		"op":      {Version: 1, Op: "update", Source: "cities", TS: mustTS()},
		"source":  {Version: 1, Op: OpUpsert, Source: "  ", TS: mustTS()},
		"ts":      {Version: 1, Op: OpDelete, Source: "cities"},
	}
	for name, ev := range cases {
		if err := ev.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDecode_RoundTripTrimsSource(t *testing.T) {
	b := []byte(`{"version":1,"op":"delete","source":" cities ","ts":"2025-10-26T12:30:45Z","seq":9}`)
	ev, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Source != "cities" || ev.Seq != 9 || ev.Op != OpDelete || !ev.TS.Equal(mustTS()) {
		t.Fatalf("unexpected event %+v", ev)
	}

	enc, err := ev.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := Decode(enc)
	if err != nil || back != ev {
		t.Fatalf("re-decode: %+v, %v", back, err)
	}
}

func TestDecode_BadJSON(t *testing.T) {
	if _, err := Decode([]byte(`{"version":`)); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := Decode([]byte(`{"version":1,"op":"upsert"}`)); err == nil {
		t.Fatal("expected validation error")
	}
}
