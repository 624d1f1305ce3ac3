package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	return m
}

func TestSlogBridge_CarriesContextFields(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "debug", Service: "featureserver"}, &buf)
	log := NewSlog(&zl)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithOperation(ctx, "query")
	ctx = WithSource(ctx, "lakes")
	log.With("component", "router").WarnContext(ctx, "slow source", "ms", 1200, "err", errors.New("boom"))

	m := decodeLine(t, &buf)
	for k, want := range map[string]any{
		"level":      "warn",
		"msg":        "slow source",
		"service":    "featureserver",
		"request_id": "req-1",
		"operation":  "query",
		"source":     "lakes",
		"component":  "router",
		"ms":         1200.0,
		"err":        "boom",
	} {
		if m[k] != want {
			t.Fatalf("%s=%v want %v (line %v)", k, m[k], want, m)
		}
	}
	if _, ok := m["timestamp"]; !ok {
		t.Fatal("missing timestamp")
	}
}

func TestSlogBridge_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "warn"}, &buf)
	log := NewSlog(&zl)

	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	if log.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled")
	}
	log.Error("shown")
	if decodeLine(t, &buf)["msg"] != "shown" {
		t.Fatalf("unexpected line %q", buf.String())
	}
}

func TestSlogBridge_Groups(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{}, &buf)
	NewSlog(&zl).WithGroup("http").Info("done", "status", 200)

	if got := decodeLine(t, &buf)["http.status"]; got != 200.0 {
		t.Fatalf("http.status=%v", got)
	}
}

func TestWithRequestID_GeneratesUUID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if _, err := uuid.Parse(RequestID(ctx)); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", RequestID(ctx), err)
	}
}
