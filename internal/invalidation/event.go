// Package invalidation defines the source change events published on the
// invalidation topic.
package invalidation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// Event announces that a source document changed. Seq orders events for the
// same source; zero means unordered and is always applied.
type Event struct {
	Version int       `json:"version"`
	Op      string    `json:"op"`
	Source  string    `json:"source"`
	TS      time.Time `json:"ts"`
	Seq     uint64    `json:"seq,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return errors.New("version must be 1")
	}
	switch e.Op {
	case OpUpsert, OpDelete:
	default:
		return fmt.Errorf("op must be %s|%s, got %q", OpUpsert, OpDelete, e.Op)
	}
	if strings.TrimSpace(e.Source) == "" {
		return errors.New("source is required")
	}
	if e.TS.IsZero() {
		return errors.New("ts is required")
	}
	return nil
}

// Decode parses and validates a wire event.
func Decode(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("json decode: %w", err)
	}
	ev.Source = strings.TrimSpace(ev.Source)
	if err := ev.Validate(); err != nil {
		return Event{}, fmt.Errorf("invalid event: %w", err)
	}
	return ev, nil
}

// Encode is used by publishers and tests.
func (e Event) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return b, nil
}
