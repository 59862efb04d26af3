package store

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/json"
	"strings"
	"time"
)

// Event is one entry in the append-only mutation log. TaskID is nil
// for events that cover the whole list (task.clear, snapshot.restore).
type Event struct {
	ID      string          `json:"id"`
	TS      time.Time       `json:"ts"`
	Type    string          `json:"type"`
	TaskID  *int            `json:"taskId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventLog records mutations. The log is an audit trail: appends are
// part of a mutation's error path, but a logged event is never rolled
// back and the persisted snapshot stays authoritative.
type EventLog interface {
	Append(ev Event) error
	// Tail returns the last limit events, oldest first within the
	// window. limit <= 0 returns everything.
	Tail(limit int) ([]Event, error)
}

func (s Store) logEvent(typ string, taskID *int, payload any) error {
	if s.Events == nil {
		return nil
	}
	var pb json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		pb = b
	}
	id, err := newRandomID("ev")
	if err != nil {
		return err
	}
	return s.Events.Append(Event{
		ID:      id,
		TS:      time.Now().UTC(),
		Type:    typ,
		TaskID:  taskID,
		Payload: pb,
	})
}

// newRandomID returns prefix-<suffix> where suffix is 8 chars of base32
// (lowercase, no padding). 8 chars base32 ~= 40 bits of space.
func newRandomID(prefix string) (string, error) {
	var b [5]byte // 40 bits -> 8 base32 chars
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	suffix := strings.ToLower(enc.EncodeToString(b[:]))
	return prefix + "-" + suffix, nil
}
