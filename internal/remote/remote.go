// Package remote defines the contract with the remote expense collection.
//
// The collection stores loosely shaped documents: the date field may be a
// structured timestamp, raw epoch seconds, an ISO-like string or a native
// time value, and the amount may be any numeric form. The single normalize
// boundary in internal/ledger absorbs all of those variants; adapters in the
// subpackages only move bytes.
package remote

import (
	"context"
	"time"
)

// Record is the wire shape of one expense document. Amount, Date and the
// audit fields stay untyped on purpose; see the package comment.
type Record struct {
	ID          string
	OwnerID     string
	Description string
	Amount      any
	Category    string
	Date        any
	CreatedAt   any
	UpdatedAt   any
}

// Timestamp is the structured timestamp form used by the collection wire
// format, carrying raw epoch seconds.
type Timestamp struct {
	Seconds int64
}

// Time converts the timestamp to a native time value.
func (t Timestamp) Time() time.Time { return time.Unix(t.Seconds, 0) }

// TimestampOf builds the wire timestamp for a native time value.
func TimestampOf(t time.Time) Timestamp { return Timestamp{Seconds: t.Unix()} }

// Op identifies the kind of change behind an Event.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event signals that a record owned by OwnerID changed. Consumers re-list the
// collection rather than patching; events carry no payload beyond identity.
type Event struct {
	Op      Op
	ID      string
	OwnerID string
	At      time.Time
}

// Collection is the port every remote backend implements.
//
// List filters by owner equality only; any ordering a backend happens to
// return is opportunistic and never part of the contract. Watch registers a
// change feed for one owner; the cancel func releases it. Event delivery may
// coalesce under load since consumers always re-list.
type Collection interface {
	List(ctx context.Context, ownerID string) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Insert(ctx context.Context, rec Record) (string, error)
	Update(ctx context.Context, id string, rec Record) error
	Delete(ctx context.Context, id string) error
	Watch(ownerID string) (<-chan Event, func())
}

// EventPublisher fans ledger change events out to other processes. The sqlite
// backend publishes through it after each committed write; a nil publisher
// disables fanout.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev Event) error
}
