package amqp

import (
	"encoding/json"
	"time"

	"smartspend/internal/remote"
)

// LedgerEventMessage is the wire form of one ledger change event. It carries
// identity only; consumers fetch the record (or re-list) themselves.
type LedgerEventMessage struct {
	Op        string    `json:"op"`
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage converts a collection event to its wire form.
func NewLedgerEventMessage(ev remote.Event) *LedgerEventMessage {
	return &LedgerEventMessage{
		Op:        string(ev.Op),
		ID:        ev.ID,
		OwnerID:   ev.OwnerID,
		Timestamp: ev.At,
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON parses a message from JSON bytes.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
