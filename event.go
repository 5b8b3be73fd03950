package cipherbatch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type EventType string

const (
	OwnershipTransferredEventType EventType = "ownership.transferred"
	ProviderAddedEventType        EventType = "provider.added"
	ProviderRemovedEventType      EventType = "provider.removed"
	PausedEventType               EventType = "ledger.paused"
	UnpausedEventType             EventType = "ledger.unpaused"
	CooldownSetEventType          EventType = "ledger.cooldown_set"
	BatchOpenedEventType          EventType = "batch.opened"
	BatchClosedEventType          EventType = "batch.closed"
	ArtistSubmittedEventType      EventType = "artist.submitted"
	DecryptionRequestedEventType  EventType = "decryption.requested"
	DecryptionCompletedEventType  EventType = "decryption.completed"
)

type OwnershipTransferredEvent struct {
	PreviousOwner Address `json:"previousOwner"`
	NewOwner      Address `json:"newOwner"`
}

type ProviderAddedEvent struct {
	Provider Address `json:"provider"`
}

type ProviderRemovedEvent struct {
	Provider Address `json:"provider"`
}

type PausedEvent struct {
	Account Address `json:"account"`
}

type UnpausedEvent struct {
	Account Address `json:"account"`
}

type CooldownSetEvent struct {
	OldCooldown time.Duration `json:"oldCooldown"`
	NewCooldown time.Duration `json:"newCooldown"`
}

type BatchOpenedEvent struct {
	BatchID uint64 `json:"batchId"`
}

type BatchClosedEvent struct {
	BatchID uint64 `json:"batchId"`
}

// ArtistSubmittedEvent carries the opaque handle next to its commitment so
// the slot can be restored from the log; the ciphertext itself stays in the
// store.
type ArtistSubmittedEvent struct {
	Provider   Address     `json:"provider"`
	BatchID    uint64      `json:"batchId"`
	ArtistID   uint32      `json:"artistId"`
	Commitment common.Hash `json:"commitment"`
	Potential  Handle      `json:"potential"`
}

type DecryptionRequestedEvent struct {
	RequestID RequestID   `json:"requestId"`
	BatchID   uint64      `json:"batchId"`
	Requester Address     `json:"requester"`
	StateHash common.Hash `json:"stateHash"`
}

type DecryptionCompletedEvent struct {
	RequestID  RequestID `json:"requestId"`
	BatchID    uint64    `json:"batchId"`
	Cleartexts []uint64  `json:"cleartexts"`
}

var eventPayloads = map[EventType]func() interface{}{
	OwnershipTransferredEventType: func() interface{} { return &OwnershipTransferredEvent{} },
	ProviderAddedEventType:        func() interface{} { return &ProviderAddedEvent{} },
	ProviderRemovedEventType:      func() interface{} { return &ProviderRemovedEvent{} },
	PausedEventType:               func() interface{} { return &PausedEvent{} },
	UnpausedEventType:             func() interface{} { return &UnpausedEvent{} },
	CooldownSetEventType:          func() interface{} { return &CooldownSetEvent{} },
	BatchOpenedEventType:          func() interface{} { return &BatchOpenedEvent{} },
	BatchClosedEventType:          func() interface{} { return &BatchClosedEvent{} },
	ArtistSubmittedEventType:      func() interface{} { return &ArtistSubmittedEvent{} },
	DecryptionRequestedEventType:  func() interface{} { return &DecryptionRequestedEvent{} },
	DecryptionCompletedEventType:  func() interface{} { return &DecryptionCompletedEvent{} },
}

// Event is one entry of the append-only log. Seq starts at 1.
type Event struct {
	Seq       uint64      `json:"seq"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType EventType, data interface{}) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// UnmarshalJSON restores Data as the value payload type registered for Type.
func (e *Event) UnmarshalJSON(b []byte) error {
	var raw struct {
		Seq       uint64          `json:"seq"`
		Type      EventType       `json:"type"`
		Timestamp time.Time       `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	newPayload, ok := eventPayloads[raw.Type]
	if !ok {
		return fmt.Errorf("unknown event type: %s", raw.Type)
	}
	payload := newPayload()
	if err := json.Unmarshal(raw.Data, payload); err != nil {
		return fmt.Errorf("decode %s payload: %s", raw.Type, err)
	}

	e.Seq = raw.Seq
	e.Type = raw.Type
	e.Timestamp = raw.Timestamp
	e.Data = derefPayload(payload)
	return nil
}

func derefPayload(payload interface{}) interface{} {
	switch p := payload.(type) {
	case *OwnershipTransferredEvent:
		return *p
	case *ProviderAddedEvent:
		return *p
	case *ProviderRemovedEvent:
		return *p
	case *PausedEvent:
		return *p
	case *UnpausedEvent:
		return *p
	case *CooldownSetEvent:
		return *p
	case *BatchOpenedEvent:
		return *p
	case *BatchClosedEvent:
		return *p
	case *ArtistSubmittedEvent:
		return *p
	case *DecryptionRequestedEvent:
		return *p
	case *DecryptionCompletedEvent:
		return *p
	default:
		return payload
	}
}

// EventLog records every successful state transition of the ledger.
// Append never fails: a ledger operation which already committed its state
// change must be able to publish it.
type EventLog interface {
	Append(eventType EventType, data interface{}) Event
	Since(seq uint64) ([]Event, error)
}
