package cipherbatch

import (
	"github.com/google/uuid"
)

// RequestID correlates a decryption callback with the request that caused it.
type RequestID = uuid.UUID

func ParseRequestID(s string) (RequestID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return RequestID{}, ErrInvalidArgument
	}
	return id, nil
}

// DecryptionRequest is what the ledger hands to the oracle: the ordered
// handles of one batch.
type DecryptionRequest struct {
	ID      RequestID
	Handles []Handle
}

// DecryptionResult is delivered back by the oracle, asynchronously and
// without any guarantee of being honest.
type DecryptionResult struct {
	ID         RequestID
	Cleartexts []byte
	Proof      []byte
}

// Dispatcher starts an asynchronous decryption and must not block on it.
type Dispatcher interface {
	Dispatch(handles []Handle) (RequestID, error)
}

type Verifier interface {
	Verify(id RequestID, cleartexts []byte, proof []byte) bool
}

type ResultSender interface {
	Send(result DecryptionResult)
}

type ResultReceiver interface {
	Receive() <-chan DecryptionResult
}

type ResultChannel struct {
	buffer chan DecryptionResult
}

func NewResultChannel(size int) *ResultChannel {
	return &ResultChannel{
		buffer: make(chan DecryptionResult, size),
	}
}

func (c *ResultChannel) Send(result DecryptionResult) {
	c.buffer <- result
}

func (c *ResultChannel) Receive() <-chan DecryptionResult {
	return c.buffer
}
