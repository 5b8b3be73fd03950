package cipherbatch

import (
	"errors"
)

// authorization
var ErrNotOwner = errors.New("caller is not the owner")
var ErrNotProvider = errors.New("caller is not a provider")

// lifecycle
var ErrPaused = errors.New("ledger is paused")
var ErrInvalidBatch = errors.New("invalid batch")

// temporal
var ErrCooldownActive = errors.New("cooldown active")

// protocol integrity
var ErrReplayAttempt = errors.New("replay attempt")
var ErrStateMismatch = errors.New("state mismatch")
var ErrInvalidSignature = errors.New("invalid signature")
var ErrInvalidArgument = errors.New("invalid argument")

var ErrCiphertextNotFound = errors.New("ciphertext not found")
var ErrRequestNotFound = errors.New("decryption request not found")

// IsIntegrityErr reports whether err points at a malicious or malfunctioning
// oracle rather than a routine user mistake.
func IsIntegrityErr(err error) bool {
	return errors.Is(err, ErrReplayAttempt) ||
		errors.Is(err, ErrStateMismatch) ||
		errors.Is(err, ErrInvalidSignature)
}

func IsErrCiphertextNotFound(err error) bool {
	return errors.Is(err, ErrCiphertextNotFound)
}
