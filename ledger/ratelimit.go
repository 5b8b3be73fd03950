package ledger

import (
	"time"

	"github.com/DE-labtory/cipherbatch"
)

type action int

const (
	submissionAction action = iota
	decryptionRequestAction
)

func (a action) String() string {
	switch a {
	case submissionAction:
		return "submission"
	case decryptionRequestAction:
		return "decryptionRequest"
	default:
		return "unknown"
	}
}

// rateLimiter tracks the last successful action per actor, independently
// for each action kind.
type rateLimiter struct {
	cooldown time.Duration
	last     map[action]map[cipherbatch.Address]time.Time
}

func newRateLimiter(cooldown time.Duration) *rateLimiter {
	return &rateLimiter{
		cooldown: cooldown,
		last: map[action]map[cipherbatch.Address]time.Time{
			submissionAction:        make(map[cipherbatch.Address]time.Time),
			decryptionRequestAction: make(map[cipherbatch.Address]time.Time),
		},
	}
}

func (r *rateLimiter) check(a action, actor cipherbatch.Address, now time.Time) error {
	last, ok := r.last[a][actor]
	if !ok {
		return nil
	}
	if now.Sub(last) < r.cooldown {
		return cipherbatch.ErrCooldownActive
	}
	return nil
}

// stamp must be the last step of an operation that fully succeeded.
func (r *rateLimiter) stamp(a action, actor cipherbatch.Address, now time.Time) {
	r.last[a][actor] = now
}

func (r *rateLimiter) lastActionTime(a action, actor cipherbatch.Address) time.Time {
	return r.last[a][actor]
}
