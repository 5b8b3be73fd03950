package ledger

import (
	"fmt"
	"time"

	"github.com/DE-labtory/cipherbatch"
	"github.com/DE-labtory/cipherbatch/log"
)

type accessController struct {
	owner     cipherbatch.Address
	providers *cipherbatch.ProviderSet
	paused    bool
}

func newAccessController(owner cipherbatch.Address) *accessController {
	return &accessController{
		owner:     owner,
		providers: cipherbatch.NewProviderSet(),
	}
}

func (a *accessController) onlyOwner(caller cipherbatch.Address) error {
	if caller != a.owner {
		return cipherbatch.ErrNotOwner
	}
	return nil
}

func (a *accessController) onlyProvider(caller cipherbatch.Address) error {
	if !a.providers.Has(caller) {
		return cipherbatch.ErrNotProvider
	}
	return nil
}

func (a *accessController) whenNotPaused() error {
	if a.paused {
		return cipherbatch.ErrPaused
	}
	return nil
}

func (l *Ledger) TransferOwnership(caller, newOwner cipherbatch.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.onlyOwner(caller); err != nil {
		return l.reject("transferOwnership", err)
	}
	if newOwner == cipherbatch.ZeroAddress {
		return l.reject("transferOwnership", fmt.Errorf("%w: zero owner address", cipherbatch.ErrInvalidArgument))
	}

	previous := l.access.owner
	l.access.owner = newOwner
	l.emit(cipherbatch.OwnershipTransferredEventType, cipherbatch.OwnershipTransferredEvent{
		PreviousOwner: previous,
		NewOwner:      newOwner,
	})
	log.Info("msg", "ownership transferred", "previous", previous.Hex(), "owner", newOwner.Hex())
	return nil
}

// AddProvider is idempotent; an event is appended only when the set changes.
func (l *Ledger) AddProvider(caller, provider cipherbatch.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.onlyOwner(caller); err != nil {
		return l.reject("addProvider", err)
	}
	if provider == cipherbatch.ZeroAddress {
		return l.reject("addProvider", fmt.Errorf("%w: zero provider address", cipherbatch.ErrInvalidArgument))
	}

	if l.access.providers.Add(provider) {
		l.emit(cipherbatch.ProviderAddedEventType, cipherbatch.ProviderAddedEvent{Provider: provider})
	}
	return nil
}

// RemoveProvider is idempotent; an event is appended only when the set changes.
func (l *Ledger) RemoveProvider(caller, provider cipherbatch.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.onlyOwner(caller); err != nil {
		return l.reject("removeProvider", err)
	}

	if l.access.providers.Del(provider) {
		l.emit(cipherbatch.ProviderRemovedEventType, cipherbatch.ProviderRemovedEvent{Provider: provider})
	}
	return nil
}

func (l *Ledger) Pause(caller cipherbatch.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.onlyOwner(caller); err != nil {
		return l.reject("pause", err)
	}
	if err := l.access.whenNotPaused(); err != nil {
		return l.reject("pause", err)
	}

	l.access.paused = true
	l.emit(cipherbatch.PausedEventType, cipherbatch.PausedEvent{Account: caller})
	log.Warn("msg", "ledger paused", "by", caller.Hex())
	return nil
}

// Unpause has no already-unpaused guard, unlike Pause.
func (l *Ledger) Unpause(caller cipherbatch.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.onlyOwner(caller); err != nil {
		return l.reject("unpause", err)
	}

	l.access.paused = false
	l.emit(cipherbatch.UnpausedEventType, cipherbatch.UnpausedEvent{Account: caller})
	log.Info("msg", "ledger unpaused", "by", caller.Hex())
	return nil
}

// SetCooldown applies to both submissions and decryption requests. Zero
// disables rate limiting.
func (l *Ledger) SetCooldown(caller cipherbatch.Address, cooldown time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.onlyOwner(caller); err != nil {
		return l.reject("setCooldown", err)
	}
	if cooldown < 0 {
		return l.reject("setCooldown", fmt.Errorf("%w: negative cooldown", cipherbatch.ErrInvalidArgument))
	}

	old := l.limiter.cooldown
	l.limiter.cooldown = cooldown
	l.emit(cipherbatch.CooldownSetEventType, cipherbatch.CooldownSetEvent{
		OldCooldown: old,
		NewCooldown: cooldown,
	})
	return nil
}
