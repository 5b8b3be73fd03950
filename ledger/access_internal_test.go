package ledger

import (
	"testing"
	"time"

	"github.com/DE-labtory/cipherbatch"
)

func TestLedger_Pause(t *testing.T) {
	lt := newLedgerForTest(t)

	assertErr(t, lt.ledger.Pause(stranger), cipherbatch.ErrNotOwner)
	if lt.ledger.Paused() {
		t.Fatalf("failed pause must not change state")
	}

	if err := lt.ledger.Pause(owner); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if !lt.ledger.Paused() {
		t.Fatalf("ledger must be paused")
	}
	if lt.lastEvent(t).Data != (cipherbatch.PausedEvent{Account: owner}) {
		t.Fatalf("expected paused event, but got %+v", lt.lastEvent(t))
	}

	assertErr(t, lt.ledger.Pause(owner), cipherbatch.ErrPaused)
}

func TestLedger_Unpause(t *testing.T) {
	lt := newLedgerForTest(t)

	assertErr(t, lt.ledger.Unpause(stranger), cipherbatch.ErrNotOwner)

	// no already-unpaused guard
	if err := lt.ledger.Unpause(owner); err != nil {
		t.Fatalf("unpause of running ledger must succeed, but got %s", err)
	}

	if err := lt.ledger.Pause(owner); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if err := lt.ledger.Unpause(owner); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if lt.ledger.Paused() {
		t.Fatalf("ledger must not be paused")
	}
	if lt.lastEvent(t).Type != cipherbatch.UnpausedEventType {
		t.Fatalf("expected unpaused event, but got %s", lt.lastEvent(t).Type)
	}
}

func TestLedger_TransferOwnership(t *testing.T) {
	lt := newLedgerForTest(t)

	assertErr(t, lt.ledger.TransferOwnership(stranger, stranger), cipherbatch.ErrNotOwner)
	assertErr(t, lt.ledger.TransferOwnership(owner, cipherbatch.ZeroAddress), cipherbatch.ErrInvalidArgument)

	if err := lt.ledger.TransferOwnership(owner, stranger); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if lt.ledger.Owner() != stranger {
		t.Fatalf("expected owner is %s, but got %s", stranger.Hex(), lt.ledger.Owner().Hex())
	}
	expected := cipherbatch.OwnershipTransferredEvent{PreviousOwner: owner, NewOwner: stranger}
	if lt.lastEvent(t).Data != expected {
		t.Fatalf("expected event data is %+v, but got %+v", expected, lt.lastEvent(t).Data)
	}

	assertErr(t, lt.ledger.Pause(owner), cipherbatch.ErrNotOwner)
	if err := lt.ledger.Pause(stranger); err != nil {
		t.Fatalf("new owner must be able to pause, but got %s", err)
	}
}

func TestLedger_AddProvider(t *testing.T) {
	lt := newLedgerForTest(t)

	assertErr(t, lt.ledger.AddProvider(stranger, stranger), cipherbatch.ErrNotOwner)
	assertErr(t, lt.ledger.AddProvider(owner, cipherbatch.ZeroAddress), cipherbatch.ErrInvalidArgument)

	before := len(lt.eventTypes(t))
	if err := lt.ledger.AddProvider(owner, stranger); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if !lt.ledger.IsProvider(stranger) {
		t.Fatalf("provider was not added")
	}
	if err := lt.ledger.AddProvider(owner, stranger); err != nil {
		t.Fatalf("re-adding provider must not fail, but got %s", err)
	}
	if len(lt.eventTypes(t)) != before+1 {
		t.Fatalf("expected exactly one provider added event, but got %d", len(lt.eventTypes(t))-before)
	}
	if len(lt.ledger.Providers()) != 2 {
		t.Fatalf("expected provider size is 2, but got %d", len(lt.ledger.Providers()))
	}
}

func TestLedger_RemoveProvider(t *testing.T) {
	lt := newLedgerForTest(t)

	assertErr(t, lt.ledger.RemoveProvider(stranger, provider), cipherbatch.ErrNotOwner)

	before := len(lt.eventTypes(t))
	if err := lt.ledger.RemoveProvider(owner, provider); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if lt.ledger.IsProvider(provider) {
		t.Fatalf("provider was not removed")
	}
	if err := lt.ledger.RemoveProvider(owner, provider); err != nil {
		t.Fatalf("double remove must not fail, but got %s", err)
	}
	if len(lt.eventTypes(t)) != before+1 {
		t.Fatalf("expected exactly one provider removed event, but got %d", len(lt.eventTypes(t))-before)
	}

	_, err := lt.ledger.SubmitArtist(provider, 1, lt.seal(t, 1))
	assertErr(t, err, cipherbatch.ErrNotProvider)
}

func TestLedger_SetCooldown(t *testing.T) {
	lt := newLedgerForTest(t)

	assertErr(t, lt.ledger.SetCooldown(stranger, time.Second), cipherbatch.ErrNotOwner)
	assertErr(t, lt.ledger.SetCooldown(owner, -time.Second), cipherbatch.ErrInvalidArgument)

	if err := lt.ledger.SetCooldown(owner, time.Hour); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	expected := cipherbatch.CooldownSetEvent{OldCooldown: testCooldown, NewCooldown: time.Hour}
	if lt.lastEvent(t).Data != expected {
		t.Fatalf("expected event data is %+v, but got %+v", expected, lt.lastEvent(t).Data)
	}
	if lt.ledger.Cooldown() != time.Hour {
		t.Fatalf("expected cooldown is %s, but got %s", time.Hour, lt.ledger.Cooldown())
	}
}
