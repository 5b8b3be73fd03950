package ledger

import (
	"reflect"
	"testing"

	"github.com/DE-labtory/cipherbatch"
)

func TestScenario_DecryptThreeArtists(t *testing.T) {
	lt := newLedgerForTest(t)
	values := []uint64{100, 250, 75}

	for i, v := range values {
		if artistID := lt.submit(t, 1, v); artistID != uint32(i+1) {
			t.Fatalf("expected artist id is %d, but got %d", i+1, artistID)
		}
	}
	if err := lt.ledger.CloseBatch(owner, 1); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}

	id, err := lt.ledger.RequestBatchDecryption(stranger, 1)
	if err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if err := lt.ledger.FulfillDecryption(id, lt.answer(t, lt.dispatcher.Last()), validProof); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}

	ctx, _ := lt.ledger.DecryptionContext(id)
	if !reflect.DeepEqual(ctx.Cleartexts, values) {
		t.Fatalf("expected cleartexts are %v, but got %v", values, ctx.Cleartexts)
	}

	expected := []cipherbatch.EventType{
		cipherbatch.OwnershipTransferredEventType,
		cipherbatch.ProviderAddedEventType,
		cipherbatch.BatchOpenedEventType,
		cipherbatch.ArtistSubmittedEventType,
		cipherbatch.ArtistSubmittedEventType,
		cipherbatch.ArtistSubmittedEventType,
		cipherbatch.BatchClosedEventType,
		cipherbatch.DecryptionRequestedEventType,
		cipherbatch.DecryptionCompletedEventType,
	}
	if !reflect.DeepEqual(expected, lt.eventTypes(t)) {
		t.Fatalf("expected events are %v, but got %v", expected, lt.eventTypes(t))
	}
}

func TestScenario_PauseBlocksProviders(t *testing.T) {
	lt := newLedgerForTest(t)
	lt.submit(t, 1, 1)

	assertErr(t, lt.ledger.Pause(provider), cipherbatch.ErrNotOwner)
	if err := lt.ledger.Pause(owner); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}

	_, err := lt.ledger.SubmitArtist(provider, 1, lt.seal(t, 2))
	assertErr(t, err, cipherbatch.ErrPaused)
	_, err = lt.ledger.RequestBatchDecryption(provider, 1)
	assertErr(t, err, cipherbatch.ErrPaused)

	// owner operations stay available while paused
	if err := lt.ledger.CloseBatch(owner, 1); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if err := lt.ledger.Unpause(owner); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if _, err := lt.ledger.RequestBatchDecryption(provider, 1); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
}

func TestScenario_CallbackAfterPause(t *testing.T) {
	lt := newLedgerForTest(t)
	lt.submit(t, 1, 8)
	id, _ := lt.ledger.RequestBatchDecryption(provider, 1)

	if err := lt.ledger.Pause(owner); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	// pending oracle work is still delivered
	if err := lt.ledger.FulfillDecryption(id, lt.answer(t, lt.dispatcher.Last()), validProof); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
}
