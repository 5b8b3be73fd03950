package ledger

import (
	"sync"
	"testing"

	"github.com/DE-labtory/cipherbatch"
)

func TestLedger_OpenBatch(t *testing.T) {
	lt := newLedgerForTest(t)

	_, err := lt.ledger.OpenBatch(stranger)
	assertErr(t, err, cipherbatch.ErrNotOwner)

	id, err := lt.ledger.OpenBatch(owner)
	if err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if id != 2 {
		t.Fatalf("expected batch id is 2, but got %d", id)
	}
	if lt.ledger.CurrentBatchID() != 2 {
		t.Fatalf("expected current batch id is 2, but got %d", lt.ledger.CurrentBatchID())
	}

	// the previous batch stays open
	b, _ := lt.ledger.Batch(1)
	if !b.IsOpen {
		t.Fatalf("batch 1 must stay open")
	}
}

func TestLedger_CloseBatch(t *testing.T) {
	lt := newLedgerForTest(t)

	assertErr(t, lt.ledger.CloseBatch(stranger, 1), cipherbatch.ErrNotOwner)
	assertErr(t, lt.ledger.CloseBatch(owner, 0), cipherbatch.ErrInvalidBatch)
	assertErr(t, lt.ledger.CloseBatch(owner, 2), cipherbatch.ErrInvalidBatch)

	if err := lt.ledger.CloseBatch(owner, 1); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	b, _ := lt.ledger.Batch(1)
	if b.IsOpen {
		t.Fatalf("batch 1 must be closed")
	}
	if lt.lastEvent(t).Data != (cipherbatch.BatchClosedEvent{BatchID: 1}) {
		t.Fatalf("expected batch closed event, but got %+v", lt.lastEvent(t))
	}

	before := len(lt.eventTypes(t))
	assertErr(t, lt.ledger.CloseBatch(owner, 1), cipherbatch.ErrInvalidBatch)
	if len(lt.eventTypes(t)) != before {
		t.Fatalf("failed close must not append events")
	}
}

func TestLedger_SubmitArtist(t *testing.T) {
	lt := newLedgerForTest(t)

	handles := make([]cipherbatch.Handle, 0)
	for i := 0; i < 3; i++ {
		h := lt.seal(t, uint64(i))
		artistID, err := lt.ledger.SubmitArtist(provider, 1, h)
		if err != nil {
			t.Fatalf("unexpected err: %s", err)
		}
		if artistID != uint32(i+1) {
			t.Fatalf("expected artist id is %d, but got %d", i+1, artistID)
		}
		if lt.ledger.LastSubmissionTime(provider) != lt.clock.Now() {
			t.Fatalf("last submission time was not stamped")
		}

		evt := lt.lastEvent(t)
		expected := cipherbatch.ArtistSubmittedEvent{
			Provider:   provider,
			BatchID:    1,
			ArtistID:   artistID,
			Commitment: cipherbatch.Commitment(h),
			Potential:  h,
		}
		if evt.Data != expected {
			t.Fatalf("expected event data is %+v, but got %+v", expected, evt.Data)
		}

		handles = append(handles, h)
		lt.clock.advance(testCooldown)
	}

	b, _ := lt.ledger.Batch(1)
	if b.TotalArtists != 3 {
		t.Fatalf("expected total artists is 3, but got %d", b.TotalArtists)
	}
	for i, h := range handles {
		slot := lt.ledger.Artist(1, uint32(i+1))
		if !slot.Exists || slot.Potential != h {
			t.Fatalf("slot %d holds %+v, expected %s", i+1, slot, h)
		}
	}
	if lt.ledger.Artist(1, 4).Exists {
		t.Fatalf("slot 4 must not exist")
	}
}

func TestLedger_SubmitArtist_rejected(t *testing.T) {
	lt := newLedgerForTest(t)
	h := lt.seal(t, 7)

	_, err := lt.ledger.SubmitArtist(stranger, 1, h)
	assertErr(t, err, cipherbatch.ErrNotProvider)

	_, err = lt.ledger.SubmitArtist(provider, 1, cipherbatch.Handle{})
	assertErr(t, err, cipherbatch.ErrInvalidArgument)

	_, err = lt.ledger.SubmitArtist(provider, 1, cipherbatch.HandleOf([]byte("never stored")))
	assertErr(t, err, cipherbatch.ErrInvalidArgument)

	_, err = lt.ledger.SubmitArtist(provider, 9, h)
	assertErr(t, err, cipherbatch.ErrInvalidBatch)

	if err := lt.ledger.CloseBatch(owner, 1); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	_, err = lt.ledger.SubmitArtist(provider, 1, h)
	assertErr(t, err, cipherbatch.ErrInvalidBatch)

	// a closed or unknown batch is reported before the handle is looked at
	_, err = lt.ledger.SubmitArtist(provider, 1, cipherbatch.HandleOf([]byte("never stored")))
	assertErr(t, err, cipherbatch.ErrInvalidBatch)
	_, err = lt.ledger.SubmitArtist(provider, 1, cipherbatch.Handle{})
	assertErr(t, err, cipherbatch.ErrInvalidBatch)
	_, err = lt.ledger.SubmitArtist(provider, 9, cipherbatch.Handle{})
	assertErr(t, err, cipherbatch.ErrInvalidBatch)

	if _, err := lt.ledger.OpenBatch(owner); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if err := lt.ledger.Pause(owner); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	_, err = lt.ledger.SubmitArtist(provider, 2, h)
	assertErr(t, err, cipherbatch.ErrPaused)

	// none of the failures above may count against the cooldown
	if !lt.ledger.LastSubmissionTime(provider).IsZero() {
		t.Fatalf("failed submissions must not stamp the rate limiter")
	}
	if err := lt.ledger.Unpause(owner); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	if _, err := lt.ledger.SubmitArtist(provider, 2, h); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
}

func TestLedger_SubmitArtist_batchLimit(t *testing.T) {
	lt := newLedgerForTest(t)

	for i := 1; i <= BatchLimit; i++ {
		artistID := lt.submit(t, 1, uint64(i))
		if artistID != uint32(i) {
			t.Fatalf("expected artist id is %d, but got %d", i, artistID)
		}
	}

	before := len(lt.eventTypes(t))
	_, err := lt.ledger.SubmitArtist(provider, 1, lt.seal(t, 101))
	assertErr(t, err, cipherbatch.ErrInvalidBatch)

	b, _ := lt.ledger.Batch(1)
	if b.TotalArtists != BatchLimit {
		t.Fatalf("expected total artists is %d, but got %d", BatchLimit, b.TotalArtists)
	}
	if lt.ledger.Artist(1, BatchLimit+1).Exists {
		t.Fatalf("slot beyond the limit must not exist")
	}
	if len(lt.eventTypes(t)) != before {
		t.Fatalf("rejected submission must not append events")
	}
}

func TestLedger_SubmitArtist_concurrent(t *testing.T) {
	lt := newLedgerForTest(t)
	if err := lt.ledger.SetCooldown(owner, 0); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}

	providers := make([]cipherbatch.Address, 10)
	for i := range providers {
		providers[i] = newDummyAddress(byte(i + 1))
		if err := lt.ledger.AddProvider(owner, providers[i]); err != nil {
			t.Fatalf("unexpected err: %s", err)
		}
	}

	handles := make([][]cipherbatch.Handle, len(providers))
	for i := range providers {
		for j := 0; j < BatchLimit/len(providers); j++ {
			handles[i] = append(handles[i], lt.seal(t, uint64(i*100+j)))
		}
	}

	var (
		wg   sync.WaitGroup
		lock sync.Mutex
		ids  = make(map[uint32]bool)
	)
	for i := range providers {
		wg.Add(1)
		go func(p cipherbatch.Address, hs []cipherbatch.Handle) {
			defer wg.Done()
			for _, h := range hs {
				artistID, err := lt.ledger.SubmitArtist(p, 1, h)
				if err != nil {
					t.Errorf("unexpected err: %s", err)
					return
				}
				lock.Lock()
				ids[artistID] = true
				lock.Unlock()
			}
		}(providers[i], handles[i])
	}
	wg.Wait()

	if len(ids) != BatchLimit {
		t.Fatalf("expected %d distinct artist ids, but got %d", BatchLimit, len(ids))
	}
	for i := uint32(1); i <= BatchLimit; i++ {
		if !ids[i] {
			t.Fatalf("artist id %d was never assigned", i)
		}
	}
}
