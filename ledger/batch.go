package ledger

import (
	"fmt"

	"github.com/DE-labtory/cipherbatch"
	"github.com/DE-labtory/cipherbatch/log"
)

// openBatch assigns the next batch id and opens it. Ids are never reused.
func (l *Ledger) openBatch() uint64 {
	l.currentBatchID++
	id := l.currentBatchID
	l.batches[id] = &Batch{ID: id, IsOpen: true}

	l.metrics.currentBatchID.Set(float64(id))
	l.emit(cipherbatch.BatchOpenedEventType, cipherbatch.BatchOpenedEvent{BatchID: id})
	log.Info("msg", "batch opened", "batchId", id)
	return id
}

func (l *Ledger) OpenBatch(caller cipherbatch.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.onlyOwner(caller); err != nil {
		return 0, l.reject("openBatch", err)
	}
	return l.openBatch(), nil
}

func (l *Ledger) CloseBatch(caller cipherbatch.Address, batchID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.onlyOwner(caller); err != nil {
		return l.reject("closeBatch", err)
	}
	b, ok := l.batches[batchID]
	if !ok || batchID > l.currentBatchID {
		return l.reject("closeBatch", fmt.Errorf("%w: batch %d does not exist", cipherbatch.ErrInvalidBatch, batchID))
	}
	if !b.IsOpen {
		return l.reject("closeBatch", fmt.Errorf("%w: batch %d already closed", cipherbatch.ErrInvalidBatch, batchID))
	}

	b.IsOpen = false
	l.emit(cipherbatch.BatchClosedEventType, cipherbatch.BatchClosedEvent{BatchID: batchID})
	log.Info("msg", "batch closed", "batchId", batchID, "artists", b.TotalArtists)
	return nil
}

// SubmitArtist stores an encrypted potential in the next free slot of an
// open batch and returns the assigned artist id.
func (l *Ledger) SubmitArtist(caller cipherbatch.Address, batchID uint64, potential cipherbatch.Handle) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.onlyProvider(caller); err != nil {
		return 0, l.reject("submitArtist", err)
	}
	if err := l.access.whenNotPaused(); err != nil {
		return 0, l.reject("submitArtist", err)
	}
	now := l.now()
	if err := l.limiter.check(submissionAction, caller, now); err != nil {
		return 0, l.reject("submitArtist", err)
	}
	b, ok := l.batches[batchID]
	if !ok || !b.IsOpen {
		return 0, l.reject("submitArtist", fmt.Errorf("%w: batch %d is not open", cipherbatch.ErrInvalidBatch, batchID))
	}
	if b.TotalArtists >= BatchLimit {
		return 0, l.reject("submitArtist", fmt.Errorf("%w: batch %d is full", cipherbatch.ErrInvalidBatch, batchID))
	}
	if potential.IsZero() {
		return 0, l.reject("submitArtist", fmt.Errorf("%w: zero handle", cipherbatch.ErrInvalidArgument))
	}
	if !l.store.Has(potential) {
		return 0, l.reject("submitArtist", fmt.Errorf("%w: unknown handle %s", cipherbatch.ErrInvalidArgument, potential))
	}

	artistID := b.TotalArtists + 1
	l.slots[slotKey{batchID: batchID, artistID: artistID}] = Slot{Potential: potential, Exists: true}
	b.TotalArtists = artistID
	l.limiter.stamp(submissionAction, caller, now)

	l.metrics.artistsSubmitted.Inc()
	l.emit(cipherbatch.ArtistSubmittedEventType, cipherbatch.ArtistSubmittedEvent{
		Provider:   caller,
		BatchID:    batchID,
		ArtistID:   artistID,
		Commitment: cipherbatch.Commitment(potential),
		Potential:  potential,
	})
	log.Debug("msg", "artist submitted", "batchId", batchID, "artistId", artistID, "provider", caller.Hex())
	return artistID, nil
}
