package ledger

import (
	"errors"
	"fmt"

	"github.com/DE-labtory/cipherbatch"
	"github.com/DE-labtory/cipherbatch/log"
)

// ErrHistoryMismatch means a recorded event could not have been produced by
// a ledger in the state rebuilt so far.
var ErrHistoryMismatch = errors.New("event history does not match ledger rules")

// restore rebuilds the ledger from history without appending anything.
// Decryption contexts still pending in history stay pending: the oracle
// which accepted them did not survive the restart.
func (l *Ledger) restore(history []cipherbatch.Event) error {
	var lastSeq uint64
	for _, evt := range history {
		if evt.Seq <= lastSeq {
			return fmt.Errorf("%w: event %d follows event %d", ErrHistoryMismatch, evt.Seq, lastSeq)
		}
		lastSeq = evt.Seq

		if err := l.apply(evt); err != nil {
			return fmt.Errorf("event %d (%s): %w", evt.Seq, evt.Type, err)
		}
	}

	pending := 0
	for _, ctx := range l.contexts {
		if !ctx.Processed {
			pending++
		}
	}
	l.metrics.currentBatchID.Set(float64(l.currentBatchID))
	l.metrics.pendingDecryptions.Set(float64(pending))
	log.Info("msg", "ledger restored", "events", len(history), "currentBatchId", l.currentBatchID, "pendingDecryptions", pending)
	return nil
}

func (l *Ledger) apply(evt cipherbatch.Event) error {
	switch data := evt.Data.(type) {
	case cipherbatch.OwnershipTransferredEvent:
		if data.NewOwner == cipherbatch.ZeroAddress {
			return fmt.Errorf("%w: zero owner", ErrHistoryMismatch)
		}
		l.access.owner = data.NewOwner

	case cipherbatch.ProviderAddedEvent:
		l.access.providers.Add(data.Provider)

	case cipherbatch.ProviderRemovedEvent:
		l.access.providers.Del(data.Provider)

	case cipherbatch.PausedEvent:
		l.access.paused = true

	case cipherbatch.UnpausedEvent:
		l.access.paused = false

	case cipherbatch.CooldownSetEvent:
		l.limiter.cooldown = data.NewCooldown

	case cipherbatch.BatchOpenedEvent:
		if data.BatchID != l.currentBatchID+1 {
			return fmt.Errorf("%w: batch %d opened after batch %d", ErrHistoryMismatch, data.BatchID, l.currentBatchID)
		}
		l.currentBatchID = data.BatchID
		l.batches[data.BatchID] = &Batch{ID: data.BatchID, IsOpen: true}

	case cipherbatch.BatchClosedEvent:
		b, ok := l.batches[data.BatchID]
		if !ok || !b.IsOpen {
			return fmt.Errorf("%w: batch %d is not open", ErrHistoryMismatch, data.BatchID)
		}
		b.IsOpen = false

	case cipherbatch.ArtistSubmittedEvent:
		b, ok := l.batches[data.BatchID]
		if !ok || !b.IsOpen || b.TotalArtists >= BatchLimit {
			return fmt.Errorf("%w: batch %d does not accept artists", ErrHistoryMismatch, data.BatchID)
		}
		if data.ArtistID != b.TotalArtists+1 {
			return fmt.Errorf("%w: artist %d submitted after artist %d", ErrHistoryMismatch, data.ArtistID, b.TotalArtists)
		}
		if data.Potential.IsZero() || cipherbatch.Commitment(data.Potential) != data.Commitment {
			return fmt.Errorf("%w: artist %d handle does not match its commitment", ErrHistoryMismatch, data.ArtistID)
		}
		l.slots[slotKey{batchID: data.BatchID, artistID: data.ArtistID}] = Slot{Potential: data.Potential, Exists: true}
		b.TotalArtists = data.ArtistID
		l.limiter.stamp(submissionAction, data.Provider, evt.Timestamp)

	case cipherbatch.DecryptionRequestedEvent:
		if _, ok := l.contexts[data.RequestID]; ok {
			return fmt.Errorf("%w: duplicate request %s", ErrHistoryMismatch, data.RequestID)
		}
		if _, ok := l.batches[data.BatchID]; !ok {
			return fmt.Errorf("%w: request %s for unknown batch %d", ErrHistoryMismatch, data.RequestID, data.BatchID)
		}
		l.contexts[data.RequestID] = &DecryptionContext{
			RequestID: data.RequestID,
			BatchID:   data.BatchID,
			StateHash: data.StateHash,
		}
		l.limiter.stamp(decryptionRequestAction, data.Requester, evt.Timestamp)

	case cipherbatch.DecryptionCompletedEvent:
		ctx, ok := l.contexts[data.RequestID]
		if !ok || ctx.Processed || ctx.BatchID != data.BatchID {
			return fmt.Errorf("%w: completion of request %s", ErrHistoryMismatch, data.RequestID)
		}
		ctx.Processed = true
		ctx.Cleartexts = append([]uint64(nil), data.Cleartexts...)

	default:
		return fmt.Errorf("%w: unexpected payload %T", ErrHistoryMismatch, evt.Data)
	}
	return nil
}
