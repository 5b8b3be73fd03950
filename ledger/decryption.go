package ledger

import (
	"fmt"
	"strconv"

	"github.com/DE-labtory/cipherbatch"
	"github.com/DE-labtory/cipherbatch/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// integrity failure reasons, used for alerts and metric labels
const (
	reasonReplay           = "replay"
	reasonStateMismatch    = "state_mismatch"
	reasonInvalidSignature = "invalid_signature"
	reasonMalformedPayload = "malformed_payload"
)

// collectHandles returns the handles of artist 1..TotalArtists in order.
func (l *Ledger) collectHandles(batchID uint64) ([]cipherbatch.Handle, error) {
	b, ok := l.batches[batchID]
	if !ok || b.TotalArtists == 0 {
		return nil, fmt.Errorf("%w: batch %d has no artists", cipherbatch.ErrInvalidBatch, batchID)
	}

	handles := make([]cipherbatch.Handle, 0, b.TotalArtists)
	for artistID := uint32(1); artistID <= b.TotalArtists; artistID++ {
		slot, ok := l.slots[slotKey{batchID: batchID, artistID: artistID}]
		if !ok || !slot.Exists {
			return nil, fmt.Errorf("%w: batch %d is missing artist %d", cipherbatch.ErrInvalidBatch, batchID, artistID)
		}
		handles = append(handles, slot.Potential)
	}
	return handles, nil
}

// stateHash commits to the exact ordered handle sequence and to this ledger
// instance.
func (l *Ledger) stateHash(handles []cipherbatch.Handle) common.Hash {
	data := make([][]byte, 0, len(handles)+1)
	for i := range handles {
		data = append(data, handles[i][:])
	}
	data = append(data, l.identity.Bytes())
	return crypto.Keccak256Hash(data...)
}

// RequestBatchDecryption commits to the batch's current handles and hands
// them to the oracle. It returns as soon as the oracle accepted the request.
func (l *Ledger) RequestBatchDecryption(caller cipherbatch.Address, batchID uint64) (cipherbatch.RequestID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.access.whenNotPaused(); err != nil {
		return cipherbatch.RequestID{}, l.reject("requestBatchDecryption", err)
	}
	now := l.now()
	if err := l.limiter.check(decryptionRequestAction, caller, now); err != nil {
		return cipherbatch.RequestID{}, l.reject("requestBatchDecryption", err)
	}
	handles, err := l.collectHandles(batchID)
	if err != nil {
		return cipherbatch.RequestID{}, l.reject("requestBatchDecryption", err)
	}
	hash := l.stateHash(handles)

	id, err := l.dispatcher.Dispatch(handles)
	if err != nil {
		return cipherbatch.RequestID{}, l.reject("requestBatchDecryption", fmt.Errorf("dispatch decryption: %w", err))
	}
	if _, ok := l.contexts[id]; ok {
		return cipherbatch.RequestID{}, l.reject("requestBatchDecryption", fmt.Errorf("%w: duplicate request id %s", cipherbatch.ErrInvalidArgument, id))
	}

	l.contexts[id] = &DecryptionContext{
		RequestID: id,
		BatchID:   batchID,
		StateHash: hash,
	}
	l.limiter.stamp(decryptionRequestAction, caller, now)

	l.metrics.decryptionRequests.Inc()
	l.metrics.pendingDecryptions.Inc()
	l.emit(cipherbatch.DecryptionRequestedEventType, cipherbatch.DecryptionRequestedEvent{
		RequestID: id,
		BatchID:   batchID,
		Requester: caller,
		StateHash: hash,
	})
	log.Info("msg", "decryption requested", "requestId", id, "batchId", batchID, "artists", len(handles))
	return id, nil
}

// FulfillDecryption is the oracle callback. Its input is untrusted: the
// request id, the commitment and the proof are all re-validated before any
// state changes.
func (l *Ledger) FulfillDecryption(id cipherbatch.RequestID, cleartexts []byte, proof []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx, ok := l.contexts[id]
	if !ok {
		return l.alert(reasonStateMismatch, id, 0, fmt.Errorf("%w: unknown request %s", cipherbatch.ErrStateMismatch, id))
	}
	if ctx.Processed {
		return l.alert(reasonReplay, id, ctx.BatchID, fmt.Errorf("%w: request %s already processed", cipherbatch.ErrReplayAttempt, id))
	}

	handles, err := l.collectHandles(ctx.BatchID)
	if err != nil {
		return l.alert(reasonStateMismatch, id, ctx.BatchID, fmt.Errorf("%w: %s", cipherbatch.ErrStateMismatch, err))
	}
	if l.stateHash(handles) != ctx.StateHash {
		return l.alert(reasonStateMismatch, id, ctx.BatchID, fmt.Errorf("%w: batch %d changed since request", cipherbatch.ErrStateMismatch, ctx.BatchID))
	}

	if !l.verifier.Verify(id, cleartexts, proof) {
		return l.alert(reasonInvalidSignature, id, ctx.BatchID, cipherbatch.ErrInvalidSignature)
	}

	values, err := cipherbatch.DecodeCleartexts(cleartexts, len(handles))
	if err != nil {
		return l.alert(reasonMalformedPayload, id, ctx.BatchID, err)
	}

	ctx.Processed = true
	ctx.Cleartexts = values

	l.metrics.decryptionsCompleted.Inc()
	l.metrics.pendingDecryptions.Dec()
	l.emit(cipherbatch.DecryptionCompletedEventType, cipherbatch.DecryptionCompletedEvent{
		RequestID:  id,
		BatchID:    ctx.BatchID,
		Cleartexts: append([]uint64(nil), values...),
	})
	log.Info("msg", "decryption completed", "requestId", id, "batchId", ctx.BatchID)
	return nil
}

func (l *Ledger) alert(reason string, id cipherbatch.RequestID, batchID uint64, err error) error {
	l.tracer.Log(
		"reason", reason,
		"requestId", id.String(),
		"batchId", strconv.FormatUint(batchID, 10),
		"err", err.Error(),
	)
	l.metrics.integrityFailures.WithLabelValues(reason).Inc()
	log.Warn("msg", "decryption callback rejected", "reason", reason, "requestId", id, "err", err)
	return err
}

// reject counts routine failures of user facing operations.
func (l *Ledger) reject(operation string, err error) error {
	l.metrics.rejections.WithLabelValues(operation, errorLabel(err)).Inc()
	log.Debug("msg", "operation rejected", "op", operation, "err", err)
	return err
}
