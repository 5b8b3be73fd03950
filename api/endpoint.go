package api

import (
	"context"
	"fmt"

	"github.com/DE-labtory/cipherbatch"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

func requireCaller(caller cipherbatch.Address) error {
	if caller == cipherbatch.ZeroAddress {
		return errUnauthenticated
	}
	return nil
}

func (e *endpoint) status(ctx context.Context, request interface{}) (interface{}, error) {
	return StatusView{
		Owner:          e.ledger.Owner(),
		Providers:      e.ledger.Providers(),
		Paused:         e.ledger.Paused(),
		Cooldown:       e.ledger.Cooldown().String(),
		CurrentBatchID: e.ledger.CurrentBatchID(),
	}, nil
}

func (e *endpoint) actor(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(addressRequest)
	view := ActorView{
		Address:    req.address,
		IsProvider: e.ledger.IsProvider(req.address),
	}
	if t := e.ledger.LastSubmissionTime(req.address); !t.IsZero() {
		view.LastSubmissionTime = &t
	}
	if t := e.ledger.LastDecryptionRequestTime(req.address); !t.IsZero() {
		view.LastDecryptionRequestTime = &t
	}
	return view, nil
}

func (e *endpoint) putCiphertext(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(PutCiphertextRequest)
	h, err := e.store.Put(req.Ciphertext)
	if err != nil {
		return nil, err
	}
	return PutCiphertextResponse{Handle: h}, nil
}

func (e *endpoint) currentBatch(ctx context.Context, request interface{}) (interface{}, error) {
	return e.batch(ctx, batchRequest{batchID: e.ledger.CurrentBatchID()})
}

func (e *endpoint) batch(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(batchRequest)
	b, ok := e.ledger.Batch(req.batchID)
	if !ok {
		return nil, fmt.Errorf("%w: batch %d", errNotFound, req.batchID)
	}
	return BatchView{ID: b.ID, IsOpen: b.IsOpen, TotalArtists: b.TotalArtists}, nil
}

func (e *endpoint) openBatch(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(callerRequest)
	id, err := e.ledger.OpenBatch(req.caller)
	if err != nil {
		return nil, err
	}
	return OpenBatchResponse{BatchID: id}, nil
}

func (e *endpoint) closeBatch(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(batchRequest)
	if err := requireCaller(req.caller); err != nil {
		return nil, err
	}
	return EmptyResponse{}, e.ledger.CloseBatch(req.caller, req.batchID)
}

func (e *endpoint) commitment(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(batchRequest)
	root, err := e.ledger.BatchCommitment(req.batchID)
	if err != nil {
		return nil, err
	}
	return CommitmentView{BatchID: req.batchID, Root: hexutil.Encode(root)}, nil
}

func (e *endpoint) submitArtist(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(submitArtistRequest)
	artistID, err := e.ledger.SubmitArtist(req.caller, req.batchID, req.handle)
	if err != nil {
		return nil, err
	}
	return SubmitArtistResponse{BatchID: req.batchID, ArtistID: artistID}, nil
}

func (e *endpoint) artist(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(artistRequest)
	slot := e.ledger.Artist(req.batchID, req.artistID)
	if !slot.Exists {
		return nil, fmt.Errorf("%w: artist %d of batch %d", errNotFound, req.artistID, req.batchID)
	}
	return ArtistView{
		BatchID:    req.batchID,
		ArtistID:   req.artistID,
		Potential:  slot.Potential,
		Commitment: cipherbatch.Commitment(slot.Potential).Hex(),
	}, nil
}

func (e *endpoint) artistProof(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(artistRequest)
	proof, err := e.ledger.ArtistProof(req.batchID, req.artistID)
	if err != nil {
		return nil, err
	}
	path := make([]string, 0, len(proof.Path))
	for _, p := range proof.Path {
		path = append(path, hexutil.Encode(p))
	}
	return ProofView{
		BatchID:  req.batchID,
		ArtistID: proof.ArtistID,
		Handle:   proof.Handle,
		Path:     path,
		Index:    proof.Index,
	}, nil
}

func (e *endpoint) requestDecryption(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(batchRequest)
	if err := requireCaller(req.caller); err != nil {
		return nil, err
	}
	id, err := e.ledger.RequestBatchDecryption(req.caller, req.batchID)
	if err != nil {
		return nil, err
	}
	return RequestDecryptionResponse{RequestID: id}, nil
}

func (e *endpoint) decryption(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(decryptionRequest)
	dc, ok := e.ledger.DecryptionContext(req.requestID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", cipherbatch.ErrRequestNotFound, req.requestID)
	}
	return DecryptionView{
		RequestID:  dc.RequestID,
		BatchID:    dc.BatchID,
		StateHash:  dc.StateHash.Hex(),
		Processed:  dc.Processed,
		Cleartexts: dc.Cleartexts,
	}, nil
}

func (e *endpoint) eventsSince(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(eventsRequest)
	events, err := e.events.Since(req.since)
	if err != nil {
		return nil, err
	}
	return EventsResponse{Events: events}, nil
}

func (e *endpoint) transferOwnership(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(addressRequest)
	return EmptyResponse{}, e.ledger.TransferOwnership(req.caller, req.address)
}

func (e *endpoint) addProvider(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(addressRequest)
	return EmptyResponse{}, e.ledger.AddProvider(req.caller, req.address)
}

func (e *endpoint) removeProvider(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(addressRequest)
	return EmptyResponse{}, e.ledger.RemoveProvider(req.caller, req.address)
}

func (e *endpoint) pause(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(callerRequest)
	return EmptyResponse{}, e.ledger.Pause(req.caller)
}

func (e *endpoint) unpause(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(callerRequest)
	return EmptyResponse{}, e.ledger.Unpause(req.caller)
}

func (e *endpoint) setCooldown(ctx context.Context, request interface{}) (interface{}, error) {
	req := request.(cooldownRequest)
	return EmptyResponse{}, e.ledger.SetCooldown(req.caller, req.cooldown)
}
