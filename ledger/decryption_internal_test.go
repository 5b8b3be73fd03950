package ledger

import (
	"errors"
	"reflect"
	"testing"

	"github.com/DE-labtory/cipherbatch"
	"github.com/DE-labtory/cipherbatch/test/mock"
)

func TestLedger_RequestBatchDecryption(t *testing.T) {
	lt := newLedgerForTest(t)

	_, err := lt.ledger.RequestBatchDecryption(stranger, 1)
	assertErr(t, err, cipherbatch.ErrInvalidBatch)
	_, err = lt.ledger.RequestBatchDecryption(stranger, 5)
	assertErr(t, err, cipherbatch.ErrInvalidBatch)
	if len(lt.dispatcher.Requests) != 0 {
		t.Fatalf("empty batch must not be dispatched")
	}

	values := []uint64{10, 20, 30}
	for _, v := range values {
		lt.submit(t, 1, v)
	}

	id, err := lt.ledger.RequestBatchDecryption(stranger, 1)
	if err != nil {
		t.Fatalf("unexpected err: %s", err)
	}

	req := lt.dispatcher.Last()
	if req.ID != id {
		t.Fatalf("expected request id is %s, but got %s", id, req.ID)
	}
	for i := range values {
		if req.Handles[i] != lt.ledger.Artist(1, uint32(i+1)).Potential {
			t.Fatalf("handle %d was dispatched out of order", i)
		}
	}

	ctx, ok := lt.ledger.DecryptionContext(id)
	if !ok {
		t.Fatalf("decryption context was not stored")
	}
	if ctx.BatchID != 1 || ctx.Processed {
		t.Fatalf("unexpected decryption context %+v", ctx)
	}
	if ctx.StateHash != lt.ledger.stateHash(req.Handles) {
		t.Fatalf("state hash does not commit to the dispatched handles")
	}
	expected := cipherbatch.DecryptionRequestedEvent{
		RequestID: id,
		BatchID:   1,
		Requester: stranger,
		StateHash: ctx.StateHash,
	}
	if lt.lastEvent(t).Data != expected {
		t.Fatalf("expected event data is %+v, but got %+v", expected, lt.lastEvent(t).Data)
	}
	if lt.ledger.LastDecryptionRequestTime(stranger) != lt.clock.Now() {
		t.Fatalf("last decryption request time was not stamped")
	}
}

func TestLedger_RequestBatchDecryption_paused(t *testing.T) {
	lt := newLedgerForTest(t)
	lt.submit(t, 1, 1)

	if err := lt.ledger.Pause(owner); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	_, err := lt.ledger.RequestBatchDecryption(provider, 1)
	assertErr(t, err, cipherbatch.ErrPaused)
}

func TestLedger_RequestBatchDecryption_dispatchFailure(t *testing.T) {
	lt := newLedgerForTest(t)
	lt.submit(t, 1, 1)

	lt.ledger.dispatcher = &mock.Dispatcher{
		DispatchFunc: func(handles []cipherbatch.Handle) (cipherbatch.RequestID, error) {
			return cipherbatch.RequestID{}, errors.New("oracle unavailable")
		},
	}

	before := len(lt.eventTypes(t))
	if _, err := lt.ledger.RequestBatchDecryption(provider, 1); err == nil {
		t.Fatalf("expected dispatch error")
	}
	if len(lt.ledger.contexts) != 0 {
		t.Fatalf("failed dispatch must not store a context")
	}
	if !lt.ledger.LastDecryptionRequestTime(provider).IsZero() {
		t.Fatalf("failed dispatch must not stamp the rate limiter")
	}
	if len(lt.eventTypes(t)) != before {
		t.Fatalf("failed dispatch must not append events")
	}
}

func TestLedger_FulfillDecryption(t *testing.T) {
	lt := newLedgerForTest(t)

	values := []uint64{42, 0, 1 << 40}
	for _, v := range values {
		lt.submit(t, 1, v)
	}
	id, err := lt.ledger.RequestBatchDecryption(provider, 1)
	if err != nil {
		t.Fatalf("unexpected err: %s", err)
	}

	payload := lt.answer(t, lt.dispatcher.Last())
	if err := lt.ledger.FulfillDecryption(id, payload, validProof); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}

	ctx, _ := lt.ledger.DecryptionContext(id)
	if !ctx.Processed {
		t.Fatalf("context must be processed")
	}
	if !reflect.DeepEqual(ctx.Cleartexts, values) {
		t.Fatalf("expected cleartexts are %v, but got %v", values, ctx.Cleartexts)
	}

	evt := lt.lastEvent(t)
	data, ok := evt.Data.(cipherbatch.DecryptionCompletedEvent)
	if !ok {
		t.Fatalf("expected decryption completed event, but got %s", evt.Type)
	}
	if data.RequestID != id || data.BatchID != 1 || !reflect.DeepEqual(data.Cleartexts, values) {
		t.Fatalf("unexpected event data %+v", data)
	}
	if len(lt.tracer.Alerts()) != 0 {
		t.Fatalf("successful callback must not raise alerts")
	}
}

func TestLedger_FulfillDecryption_replay(t *testing.T) {
	lt := newLedgerForTest(t)
	lt.submit(t, 1, 9)
	id, _ := lt.ledger.RequestBatchDecryption(provider, 1)
	payload := lt.answer(t, lt.dispatcher.Last())

	if err := lt.ledger.FulfillDecryption(id, payload, validProof); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
	ctx, _ := lt.ledger.DecryptionContext(id)
	events := lt.eventTypes(t)

	err := lt.ledger.FulfillDecryption(id, payload, validProof)
	assertErr(t, err, cipherbatch.ErrReplayAttempt)
	if !cipherbatch.IsIntegrityErr(err) {
		t.Fatalf("replay must be an integrity error")
	}

	after, _ := lt.ledger.DecryptionContext(id)
	if !reflect.DeepEqual(ctx, after) {
		t.Fatalf("replay changed the context from %+v to %+v", ctx, after)
	}
	if !reflect.DeepEqual(events, lt.eventTypes(t)) {
		t.Fatalf("replay must not append events")
	}
	if len(lt.tracer.Alerts()) != 1 {
		t.Fatalf("expected one alert, but got %d", len(lt.tracer.Alerts()))
	}
}

func TestLedger_FulfillDecryption_unknownRequest(t *testing.T) {
	lt := newLedgerForTest(t)

	err := lt.ledger.FulfillDecryption(cipherbatch.RequestID{1}, nil, validProof)
	assertErr(t, err, cipherbatch.ErrStateMismatch)
}

func TestLedger_FulfillDecryption_stateMismatch(t *testing.T) {
	lt := newLedgerForTest(t)
	lt.submit(t, 1, 1)
	lt.submit(t, 1, 2)
	id, _ := lt.ledger.RequestBatchDecryption(provider, 1)
	payload := lt.answer(t, lt.dispatcher.Last())

	// swap a stored handle behind the request's back
	key := slotKey{batchID: 1, artistID: 2}
	original := lt.ledger.slots[key]
	lt.ledger.slots[key] = Slot{Potential: lt.seal(t, 3), Exists: true}

	err := lt.ledger.FulfillDecryption(id, payload, validProof)
	assertErr(t, err, cipherbatch.ErrStateMismatch)
	ctx, _ := lt.ledger.DecryptionContext(id)
	if ctx.Processed {
		t.Fatalf("mismatching callback must not process the request")
	}

	// a submission appended after the request changes the commitment too
	lt.ledger.slots[key] = original
	lt.submit(t, 1, 4)
	err = lt.ledger.FulfillDecryption(id, payload, validProof)
	assertErr(t, err, cipherbatch.ErrStateMismatch)

	if len(lt.tracer.Alerts()) != 2 {
		t.Fatalf("expected two alerts, but got %d", len(lt.tracer.Alerts()))
	}
}

func TestLedger_FulfillDecryption_invalidSignature(t *testing.T) {
	lt := newLedgerForTest(t)
	lt.submit(t, 1, 77)
	id, _ := lt.ledger.RequestBatchDecryption(provider, 1)
	payload := lt.answer(t, lt.dispatcher.Last())

	err := lt.ledger.FulfillDecryption(id, payload, []byte("forged"))
	assertErr(t, err, cipherbatch.ErrInvalidSignature)
	ctx, _ := lt.ledger.DecryptionContext(id)
	if ctx.Processed {
		t.Fatalf("forged callback must not process the request")
	}

	// the genuine answer is still accepted afterwards
	if err := lt.ledger.FulfillDecryption(id, payload, validProof); err != nil {
		t.Fatalf("unexpected err: %s", err)
	}
}

func TestLedger_FulfillDecryption_malformedPayload(t *testing.T) {
	lt := newLedgerForTest(t)
	lt.submit(t, 1, 1)
	lt.submit(t, 1, 2)
	id, _ := lt.ledger.RequestBatchDecryption(provider, 1)

	short := cipherbatch.EncodeCleartexts([]uint64{1})
	err := lt.ledger.FulfillDecryption(id, short, validProof)
	assertErr(t, err, cipherbatch.ErrInvalidArgument)

	ctx, _ := lt.ledger.DecryptionContext(id)
	if ctx.Processed {
		t.Fatalf("malformed callback must not process the request")
	}
}

func TestLedger_stateHash_bindsIdentity(t *testing.T) {
	lt := newLedgerForTest(t)
	other := newLedgerForTest(t)
	other.ledger.identity = newDummyAddress(0xef)

	handles := []cipherbatch.Handle{lt.seal(t, 1), lt.seal(t, 2)}
	if lt.ledger.stateHash(handles) == other.ledger.stateHash(handles) {
		t.Fatalf("state hash must differ between ledger instances")
	}

	reordered := []cipherbatch.Handle{handles[1], handles[0]}
	if lt.ledger.stateHash(handles) == lt.ledger.stateHash(reordered) {
		t.Fatalf("state hash must depend on handle order")
	}
}
