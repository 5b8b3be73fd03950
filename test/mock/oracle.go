package mock

import (
	"sync"

	"github.com/DE-labtory/cipherbatch"
	"github.com/google/uuid"
)

type Dispatcher struct {
	DispatchFunc func(handles []cipherbatch.Handle) (cipherbatch.RequestID, error)
}

func (d *Dispatcher) Dispatch(handles []cipherbatch.Handle) (cipherbatch.RequestID, error) {
	return d.DispatchFunc(handles)
}

// RecordingDispatcher hands out fresh request ids and remembers what was
// dispatched.
type RecordingDispatcher struct {
	lock     sync.Mutex
	Requests []cipherbatch.DecryptionRequest
}

func (d *RecordingDispatcher) Dispatch(handles []cipherbatch.Handle) (cipherbatch.RequestID, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	id := uuid.New()
	d.Requests = append(d.Requests, cipherbatch.DecryptionRequest{
		ID:      id,
		Handles: append([]cipherbatch.Handle(nil), handles...),
	})
	return id, nil
}

func (d *RecordingDispatcher) Last() cipherbatch.DecryptionRequest {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.Requests[len(d.Requests)-1]
}

type Verifier struct {
	VerifyFunc func(id cipherbatch.RequestID, cleartexts []byte, proof []byte) bool
}

func (v *Verifier) Verify(id cipherbatch.RequestID, cleartexts []byte, proof []byte) bool {
	return v.VerifyFunc(id, cleartexts, proof)
}

type ResultSender struct {
	SendFunc func(result cipherbatch.DecryptionResult)
}

func (s *ResultSender) Send(result cipherbatch.DecryptionResult) {
	s.SendFunc(result)
}
