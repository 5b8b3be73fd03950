package cipherbatch

import (
	"sync"
)

// RequestQueue holds decryption requests the oracle has accepted but not yet
// answered.
type RequestQueue interface {
	Push(req DecryptionRequest)
	Poll() (DecryptionRequest, error)
	Len() int
}

// MemRequestQueue defines request FIFO queue
type MemRequestQueue struct {
	reqs []DecryptionRequest
	sync.RWMutex
}

// emptyQueErr is for calling peek(), Poll() when queue is empty.
type emptyQueErr struct{}

func (e *emptyQueErr) Error() string {
	return "request queue is empty."
}

func IsErrEmptyQueue(err error) bool {
	_, ok := err.(*emptyQueErr)
	return ok
}

func NewRequestQueue() *MemRequestQueue {
	return &MemRequestQueue{
		reqs: []DecryptionRequest{},
	}
}

// empty checks whether queue is empty or not.
func (q *MemRequestQueue) empty() bool {
	return len(q.reqs) == 0
}

// peek returns first element of queue, but not erase it.
func (q *MemRequestQueue) peek() (DecryptionRequest, error) {
	if q.empty() {
		return DecryptionRequest{}, &emptyQueErr{}
	}

	return q.reqs[0], nil
}

// Poll returns first element of queue, and erase it.
func (q *MemRequestQueue) Poll() (DecryptionRequest, error) {
	q.Lock()
	defer q.Unlock()

	ret, err := q.peek()
	if err != nil {
		return DecryptionRequest{}, err
	}

	q.reqs[0] = DecryptionRequest{}
	q.reqs = q.reqs[1:]
	return ret, nil
}

func (q *MemRequestQueue) Len() int {
	q.RLock()
	defer q.RUnlock()
	return len(q.reqs)
}

// Push adds request to queue.
func (q *MemRequestQueue) Push(req DecryptionRequest) {
	q.Lock()
	defer q.Unlock()

	q.reqs = append(q.reqs, req)
}
