package cipherbatch

import (
	"testing"

	"github.com/google/uuid"
)

func newDummyRequests(n int) []DecryptionRequest {
	reqs := make([]DecryptionRequest, 0, n)
	for i := 0; i < n; i++ {
		reqs = append(reqs, DecryptionRequest{
			ID:      uuid.New(),
			Handles: []Handle{{byte(i + 1)}},
		})
	}
	return reqs
}

func TestQueue_peek(t *testing.T) {
	inputs := newDummyRequests(3)
	que := NewRequestQueue()

	_, err := que.peek()
	if err == nil {
		t.Fatalf("test failed : peek must return error when queue is empty")
	}

	for i, input := range inputs {
		que.Push(input)
		req, _ := que.peek()
		if req.ID != inputs[0].ID {
			t.Fatalf("test[%d] failed - peek must return first element of queue", i)
		}
	}
}

func TestQueue_Poll(t *testing.T) {
	inputs := newDummyRequests(3)
	que := NewRequestQueue()

	for i, input := range inputs {
		que.Push(input)
		result, _ := que.Poll()
		if result.ID != input.ID {
			t.Fatalf("test[%d] failed : poll must return the first element of queue", i)
		}
	}

	_, err := que.Poll()
	if !IsErrEmptyQueue(err) {
		t.Fatalf("expected empty queue error, but got %v", err)
	}
}

func TestQueue_empty(t *testing.T) {
	que := NewRequestQueue()
	if !que.empty() {
		t.Fatalf("test empty failed : after creating queue, empty() must return true")
	}

	que.Push(newDummyRequests(1)[0])
	if que.empty() {
		t.Fatalf("test empty failed : after pushing request, empty() must return false")
	}

	que.Poll()
	if !que.empty() {
		t.Fatalf("test empty failed : after poll all element, empty() must return true")
	}
}

func TestQueue_len(t *testing.T) {
	que := NewRequestQueue()
	for i := 1; i < 10; i++ {
		que.Push(newDummyRequests(1)[0])
		if que.Len() != i {
			t.Fatalf("test length failed : expected = %d, got = %d", i, que.Len())
		}
	}
}
