package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrSenderReleased is returned by Send and Clone on a handle that has already
// been released.
var ErrSenderReleased = errors.New("command sender released")

// queue is the shared state behind every Sender cloned from one NewQueue call.
type queue struct {
	ch   chan Command
	refs atomic.Int64
}

func (q *queue) drop() {
	if q.refs.Add(-1) == 0 {
		close(q.ch)
	}
}

// Sender is one producer handle on a command queue. Handles are reference
// counted: the queue's channel is closed when the last handle is released,
// which is the dispatcher's signal to stop.
//
// A Sender is safe for concurrent use. Release may be called more than once;
// only the first call counts.
type Sender struct {
	q        *queue
	mu       sync.RWMutex
	released bool
}

// NewQueue creates a FIFO command queue holding up to capacity pending
// commands (values below 1 are treated as 1). It returns the first producer
// handle and the receiving end for the dispatcher.
func NewQueue(capacity int) (*Sender, <-chan Command) {
	if capacity < 1 {
		capacity = 1
	}
	q := &queue{ch: make(chan Command, capacity)}
	q.refs.Store(1)
	return &Sender{q: q}, q.ch
}

// Clone returns a new handle on the same queue. The queue stays open until
// the clone is released too.
func (s *Sender) Clone() (*Sender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return nil, ErrSenderReleased
	}
	s.q.refs.Add(1)
	return &Sender{q: s.q}, nil
}

// Send enqueues cmd, blocking while the queue is full. It returns ctx.Err()
// if ctx ends first.
func (s *Sender) Send(ctx context.Context, cmd Command) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return ErrSenderReleased
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.q.ch <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release gives up this handle. When every handle of the queue has been
// released the channel is closed.
func (s *Sender) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	s.q.drop()
}

// Depth reports how many commands are waiting in the queue.
func (s *Sender) Depth() int { return len(s.q.ch) }
