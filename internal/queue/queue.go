package queue

import (
	"context"
	"errors"
	"time"
)

// Package queue contains the processing queue abstraction used to hand
// uploaded document IDs to background workers.

// ErrEmpty is returned by Dequeue when no item became available before the
// blocking timeout elapsed. Callers are expected to loop.
var ErrEmpty = errors.New("queue is empty")

// Queue is a FIFO work queue of document IDs.
type Queue interface {
	// Enqueue pushes a document ID onto the queue.
	Enqueue(ctx context.Context, id string) error
	// Dequeue pops the oldest document ID, blocking up to timeout.
	// Returns ErrEmpty if nothing arrived within the timeout.
	Dequeue(ctx context.Context, timeout time.Duration) (string, error)
}
