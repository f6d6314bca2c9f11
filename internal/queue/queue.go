// Package queue provides the queue implementations used by the session
// engine: a plain slice-backed queue for single-goroutine buffering (the
// per-exchange receive buffer) and a lock-free queue for buffering
// operator input that arrives concurrently while an exchange is in
// flight.
package queue

// Queue defines the interface for a FIFO queue of opaque items.
type Queue interface {
	// Enqueue adds an item to the tail of the queue.
	Enqueue(any)
	// Dequeue removes and returns the item at the head of the queue.
	Dequeue() any
	// Peek returns the item at the head of the queue without removing it.
	Peek() any
	// Reset to an empty queue
	Reset()
	// IsEmpty returns true if the queue is empty, false otherwise.
	IsEmpty() bool
	// Length returns the number of items in the queue.
	Length() int
}
