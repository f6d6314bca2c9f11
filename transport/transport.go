// Package transport provides the byte transports the REPL session engine
// runs over: a production serial-port transport, an in-memory loopback
// for tests, and a registry that tracks attachable serial ports.
//
// A Transport exposes its read and write sides through leases. A lease
// is exclusive, revocable ownership of one direction of the stream; at
// most one reader lease and one writer lease may be live at any instant,
// and acquiring a second one fails instead of silently interleaving
// traffic. This is how the session engine guarantees that the continuous
// terminal relay and an exclusive command exchange never read from the
// same stream concurrently.
package transport

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

var (
	// ErrClosed indicates that the transport is not open.
	ErrClosed = errors.New("transport: not open")

	// ErrReaderLeaseHeld indicates that a reader lease is already live.
	ErrReaderLeaseHeld = errors.New("transport: reader lease already held")

	// ErrWriterLeaseHeld indicates that a writer lease is already live.
	ErrWriterLeaseHeld = errors.New("transport: writer lease already held")

	// ErrLeaseCanceled indicates that a pending read was settled by
	// Cancel rather than by data arrival or stream end.
	ErrLeaseCanceled = errors.New("transport: reader lease canceled")

	// ErrLeaseReleased indicates a write through a lease that has
	// already been released.
	ErrLeaseReleased = errors.New("transport: writer lease released")
)

// ReaderLease is exclusive ownership of the transport's read side.
//
// Read, Cancel and Release may be called from different goroutines;
// Cancel settles a pending Read with ErrLeaseCanceled. Release must be
// called exactly once when the holder is done; both Cancel and Release
// are idempotent.
type ReaderLease interface {
	// Read returns the next received chunk. It blocks until data
	// arrives, the context is done, the lease is canceled, or the
	// stream ends (io.EOF).
	Read(ctx context.Context) ([]byte, error)
	// Cancel settles any pending Read with ErrLeaseCanceled.
	Cancel()
	// Release returns the read side so a new lease can be acquired.
	Release()
}

// WriterLease is exclusive ownership of the transport's write side.
type WriterLease interface {
	// Write sends data to the device. It returns ErrLeaseReleased after
	// Release.
	Write(data []byte) error
	// Release returns the write side so a new lease can be acquired.
	Release()
}

// Transport is a duplex byte connection to a single device.
type Transport interface {
	// Open establishes the connection.
	Open() error
	// Close cancels any outstanding reader lease and tears the
	// connection down. Closing an already-closed transport is a no-op.
	Close() error
	// IsOpen reports whether the transport is open.
	IsOpen() bool
	// AcquireReader acquires the single reader lease. It fails with
	// ErrReaderLeaseHeld while a previous lease is live.
	AcquireReader() (ReaderLease, error)
	// AcquireWriter acquires the single writer lease. It fails with
	// ErrWriterLeaseHeld while a previous lease is live.
	AcquireWriter() (WriterLease, error)
	// Drain discards received bytes that are buffered but not yet
	// consumed through a reader lease.
	Drain()
}

// leaseGuard enforces the at-most-one-live-lease invariant for one
// direction of a transport.
type leaseGuard struct {
	held atomic.Bool
}

func (g *leaseGuard) acquire(errHeld error) error {
	if !g.held.CompareAndSwap(false, true) {
		return errHeld
	}

	return nil
}

func (g *leaseGuard) release() {
	g.held.Store(false)
}

// readerLease is the ReaderLease implementation shared by the serial and
// loopback transports. It pulls chunks from the transport's receive
// channel; the channel is closed when the stream ends.
type readerLease struct {
	guard       *leaseGuard
	chunks      <-chan []byte
	cancelCh    chan struct{}
	cancelOnce  sync.Once
	releaseOnce sync.Once
}

func newReaderLease(guard *leaseGuard, chunks <-chan []byte) *readerLease {
	return &readerLease{
		guard:    guard,
		chunks:   chunks,
		cancelCh: make(chan struct{}),
	}
}

func (l *readerLease) Read(ctx context.Context) ([]byte, error) {
	// A canceled lease stays canceled even when chunks are buffered.
	select {
	case <-l.cancelCh:
		return nil, ErrLeaseCanceled
	default:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.cancelCh:
		return nil, ErrLeaseCanceled
	case chunk, ok := <-l.chunks:
		if !ok {
			return nil, io.EOF
		}

		return chunk, nil
	}
}

func (l *readerLease) Cancel() {
	l.cancelOnce.Do(func() {
		close(l.cancelCh)
	})
}

func (l *readerLease) Release() {
	l.releaseOnce.Do(l.guard.release)
}

// writerLease is the WriterLease implementation shared by the serial and
// loopback transports.
type writerLease struct {
	guard       *leaseGuard
	writeFn     func([]byte) error
	released    atomic.Bool
	releaseOnce sync.Once
}

func newWriterLease(guard *leaseGuard, writeFn func([]byte) error) *writerLease {
	return &writerLease{guard: guard, writeFn: writeFn}
}

func (l *writerLease) Write(data []byte) error {
	if l.released.Load() {
		return ErrLeaseReleased
	}

	return l.writeFn(data)
}

func (l *writerLease) Release() {
	l.releaseOnce.Do(func() {
		l.released.Store(true)
		l.guard.release()
	})
}
