package transport

import (
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-replctl/logger"
)

// Loopback is an in-memory Transport with the same lease discipline as
// the serial transport. It is used by tests and demos to script the
// device side of a session: host writes are delivered to a device
// handler, and Feed injects device output as received chunks.
type Loopback struct {
	logger logger.Logger

	mu        sync.Mutex
	chunks    chan []byte
	curReader *readerLease
	deviceFn  func([]byte)

	open atomic.Bool

	readerGuard leaseGuard
	writerGuard leaseGuard
}

var _ Transport = (*Loopback)(nil)

// NewLoopback creates a closed loopback transport.
func NewLoopback(l logger.Logger) *Loopback {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Loopback{logger: l}
}

// OnHostWrite registers the device-side handler invoked synchronously
// with a copy of every chunk the host writes. A nil handler discards
// host writes.
func (lb *Loopback) OnHostWrite(fn func(data []byte)) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.deviceFn = fn
}

// Feed injects device output; a reader lease will observe it as one
// received chunk. Feeding a closed loopback is a no-op. Feed must not
// be called concurrently with Close.
func (lb *Loopback) Feed(data []byte) {
	lb.mu.Lock()
	chunks := lb.chunks
	open := lb.open.Load()
	lb.mu.Unlock()

	if !open {
		return
	}

	chunk := make([]byte, len(data))
	copy(chunk, data)
	chunks <- chunk
}

// FeedText injects device output given as text.
func (lb *Loopback) FeedText(text string) {
	lb.Feed([]byte(text))
}

// Open makes the loopback ready for leases.
func (lb *Loopback) Open() error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if lb.open.Load() {
		return nil
	}

	lb.chunks = make(chan []byte, chunkQueueSize)
	lb.open.Store(true)

	return nil
}

// Close cancels any outstanding reader lease and ends the stream; a
// pending lease read settles, later reads observe io.EOF.
func (lb *Loopback) Close() error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if !lb.open.Load() {
		return nil
	}
	lb.open.Store(false)

	if lb.curReader != nil {
		lb.curReader.Cancel()
		lb.curReader = nil
	}

	close(lb.chunks)

	return nil
}

// IsOpen reports whether the loopback is open.
func (lb *Loopback) IsOpen() bool {
	return lb.open.Load()
}

// AcquireReader acquires the single reader lease.
func (lb *Loopback) AcquireReader() (ReaderLease, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if !lb.open.Load() {
		return nil, ErrClosed
	}

	if err := lb.readerGuard.acquire(ErrReaderLeaseHeld); err != nil {
		return nil, err
	}

	lease := newReaderLease(&lb.readerGuard, lb.chunks)
	lb.curReader = lease

	return lease, nil
}

// AcquireWriter acquires the single writer lease.
func (lb *Loopback) AcquireWriter() (WriterLease, error) {
	if !lb.open.Load() {
		return nil, ErrClosed
	}

	if err := lb.writerGuard.acquire(ErrWriterLeaseHeld); err != nil {
		return nil, err
	}

	return newWriterLease(&lb.writerGuard, lb.hostWrite), nil
}

// Drain discards buffered device output not yet consumed by a lease.
func (lb *Loopback) Drain() {
	lb.mu.Lock()
	chunks := lb.chunks
	lb.mu.Unlock()

	if chunks == nil {
		return
	}

	for {
		select {
		case _, ok := <-chunks:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (lb *Loopback) hostWrite(data []byte) error {
	lb.mu.Lock()
	fn := lb.deviceFn
	open := lb.open.Load()
	lb.mu.Unlock()

	if !open {
		return ErrClosed
	}

	if fn != nil {
		chunk := make([]byte, len(data))
		copy(chunk, data)
		fn(chunk)
	}

	return nil
}
