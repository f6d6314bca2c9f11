package transport

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.bug.st/serial"

	"github.com/arloliu/go-replctl/logger"
)

const (
	// DefaultBaudRate is the symbol rate the remote interpreter's
	// console runs at. Parity and stop bits follow the serial library
	// default (8N1).
	DefaultBaudRate = 115200

	// readBufSize is the size of the serial read buffer.
	readBufSize = 1024

	// chunkQueueSize is the capacity of the receive chunk channel. It
	// absorbs device output bursts between lease reads so the pump
	// rarely blocks.
	chunkQueueSize = 64
)

// Serial is a Transport over a physical serial port.
//
// A background pump goroutine owns all reads from the port and feeds
// received chunks into a channel; reader leases pull from that channel.
// This indirection is what makes a pending lease read cancelable without
// tearing the port down.
type Serial struct {
	name   string
	baud   int
	logger logger.Logger

	mu        sync.Mutex
	port      serial.Port
	chunks    chan []byte
	pumpDone  chan struct{}
	pumpStop  chan struct{}
	curReader *readerLease

	open    atomic.Bool
	writeMu sync.Mutex

	readerGuard leaseGuard
	writerGuard leaseGuard
}

var _ Transport = (*Serial)(nil)

// NewSerial creates a serial Transport for the named port.
//
// baud of 0 selects DefaultBaudRate. A nil logger selects the package
// default logger.
func NewSerial(name string, baud int, l logger.Logger) *Serial {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	if l == nil {
		l = logger.GetLogger()
	}

	return &Serial{name: name, baud: baud, logger: l}
}

// Name returns the port name the transport was created for.
func (s *Serial) Name() string { return s.name }

// Open opens the serial port and starts the receive pump.
func (s *Serial) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open.Load() {
		return nil
	}

	mode := &serial.Mode{BaudRate: s.baud}

	port, err := serial.Open(s.name, mode)
	if err != nil {
		return fmt.Errorf("transport: open %s: %w", s.name, err)
	}

	s.port = port
	s.chunks = make(chan []byte, chunkQueueSize)
	s.pumpDone = make(chan struct{})
	s.pumpStop = make(chan struct{})
	s.open.Store(true)

	go s.pump(port, s.chunks, s.pumpStop, s.pumpDone)

	s.logger.Debug("serial port opened", "port", s.name, "baud", s.baud)

	return nil
}

// pump reads from the port until it fails (closed or unplugged) and
// forwards each chunk to the receive channel. It owns the channel and
// closes it on exit so lease reads settle with io.EOF.
func (s *Serial) pump(port serial.Port, chunks chan<- []byte, stop <-chan struct{}, done chan struct{}) {
	defer close(done)
	defer close(chunks)

	buf := make([]byte, readBufSize)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			select {
			case chunks <- chunk:
			case <-stop:
				return
			}
		}
		if err != nil {
			if s.open.Load() {
				s.logger.Debug("serial read pump stopped", "port", s.name, "error", err)
			}

			return
		}
	}
}

// Close cancels any outstanding reader lease, closes the port and waits
// for the pump to stop.
func (s *Serial) Close() error {
	s.mu.Lock()

	if !s.open.Load() {
		s.mu.Unlock()
		return nil
	}
	s.open.Store(false)

	if s.curReader != nil {
		s.curReader.Cancel()
		s.curReader = nil
	}

	port := s.port
	pumpDone := s.pumpDone
	s.port = nil
	close(s.pumpStop)
	s.mu.Unlock()

	err := port.Close()
	<-pumpDone

	if err != nil {
		return fmt.Errorf("transport: close %s: %w", s.name, err)
	}

	s.logger.Debug("serial port closed", "port", s.name)

	return nil
}

// IsOpen reports whether the port is open.
func (s *Serial) IsOpen() bool {
	return s.open.Load()
}

// AcquireReader acquires the single reader lease for the port.
func (s *Serial) AcquireReader() (ReaderLease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open.Load() {
		return nil, ErrClosed
	}

	if err := s.readerGuard.acquire(ErrReaderLeaseHeld); err != nil {
		return nil, err
	}

	lease := newReaderLease(&s.readerGuard, s.chunks)
	s.curReader = lease

	return lease, nil
}

// AcquireWriter acquires the single writer lease for the port.
func (s *Serial) AcquireWriter() (WriterLease, error) {
	if !s.open.Load() {
		return nil, ErrClosed
	}

	if err := s.writerGuard.acquire(ErrWriterLeaseHeld); err != nil {
		return nil, err
	}

	return newWriterLease(&s.writerGuard, s.write), nil
}

// Drain discards received chunks that are buffered but not yet consumed.
func (s *Serial) Drain() {
	s.mu.Lock()
	chunks := s.chunks
	s.mu.Unlock()

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

// write sends data to the port, looping until the whole buffer is on
// the wire. Serial writes are short; there is no cancellation path.
func (s *Serial) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	port := s.port
	s.mu.Unlock()

	if port == nil {
		return ErrClosed
	}

	for len(data) > 0 {
		n, err := port.Write(data)
		if err != nil {
			return fmt.Errorf("transport: write %s: %w", s.name, err)
		}
		data = data[n:]
	}

	return nil
}
