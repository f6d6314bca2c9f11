package repl

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-replctl/codec"
	"github.com/arloliu/go-replctl/internal/pool"
	"github.com/arloliu/go-replctl/internal/queue"
	"github.com/arloliu/go-replctl/logger"
	"github.com/arloliu/go-replctl/transport"
)

// Connection is the session engine for one device. It owns the
// transport, relays device output to the terminal surface while idle,
// and runs exclusive file-transfer and code-execution exchanges.
//
// A Connection is single-use: after Close it can not be reopened.
// Create a new Connection to reconnect.
type Connection struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg      *ConnConfig
	logger   logger.Logger
	terminal Terminal

	transport transport.Transport
	stateMgr  *ConnStateMgr
	taskMgr   *TaskManager
	scanner   FrameScanner

	mode     AtomicSessionMode
	shutdown atomic.Bool

	relayMu    sync.Mutex
	relayLease transport.ReaderLease
	relayDone  chan struct{}

	// operator input arriving while an exchange is in flight
	pendingInput queue.Queue
	// decoded device output received during the current exchange
	recvBuf queue.Queue
}

// NewConnection creates a device connection from the given config.
//
// The connection is created in the DisconnectedState; call Open to open
// the transport and start relaying.
func NewConnection(ctx context.Context, cfg *ConnConfig) (*Connection, error) {
	if cfg == nil {
		return nil, ErrConnConfigNil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	c := &Connection{
		cfg:          cfg,
		logger:       cfg.Logger(),
		terminal:     cfg.Terminal(),
		pendingInput: queue.NewLockFreeQueue(),
		recvBuf:      queue.NewSliceQueue(8),
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.transport = cfg.Transport()
	if c.transport == nil {
		c.transport = transport.NewSerial(cfg.PortName(), cfg.BaudRate(), c.logger)
	}

	c.taskMgr = NewTaskManager(c.ctx, c.logger)
	c.stateMgr = NewConnStateMgr(c.ctx, c, c.connStateHandler)

	if reg := cfg.Registry(); reg != nil {
		reg.AddHandler(c.portEventHandler)
	}

	return c, nil
}

// Open opens the transport and starts relaying device output.
//
// When waitOpened is true the call blocks until the transport is open or
// the open fails. When false the open runs in the background and open
// failures are reported through the terminal surface only.
func (c *Connection) Open(waitOpened bool) error {
	if err := c.stateMgr.ToConnecting(); err != nil {
		return err
	}

	if waitOpened {
		return c.openTransport()
	}

	go func() { _ = c.openTransport() }()

	return nil
}

func (c *Connection) openTransport() error {
	if err := c.transport.Open(); err != nil {
		c.reportError(err)
		c.stateMgr.ToDisconnected()

		return err
	}

	return c.stateMgr.ToConnected()
}

// Close stops the relay and all background tasks and closes the
// transport. It is safe to call multiple times.
func (c *Connection) Close() error {
	if !c.shutdown.CompareAndSwap(false, true) {
		return nil
	}

	c.logger.Debug("closing connection", "port", c.cfg.PortName())

	c.suspendRelay()

	c.taskMgr.Stop()

	done := make(chan struct{})
	go func() {
		c.taskMgr.Wait()
		close(done)
	}()

	timer := pool.GetTimer(c.cfg.CloseTimeout())
	select {
	case <-done:
	case <-timer.C:
		c.logger.Warn("timeout waiting for background tasks to stop")
	}
	pool.PutTimer(timer)

	if err := c.transport.Close(); err != nil {
		c.logger.Error("failed to close transport", "error", err)
	}

	c.mode.Set(IdleMode)
	c.stateMgr.ToDisconnected()
	c.cancel()

	return nil
}

// State returns the current connection state.
func (c *Connection) State() ConnState {
	return c.stateMgr.State()
}

// WaitState waits for the connection to reach the given state or until
// the context is done.
func (c *Connection) WaitState(ctx context.Context, state ConnState) error {
	return c.stateMgr.WaitState(ctx, state)
}

// Mode returns the current session mode.
func (c *Connection) Mode() SessionMode {
	return c.mode.Get()
}

// AddConnStateHandler adds handlers invoked on connection state changes.
func (c *Connection) AddConnStateHandler(handlers ...ConnStateChangeHandler) {
	c.stateMgr.AddHandler(handlers...)
}

// SendInput forwards one piece of operator input to the device. Empty
// input is ignored. Input arriving while an exchange is in flight, or
// while an exchange snatched the writer lease between the mode check
// and the write, is buffered and flushed when the exchange resolves.
// On a closed connection the input is silently dropped.
func (c *Connection) SendInput(text string) {
	if text == "" || c.shutdown.Load() {
		return
	}

	if c.mode.IsExchanging() {
		c.pendingInput.Enqueue(text)
		return
	}

	if !c.transport.IsOpen() {
		return
	}

	if !c.sendCommand(text) {
		c.pendingInput.Enqueue(text)
	}
}

// Interrupt sends the interrupt control byte to stop the currently
// running remote program. On a closed connection it is a no-op.
func (c *Connection) Interrupt() {
	if c.shutdown.Load() || !c.transport.IsOpen() {
		return
	}

	c.sendControl(CtrlInterrupt)
}

// connStateHandler reacts to connection state changes: entering
// ConnectedState starts the relay and the port watcher.
func (c *Connection) connStateHandler(_ *Connection, prevState ConnState, newState ConnState) {
	c.logger.Debug("connection state changed", "prevState", prevState, "newState", newState)

	if newState != ConnectedState {
		return
	}

	if err := c.startRelay(); err != nil {
		c.reportError(err)
		c.stateMgr.ToDisconnectedAsync()

		return
	}

	c.startPortWatcher()
}

// portEventHandler closes the connection when its own port detaches.
func (c *Connection) portEventHandler(event transport.PortEvent, entry *transport.PortEntry) {
	if event != transport.PortDetached || entry.Name != c.cfg.PortName() {
		return
	}

	if !c.stateMgr.IsConnected() {
		return
	}

	c.reportError(errors.New("device disconnected"))

	go func() { _ = c.Close() }()
}

// startRelay acquires the transport's reader lease and starts the relay
// task that forwards decoded device output to the terminal surface.
func (c *Connection) startRelay() error {
	reader, err := c.transport.AcquireReader()
	if err != nil {
		return err
	}

	done := make(chan struct{})

	c.relayMu.Lock()
	c.relayLease = reader
	c.relayDone = done
	c.relayMu.Unlock()

	c.mode.Set(RelayingMode)

	err = c.taskMgr.Start("relay", func() bool {
		defer close(done)
		defer reader.Release()

		_, scanErr := c.scanner.ScanUntil(c.ctx, reader, NoTerminator, c.terminal.Write)
		if scanErr != nil &&
			!errors.Is(scanErr, transport.ErrLeaseCanceled) &&
			!errors.Is(scanErr, context.Canceled) {
			c.reportError(scanErr)
		}

		return false
	})
	if err != nil {
		c.relayMu.Lock()
		c.relayLease = nil
		c.relayDone = nil
		c.relayMu.Unlock()

		reader.Release()
		c.mode.Set(IdleMode)

		return err
	}

	return nil
}

// suspendRelay cancels the relay's reader lease and waits for the relay
// task to settle. No-op when the relay is not running.
func (c *Connection) suspendRelay() {
	c.relayMu.Lock()
	lease := c.relayLease
	done := c.relayDone
	c.relayLease = nil
	c.relayDone = nil
	c.relayMu.Unlock()

	if lease == nil {
		return
	}

	lease.Cancel()

	if done != nil {
		<-done
	}
}

func (c *Connection) startPortWatcher() {
	reg := c.cfg.Registry()
	if reg == nil {
		return
	}

	_, err := c.taskMgr.StartInterval("port-watcher", func() bool {
		if _, err := reg.Refresh(); err != nil {
			c.logger.Debug("port scan failed", "error", err)
		}

		return true
	}, c.cfg.WatchInterval(), false)
	if err != nil {
		c.logger.Error("failed to start port watcher", "error", err)
	}
}

// sendCommand writes operator input to the device. Write failures are
// surfaced on the terminal. It reports false when the writer lease is
// held, so the caller can buffer the input instead of dropping it.
func (c *Connection) sendCommand(text string) bool {
	w, err := c.transport.AcquireWriter()
	if err != nil {
		if errors.Is(err, transport.ErrWriterLeaseHeld) {
			return false
		}

		c.logger.Debug("dropping write, writer unavailable", "error", err)

		return true
	}
	defer w.Release()

	if err := w.Write(codec.Encode(text)); err != nil {
		c.reportError(err)
	}

	return true
}

// sendControl writes a single control byte to the device.
func (c *Connection) sendControl(b byte) {
	w, err := c.transport.AcquireWriter()
	if err != nil {
		c.logger.Debug("dropping write, writer unavailable", "error", err)
		return
	}
	defer w.Release()

	if err := w.Write([]byte{b}); err != nil {
		c.reportError(err)
	}
}

// flushPendingInput replays operator input buffered during an exchange.
// If the writer lease is snatched mid-flush the remainder stays queued
// for the next flush.
func (c *Connection) flushPendingInput() {
	for !c.pendingInput.IsEmpty() {
		text, ok := c.pendingInput.Dequeue().(string)
		if !ok {
			continue
		}

		if !c.sendCommand(text) {
			c.pendingInput.Enqueue(text)
			return
		}
	}
}

// drainRecvBuf drains the per-exchange receive buffer into one string.
func (c *Connection) drainRecvBuf() string {
	var b []byte
	for !c.recvBuf.IsEmpty() {
		if text, ok := c.recvBuf.Dequeue().(string); ok {
			b = append(b, text...)
		}
	}

	return string(b)
}

// reportError logs the error and surfaces it on the terminal as an
// error line.
func (c *Connection) reportError(err error) {
	c.logger.Error("session error", "error", err)
	c.terminal.WriteLine("<ERROR: " + err.Error() + ">")
}
