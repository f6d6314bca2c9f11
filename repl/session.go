package repl

import (
	"context"
	"errors"
	"strings"

	"github.com/arloliu/go-replctl/codec"
	"github.com/arloliu/go-replctl/internal/pool"
	"github.com/arloliu/go-replctl/transport"
)

// WriteFile pushes content to the device as the file at path. The
// content is sent through raw mode as a generated write program; the
// device stores it verbatim.
//
// On a closed connection the call is a silent no-op. While another
// exchange is in flight it fails with ErrExchangeInProgress.
func (c *Connection) WriteFile(ctx context.Context, path string, content string) error {
	ok, err := c.beginExchange()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	defer c.endExchange()

	w, err := c.transport.AcquireWriter()
	if err != nil {
		return err
	}

	err = writeAll(ctx, w,
		[]byte{CtrlRawMode},
		codec.Encode("f=open('"+path+"','wb')\r"),
		codec.Encode("f.write("+codec.BytesLiteral(codec.Encode(content))+")\r"),
		[]byte{CtrlEndOfData},
	)
	w.Release()
	if err != nil {
		c.reportError(err)
		return err
	}

	c.sendControl(CtrlExitRaw)

	return nil
}

// ReadFile pulls the file at path from the device and returns its
// content as text. The device is asked to print the file hex-encoded;
// the reply is decoded back to bytes and then to text.
//
// On a closed connection the call is a silent no-op returning empty
// content. While another exchange is in flight it fails with
// ErrExchangeInProgress. If the device does not acknowledge raw mode
// within the configured timeout the call fails with ErrOKTimeout.
func (c *Connection) ReadFile(ctx context.Context, path string) (string, error) {
	ok, err := c.beginExchange()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	defer c.endExchange()

	w, err := c.transport.AcquireWriter()
	if err != nil {
		return "", err
	}

	err = writeAll(ctx, w,
		[]byte{CtrlRawMode},
		codec.Encode("import ubinascii\r"),
		codec.Encode("print(ubinascii.hexlify(open('"+path+"','rb').read()))\r"),
		[]byte{CtrlEndOfData},
	)
	w.Release()
	if err != nil {
		c.reportError(err)
		return "", err
	}

	// the device is in raw mode now; leave it again no matter how the
	// read phase ends
	defer c.sendControl(CtrlExitRaw)

	r, err := c.transport.AcquireReader()
	if err != nil {
		return "", err
	}
	defer r.Release()

	leftover, err := c.waitForOK(ctx, r)
	if err != nil {
		c.reportError(err)
		return "", err
	}

	// the hex payload ends at the first end-of-data byte; it may already
	// be part of the leftover read together with the acknowledgement
	if leftover != "" {
		c.terminal.Write(leftover)
		c.recvBuf.Enqueue(leftover)
	}

	if !strings.ContainsRune(leftover, rune(CtrlEndOfData)) {
		_, scanErr := c.scanner.ScanUntil(ctx, r, rune(CtrlEndOfData), func(text string) {
			c.terminal.Write(text)
			c.recvBuf.Enqueue(text)
		})
		if scanErr != nil {
			c.reportError(scanErr)
			return "", scanErr
		}
	}

	body := c.drainRecvBuf()
	if idx := strings.IndexRune(body, rune(CtrlEndOfData)); idx >= 0 {
		body = body[:idx]
	}

	data, err := codec.DecodeHexByteString(strings.TrimSpace(body))
	if err != nil {
		c.reportError(err)
		return "", err
	}

	return codec.Decode(data), nil
}

// Run executes code on the device through raw mode. The program's
// output arrives through the relay once the exchange resolves and raw
// mode is left.
//
// On a closed connection the call is a silent no-op. While another
// exchange is in flight it fails with ErrExchangeInProgress.
func (c *Connection) Run(ctx context.Context, code string) error {
	ok, err := c.beginExchange()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	defer c.endExchange()

	w, err := c.transport.AcquireWriter()
	if err != nil {
		return err
	}

	err = writeAll(ctx, w,
		[]byte{CtrlRawMode},
		codec.Encode(code),
		[]byte{CtrlEndOfData},
	)
	w.Release()
	if err != nil {
		c.reportError(err)
		return err
	}

	c.sendControl(CtrlExitRaw)

	return nil
}

// PushEditor writes the editor buffer to the device as path.
func (c *Connection) PushEditor(ctx context.Context, path string, ed Editor) error {
	return c.WriteFile(ctx, path, ed.Content())
}

// PullEditor reads path from the device into the editor buffer. The
// buffer is left untouched when the read fails.
func (c *Connection) PullEditor(ctx context.Context, path string, ed Editor) error {
	content, err := c.ReadFile(ctx, path)
	if err != nil {
		return err
	}

	ed.SetContent(content)

	return nil
}

// RunEditor executes the editor buffer on the device.
func (c *Connection) RunEditor(ctx context.Context, ed Editor) error {
	return c.Run(ctx, ed.Content())
}

// beginExchange moves the session into ExchangingMode. It suspends the
// relay and drains stale transport chunks so the exchange starts from a
// clean read side. An open transport whose relay is parked in IdleMode
// is recovered: the exchange runs and its epilogue restarts the relay.
//
// Returns (false, nil) when no transport is active, which makes the
// exchange a silent no-op, and (false, ErrExchangeInProgress) when
// another exchange already holds the session.
func (c *Connection) beginExchange() (bool, error) {
	if c.shutdown.Load() || !c.transport.IsOpen() {
		return false, nil
	}

	if !c.mode.ToExchanging() {
		return false, ErrExchangeInProgress
	}

	c.recvBuf.Reset()
	c.suspendRelay()
	c.transport.Drain()

	return true, nil
}

// endExchange flushes input buffered during the exchange and restarts
// the relay, or parks the session in IdleMode when the transport is
// gone.
func (c *Connection) endExchange() {
	if c.shutdown.Load() || !c.transport.IsOpen() {
		c.mode.Set(IdleMode)
		c.flushPendingInput()

		return
	}

	if err := c.startRelay(); err != nil {
		c.reportError(err)
		c.mode.Set(IdleMode)
	}

	c.flushPendingInput()
}

// waitForOK polls the reader lease until the remote echoes the raw-mode
// acknowledgement marker. It returns the decoded text that followed the
// marker in the same reads, which may already contain response payload.
func (c *Connection) waitForOK(ctx context.Context, r transport.ReaderLease) (string, error) {
	overall := pool.GetTimer(c.cfg.OKTimeout())
	defer pool.PutTimer(overall)

	var (
		dec   codec.StreamDecoder
		accum strings.Builder
	)

	for {
		select {
		case <-overall.C:
			c.logger.Debug("raw-mode acknowledgement not received", "received", accum.String())
			return "", ErrOKTimeout
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		pollCtx, cancel := context.WithTimeout(ctx, c.cfg.OKPollInterval())
		chunk, err := r.Read(pollCtx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}

			return "", err
		}

		text := dec.Write(chunk)
		if text == "" {
			continue
		}

		accum.WriteString(text)

		if idx := strings.Index(accum.String(), okMarker); idx >= 0 {
			return accum.String()[idx+len(okMarker):], nil
		}
	}
}

// writeAll writes the parts in order through the writer lease, checking
// for context cancellation between parts.
func writeAll(ctx context.Context, w transport.WriterLease, parts ...[]byte) error {
	for _, part := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := w.Write(part); err != nil {
			return err
		}
	}

	return nil
}
