// Package repl implements the session protocol engine for controlling a
// microcontroller that runs a line-oriented interactive interpreter
// (a MicroPython-style REPL) over a byte transport.
//
// A Connection multiplexes the single transport between two modes that
// must never read concurrently:
//
//   - Relaying: a continuous pass-through of device output to a
//     terminal surface, with operator keystrokes forwarded verbatim.
//   - Exchanging: an exclusive request/response interaction used to
//     push a file to the device, pull one back, or execute code
//     remotely, performed with the relay suspended.
//
// The transport's lease discipline (see the transport package) makes
// the mutual exclusion structural: there is exactly one reader lease,
// and an exchange can only read after the relay's lease has been
// canceled and released.
//
// # Wire protocol
//
// The remote interpreter is driven with single-byte control codes
// (enter raw mode, end-of-data/execute, exit to the interactive prompt,
// interrupt) plus CR-terminated Python source lines it interprets
// itself: open a file for writing and feed it a bytes literal, or print
// the hexlified contents of a file back. After accepting raw input the
// remote echoes the literal "OK", which the read exchange uses as its
// synchronization point. Compatibility with the remote firmware's REPL
// behavior is a hard external constraint on all of this.
package repl
