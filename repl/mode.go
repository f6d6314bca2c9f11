package repl

import "sync/atomic"

// SessionMode describes what the session engine is currently doing with
// the transport's read side.
type SessionMode uint32

const (
	// IdleMode indicates that no transport is active.
	IdleMode SessionMode = iota
	// RelayingMode indicates that device output is being continuously
	// relayed to the terminal surface.
	RelayingMode
	// ExchangingMode indicates that an exclusive request/response
	// exchange is in flight and the relay is suspended.
	ExchangingMode
)

// String returns string representation of the current mode.
func (m SessionMode) String() string {
	switch m {
	case IdleMode:
		return "idle"
	case RelayingMode:
		return "relaying"
	case ExchangingMode:
		return "exchanging"
	default:
		return "unknown"
	}
}

// AtomicSessionMode holds a SessionMode with atomic access. It is
// mutated only by the session engine.
type AtomicSessionMode struct {
	mode atomic.Uint32
}

// Get returns the current session mode.
func (m *AtomicSessionMode) Get() SessionMode {
	return SessionMode(m.mode.Load())
}

// Set sets the current session mode.
func (m *AtomicSessionMode) Set(mode SessionMode) {
	m.mode.Store(uint32(mode))
}

// String returns string representation of the current mode.
func (m *AtomicSessionMode) String() string {
	return m.Get().String()
}

func (m *AtomicSessionMode) IsIdle() bool {
	return m.Get() == IdleMode
}

func (m *AtomicSessionMode) IsRelaying() bool {
	return m.Get() == RelayingMode
}

func (m *AtomicSessionMode) IsExchanging() bool {
	return m.Get() == ExchangingMode
}

// ToExchanging attempts the transition into ExchangingMode. The CAS
// doubles as the single-in-flight-exchange guard: a second exchange
// started before the first resolves fails the swap. Entering from
// IdleMode is allowed so an exchange can recover a session whose relay
// did not come back after a failure; the exchange epilogue restarts it.
func (m *AtomicSessionMode) ToExchanging() bool {
	return m.mode.CompareAndSwap(uint32(RelayingMode), uint32(ExchangingMode)) ||
		m.mode.CompareAndSwap(uint32(IdleMode), uint32(ExchangingMode))
}
