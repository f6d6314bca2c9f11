package repl

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-replctl/logger"
)

// ConnState represents the lifecycle stage of the device connection.
type ConnState uint32

// Connection states representing the lifecycle of the device connection.
const (
	// DisconnectedState indicates that no transport is open.
	DisconnectedState ConnState = iota
	// ConnectingState indicates that the transport is being opened.
	ConnectingState
	// ConnectedState indicates that the transport is open and the
	// interactive relay is available.
	ConnectedState
)

// IsDisconnected returns if the current state is disconnected.
func (cs ConnState) IsDisconnected() bool { return cs == DisconnectedState }

// IsConnecting returns if the current state is connecting.
func (cs ConnState) IsConnecting() bool { return cs == ConnectingState }

// IsConnected returns if the current state is connected.
func (cs ConnState) IsConnected() bool { return cs == ConnectedState }

// String returns string representation of the current state.
func (cs ConnState) String() string {
	switch cs {
	case DisconnectedState:
		return "disconnected"
	case ConnectingState:
		return "connecting"
	case ConnectedState:
		return "connected"
	default:
		return "unknown"
	}
}

// ConnStateChangeHandler is a function type that represents a handler for
// connection state changes.
//
// Note: the handler will be invoked in a blocking mode. Take care with
// long-running implementations.
//
// The handler function receives the previous and the new connection state.
type ConnStateChangeHandler func(conn *Connection, prevState ConnState, newState ConnState)

// ConnStateMgr manages the connection state of a device connection.
//
// It provides methods for managing state transitions and notifying
// listeners of state changes. The state transitions are safe for use in
// concurrent environments.
type ConnStateMgr struct {
	mu               sync.Mutex
	ctx              context.Context
	cond             *sync.Cond
	state            atomic.Uint32
	conn             *Connection
	logger           logger.Logger
	asyncStateChange chan ConnState
	handlers         []ConnStateChangeHandler
}

// NewConnStateMgr creates a new ConnStateMgr instance, initializing it to
// the DisconnectedState.
//
// It accepts optional ConnStateChangeHandler functions that will be
// invoked when the connection state changes.
func NewConnStateMgr(ctx context.Context, conn *Connection, handlers ...ConnStateChangeHandler) *ConnStateMgr {
	connState := &ConnStateMgr{
		ctx:              ctx,
		conn:             conn,
		asyncStateChange: make(chan ConnState, 10),
		handlers:         make([]ConnStateChangeHandler, 0, len(handlers)),
	}

	for _, handler := range handlers {
		connState.AddHandler(handler)
	}

	if conn != nil {
		connState.logger = conn.logger
	} else {
		connState.logger = logger.GetLogger()
	}

	connState.state.Store(uint32(DisconnectedState))
	connState.cond = sync.NewCond(&connState.mu)

	go connState.asyncStateChangeTask()

	return connState
}

// State returns the current connection state.
func (cs *ConnStateMgr) State() ConnState {
	return ConnState(cs.state.Load())
}

// AddHandler adds one or more ConnStateChangeHandler functions to be
// invoked on state changes.
func (cs *ConnStateMgr) AddHandler(handlers ...ConnStateChangeHandler) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.handlers = append(cs.handlers, handlers...)
}

// WaitState waits for the connection state to reach the specified state or
// until the context is done. It returns nil if the desired state is
// reached, or an error if the context is canceled or times out.
func (cs *ConnStateMgr) WaitState(ctx context.Context, state ConnState) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.State() == state {
		return nil
	}

	stopFunc := context.AfterFunc(ctx, func() {
		cs.cond.Broadcast()
	})
	defer stopFunc()

	for cs.State() != state {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			cs.cond.Wait()
		}
	}

	return nil
}

// ToDisconnected transitions the connection state to DisconnectedState.
// This transition is allowed from any state and represents a close or a
// hardware disconnect.
func (cs *ConnStateMgr) ToDisconnected() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	curState := cs.State()

	if curState.IsDisconnected() {
		return // Already in DisconnectedState, no need to transition
	}

	// change state to disconnected BEFORE all handlers finished
	cs.setState(DisconnectedState)

	cs.invokeHandlers(curState, DisconnectedState)
}

// ToConnecting transitions the connection state to ConnectingState.
//
// This transition is only allowed from the DisconnectedState. If the
// state is already ConnectingState, the function is a no-op.
//
// Returns nil on success, or ErrInvalidTransition otherwise.
func (cs *ConnStateMgr) ToConnecting() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	curState := cs.State()

	if curState.IsConnecting() {
		return nil // Already in ConnectingState, No-op
	}

	if !curState.IsDisconnected() {
		return ErrInvalidTransition
	}

	cs.invokeHandlers(curState, ConnectingState)
	// change state after all handlers finished
	cs.setState(ConnectingState)

	return nil
}

// ToConnected transitions the connection state to ConnectedState.
//
// This transition is only allowed from the ConnectingState and indicates
// that the transport is open and ready for relay and exchanges.
// If the state is already ConnectedState, the function is a no-op.
//
// Returns nil on success, or ErrInvalidTransition otherwise.
func (cs *ConnStateMgr) ToConnected() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	curState := cs.State()

	if curState.IsConnected() {
		return nil // Already in ConnectedState, No-op
	}

	if !curState.IsConnecting() {
		return ErrInvalidTransition
	}

	cs.invokeHandlers(curState, ConnectedState)
	// change state after all handlers finished
	cs.setState(ConnectedState)

	return nil
}

// ToDisconnectedAsync transitions connection state to DisconnectedState
// asynchronously.
//
// If the state is the same as the current state, the function is a no-op.
func (cs *ConnStateMgr) ToDisconnectedAsync() {
	cs.changeStateAsync(DisconnectedState)
}

// IsDisconnected returns if the current state is disconnected.
func (cs *ConnStateMgr) IsDisconnected() bool {
	return cs.State().IsDisconnected()
}

// IsConnecting returns if the current state is connecting.
func (cs *ConnStateMgr) IsConnecting() bool {
	return cs.State().IsConnecting()
}

// IsConnected returns if the current state is connected.
func (cs *ConnStateMgr) IsConnected() bool {
	return cs.State().IsConnected()
}

// setState atomically set current state to the newState. It also
// broadcasts a signal to any waiting goroutines.
func (cs *ConnStateMgr) setState(newState ConnState) {
	cs.state.Store(uint32(newState))
	cs.cond.Broadcast()
}

// invokeHandlers invokes all registered ConnStateChangeHandler functions
// with the previous and new states.
func (cs *ConnStateMgr) invokeHandlers(prevState ConnState, newState ConnState) {
	for _, handler := range cs.handlers {
		if handler != nil {
			handler(cs.conn, prevState, newState)
		}
	}
}

// changeStateAsync transitions the desired connection state asynchronously.
//
// If the state is the same as the current state, the function is a no-op.
func (cs *ConnStateMgr) changeStateAsync(state ConnState) {
	if cs.State() == state {
		return
	}

	cs.asyncStateChange <- state
}

// asyncStateChangeTask handles state changing in the background.
func (cs *ConnStateMgr) asyncStateChangeTask() {
	defer cs.logger.Debug("asyncStateChangeTask terminated")

	for {
		select {
		case <-cs.ctx.Done():
			return

		case desiredState := <-cs.asyncStateChange:
			prevState := cs.State()

			if desiredState == prevState {
				break
			}

			var err error
			switch desiredState {
			case DisconnectedState:
				cs.ToDisconnected()
			case ConnectingState:
				err = cs.ToConnecting()
			case ConnectedState:
				err = cs.ToConnected()
			}

			if err != nil {
				cs.logger.Error("async connection state transition failed",
					"prevState", prevState, "curState", cs.State(), "desiredState", desiredState,
					"error", err,
				)
				if errors.Is(err, ErrInvalidTransition) {
					cs.asyncStateChange <- DisconnectedState
				}
			}
		}
	}
}
