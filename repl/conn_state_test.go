package repl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnStateString(t *testing.T) {
	require.Equal(t, "disconnected", DisconnectedState.String())
	require.Equal(t, "connecting", ConnectingState.String())
	require.Equal(t, "connected", ConnectedState.String())
	require.Equal(t, "unknown", ConnState(99).String())
}

func TestConnStateTransitions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cs := NewConnStateMgr(ctx, nil)
	require.True(t, cs.IsDisconnected())

	t.Run("connected requires connecting", func(t *testing.T) {
		require.ErrorIs(t, cs.ToConnected(), ErrInvalidTransition)
	})

	t.Run("disconnected to connecting", func(t *testing.T) {
		require.NoError(t, cs.ToConnecting())
		require.True(t, cs.IsConnecting())

		// repeated transition is a no-op
		require.NoError(t, cs.ToConnecting())
	})

	t.Run("connecting to connected", func(t *testing.T) {
		require.NoError(t, cs.ToConnected())
		require.True(t, cs.IsConnected())
	})

	t.Run("connecting requires disconnected", func(t *testing.T) {
		require.ErrorIs(t, cs.ToConnecting(), ErrInvalidTransition)
	})

	t.Run("disconnected from any state", func(t *testing.T) {
		cs.ToDisconnected()
		require.True(t, cs.IsDisconnected())

		cs.ToDisconnected()
		require.True(t, cs.IsDisconnected())
	})
}

func TestConnStateHandlers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type change struct {
		prev ConnState
		next ConnState
	}

	var changes []change
	cs := NewConnStateMgr(ctx, nil, func(_ *Connection, prev ConnState, next ConnState) {
		changes = append(changes, change{prev: prev, next: next})
	})

	require.NoError(t, cs.ToConnecting())
	require.NoError(t, cs.ToConnected())
	cs.ToDisconnected()

	require.Equal(t, []change{
		{prev: DisconnectedState, next: ConnectingState},
		{prev: ConnectingState, next: ConnectedState},
		{prev: ConnectedState, next: DisconnectedState},
	}, changes)
}

func TestConnStateWaitState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cs := NewConnStateMgr(ctx, nil)

	t.Run("already in state", func(t *testing.T) {
		require.NoError(t, cs.WaitState(context.Background(), DisconnectedState))
	})

	t.Run("wakes on transition", func(t *testing.T) {
		done := make(chan error, 1)
		go func() {
			done <- cs.WaitState(context.Background(), ConnectedState)
		}()

		require.NoError(t, cs.ToConnecting())
		require.NoError(t, cs.ToConnected())

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("WaitState did not return")
		}
	})

	t.Run("context timeout", func(t *testing.T) {
		waitCtx, waitCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer waitCancel()

		err := cs.WaitState(waitCtx, ConnectingState)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestConnStateDisconnectedAsync(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cs := NewConnStateMgr(ctx, nil)
	require.NoError(t, cs.ToConnecting())
	require.NoError(t, cs.ToConnected())

	cs.ToDisconnectedAsync()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, cs.WaitState(waitCtx, DisconnectedState))
}
