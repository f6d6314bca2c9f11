package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSliceQueue(t *testing.T) {
	require := require.New(t)

	q := NewSliceQueue(4)
	require.True(q.IsEmpty())
	require.Equal(0, q.Length())
	require.Nil(q.Dequeue())
	require.Nil(q.Peek())

	q.Enqueue("chunk-1")
	q.Enqueue("chunk-2")
	q.Enqueue("chunk-3")

	require.False(q.IsEmpty())
	require.Equal(3, q.Length())
	require.Equal("chunk-1", q.Peek())
	require.Equal(3, q.Length()) // Peek must not consume

	require.Equal("chunk-1", q.Dequeue())
	require.Equal("chunk-2", q.Dequeue())
	require.Equal(1, q.Length())

	q.Enqueue("chunk-4")
	require.Equal("chunk-3", q.Dequeue())
	require.Equal("chunk-4", q.Dequeue())
	require.True(q.IsEmpty())
}

func TestSliceQueueReset(t *testing.T) {
	require := require.New(t)

	q := NewSliceQueue(0)
	q.Enqueue("a")
	q.Enqueue("b")
	require.Equal(2, q.Length())

	q.Reset()
	require.True(q.IsEmpty())
	require.Nil(q.Dequeue())

	// Queue must be usable after Reset.
	q.Enqueue("c")
	require.Equal("c", q.Dequeue())
}
