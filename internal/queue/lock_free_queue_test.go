package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockFreeQueue(t *testing.T) {
	require := require.New(t)

	q := NewLockFreeQueue()
	require.True(q.IsEmpty())
	require.Nil(q.Dequeue())
	require.Nil(q.Peek())

	q.Enqueue("input-1")
	q.Enqueue("input-2")
	require.Equal(2, q.Length())
	require.Equal("input-1", q.Peek())

	require.Equal("input-1", q.Dequeue())
	require.Equal("input-2", q.Dequeue())
	require.Nil(q.Dequeue())
	require.True(q.IsEmpty())
}

func TestLockFreeQueueReset(t *testing.T) {
	require := require.New(t)

	q := NewLockFreeQueue()
	q.Enqueue(1)
	q.Enqueue(2)
	q.Reset()
	require.True(q.IsEmpty())
	require.Nil(q.Dequeue())
}

// TestLockFreeQueueConcurrent exercises the MPSC pattern the session
// engine relies on: many producers enqueueing operator input, one
// consumer draining after the producers finish.
func TestLockFreeQueueConcurrent(t *testing.T) {
	require := require.New(t)

	const producers = 8
	const perProducer = 1000

	q := NewLockFreeQueue()

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(p*perProducer + i)
			}
		}(p)
	}
	wg.Wait()

	require.Equal(producers*perProducer, q.Length())

	seen := make(map[int]bool, producers*perProducer)
	for {
		v := q.Dequeue()
		if v == nil {
			break
		}
		n := v.(int)
		require.False(seen[n], "duplicate item %d", n)
		seen[n] = true
	}

	require.Len(seen, producers*perProducer)
	require.True(q.IsEmpty())
}
