package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerPool(t *testing.T) {
	require := require.New(t)

	timer := GetTimer(10 * time.Millisecond)
	require.NotNil(timer)

	select {
	case <-timer.C:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	PutTimer(timer)

	// Reused timer must fire again with the new duration.
	timer = GetTimer(10 * time.Millisecond)
	select {
	case <-timer.C:
	case <-time.After(time.Second):
		t.Fatal("reused timer did not fire")
	}
	PutTimer(timer)
}

func TestTimerPoolPutActiveTimer(t *testing.T) {
	// Putting back a timer that has not fired must not leak a stale tick
	// into the next Get.
	timer := GetTimer(time.Hour)
	PutTimer(timer)

	timer = GetTimer(5 * time.Millisecond)
	defer PutTimer(timer)

	select {
	case <-timer.C:
	case <-time.After(time.Second):
		t.Fatal("timer with pending reset did not fire")
	}
}
