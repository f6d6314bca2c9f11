package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

// fakeLister simulates the platform enumerator with a mutable port set.
type fakeLister struct {
	mu      sync.Mutex
	details []*enumerator.PortDetails
	err     error
}

func (f *fakeLister) list() ([]*enumerator.PortDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.details, f.err
}

func (f *fakeLister) set(details ...*enumerator.PortDetails) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details = details
}

func newTestRegistry(lister *fakeLister) *Registry {
	r := NewRegistry(nil)
	r.listFn = lister.list

	return r
}

func TestRegistryRefreshAttach(t *testing.T) {
	require := require.New(t)

	lister := &fakeLister{
		details: []*enumerator.PortDetails{
			{Name: "/dev/ttyACM0", IsUSB: true, VID: "2e8a", PID: "0005", SerialNumber: "abc123"},
			{Name: "/dev/ttyS0"},
		},
	}
	r := newTestRegistry(lister)

	var events []string
	r.AddHandler(func(event PortEvent, entry *PortEntry) {
		events = append(events, event.String()+":"+entry.Name)
	})

	attached, err := r.Refresh()
	require.NoError(err)
	require.Len(attached, 2)
	require.Len(events, 2)

	entries := r.List()
	require.Len(entries, 2)
	require.Equal("/dev/ttyACM0", entries[0].Name)
	require.Equal("/dev/ttyS0", entries[1].Name)

	entry, ok := r.Lookup("/dev/ttyACM0")
	require.True(ok)
	require.True(entry.IsUSB)
	require.Equal("/dev/ttyACM0 (USB 2e8a:0005)", entry.Label())

	plain, ok := r.Lookup("/dev/ttyS0")
	require.True(ok)
	require.Equal("/dev/ttyS0", plain.Label())

	// A second refresh with the same ports reports nothing new.
	attached, err = r.Refresh()
	require.NoError(err)
	require.Empty(attached)
	require.Len(events, 2)
}

func TestRegistryRefreshDetach(t *testing.T) {
	require := require.New(t)

	lister := &fakeLister{
		details: []*enumerator.PortDetails{
			{Name: "/dev/ttyACM0", IsUSB: true, VID: "2e8a", PID: "0005"},
			{Name: "/dev/ttyACM1", IsUSB: true, VID: "2e8a", PID: "0005"},
		},
	}
	r := newTestRegistry(lister)

	_, err := r.Refresh()
	require.NoError(err)
	require.Len(r.List(), 2)

	var detached []*PortEntry
	r.AddHandler(func(event PortEvent, entry *PortEntry) {
		if event == PortDetached {
			detached = append(detached, entry)
		}
	})

	// Unplug ACM1.
	lister.set(lister.details[:1]...)

	attached, err := r.Refresh()
	require.NoError(err)
	require.Empty(attached)
	require.Len(detached, 1)
	require.Equal("/dev/ttyACM1", detached[0].Name)

	_, ok := r.Lookup("/dev/ttyACM1")
	require.False(ok)
	require.Len(r.List(), 1)
}

func TestRegistryRefreshError(t *testing.T) {
	require := require.New(t)

	lister := &fakeLister{err: errFakeEnumerate}
	r := newTestRegistry(lister)

	_, err := r.Refresh()
	require.ErrorIs(err, errFakeEnumerate)
	require.Empty(r.List())
}

var errFakeEnumerate = &enumerator.PortEnumerationError{}

func TestRegistryWatch(t *testing.T) {
	lister := &fakeLister{}
	r := newTestRegistry(lister)

	attached := make(chan string, 4)
	r.AddHandler(func(event PortEvent, entry *PortEntry) {
		if event == PortAttached {
			attached <- entry.Name
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		r.Watch(ctx, 5*time.Millisecond)
	}()

	lister.set(&enumerator.PortDetails{Name: "/dev/ttyACM0", IsUSB: true, VID: "2e8a", PID: "0005"})

	select {
	case name := <-attached:
		require.Equal(t, "/dev/ttyACM0", name)
	case <-time.After(time.Second):
		t.Fatal("watch did not observe the attach")
	}

	cancel()

	select {
	case <-watchDone:
	case <-time.After(time.Second):
		t.Fatal("watch did not stop on context cancel")
	}
}
