package transport

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.bug.st/serial/enumerator"

	"github.com/arloliu/go-replctl/logger"
)

// PortEvent identifies a hardware-level change observed by the Registry.
type PortEvent int

const (
	// PortAttached indicates a port that was not present on the
	// previous scan.
	PortAttached PortEvent = iota
	// PortDetached indicates a previously known port that disappeared.
	PortDetached
)

// String returns string representation of the event.
func (e PortEvent) String() string {
	switch e {
	case PortAttached:
		return "attached"
	case PortDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// PortEntry pairs a port identity with the descriptive attributes used
// to build a human-readable selection label. The port name is the
// identity key; labels are presentation only and never used for lookup.
type PortEntry struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
}

// Label returns a human-readable description for selection UIs.
func (e *PortEntry) Label() string {
	if e.IsUSB {
		return fmt.Sprintf("%s (USB %s:%s)", e.Name, e.VID, e.PID)
	}

	return e.Name
}

// PortEventHandler is invoked for each attach/detach event observed by
// Refresh. Handlers are invoked synchronously from the refreshing
// goroutine and must not block.
type PortEventHandler func(event PortEvent, entry *PortEntry)

// Registry tracks the serial ports available for a session.
//
// The known-port set is rebuilt by Refresh from the platform enumerator
// and diffed against the previous scan; attach/detach events fire the
// registered handlers. Detach of the active session's port is how the
// connection learns its device was unplugged.
type Registry struct {
	logger logger.Logger
	ports  *xsync.MapOf[string, *PortEntry]

	mu       sync.Mutex
	handlers []PortEventHandler

	// listFn is the enumeration source, replaceable in tests.
	listFn func() ([]*enumerator.PortDetails, error)
}

// NewRegistry creates a Registry backed by the platform port enumerator.
// The initial port set is empty until the first Refresh.
func NewRegistry(l logger.Logger) *Registry {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Registry{
		logger: l,
		ports:  xsync.NewMapOf[string, *PortEntry](),
		listFn: enumerator.GetDetailedPortsList,
	}
}

// AddHandler adds one or more PortEventHandler functions to be invoked
// on attach/detach events.
func (r *Registry) AddHandler(handlers ...PortEventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers = append(r.handlers, handlers...)
}

// List returns the currently known ports sorted by name.
func (r *Registry) List() []*PortEntry {
	entries := make([]*PortEntry, 0, r.ports.Size())
	r.ports.Range(func(_ string, entry *PortEntry) bool {
		entries = append(entries, entry)
		return true
	})

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries
}

// Lookup returns the known entry for the given port name.
func (r *Registry) Lookup(name string) (*PortEntry, bool) {
	return r.ports.Load(name)
}

// Refresh rescans the enumerator, updates the known-port set, fires
// attach/detach handlers for the differences, and returns the newly
// attached ports. It is the programmatic analog of asking the operator
// to authorize a new port: call it, then offer the returned entries for
// selection.
func (r *Registry) Refresh() ([]*PortEntry, error) {
	details, err := r.listFn()
	if err != nil {
		return nil, fmt.Errorf("transport: enumerate ports: %w", err)
	}

	seen := make(map[string]bool, len(details))
	var attached []*PortEntry

	for _, d := range details {
		seen[d.Name] = true

		if _, known := r.ports.Load(d.Name); known {
			continue
		}

		entry := &PortEntry{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
		}
		r.ports.Store(d.Name, entry)
		attached = append(attached, entry)

		r.logger.Debug("port attached", "port", entry.Name, "label", entry.Label())
		r.fireEvent(PortAttached, entry)
	}

	// Remove entries whose port disappeared.
	r.ports.Range(func(name string, entry *PortEntry) bool {
		if !seen[name] {
			r.ports.Delete(name)
			r.logger.Debug("port detached", "port", name)
			r.fireEvent(PortDetached, entry)
		}

		return true
	})

	return attached, nil
}

// Watch polls the enumerator at the given interval until the context is
// done, firing attach/detach handlers for the changes each scan
// observes. It blocks; run it in its own goroutine.
func (r *Registry) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Refresh(); err != nil {
				r.logger.Debug("port scan failed", "error", err)
			}
		}
	}
}

func (r *Registry) fireEvent(event PortEvent, entry *PortEntry) {
	r.mu.Lock()
	handlers := make([]PortEventHandler, len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.Unlock()

	for _, handler := range handlers {
		if handler != nil {
			handler(event, entry)
		}
	}
}
