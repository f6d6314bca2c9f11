package repl

import (
	"errors"
	"time"

	"github.com/arloliu/go-replctl/logger"
	"github.com/arloliu/go-replctl/transport"
)

// Default, minimum and maximum values for connection configuration options.
const (
	// DefaultBaudRate is the serial line rate used when none is given.
	DefaultBaudRate = transport.DefaultBaudRate

	// DefaultOKTimeout is the total time to wait for the raw-mode
	// acknowledgement marker from the remote.
	DefaultOKTimeout = 3 * time.Second
	// MinOKTimeout is the minimum allowed acknowledgement timeout.
	MinOKTimeout = 10 * time.Millisecond
	// MaxOKTimeout is the maximum allowed acknowledgement timeout.
	MaxOKTimeout = 30 * time.Second

	// DefaultOKPollInterval is the read slice used while polling for the
	// acknowledgement marker.
	DefaultOKPollInterval = 100 * time.Millisecond
	// MinOKPollInterval is the minimum allowed poll interval.
	MinOKPollInterval = time.Millisecond
	// MaxOKPollInterval is the maximum allowed poll interval.
	MaxOKPollInterval = time.Second

	// DefaultCloseTimeout is the time to wait for background tasks to
	// drain when closing the connection.
	DefaultCloseTimeout = 3 * time.Second
	// MinCloseTimeout is the minimum allowed close timeout.
	MinCloseTimeout = 100 * time.Millisecond
	// MaxCloseTimeout is the maximum allowed close timeout.
	MaxCloseTimeout = 30 * time.Second

	// DefaultWatchInterval is how often the port registry is rescanned
	// for attach and detach events.
	DefaultWatchInterval = time.Second
	// MinWatchInterval is the minimum allowed watch interval.
	MinWatchInterval = 100 * time.Millisecond
	// MaxWatchInterval is the maximum allowed watch interval.
	MaxWatchInterval = time.Minute
)

// ConnConfig holds the configuration of a device connection. Use
// NewConnConfig with ConnOption values to build one.
type ConnConfig struct {
	portName       string
	baudRate       int
	okTimeout      time.Duration
	okPollInterval time.Duration
	closeTimeout   time.Duration
	watchInterval  time.Duration
	logger         logger.Logger
	terminal       Terminal
	registry       *transport.Registry
	transport      transport.Transport
}

// ConnOption is the interface implemented by all connection options.
type ConnOption interface {
	apply(*ConnConfig) error
}

type connOptFunc struct {
	fn func(*ConnConfig) error
}

func (f *connOptFunc) apply(cfg *ConnConfig) error {
	return f.fn(cfg)
}

func newConnOptFunc(fn func(*ConnConfig) error) *connOptFunc {
	return &connOptFunc{fn: fn}
}

// NewConnConfig creates a new ConnConfig with the given options applied
// on top of the defaults.
func NewConnConfig(opts ...ConnOption) (*ConnConfig, error) {
	cfg := &ConnConfig{
		baudRate:       DefaultBaudRate,
		okTimeout:      DefaultOKTimeout,
		okPollInterval: DefaultOKPollInterval,
		closeTimeout:   DefaultCloseTimeout,
		watchInterval:  DefaultWatchInterval,
		logger:         logger.GetLogger(),
		terminal:       nopTerminal{},
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.transport == nil && cfg.portName == "" {
		return nil, errors.New("either a port name or a transport is required")
	}

	return cfg, nil
}

// WithPort sets the serial port name, e.g. "/dev/ttyACM0" or "COM3".
func WithPort(name string) ConnOption {
	return newConnOptFunc(func(cfg *ConnConfig) error {
		if name == "" {
			return errors.New("port name can not be empty")
		}
		cfg.portName = name

		return nil
	})
}

// WithBaudRate sets the serial line rate. The default is 115200.
func WithBaudRate(baud int) ConnOption {
	return newConnOptFunc(func(cfg *ConnConfig) error {
		if baud <= 0 {
			return errors.New("baud rate must be positive")
		}
		cfg.baudRate = baud

		return nil
	})
}

// WithOKTimeout sets the total time to wait for the remote's raw-mode
// acknowledgement before an exchange is aborted with ErrOKTimeout.
func WithOKTimeout(timeout time.Duration) ConnOption {
	return newConnOptFunc(func(cfg *ConnConfig) error {
		if timeout < MinOKTimeout || timeout > MaxOKTimeout {
			return errors.New("invalid acknowledgement timeout")
		}
		cfg.okTimeout = timeout

		return nil
	})
}

// WithOKPollInterval sets the read slice used while polling for the
// acknowledgement marker.
func WithOKPollInterval(interval time.Duration) ConnOption {
	return newConnOptFunc(func(cfg *ConnConfig) error {
		if interval < MinOKPollInterval || interval > MaxOKPollInterval {
			return errors.New("invalid acknowledgement poll interval")
		}
		cfg.okPollInterval = interval

		return nil
	})
}

// WithCloseTimeout sets the time to wait for background tasks to drain
// when closing the connection.
func WithCloseTimeout(timeout time.Duration) ConnOption {
	return newConnOptFunc(func(cfg *ConnConfig) error {
		if timeout < MinCloseTimeout || timeout > MaxCloseTimeout {
			return errors.New("invalid close timeout")
		}
		cfg.closeTimeout = timeout

		return nil
	})
}

// WithWatchInterval sets how often the port registry is rescanned for
// attach and detach events. Only meaningful together with WithRegistry.
func WithWatchInterval(interval time.Duration) ConnOption {
	return newConnOptFunc(func(cfg *ConnConfig) error {
		if interval < MinWatchInterval || interval > MaxWatchInterval {
			return errors.New("invalid watch interval")
		}
		cfg.watchInterval = interval

		return nil
	})
}

// WithLogger sets the logger used by the connection and its background
// tasks.
func WithLogger(l logger.Logger) ConnOption {
	return newConnOptFunc(func(cfg *ConnConfig) error {
		if l == nil {
			return errors.New("logger can not be nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithTerminal sets the terminal surface that receives relayed device
// output and error lines. Without it output is discarded.
func WithTerminal(t Terminal) ConnOption {
	return newConnOptFunc(func(cfg *ConnConfig) error {
		if t == nil {
			return errors.New("terminal can not be nil")
		}
		cfg.terminal = t

		return nil
	})
}

// WithRegistry sets the port registry the connection watches for
// detach events of its own port.
func WithRegistry(r *transport.Registry) ConnOption {
	return newConnOptFunc(func(cfg *ConnConfig) error {
		if r == nil {
			return errors.New("registry can not be nil")
		}
		cfg.registry = r

		return nil
	})
}

// WithTransport sets an explicit transport instead of opening a serial
// port by name. Intended for tests and alternative byte streams.
func WithTransport(t transport.Transport) ConnOption {
	return newConnOptFunc(func(cfg *ConnConfig) error {
		if t == nil {
			return errors.New("transport can not be nil")
		}
		cfg.transport = t

		return nil
	})
}

// PortName returns the configured serial port name.
func (cfg *ConnConfig) PortName() string { return cfg.portName }

// BaudRate returns the configured serial line rate.
func (cfg *ConnConfig) BaudRate() int { return cfg.baudRate }

// OKTimeout returns the configured acknowledgement timeout.
func (cfg *ConnConfig) OKTimeout() time.Duration { return cfg.okTimeout }

// OKPollInterval returns the configured acknowledgement poll interval.
func (cfg *ConnConfig) OKPollInterval() time.Duration { return cfg.okPollInterval }

// CloseTimeout returns the configured close timeout.
func (cfg *ConnConfig) CloseTimeout() time.Duration { return cfg.closeTimeout }

// WatchInterval returns the configured registry watch interval.
func (cfg *ConnConfig) WatchInterval() time.Duration { return cfg.watchInterval }

// Logger returns the configured logger.
func (cfg *ConnConfig) Logger() logger.Logger { return cfg.logger }

// Terminal returns the configured terminal surface.
func (cfg *ConnConfig) Terminal() Terminal { return cfg.terminal }

// Registry returns the configured port registry, or nil.
func (cfg *ConnConfig) Registry() *transport.Registry { return cfg.registry }

// Transport returns the configured transport override, or nil.
func (cfg *ConnConfig) Transport() transport.Transport { return cfg.transport }
