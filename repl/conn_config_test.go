package repl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-replctl/logger"
	"github.com/arloliu/go-replctl/transport"
)

func TestConnConfigDefaults(t *testing.T) {
	cfg, err := NewConnConfig(WithPort("/dev/ttyACM0"))
	require.NoError(t, err)

	require.Equal(t, "/dev/ttyACM0", cfg.PortName())
	require.Equal(t, DefaultBaudRate, cfg.BaudRate())
	require.Equal(t, DefaultOKTimeout, cfg.OKTimeout())
	require.Equal(t, DefaultOKPollInterval, cfg.OKPollInterval())
	require.Equal(t, DefaultCloseTimeout, cfg.CloseTimeout())
	require.Equal(t, DefaultWatchInterval, cfg.WatchInterval())
	require.NotNil(t, cfg.Logger())
	require.NotNil(t, cfg.Terminal())
	require.Nil(t, cfg.Registry())
	require.Nil(t, cfg.Transport())
}

func TestConnConfigOptions(t *testing.T) {
	quiet := logger.NewSlog(logger.ErrorLevel, false)
	lb := transport.NewLoopback(quiet)
	reg := transport.NewRegistry(quiet)
	term := &recordTerminal{}

	cfg, err := NewConnConfig(
		WithPort("COM3"),
		WithBaudRate(9600),
		WithOKTimeout(5*time.Second),
		WithOKPollInterval(50*time.Millisecond),
		WithCloseTimeout(time.Second),
		WithWatchInterval(2*time.Second),
		WithLogger(quiet),
		WithTerminal(term),
		WithRegistry(reg),
		WithTransport(lb),
	)
	require.NoError(t, err)

	require.Equal(t, "COM3", cfg.PortName())
	require.Equal(t, 9600, cfg.BaudRate())
	require.Equal(t, 5*time.Second, cfg.OKTimeout())
	require.Equal(t, 50*time.Millisecond, cfg.OKPollInterval())
	require.Equal(t, time.Second, cfg.CloseTimeout())
	require.Equal(t, 2*time.Second, cfg.WatchInterval())
	require.Equal(t, quiet, cfg.Logger())
	require.Equal(t, term, cfg.Terminal())
	require.Equal(t, reg, cfg.Registry())
	require.Equal(t, lb, cfg.Transport())
}

func TestConnConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		opts []ConnOption
	}{
		{name: "no port and no transport", opts: nil},
		{name: "empty port", opts: []ConnOption{WithPort("")}},
		{name: "zero baud rate", opts: []ConnOption{WithPort("COM3"), WithBaudRate(0)}},
		{name: "ok timeout too small", opts: []ConnOption{WithPort("COM3"), WithOKTimeout(time.Millisecond)}},
		{name: "ok timeout too large", opts: []ConnOption{WithPort("COM3"), WithOKTimeout(time.Minute)}},
		{name: "poll interval too small", opts: []ConnOption{WithPort("COM3"), WithOKPollInterval(time.Microsecond)}},
		{name: "close timeout too small", opts: []ConnOption{WithPort("COM3"), WithCloseTimeout(time.Millisecond)}},
		{name: "watch interval too small", opts: []ConnOption{WithPort("COM3"), WithWatchInterval(time.Millisecond)}},
		{name: "nil logger", opts: []ConnOption{WithPort("COM3"), WithLogger(nil)}},
		{name: "nil terminal", opts: []ConnOption{WithPort("COM3"), WithTerminal(nil)}},
		{name: "nil registry", opts: []ConnOption{WithPort("COM3"), WithRegistry(nil)}},
		{name: "nil transport", opts: []ConnOption{WithPort("COM3"), WithTransport(nil)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConnConfig(tt.opts...)
			require.Error(t, err)
		})
	}
}

func TestNewConnectionNilConfig(t *testing.T) {
	_, err := NewConnection(nil, nil)
	require.ErrorIs(t, err, ErrConnConfigNil)
}
