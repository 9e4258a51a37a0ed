package transport

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/arloliu/go-soak/logger"
)

// Default transport settings.
const (
	DefaultBaud           = 921600
	DefaultReadTimeout    = 100 * time.Millisecond // serial VTIME granularity is 100ms
	DefaultConnectTimeout = 3 * time.Second

	tcpScheme = "tcp://"
)

// Kind identifies the kind of byte stream an address refers to.
type Kind int

const (
	KindSerial Kind = iota
	KindTCP
)

func (k Kind) String() string {
	switch k {
	case KindSerial:
		return "serial"
	case KindTCP:
		return "tcp"
	default:
		return "unknown"
	}
}

// Config holds the settings used by Open.
type Config struct {
	address        string
	kind           Kind
	baud           int
	readTimeout    time.Duration
	connectTimeout time.Duration
	logger         logger.Logger
}

// NewConfig creates a transport configuration for address.
//
// opts are functional options applied in order; see With* functions.
func NewConfig(address string, opts ...Option) (*Config, error) {
	cfg := &Config{
		baud:           DefaultBaud,
		readTimeout:    DefaultReadTimeout,
		connectTimeout: DefaultConnectTimeout,
		logger:         logger.GetLogger(),
	}

	if err := cfg.setAddress(address); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (cfg *Config) setAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	if hostPort, ok := strings.CutPrefix(address, tcpScheme); ok {
		if _, _, err := net.SplitHostPort(hostPort); err != nil {
			return fmt.Errorf("%w: %q: %w", ErrInvalidAddress, address, err)
		}
		cfg.kind = KindTCP
		cfg.address = hostPort

		return nil
	}

	cfg.kind = KindSerial
	cfg.address = address

	return nil
}

// Address returns the device path, or host:port for TCP.
func (cfg *Config) Address() string { return cfg.address }

// Kind returns the kind of byte stream the address refers to.
func (cfg *Config) Kind() Kind { return cfg.kind }

// Baud returns the serial baud rate.
func (cfg *Config) Baud() int { return cfg.baud }

// ReadTimeout returns the serial read timeout.
func (cfg *Config) ReadTimeout() time.Duration { return cfg.readTimeout }

// ConnectTimeout returns the TCP dial timeout.
func (cfg *Config) ConnectTimeout() time.Duration { return cfg.connectTimeout }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithBaud sets the serial baud rate. Ignored for TCP.
func WithBaud(baud int) Option {
	return optFunc(func(cfg *Config) error {
		if baud <= 0 {
			return fmt.Errorf("transport: baud rate %d must be positive", baud)
		}
		cfg.baud = baud

		return nil
	})
}

// WithReadTimeout sets how long a serial read waits for data before
// returning empty. Ignored for TCP, where read deadlines are used instead.
func WithReadTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("transport: read timeout must be positive")
		}
		cfg.readTimeout = d

		return nil
	})
}

// WithConnectTimeout sets the TCP dial timeout.
func WithConnectTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("transport: connect timeout must be positive")
		}
		cfg.connectTimeout = d

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
