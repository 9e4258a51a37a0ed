package soak

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-soak/logger"
)

// Default run settings.
const (
	DefaultTestDuration  = 10 * time.Second
	DefaultRoundInterval = time.Second
	DefaultRoundTimeout  = 30 * time.Millisecond
	DefaultPollInterval  = 5 * time.Millisecond
	DefaultMaxFailCount  = 5
	DefaultSendTimeout   = time.Second
)

// Config holds the settings of a soak run.
type Config struct {
	testCase TestCase

	// testDuration bounds the whole run; no round starts after it elapsed.
	testDuration time.Duration

	// roundInterval is the pause between the end of one round and the start of the next.
	roundInterval time.Duration

	// roundTimeout is measured from the moment the command has been written.
	roundTimeout time.Duration

	// pollInterval is how long the reader waits on a silent transport before
	// re-checking cancellation, and how long it backs off after a read error.
	pollInterval time.Duration

	// maxFailCount is the largest tolerated number of consecutive failed rounds.
	maxFailCount uint32

	sendTimeout      time.Duration
	progressInterval time.Duration

	logger logger.Logger
}

// NewConfig creates a run configuration for tc.
//
// opts are functional options applied in order; see With* functions.
func NewConfig(tc TestCase, opts ...Option) (*Config, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}

	cfg := &Config{
		testCase:      tc,
		testDuration:  DefaultTestDuration,
		roundInterval: DefaultRoundInterval,
		roundTimeout:  DefaultRoundTimeout,
		pollInterval:  DefaultPollInterval,
		maxFailCount:  DefaultMaxFailCount,
		sendTimeout:   DefaultSendTimeout,
		logger:        logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// TestCase returns the command/response pair of the run.
func (cfg *Config) TestCase() TestCase { return cfg.testCase }

// TestDuration returns the total run duration.
func (cfg *Config) TestDuration() time.Duration { return cfg.testDuration }

// RoundInterval returns the pause between rounds.
func (cfg *Config) RoundInterval() time.Duration { return cfg.roundInterval }

// RoundTimeout returns the per-round response timeout.
func (cfg *Config) RoundTimeout() time.Duration { return cfg.roundTimeout }

// PollInterval returns the reader's idle wait and error back-off.
func (cfg *Config) PollInterval() time.Duration { return cfg.pollInterval }

// MaxFailCount returns the consecutive failure limit.
func (cfg *Config) MaxFailCount() uint32 { return cfg.maxFailCount }

// SendTimeout returns the write deadline applied to each command.
func (cfg *Config) SendTimeout() time.Duration { return cfg.sendTimeout }

// ProgressInterval returns the period of progress logs; zero disables them.
func (cfg *Config) ProgressInterval() time.Duration { return cfg.progressInterval }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

func positive(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s %v must be positive", ErrInvalidConfig, name, d)
	}

	return nil
}

// WithTestDuration sets the total run duration. Zero ends the run before
// the first round.
func WithTestDuration(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 {
			return fmt.Errorf("%w: test duration %v must not be negative", ErrInvalidConfig, d)
		}
		cfg.testDuration = d

		return nil
	})
}

// WithRoundInterval sets the pause between rounds. Zero runs rounds back to back.
func WithRoundInterval(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 {
			return fmt.Errorf("%w: round interval %v must not be negative", ErrInvalidConfig, d)
		}
		cfg.roundInterval = d

		return nil
	})
}

// WithRoundTimeout sets how long a round waits for a matching response.
func WithRoundTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if err := positive("round timeout", d); err != nil {
			return err
		}
		cfg.roundTimeout = d

		return nil
	})
}

// WithPollInterval sets the reader's idle wait and error back-off.
func WithPollInterval(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if err := positive("poll interval", d); err != nil {
			return err
		}
		cfg.pollInterval = d

		return nil
	})
}

// WithMaxFailCount sets the consecutive failure limit. The breaker trips once
// the number of consecutive failed rounds exceeds n.
func WithMaxFailCount(n uint32) Option {
	return optFunc(func(cfg *Config) error {
		cfg.maxFailCount = n
		return nil
	})
}

// WithSendTimeout sets the write deadline of each command when the
// transport supports deadlines.
func WithSendTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if err := positive("send timeout", d); err != nil {
			return err
		}
		cfg.sendTimeout = d

		return nil
	})
}

// WithProgressInterval enables a periodic progress log. Zero disables it.
func WithProgressInterval(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 {
			return fmt.Errorf("%w: progress interval %v must not be negative", ErrInvalidConfig, d)
		}
		cfg.progressInterval = d

		return nil
	})
}

// WithLogger sets the logger of the run.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("soak: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
