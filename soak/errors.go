package soak

import "errors"

var (
	// ErrBreakerTripped indicates the run failed because too many rounds failed consecutively.
	ErrBreakerTripped = errors.New("soak: consecutive failures exceeded limit")

	// ErrTransportClosed indicates the transport was closed while the run was active.
	ErrTransportClosed = errors.New("soak: transport closed")

	// ErrInvalidConfig indicates an invalid run configuration.
	ErrInvalidConfig = errors.New("soak: invalid config")

	// ErrUnknownSuite indicates a test suite name missing from the catalog.
	ErrUnknownSuite = errors.New("soak: unknown test suite")

	// ErrAlreadyRunning indicates Run was called on a runner that was already used.
	ErrAlreadyRunning = errors.New("soak: runner already started")
)
