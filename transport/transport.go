package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/tarm/serial"
)

var (
	// ErrOpen indicates the byte stream could not be opened.
	ErrOpen = errors.New("transport: open failed")

	// ErrInvalidAddress indicates a malformed transport address.
	ErrInvalidAddress = errors.New("transport: invalid address")
)

// Port is an open bidirectional byte stream.
type Port interface {
	io.ReadWriteCloser
}

// Open opens the byte stream described by cfg.
//
// All failures wrap ErrOpen.
func Open(ctx context.Context, cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrOpen)
	}

	l := cfg.logger.With("transport", cfg.kind.String(), "address", cfg.address)

	var (
		port Port
		err  error
	)
	switch cfg.kind {
	case KindTCP:
		port, err = dialTCP(ctx, cfg)
	default:
		port, err = openSerial(cfg)
	}
	if err != nil {
		l.Error("failed to open transport", "error", err)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrOpen, cfg.kind, cfg.address, err)
	}

	l.Debug("transport opened", "baud", cfg.baud)

	return port, nil
}

func dialTCP(ctx context.Context, cfg *Config) (Port, error) {
	dialer := net.Dialer{Timeout: cfg.connectTimeout}

	return dialer.DialContext(ctx, "tcp", cfg.address)
}

func openSerial(cfg *Config) (Port, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.address,
		Baud:        cfg.baud,
		ReadTimeout: cfg.readTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, err
	}

	return port, nil
}
