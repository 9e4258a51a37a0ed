package soak

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/arloliu/go-soak/internal/pool"
	"github.com/arloliu/go-soak/linecodec"
	"github.com/arloliu/go-soak/logger"
)

// FailReason classifies a failed round.
type FailReason int

const (
	ReasonNone FailReason = iota
	ReasonTimeout
	ReasonSendError
	ReasonInterrupted
	ReasonTransportClosed
)

func (r FailReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonTimeout:
		return "timeout"
	case ReasonSendError:
		return "send error"
	case ReasonInterrupted:
		return "interrupted"
	case ReasonTransportClosed:
		return "transport closed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one round.
type Outcome struct {
	Round  uint64
	Passed bool
	Reason FailReason
	// Err holds the write error of a ReasonSendError outcome or the read
	// error of a ReasonTransportClosed outcome.
	Err error
	// Latency is the time from the end of the write to the match.
	Latency time.Duration
}

// Structural reports whether the round failed because the transport itself is gone.
func (o Outcome) Structural() bool {
	return o.Reason == ReasonTransportClosed ||
		(o.Reason == ReasonSendError && isStructural(o.Err))
}

// isStructural reports whether err means the byte stream itself is gone.
// EIO and ENXIO are what a serial device reports after it was unplugged.
func isStructural(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EIO) ||
		errors.Is(err, syscall.ENXIO)
}

// roundController runs one round at a time. It is the only user of the
// write half of the transport.
type roundController struct {
	writer  *linecodec.Writer
	signal  *matchSignal
	closed  *closeSignal
	command string
	timeout time.Duration
	metrics *Metrics
	logger  logger.Logger
}

func newRoundController(w io.Writer, codec *linecodec.Codec, signal *matchSignal, closed *closeSignal, cfg *Config, metrics *Metrics) *roundController {
	writer := linecodec.NewWriter(w, codec)
	writer.SetWriteTimeout(cfg.sendTimeout)

	return &roundController{
		writer:  writer,
		signal:  signal,
		closed:  closed,
		command: cfg.testCase.Command,
		timeout: cfg.roundTimeout,
		metrics: metrics,
		logger:  cfg.logger.With("task", "round"),
	}
}

// run sends the command and waits for the matching response.
func (rc *roundController) run(ctx context.Context, round uint64) Outcome {
	rc.metrics.incRoundCount()

	matched := rc.signal.arm(round)
	defer rc.signal.disarm(round)

	rc.logger.Trace("sending", "round", round, "line", rc.command)
	if err := rc.writer.WriteLine(rc.command); err != nil {
		rc.metrics.recordSendErr()
		rc.logger.Error("send command error", "round", round, "error", err)

		return Outcome{Round: round, Reason: ReasonSendError, Err: err}
	}
	sentAt := time.Now()

	timer := pool.GetTimer(rc.timeout)
	defer pool.PutTimer(timer)

	select {
	case <-matched:
		return rc.pass(round, sentAt)

	case <-timer.C:
		// a match may have raced the timer
		select {
		case <-matched:
			return rc.pass(round, sentAt)
		default:
		}

		rc.metrics.recordTimeout()
		rc.logger.Debug("round timeout", "round", round, "timeout", rc.timeout)

		return Outcome{Round: round, Reason: ReasonTimeout}

	case <-rc.closed.Done():
		// the reader evaluates every line before it sees the hang-up
		select {
		case <-matched:
			return rc.pass(round, sentAt)
		default:
		}

		rc.metrics.recordClosed()
		rc.logger.Error("transport closed while waiting for response", "round", round, "error", rc.closed.Err())

		return Outcome{Round: round, Reason: ReasonTransportClosed, Err: rc.closed.Err()}

	case <-ctx.Done():
		return Outcome{Round: round, Reason: ReasonInterrupted}
	}
}

func (rc *roundController) pass(round uint64, sentAt time.Time) Outcome {
	latency := time.Since(sentAt)
	rc.metrics.recordPass(latency)
	rc.logger.Debug("round passed", "round", round, "latency", latency)

	return Outcome{Round: round, Passed: true, Latency: latency}
}
