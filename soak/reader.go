package soak

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/arloliu/go-soak/internal/pool"
	"github.com/arloliu/go-soak/linecodec"
	"github.com/arloliu/go-soak/logger"
)

// readerTask decodes lines from the read half of the transport and feeds
// them to the match signal. It is the only user of the read half.
type readerTask struct {
	lines   *linecodec.Reader
	signal  *matchSignal
	closed  *closeSignal
	metrics *Metrics
	backoff time.Duration
	logger  logger.Logger
}

func newReaderTask(r io.Reader, codec *linecodec.Codec, signal *matchSignal, closed *closeSignal, cfg *Config, metrics *Metrics) *readerTask {
	lines := linecodec.NewReader(r, codec)
	lines.SetIdleTimeout(cfg.pollInterval)

	return &readerTask{
		lines:   lines,
		signal:  signal,
		closed:  closed,
		metrics: metrics,
		backoff: cfg.pollInterval,
		logger:  cfg.logger.With("task", "reader"),
	}
}

// step reads and evaluates one line. It returns false once ctx is done or
// the transport has been reported closed.
func (rt *readerTask) step(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}

	line, err := rt.lines.ReadLine()
	if err != nil {
		return rt.handleError(ctx, err) && ctx.Err() == nil
	}

	rt.metrics.incLineRecvCount()
	rt.logger.Trace("received", "line", line)

	if rt.signal.observe(line) {
		rt.metrics.incLineMatchCount()
		rt.logger.Debug("matching response received", "line", line)
	} else {
		rt.logger.Trace("line not expected", "line", line)
	}

	return true
}

// handleError classifies a read failure and reports whether reading may continue.
func (rt *readerTask) handleError(ctx context.Context, err error) bool {
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded):
		// idle line, nothing to report
		return true

	case errors.Is(err, linecodec.ErrInvalidEncoding), errors.Is(err, linecodec.ErrFrameTooLong):
		rt.metrics.incDecodeErrCount()
		rt.logger.Warn("discarding malformed frame", "error", err)

		return true

	case errors.Is(err, io.EOF) && !rt.lines.SupportsDeadline(),
		errors.Is(err, io.ErrNoProgress):
		// serial ports report an expired read timeout as an empty read
		rt.logger.Trace("read returned no data", "error", err)

	case isStructural(err):
		rt.metrics.incReadErrCount()
		if ctx.Err() != nil {
			rt.logger.Debug("transport closed after stop", "error", err)
		} else {
			rt.logger.Error("transport closed", "error", err)
		}
		rt.closed.close(err)

		return false

	default:
		rt.metrics.incReadErrCount()
		rt.logger.Debug("read error", "error", err)
	}

	pool.Sleep(ctx, rt.backoff)

	return true
}
