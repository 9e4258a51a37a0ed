package soak

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/arloliu/go-soak/internal/pool"
	"github.com/arloliu/go-soak/internal/task"
	"github.com/arloliu/go-soak/linecodec"
	"github.com/arloliu/go-soak/logger"
)

// readerStopGrace bounds how long Run waits for a reader blocked in Read
// before it closes the transport.
const readerStopGrace = 500 * time.Millisecond

// Counters are the run totals. They are owned by the control loop and only
// published through Report.
type Counters struct {
	Total              uint64
	Success            uint64
	ConsecutiveFail    uint32
	MaxConsecutiveFail uint32
	Timeouts           uint64
	SendErrors         uint64
}

func (c *Counters) record(out Outcome) {
	if out.Passed {
		c.Success++
		c.ConsecutiveFail = 0

		return
	}

	switch out.Reason { //nolint:exhaustive
	case ReasonTimeout:
		c.Timeouts++
	case ReasonSendError:
		c.SendErrors++
	}

	c.ConsecutiveFail++
	if c.ConsecutiveFail > c.MaxConsecutiveFail {
		c.MaxConsecutiveFail = c.ConsecutiveFail
	}
}

// Report is the final verdict of a run.
type Report struct {
	State    RunState
	Counters Counters
	Elapsed  time.Duration
}

// Passed reports whether the run ended without failure.
func (r Report) Passed() bool {
	return r.State.IsSuccess()
}

// ExitCode returns the process exit code for the report.
func (r Report) ExitCode() int {
	if r.Passed() {
		return 0
	}

	return 1
}

// LogValues returns the report as structured logging key-values.
func (r Report) LogValues() []any {
	return []any{
		"state", r.State.String(),
		"total", r.Counters.Total,
		"success", r.Counters.Success,
		"consecutiveFail", r.Counters.ConsecutiveFail,
		"maxConsecutiveFail", r.Counters.MaxConsecutiveFail,
		"timeouts", r.Counters.Timeouts,
		"sendErrors", r.Counters.SendErrors,
		"elapsed", r.Elapsed,
	}
}

// Runner drives the rounds of one soak run over a transport.
//
// A Runner is single-use: Run may be called once.
type Runner struct {
	cfg     *Config
	rw      io.ReadWriter
	codec   *linecodec.Codec
	logger  logger.Logger
	state   AtomicRunState
	metrics Metrics
}

// NewRunner creates a Runner that reads from and writes to rw using codec.
// A nil codec selects linecodec.Default.
//
// Reads on rw must return periodically: rw should implement
// SetReadDeadline (net.Conn) or have a read timeout (a serial port opened
// with one). Otherwise Run waits readerStopGrace for the reader after the
// run ended and then closes rw when it implements io.Closer.
func NewRunner(cfg *Config, rw io.ReadWriter, codec *linecodec.Codec) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if rw == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidConfig)
	}
	if codec == nil {
		codec = linecodec.Default()
	}

	return &Runner{
		cfg:    cfg,
		rw:     rw,
		codec:  codec,
		logger: cfg.logger,
	}, nil
}

// State returns the current run state.
func (r *Runner) State() RunState {
	return r.state.Get()
}

// Metrics returns the live metrics of the run.
func (r *Runner) Metrics() *Metrics {
	return &r.metrics
}

// Run executes rounds until the test duration elapses, the breaker trips,
// the transport closes, or ctx is cancelled.
//
// The returned error is nil when the duration elapsed or ctx was cancelled,
// wraps ErrBreakerTripped when the breaker tripped and wraps
// ErrTransportClosed when a read or write found the transport closed. Run
// returns only after the reader task has exited.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if !r.state.ToRunning() {
		return Report{State: r.state.Get()}, ErrAlreadyRunning
	}

	tc := r.cfg.testCase
	r.logger.Info("soak test started",
		"command", tc.Command,
		"expected", tc.Expected,
		"testDuration", r.cfg.testDuration,
		"roundInterval", r.cfg.roundInterval,
		"roundTimeout", r.cfg.roundTimeout,
		"maxFailCount", r.cfg.maxFailCount,
	)

	signal := newMatchSignal(tc.Expected)
	closed := newCloseSignal()
	reader := newReaderTask(r.rw, r.codec, signal, closed, r.cfg, &r.metrics)
	rounds := newRoundController(r.rw, r.codec, signal, closed, r.cfg, &r.metrics)

	taskMgr := task.NewManager(ctx, r.logger)
	if err := taskMgr.Start("reader", reader.step); err != nil {
		taskMgr.Stop()

		report := Report{State: AbortedState}
		if errors.Is(err, task.ErrStopped) && ctx.Err() != nil {
			report.State = InterruptedState
			err = nil
		}
		r.state.Finish(report.State)
		r.logReport(report)

		return report, err
	}

	if r.cfg.progressInterval > 0 {
		start := time.Now()
		err := taskMgr.StartInterval("progress", func(context.Context) bool {
			r.logProgress(time.Since(start))
			return true
		}, r.cfg.progressInterval)
		if err != nil {
			r.logger.Warn("progress reporting disabled", "error", err)
		}
	}

	report, err := r.loop(ctx, rounds)

	// the reader must be gone before the caller tears the transport down
	taskMgr.Stop()
	r.waitReader(taskMgr)

	r.state.Finish(report.State)
	r.logReport(report)

	return report, err
}

// waitReader waits for the task goroutines to exit. A reader still blocked
// in Read after readerStopGrace is released by closing the transport.
func (r *Runner) waitReader(taskMgr *task.Manager) {
	done := make(chan struct{})
	go func() {
		taskMgr.Wait()
		close(done)
	}()

	timer := pool.GetTimer(readerStopGrace)
	defer pool.PutTimer(timer)

	select {
	case <-done:
		return
	case <-timer.C:
	}

	c, ok := r.rw.(io.Closer)
	if !ok {
		r.logger.Warn("reader is blocked in read and the transport cannot be closed")
		<-done

		return
	}

	r.logger.Warn("reader is blocked in read, closing transport", "grace", readerStopGrace)
	if err := c.Close(); err != nil {
		r.logger.Debug("close transport", "error", err)
	}
	<-done
}

func (r *Runner) loop(ctx context.Context, rounds *roundController) (Report, error) {
	var counters Counters
	start := time.Now()

	finish := func(state RunState) Report {
		return Report{State: state, Counters: counters, Elapsed: time.Since(start)}
	}

	for {
		if ctx.Err() != nil {
			return finish(InterruptedState), nil
		}

		if time.Since(start) >= r.cfg.testDuration {
			return finish(TimeExpiredState), nil
		}

		if err := rounds.closed.Err(); err != nil {
			r.logger.Error("transport closed, aborting test", "round", counters.Total, "error", err)
			return finish(AbortedState), fmt.Errorf("%w: %w", ErrTransportClosed, err)
		}

		counters.Total++
		out := rounds.run(ctx, counters.Total)
		if out.Reason == ReasonInterrupted {
			return finish(InterruptedState), nil
		}

		counters.record(out)

		if out.Structural() {
			r.logger.Error("transport closed, aborting test", "round", out.Round, "error", out.Err)
			return finish(AbortedState), fmt.Errorf("%w: %w", ErrTransportClosed, out.Err)
		}

		if counters.ConsecutiveFail > r.cfg.maxFailCount {
			r.logger.Error("consecutive fail over max fail count",
				"consecutiveFail", counters.ConsecutiveFail,
				"maxFailCount", r.cfg.maxFailCount,
			)

			return finish(BreakerTrippedState), fmt.Errorf("%w: %d consecutive failures, limit %d",
				ErrBreakerTripped, counters.ConsecutiveFail, r.cfg.maxFailCount)
		}

		if !pool.Sleep(ctx, r.cfg.roundInterval) {
			return finish(InterruptedState), nil
		}
	}
}

func (r *Runner) logProgress(elapsed time.Duration) {
	m := &r.metrics
	r.logger.Info("soak test progress",
		"elapsed", elapsed.Round(time.Second),
		"total", m.RoundCount.Load(),
		"success", m.PassCount.Load(),
		"consecutiveFail", m.ConsecutiveFailGauge.Load(),
		"lastLatency", m.LastLatency(),
	)
}

func (r *Runner) logReport(report Report) {
	kv := append(report.LogValues(),
		"linesReceived", r.metrics.LineRecvCount.Load(),
		"decodeErrors", r.metrics.DecodeErrCount.Load(),
	)

	switch report.State { //nolint:exhaustive
	case TimeExpiredState:
		r.logger.Info("soak test finished", kv...)
	case InterruptedState:
		r.logger.Info("soak test interrupted", kv...)
	default:
		r.logger.Error("soak test failed", kv...)
	}
}

// IsFailure reports whether err returned by Run represents a failed run.
func IsFailure(err error) bool {
	return errors.Is(err, ErrBreakerTripped) || errors.Is(err, ErrTransportClosed)
}
