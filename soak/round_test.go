package soak

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/arloliu/go-soak/linecodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startRoundPair wires a reader task and a round controller to one pipe end.
func startRoundPair(t *testing.T, cfg *Config, respond respondFunc) (*roundController, *Metrics) {
	t.Helper()

	conn, _ := startPeer(t, respond)
	metrics := &Metrics{}
	signal := newMatchSignal(cfg.testCase.Expected)
	closed := newCloseSignal()
	reader := newReaderTask(conn, linecodec.Default(), signal, closed, cfg, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for reader.step(ctx) {
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return newRoundController(conn, linecodec.Default(), signal, closed, cfg, metrics), metrics
}

func TestRoundController_Pass(t *testing.T) {
	cfg := newTestConfig(t)
	rc, metrics := startRoundPair(t, cfg, func(int, string) []string {
		return []string{"QXMON,BG1101,extra\r\n"}
	})

	out := rc.run(context.Background(), 1)
	assert.True(t, out.Passed)
	assert.Equal(t, ReasonNone, out.Reason)
	assert.Equal(t, uint64(1), out.Round)
	assert.Less(t, out.Latency, cfg.RoundTimeout())
	assert.Equal(t, uint64(1), metrics.PassCount.Load())
	assert.Equal(t, out.Latency, metrics.LastLatency())
}

func TestRoundController_SkipsUnrelatedLines(t *testing.T) {
	cfg := newTestConfig(t)
	rc, metrics := startRoundPair(t, cfg, func(int, string) []string {
		return []string{"BOOT\r\n", "QXMON,", "BG1101\r\n"}
	})

	out := rc.run(context.Background(), 1)
	assert.True(t, out.Passed)
	assert.Equal(t, uint64(2), metrics.LineRecvCount.Load())
}

func TestRoundController_PassAfterMalformedLine(t *testing.T) {
	cfg := newTestConfig(t)
	rc, metrics := startRoundPair(t, cfg, func(int, string) []string {
		return []string{"\xff\xfe\r\n", "QXMON,BG1101\r\n"}
	})

	out := rc.run(context.Background(), 1)
	assert.True(t, out.Passed)
	assert.Equal(t, uint64(1), metrics.DecodeErrCount.Load())
}

func TestRoundController_Timeout(t *testing.T) {
	cfg := newTestConfig(t, WithRoundTimeout(30*time.Millisecond))
	rc, metrics := startRoundPair(t, cfg, silentPeer)

	begin := time.Now()
	out := rc.run(context.Background(), 1)
	assert.False(t, out.Passed)
	assert.Equal(t, ReasonTimeout, out.Reason)
	assert.GreaterOrEqual(t, time.Since(begin), 30*time.Millisecond)
	assert.Equal(t, uint64(1), metrics.TimeoutCount.Load())
	assert.Equal(t, uint32(1), metrics.ConsecutiveFailGauge.Load())
}

func TestRoundController_LateResponseDoesNotLeak(t *testing.T) {
	cfg := newTestConfig(t, WithRoundTimeout(30*time.Millisecond))

	// the first response arrives after round 1 timed out; the second
	// command gets no response of its own
	rc, _ := startRoundPair(t, cfg, func(n int, _ string) []string {
		if n == 1 {
			time.Sleep(60 * time.Millisecond)
			return []string{"QXMON,BG1101\r\n"}
		}
		return nil
	})

	out := rc.run(context.Background(), 1)
	assert.Equal(t, ReasonTimeout, out.Reason)

	time.Sleep(80 * time.Millisecond) // late response is read with no round armed

	out = rc.run(context.Background(), 2)
	assert.Equal(t, ReasonTimeout, out.Reason, "late response must not pass round 2")
}

func TestRoundController_Interrupted(t *testing.T) {
	cfg := newTestConfig(t, WithRoundTimeout(time.Minute))
	rc, _ := startRoundPair(t, cfg, silentPeer)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	out := rc.run(ctx, 1)
	assert.Equal(t, ReasonInterrupted, out.Reason)
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestRoundController_SendError(t *testing.T) {
	cfg := newTestConfig(t)
	metrics := &Metrics{}
	signal := newMatchSignal(cfg.testCase.Expected)

	rc := newRoundController(failingWriter{err: errors.New("device busy")}, linecodec.Default(), signal, newCloseSignal(), cfg, metrics)
	out := rc.run(context.Background(), 1)
	assert.Equal(t, ReasonSendError, out.Reason)
	assert.False(t, out.Structural())
	assert.False(t, signal.armed(), "waiter is removed once the round ends")
	assert.Equal(t, uint64(1), metrics.SendErrCount.Load())

	rc = newRoundController(failingWriter{err: io.ErrClosedPipe}, linecodec.Default(), signal, newCloseSignal(), cfg, metrics)
	out = rc.run(context.Background(), 2)
	assert.True(t, out.Structural())
}

func TestFailReason_String(t *testing.T) {
	assert.Equal(t, "timeout", ReasonTimeout.String())
	assert.Equal(t, "send error", ReasonSendError.String())
	assert.Equal(t, "interrupted", ReasonInterrupted.String())
	assert.Equal(t, "transport closed", ReasonTransportClosed.String())
	assert.Equal(t, "none", ReasonNone.String())
	assert.Equal(t, "unknown", FailReason(42).String())
}

func TestIsStructural(t *testing.T) {
	require.True(t, isStructural(io.EOF))
	require.True(t, isStructural(io.ErrClosedPipe))
	require.True(t, isStructural(&net.OpError{Op: "write", Net: "tcp", Err: os.NewSyscallError("write", syscall.EPIPE)}))
	require.True(t, isStructural(&net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)}))
	require.True(t, isStructural(&os.PathError{Op: "read", Path: "/dev/ttyUSB0", Err: syscall.EIO}))
	require.True(t, isStructural(syscall.ENXIO))
	require.False(t, isStructural(os.ErrDeadlineExceeded))
	require.False(t, isStructural(errors.New("parity error")))
	require.False(t, isStructural(nil))
}

func TestRoundController_PeerHangUpEndsRound(t *testing.T) {
	cfg := newTestConfig(t, WithRoundTimeout(time.Minute))

	var peer *fakePeer
	conn, peer := startPeer(t, func(int, string) []string {
		_ = peer.remote.Close()
		return nil
	})

	metrics := &Metrics{}
	signal := newMatchSignal(cfg.testCase.Expected)
	closed := newCloseSignal()
	reader := newReaderTask(conn, linecodec.Default(), signal, closed, cfg, metrics)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for reader.step(context.Background()) {
		}
	}()

	rc := newRoundController(conn, linecodec.Default(), signal, closed, cfg, metrics)

	begin := time.Now()
	out := rc.run(context.Background(), 1)
	assert.Less(t, time.Since(begin), 5*time.Second, "round must not wait for its timeout")
	assert.Equal(t, ReasonTransportClosed, out.Reason)
	assert.True(t, isStructural(out.Err), "got %v", out.Err)
	assert.True(t, out.Structural())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader kept reading a closed transport")
	}
}

func TestRoundController_ResponseBeforeHangUpPasses(t *testing.T) {
	cfg := newTestConfig(t, WithRoundTimeout(time.Minute))

	var peer *fakePeer
	conn, peer := startPeer(t, func(int, string) []string {
		go func() {
			_, _ = peer.remote.Write([]byte("QXMON,BG1101\r\n"))
			_ = peer.remote.Close()
		}()
		return nil
	})

	metrics := &Metrics{}
	signal := newMatchSignal(cfg.testCase.Expected)
	closed := newCloseSignal()
	reader := newReaderTask(conn, linecodec.Default(), signal, closed, cfg, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for reader.step(ctx) {
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	rc := newRoundController(conn, linecodec.Default(), signal, closed, cfg, metrics)
	out := rc.run(context.Background(), 1)
	assert.True(t, out.Passed)
}
