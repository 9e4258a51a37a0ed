package soak

import (
	"sync/atomic"
	"time"
)

// Metrics contains atomic counters of a soak run, safe to read while the run is active.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// RoundCount indicates the number of rounds started.
	RoundCount atomic.Uint64
	// PassCount indicates the number of rounds that received a matching response.
	PassCount atomic.Uint64
	// TimeoutCount indicates the number of rounds that timed out.
	TimeoutCount atomic.Uint64
	// SendErrCount indicates the number of rounds whose command could not be written.
	SendErrCount atomic.Uint64
	// ConsecutiveFailGauge indicates the current run of consecutive failed rounds.
	ConsecutiveFailGauge atomic.Uint32

	// LineRecvCount indicates the number of lines decoded by the reader.
	LineRecvCount atomic.Uint64
	// LineMatchCount indicates the number of decoded lines containing the expected response.
	LineMatchCount atomic.Uint64
	// DecodeErrCount indicates the number of malformed or oversized frames.
	DecodeErrCount atomic.Uint64
	// ReadErrCount indicates the number of failed transport reads, excluding idle timeouts.
	ReadErrCount atomic.Uint64

	// LastLatencyNanos indicates the send-to-match latency of the last passed round.
	LastLatencyNanos atomic.Int64
}

// LastLatency returns the send-to-match latency of the last passed round.
func (m *Metrics) LastLatency() time.Duration {
	return time.Duration(m.LastLatencyNanos.Load())
}

func (m *Metrics) incRoundCount() {
	m.RoundCount.Add(1)
}

func (m *Metrics) recordPass(latency time.Duration) {
	m.PassCount.Add(1)
	m.LastLatencyNanos.Store(int64(latency))
	m.ConsecutiveFailGauge.Store(0)
}

func (m *Metrics) recordTimeout() {
	m.TimeoutCount.Add(1)
	m.ConsecutiveFailGauge.Add(1)
}

func (m *Metrics) recordSendErr() {
	m.SendErrCount.Add(1)
	m.ConsecutiveFailGauge.Add(1)
}

func (m *Metrics) recordClosed() {
	m.ConsecutiveFailGauge.Add(1)
}

func (m *Metrics) incLineRecvCount() {
	m.LineRecvCount.Add(1)
}

func (m *Metrics) incLineMatchCount() {
	m.LineMatchCount.Add(1)
}

func (m *Metrics) incDecodeErrCount() {
	m.DecodeErrCount.Add(1)
}

func (m *Metrics) incReadErrCount() {
	m.ReadErrCount.Add(1)
}
