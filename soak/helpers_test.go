package soak

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arloliu/go-soak/linecodec"
	"github.com/stretchr/testify/require"
)

var testSuite = TestCase{Command: "$QXMON", Expected: "QXMON,BG1101"}

// respondFunc returns the raw bytes a fake peer writes back for the n-th command.
type respondFunc func(n int, command string) []string

// fakePeer answers commands on the remote end of a net.Pipe.
type fakePeer struct {
	remote   net.Conn
	commands atomic.Int32
	done     chan struct{}
}

// startPeer returns the local end of a pipe served by a fake peer.
func startPeer(t *testing.T, respond respondFunc) (net.Conn, *fakePeer) {
	t.Helper()

	local, remote := net.Pipe()
	peer := &fakePeer{remote: remote, done: make(chan struct{})}

	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
		<-peer.done
	})

	go func() {
		defer close(peer.done)

		lines := linecodec.NewReader(remote, linecodec.Default())
		for {
			cmd, err := lines.ReadLine()
			if err != nil {
				return
			}

			n := int(peer.commands.Add(1))
			for _, resp := range respond(n, cmd) {
				if _, err := remote.Write([]byte(resp)); err != nil {
					return
				}
			}
		}
	}()

	return local, peer
}

func matchingPeer(int, string) []string {
	return []string{"QXMON,BG1101,extra\r\n"}
}

func silentPeer(int, string) []string {
	return nil
}

func newTestConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()

	defaults := []Option{
		WithTestDuration(5 * time.Second),
		WithRoundInterval(time.Millisecond),
		WithRoundTimeout(200 * time.Millisecond),
		WithPollInterval(2 * time.Millisecond),
	}

	cfg, err := NewConfig(testSuite, append(defaults, opts...)...)
	require.NoError(t, err)

	return cfg
}

func newTestRunner(t *testing.T, cfg *Config, conn net.Conn) *Runner {
	t.Helper()

	r, err := NewRunner(cfg, conn, linecodec.Default())
	require.NoError(t, err)

	return r
}
