package soak

import (
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// matchSignal connects the reader task to the round waiting for a response.
//
// Each round arms a fresh one-shot channel before its command is written.
// The reader closes every armed channel when a decoded line contains the
// expected substring. A channel is closed at most once because it is
// removed from the registry with LoadAndDelete before being closed.
type matchSignal struct {
	expected string
	waiters  *xsync.MapOf[uint64, chan struct{}]
}

func newMatchSignal(expected string) *matchSignal {
	return &matchSignal{
		expected: expected,
		waiters:  xsync.NewMapOf[uint64, chan struct{}](),
	}
}

// arm drops waiters left by earlier rounds and registers one for round.
//
// It must be called before the round's command is written.
func (s *matchSignal) arm(round uint64) <-chan struct{} {
	s.waiters.Clear()

	ch := make(chan struct{})
	s.waiters.Store(round, ch)

	return ch
}

// disarm removes the waiter of round, if still registered.
func (s *matchSignal) disarm(round uint64) {
	s.waiters.Delete(round)
}

// armed reports whether any round is waiting for a match.
func (s *matchSignal) armed() bool {
	return s.waiters.Size() > 0
}

// observe evaluates line against the expected substring and releases the
// waiting round on a match. It reports whether line matched.
func (s *matchSignal) observe(line string) bool {
	if !strings.Contains(line, s.expected) {
		return false
	}

	s.waiters.Range(func(round uint64, _ chan struct{}) bool {
		if ch, loaded := s.waiters.LoadAndDelete(round); loaded {
			close(ch)
		}

		return true
	})

	return true
}

// closeSignal records the first failure showing the transport is gone.
// The reader sets it; the control loop and the waiting round observe it.
type closeSignal struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newCloseSignal() *closeSignal {
	return &closeSignal{done: make(chan struct{})}
}

// close records err and releases every observer. Only the first call has an effect.
func (c *closeSignal) close(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

// Done is closed once the transport has been reported closed.
func (c *closeSignal) Done() <-chan struct{} {
	return c.done
}

// Err returns the recorded failure, or nil while the transport is open.
func (c *closeSignal) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}
