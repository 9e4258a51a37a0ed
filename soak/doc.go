// Package soak implements a round-based soak test against a line-oriented peer.
//
// A run repeatedly writes a fixed command and waits, bounded by a round
// timeout, for a response line containing an expected substring. Rounds are
// strictly sequential and paced by an inter-round interval. The run ends when:
//
//   - the configured test duration elapses (TimeExpired, success);
//   - more than the configured number of rounds fail back to back
//     (BreakerTripped, failure);
//   - the run context is cancelled (Interrupted);
//   - the transport is closed underneath the run (Aborted, failure).
//
// # Tasks
//
// Two goroutines take part in a run. The reader task owns the read half of
// the transport: it decodes lines and releases the waiting round when a line
// matches. The control loop owns the write half: for every round it arms a
// one-shot match notification, writes the command, and then waits for the
// notification, the round timeout, or cancellation. Arming always happens
// before the write, so a match is only ever credited to the round whose
// command was already on the wire.
//
// # Usage
//
//	tc, _ := soak.DefaultCatalog().Lookup("regular")
//	cfg, _ := soak.NewConfig(tc, soak.WithTestDuration(time.Hour))
//	runner, _ := soak.NewRunner(cfg, port, linecodec.Default())
//	report, err := runner.Run(ctx)
//	os.Exit(report.ExitCode())
package soak
