// Command soaktest repeatedly sends a command to a serial device and checks
// that a matching response arrives within the round timeout.
//
// Usage:
//
//	soaktest /dev/ttyUSB0 -b 921600 -t 3600 -i 1000 --round-timeout 30 -m 5 -s regular
//	soaktest tcp://192.168.1.20:4001 -s single-bd -v
//
// The process exits with 0 when the test duration elapses (or the run is
// interrupted with Ctrl-C) and with 1 when the consecutive failure limit is
// exceeded, the transport fails or the arguments are invalid.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}
