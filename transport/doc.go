// Package transport opens the byte stream a soak run talks over.
//
// Two kinds of address are accepted:
//
//   - a serial device path such as "/dev/ttyUSB0" or "COM3", opened with
//     github.com/tarm/serial at the configured baud rate, 8N1;
//   - "tcp://host:port", dialed as a TCP stream, for serial-to-Ethernet
//     bridges and loopback testing.
//
// The returned [Port] is a plain io.ReadWriteCloser. Its read half and write
// half may be used from two different goroutines at the same time; the
// transport itself is not locked.
package transport
