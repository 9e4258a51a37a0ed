package linecodec

import (
	"bytes"
	"errors"
	"io"
	"time"
)

const readChunkSize = 256

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Reader decodes lines from an io.Reader.
//
// Reader is NOT goroutine-safe; a single consumer owns it, which matches the
// read half of a transport being owned by one task.
type Reader struct {
	r           io.Reader
	codec       *Codec
	buf         bytes.Buffer
	chunk       []byte
	idleTimeout time.Duration
}

// NewReader returns a Reader that decodes lines from r with codec.
func NewReader(r io.Reader, codec *Codec) *Reader {
	return &Reader{
		r:     r,
		codec: codec,
		chunk: make([]byte, readChunkSize),
	}
}

// SetIdleTimeout bounds each underlying Read call by d when r supports
// SetReadDeadline. A timed out read surfaces as os.ErrDeadlineExceeded from
// ReadLine while buffered bytes are kept. Zero disables the deadline.
func (lr *Reader) SetIdleTimeout(d time.Duration) {
	lr.idleTimeout = d
}

// SupportsDeadline reports whether the underlying reader implements
// SetReadDeadline. On such a stream a read never times out with io.EOF, so
// io.EOF means the peer closed its end.
func (lr *Reader) SupportsDeadline() bool {
	_, ok := lr.r.(readDeadliner)
	return ok
}

// Buffered returns the number of bytes read but not yet returned as a line.
func (lr *Reader) Buffered() int {
	return lr.buf.Len()
}

// ReadLine blocks until a complete line is available and returns it.
//
// Codec errors are returned as-is; on ErrFrameTooLong the oversized partial
// frame is discarded so that the next call resynchronizes on the following
// delimiter. Errors from the underlying reader are returned unchanged.
func (lr *Reader) ReadLine() (string, error) {
	for {
		line, ok, err := lr.codec.Decode(&lr.buf)
		if err != nil {
			if errors.Is(err, ErrFrameTooLong) {
				lr.buf.Reset()
			}

			return "", err
		}
		if ok {
			return line, nil
		}

		if err := lr.fill(); err != nil {
			return "", err
		}
	}
}

func (lr *Reader) fill() error {
	if dl, ok := lr.r.(readDeadliner); ok && lr.idleTimeout > 0 {
		if err := dl.SetReadDeadline(time.Now().Add(lr.idleTimeout)); err != nil {
			return err
		}
	}

	n, err := lr.r.Read(lr.chunk)
	lr.buf.Write(lr.chunk[:n])

	if n > 0 {
		// deliver what arrived before reporting the error
		return nil
	}
	if err == nil {
		return io.ErrNoProgress
	}

	return err
}

// Writer encodes lines onto an io.Writer.
//
// Writer is NOT goroutine-safe; a single producer owns it.
type Writer struct {
	w            io.Writer
	codec        *Codec
	scratch      []byte
	writeTimeout time.Duration
}

// NewWriter returns a Writer that frames lines with codec before writing them to w.
func NewWriter(w io.Writer, codec *Codec) *Writer {
	return &Writer{w: w, codec: codec}
}

// SetWriteTimeout bounds each WriteLine call by d when w supports
// SetWriteDeadline. Zero disables the deadline.
func (lw *Writer) SetWriteTimeout(d time.Duration) {
	lw.writeTimeout = d
}

// WriteLine frames line and writes all of its bytes.
func (lw *Writer) WriteLine(line string) error {
	if dl, ok := lw.w.(writeDeadliner); ok && lw.writeTimeout > 0 {
		if err := dl.SetWriteDeadline(time.Now().Add(lw.writeTimeout)); err != nil {
			return err
		}
	}

	lw.scratch = lw.codec.Encode(lw.scratch[:0], line)

	for written := 0; written < len(lw.scratch); {
		n, err := lw.w.Write(lw.scratch[written:])
		written += n

		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}

	return nil
}
