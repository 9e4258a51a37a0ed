package linecodec

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	// DefaultDelimiter terminates every line unless WithDelimiter is used.
	DefaultDelimiter = "\r\n"

	// DefaultMaxFrameSize is the largest number of buffered bytes without a
	// delimiter before Decode reports ErrFrameTooLong.
	DefaultMaxFrameSize = 1024
)

var (
	// ErrInvalidEncoding indicates a decoded line is not valid UTF-8.
	ErrInvalidEncoding = errors.New("linecodec: invalid UTF-8 line")

	// ErrFrameTooLong indicates the buffer exceeded the frame limit without a delimiter.
	ErrFrameTooLong = errors.New("linecodec: frame too long")
)

// Codec converts between a byte buffer and delimiter-terminated lines.
//
// A Codec holds configuration only and is safe for concurrent use.
type Codec struct {
	delim        []byte
	maxFrameSize int
}

// Option configures a Codec.
type Option interface {
	apply(*Codec) error
}

type optFunc func(*Codec) error

func (f optFunc) apply(c *Codec) error { return f(c) }

// WithDelimiter sets the end-of-line delimiter, e.g. "\n" or "\r\n".
func WithDelimiter(delim string) Option {
	return optFunc(func(c *Codec) error {
		if delim == "" {
			return errors.New("linecodec: delimiter must not be empty")
		}
		c.delim = []byte(delim)

		return nil
	})
}

// WithMaxFrameSize sets the frame limit in bytes.
func WithMaxFrameSize(n int) Option {
	return optFunc(func(c *Codec) error {
		if n <= 0 {
			return fmt.Errorf("linecodec: max frame size %d must be positive", n)
		}
		c.maxFrameSize = n

		return nil
	})
}

// New creates a Codec using CRLF and DefaultMaxFrameSize unless overridden by opts.
func New(opts ...Option) (*Codec, error) {
	c := &Codec{
		delim:        []byte(DefaultDelimiter),
		maxFrameSize: DefaultMaxFrameSize,
	}

	for _, opt := range opts {
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Default returns a Codec with the default delimiter and frame limit.
func Default() *Codec {
	c, _ := New()
	return c
}

// Delimiter returns the configured end-of-line delimiter.
func (c *Codec) Delimiter() string { return string(c.delim) }

// MaxFrameSize returns the configured frame limit.
func (c *Codec) MaxFrameSize() int { return c.maxFrameSize }

// Decode removes the first complete line from buf.
//
// ok is false when buf does not hold a complete line yet; in that case nothing
// was consumed. See the package documentation for the error cases.
func (c *Codec) Decode(buf *bytes.Buffer) (line string, ok bool, err error) {
	idx := bytes.Index(buf.Bytes(), c.delim)
	if idx < 0 {
		if buf.Len() > c.maxFrameSize {
			return "", false, fmt.Errorf("%w: %d bytes buffered, limit %d", ErrFrameTooLong, buf.Len(), c.maxFrameSize)
		}

		return "", false, nil
	}

	raw := buf.Next(idx + len(c.delim))
	if !utf8.Valid(raw) {
		return "", false, fmt.Errorf("%w: %q", ErrInvalidEncoding, raw)
	}

	return string(raw), true, nil
}

// Encode appends line to dst, followed by the delimiter unless line already ends with it.
func (c *Codec) Encode(dst []byte, line string) []byte {
	dst = append(dst, line...)
	if !hasSuffix(line, c.delim) {
		dst = append(dst, c.delim...)
	}

	return dst
}

func hasSuffix(s string, suffix []byte) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == string(suffix)
}
