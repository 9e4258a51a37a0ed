// Package linecodec frames a raw byte stream into discrete text lines.
//
// A line is a UTF-8 string terminated by an end-of-line delimiter. The
// delimiter is CRLF ("\r\n") by default and can be replaced with
// [WithDelimiter]; only the single configured delimiter is recognized.
// Decoded lines keep their delimiter, so "OK\r\n" decodes to "OK\r\n".
//
// # Decoding
//
// [Codec.Decode] inspects an append-only buffer fed by the transport. It
// consumes and returns at most one line per call and must be called
// repeatedly as bytes arrive:
//
//   - delimiter found: the line including the delimiter is removed and returned;
//     [ErrInvalidEncoding] is returned instead if the line is not valid UTF-8
//     (the bytes are still consumed).
//   - no delimiter, buffer within the frame limit: nothing is consumed.
//   - no delimiter, buffer larger than the frame limit: [ErrFrameTooLong] is
//     returned and the buffer is left untouched for the caller to discard.
//
// # Encoding
//
// [Codec.Encode] appends a line and adds the delimiter only when the line
// does not already end with it.
//
// [Reader] and [Writer] bind a Codec to an io.Reader and io.Writer.
package linecodec
