package core

// streaming.go provides io.Reader wrappers for uploaded files and fetched bodies.
//
//   - SkipBOM drops a leading UTF-8 byte order mark written by Windows tools
//   - UTF8Sanitizer replaces invalid UTF-8 bytes with '?' as data streams through
//   - CountingReader tracks bytes read and enforces an optional limit
//
// WrapForParsing applies the first two in the order the CSV reader needs.

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"unicode/utf8"
)

// ErrBodyTooLarge is returned by a CountingReader once its limit is exceeded.
var ErrBodyTooLarge = errors.New("body exceeds size limit")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkipBOM returns a reader positioned after a leading UTF-8 BOM, if any.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// UTF8Sanitizer replaces each invalid UTF-8 byte with '?'. Multi-byte runes
// split across reads are held back until they are complete.
type UTF8Sanitizer struct {
	reader  io.Reader
	pending []byte
	out     []byte
	err     error
	chunk   []byte
}

// NewUTF8Sanitizer wraps r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{reader: r, chunk: make([]byte, 32*1024)}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}

		n, err := s.reader.Read(s.chunk)
		s.pending = append(s.pending, s.chunk[:n]...)
		s.err = err

		end := len(s.pending)
		if err == nil {
			end -= incompleteTail(s.pending)
		}
		s.out = replaceInvalidUTF8(s.pending[:end])
		s.pending = append([]byte(nil), s.pending[end:]...)
	}

	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// incompleteTail returns how many trailing bytes start a rune that is not
// yet complete.
func incompleteTail(b []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if c := b[len(b)-i]; utf8.RuneStart(c) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return i
			}
			return 0
		}
	}
	return 0
}

func replaceInvalidUTF8(b []byte) []byte {
	out := make([]byte, 0, len(b))
	if utf8.Valid(b) {
		return append(out, b...)
	}
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			out = append(out, '?')
		} else {
			out = append(out, b[:size]...)
		}
		b = b[size:]
	}
	return out
}

// CountingReader tracks bytes read. When Limit is positive, reading past it
// fails with ErrBodyTooLarge.
type CountingReader struct {
	reader    io.Reader
	Limit     int64
	BytesRead int64
}

// NewCountingReader wraps r with an optional byte limit (0 means unlimited).
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.BytesRead += int64(n)
	if c.Limit > 0 && c.BytesRead > c.Limit {
		return n, ErrBodyTooLarge
	}
	return n, err
}

// WrapForParsing strips a BOM and sanitizes UTF-8 for text parsers.
func WrapForParsing(r io.Reader) io.Reader {
	return NewUTF8Sanitizer(SkipBOM(r))
}
