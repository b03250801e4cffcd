package source

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkipBOM returns a reader that drops a leading UTF-8 byte order mark.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// UTF8Sanitizer replaces invalid UTF-8 bytes with '?' while streaming. A
// multi-byte sequence split across reads is held back until it completes.
type UTF8Sanitizer struct {
	r       io.Reader
	pending []byte
}

// NewUTF8Sanitizer wraps r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

// Read fills p with sanitized bytes. p must hold at least utf8.UTFMax bytes.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) < utf8.UTFMax {
		return 0, io.ErrShortBuffer
	}
	off := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}
	atEOF := err == io.EOF

	write := 0
	for read := 0; read < n; {
		b := p[read]
		if b < utf8.RuneSelf {
			p[write] = b
			write++
			read++
			continue
		}
		if !atEOF && !utf8.FullRune(p[read:n]) {
			s.pending = append(s.pending, p[read:n]...)
			break
		}
		r, size := utf8.DecodeRune(p[read:n])
		if r == utf8.RuneError && size == 1 {
			p[write] = '?'
			write++
			read++
			continue
		}
		copy(p[write:], p[read:read+size])
		write += size
		read += size
	}

	if write == 0 && len(s.pending) > 0 && err == nil {
		// only a partial rune so far; read again
		return s.Read(p)
	}
	return write, err
}

// CountingReader counts the bytes read through it.
type CountingReader struct {
	r io.Reader
	N int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.N += int64(n)
	return n, err
}

// WrapText strips a BOM and sanitizes UTF-8. The BOM must go first.
func WrapText(r io.Reader) io.Reader {
	return NewUTF8Sanitizer(SkipBOM(r))
}
