package importer

// streaming.go cleans CSV bytes on their way into encoding/csv:
//
//   - bomSkippingReader drops a leading UTF-8 byte order mark (Excel adds one)
//   - utf8Sanitizer replaces invalid UTF-8 bytes with '?'
//
// Both work on arbitrary read boundaries, so they can sit in front of any reader.

import (
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomSkippingReader removes a UTF-8 BOM from the start of the stream.
type bomSkippingReader struct {
	r       io.Reader
	checked bool
	pending []byte
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{r: r}
}

func (b *bomSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head := make([]byte, len(utf8BOM))
		n, err := io.ReadFull(b.r, head)
		head = head[:n]
		if !bytes.Equal(head, utf8BOM) {
			b.pending = head
		}
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, err
		}
		if err != nil && len(b.pending) == 0 {
			return 0, io.EOF
		}
	}

	if len(b.pending) > 0 {
		n := copy(p, b.pending)
		b.pending = b.pending[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// utf8Sanitizer replaces invalid UTF-8 with '?' without growing the data.
// A multi-byte sequence split across reads is held back until it completes.
type utf8Sanitizer struct {
	r       io.Reader
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) < utf8.UTFMax {
		// Too small to guarantee progress on a held-back sequence.
		buf := make([]byte, utf8.UTFMax)
		n, err := s.Read(buf)
		copied := copy(p, buf[:n])
		if copied < n {
			s.pending = append(buf[copied:n:n], s.pending...)
		}
		return copied, err
	}

	offset := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	atEOF := err == io.EOF
	return s.sanitize(p[:n], atEOF), err
}

// sanitize rewrites data in place and returns how many bytes are ready.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		c := data[read]
		if c < utf8.RuneSelf {
			data[write] = c
			write++
			read++
			continue
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			if !atEOF && !utf8.FullRune(data[read:]) {
				s.pending = append(s.pending, data[read:]...)
				return write
			}
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// wrapForDecoding applies BOM removal then UTF-8 sanitation.
func wrapForDecoding(r io.Reader) io.Reader {
	return newUTF8Sanitizer(newBOMSkippingReader(r))
}
