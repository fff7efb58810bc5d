package collector

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/ulikunitz/xz"
)

const maxLineBytes = 1024 * 1024

// LineStream yields the plain-text lines of a possibly compressed log file.
type LineStream struct {
	scanner *bufio.Scanner
	closers []func() error
	line    string
}

// NewLineStream wraps an already-decoded reader.
func NewLineStream(r io.Reader) *LineStream {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &LineStream{scanner: sc}
}

// Next advances to the next line. It returns false at end of input or on error.
func (l *LineStream) Next() (string, bool) {
	if !l.scanner.Scan() {
		return "", false
	}
	l.line = l.scanner.Text()
	return l.line, true
}

// Err returns the first read or decompression error, if any.
func (l *LineStream) Err() error { return l.scanner.Err() }

// Close releases mappings, decoders and the underlying file, newest first.
func (l *LineStream) Close() error {
	var first error
	for i := len(l.closers) - 1; i >= 0; i-- {
		if err := l.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	return first
}

// Open returns a line stream for the segment, decompressing by suffix.
func (s Segment) Open() (*LineStream, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}

	var r io.Reader
	closers := []func() error{f.Close}

	switch s.Compression {
	case "gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip %s: %w", s.Path, err)
		}
		r = gz
		closers = append(closers, gz.Close)
	case "bz2":
		r = bzip2.NewReader(f)
	case "xz":
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz %s: %w", s.Path, err)
		}
		r = xr
	default:
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		// mmap refuses zero-length files.
		if info.Size() == 0 {
			r = bytes.NewReader(nil)
			break
		}
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("mmap %s: %w", s.Path, err)
		}
		r = bytes.NewReader(m)
		closers = append(closers, m.Unmap)
	}

	ls := NewLineStream(r)
	ls.closers = closers
	return ls, nil
}
