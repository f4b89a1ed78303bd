// Package csvsource streams rows from an OpenCellID CSV dump.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const delimiter = ','

type Opener func() (io.ReadCloser, error)

type Option func(*Source)

// WithSkipHeader drops the first row of every pass.
func WithSkipHeader() Option {
	return func(s *Source) { s.skipHeader = true }
}

// Source reopens its input on every Rows call, so each pass starts from the
// first row and reads forward to EOF.
type Source struct {
	name       string
	open       Opener
	skipHeader bool
}

// Open reads a file by path. Paths ending in .gz or .zst are decompressed.
func Open(path string, opts ...Option) *Source {
	return New(path, func() (io.ReadCloser, error) { return openFile(path) }, opts...)
}

func New(name string, open Opener, opts ...Option) *Source {
	s := &Source{name: name, open: open}
	for _, f := range opts {
		f(s)
	}
	return s
}

func (s *Source) Name() string { return s.name }

// Rows yields one slice of fields per row. A read error is yielded once and
// ends the sequence. Stopping early closes the input.
func (s *Source) Rows(ctx context.Context) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		rc, err := s.open()
		if err != nil {
			yield(nil, fmt.Errorf("open %s: %w", s.name, err))
			return
		}
		defer rc.Close()

		r := csv.NewReader(rc)
		r.Comma = delimiter
		r.FieldsPerRecord = -1
		r.LazyQuotes = true

		first := true
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			row, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read %s: %w", s.name, err))
				return
			}
			if first {
				first = false
				if s.skipHeader {
					continue
				}
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

type multiCloser struct {
	io.Reader
	closers []func() error
}

func (m *multiCloser) Close() error {
	var errs []error
	for _, c := range m.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return &multiCloser{Reader: zr, closers: []func() error{zr.Close, f.Close}}, nil
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return &multiCloser{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			f.Close,
		}}, nil
	}
	return f, nil
}
