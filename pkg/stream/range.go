// Package stream serves files honoring HTTP byte-range semantics, primarily
// for video delivery.
package stream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/yi-nology/asset_harbor/pkg/mediatype"
)

// ErrInvalidRange reports a malformed or unsatisfiable Range header. Callers
// must answer it with 416 Range Not Satisfiable.
var ErrInvalidRange = errors.New("invalid byte range")

// Result describes one response: the status code, headers, and the body
// stream positioned at the requested span. The caller owns Body and must
// close it.
type Result struct {
	Status        int
	Headers       map[string]string
	ContentLength int64
	Body          io.ReadCloser
}

type sectionReadCloser struct {
	io.Reader
	f *os.File
}

func (s *sectionReadCloser) Close() error { return s.f.Close() }

// Open prepares a full or partial response for the file at path.
//
// Without a range header the whole file is served with status 200 and
// Accept-Ranges advertised. With "bytes=<start>-<end>?" a 206 partial
// response is prepared; a missing end defaults to the last byte. Malformed
// syntax, a start past the end of file, or an inverted span yield
// ErrInvalidRange rather than being served anyway.
func Open(path, rangeHeader string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()
	contentType := mediatype.ByName(path)

	if rangeHeader == "" {
		return &Result{
			Status: 200,
			Headers: map[string]string{
				"Content-Type":   contentType,
				"Content-Length": strconv.FormatInt(size, 10),
				"Accept-Ranges":  "bytes",
			},
			ContentLength: size,
			Body:          f,
		}, nil
	}

	start, end, err := parseRange(rangeHeader, size)
	if err != nil {
		f.Close()
		return nil, err
	}

	length := end - start + 1
	return &Result{
		Status: 206,
		Headers: map[string]string{
			"Content-Type":   contentType,
			"Content-Length": strconv.FormatInt(length, 10),
			"Content-Range":  fmt.Sprintf("bytes %d-%d/%d", start, end, size),
			"Accept-Ranges":  "bytes",
		},
		ContentLength: length,
		Body:          &sectionReadCloser{Reader: io.NewSectionReader(f, start, length), f: f},
	}, nil
}

// parseRange parses "bytes=<start>-<end>?". The end is clamped to the last
// byte of the file; everything else malformed or unsatisfiable is rejected.
func parseRange(header string, size int64) (start, end int64, err error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, header)
	}
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, header)
	}

	start, err = strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, header)
	}

	end = size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, header)
		}
		if end > size-1 {
			end = size - 1
		}
	}

	if start >= size || end < start {
		return 0, 0, fmt.Errorf("%w: bytes %d-%d of %d", ErrInvalidRange, start, end, size)
	}
	return start, end, nil
}
