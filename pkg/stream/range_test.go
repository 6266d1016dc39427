package stream

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, size int) string {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenFullFile(t *testing.T) {
	path := writeTestFile(t, 1000)

	res, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer res.Body.Close()

	if res.Status != 200 {
		t.Errorf("status = %d, want 200", res.Status)
	}
	if res.Headers["Content-Length"] != "1000" {
		t.Errorf("Content-Length = %q, want 1000", res.Headers["Content-Length"])
	}
	if res.Headers["Accept-Ranges"] != "bytes" {
		t.Errorf("Accept-Ranges = %q, want bytes", res.Headers["Accept-Ranges"])
	}
	body, _ := io.ReadAll(res.Body)
	if len(body) != 1000 {
		t.Errorf("body length = %d, want 1000", len(body))
	}
}

func TestOpenRange(t *testing.T) {
	path := writeTestFile(t, 1000)

	res, err := Open(path, "bytes=0-99")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer res.Body.Close()

	if res.Status != 206 {
		t.Errorf("status = %d, want 206", res.Status)
	}
	if got := res.Headers["Content-Range"]; got != "bytes 0-99/1000" {
		t.Errorf("Content-Range = %q, want bytes 0-99/1000", got)
	}
	if res.ContentLength != 100 {
		t.Errorf("ContentLength = %d, want 100", res.ContentLength)
	}
	body, _ := io.ReadAll(res.Body)
	if len(body) != 100 {
		t.Fatalf("body length = %d, want 100", len(body))
	}

	raw, _ := os.ReadFile(path)
	if !bytes.Equal(body, raw[0:100]) {
		t.Error("body does not match requested span")
	}
}

func TestOpenRangeOpenEnded(t *testing.T) {
	path := writeTestFile(t, 1000)

	res, err := Open(path, "bytes=900-")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer res.Body.Close()

	if got := res.Headers["Content-Range"]; got != "bytes 900-999/1000" {
		t.Errorf("Content-Range = %q, want bytes 900-999/1000", got)
	}
	body, _ := io.ReadAll(res.Body)
	if len(body) != 100 {
		t.Errorf("body length = %d, want 100", len(body))
	}
}

func TestOpenRangeEndClamped(t *testing.T) {
	path := writeTestFile(t, 1000)

	res, err := Open(path, "bytes=950-5000")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer res.Body.Close()

	if got := res.Headers["Content-Range"]; got != "bytes 950-999/1000" {
		t.Errorf("Content-Range = %q, want bytes 950-999/1000", got)
	}
}

func TestOpenRangeMalformed(t *testing.T) {
	path := writeTestFile(t, 1000)

	for _, header := range []string{
		"bytes=abc-10",
		"bytes=-",
		"bytes=",
		"items=0-10",
		"bytes=10",
		"bytes=-100",
		"bytes=500-100",
		"bytes=1000-1001",
	} {
		_, err := Open(path, header)
		if !errors.Is(err, ErrInvalidRange) {
			t.Errorf("Open(%q): expected ErrInvalidRange, got %v", header, err)
		}
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.mp4"), "")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if errors.Is(err, ErrInvalidRange) {
		t.Fatal("missing file must not be reported as an invalid range")
	}
}
