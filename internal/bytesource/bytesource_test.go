package bytesource

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/tsmuxer/inputcore/internal/outcome"
)

type slowReader struct {
	data  []byte
	delay time.Duration
	done  bool
}

func (s *slowReader) Read(p []byte) (int, error) {
	if s.done {
		return 0, io.EOF
	}
	time.Sleep(s.delay)
	n := copy(p, s.data)
	s.done = true
	return n, nil
}

func (s *slowReader) Close() error { return nil }

func TestFileByteSourceDelayedThenReady(t *testing.T) {
	t.Parallel()
	src := NewFileByteSource(&slowReader{data: []byte("hello"), delay: 20 * time.Millisecond}, nil)

	_, o := src.ReadBlock(16)
	if o != outcome.Delayed {
		t.Fatalf("first ReadBlock = %v, want Delayed", o)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, o := src.ReadBlock(16)
		if o == outcome.OK {
			if string(data) != "hello" {
				t.Fatalf("data = %q, want %q", data, "hello")
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("never became ready")
}

func TestFileByteSourceEOF(t *testing.T) {
	t.Parallel()
	src := NewFileByteSource(io.NopCloser(bytes.NewReader(nil)), nil)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, o := src.ReadBlock(16)
		if o == outcome.EOF {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("never reached EOF")
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("boom") }
func (errReader) Close() error              { return nil }

func TestFileByteSourceError(t *testing.T) {
	t.Parallel()
	src := NewFileByteSource(errReader{}, nil)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, o := src.ReadBlock(16)
		if o == outcome.NotReady {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("never surfaced error as NotReady")
}
