// Package bytesource implements the abstract random-access byte producer
// that every ContainerDemuxer and raw-ES CodecParser pulls from. A
// ByteSource never blocks its caller: it reports readiness through
// [outcome.Outcome] instead.
package bytesource

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tsmuxer/inputcore/internal/outcome"
)

// ByteSource is an abstract random-access byte producer. ReadBlock must
// never block; it reports DATA_DELAYED/DATA_NOT_READY instead.
type ByteSource interface {
	// ReadBlock requests up to want bytes. It returns the bytes actually
	// available (which may be fewer than requested, or none on
	// outcome.Delayed/NotReady), and the outcome of the attempt.
	ReadBlock(want int) ([]byte, outcome.Outcome)
	// Close releases the underlying resource.
	Close() error
}

// FileByteSource adapts a blocking io.Reader (typically an os.File) into
// the non-blocking ByteSource contract by running reads on a background
// goroutine and surfacing readiness through an atomic state machine. This
// mirrors the ingest layer's pattern of decoupling a blocking I/O producer
// from a non-blocking consumer-facing API, generalized here from a push
// (io.Pipe) model to the pull model the core's codec parsers require.
type FileByteSource struct {
	log *slog.Logger
	r   io.ReadCloser

	mu      sync.Mutex
	pending []byte
	reading bool
	eof     bool
	err     error

	notify chan struct{}
	closed atomic.Bool
}

// NewFileByteSource wraps r (closed when Close is called). If log is nil,
// slog.Default() is used.
func NewFileByteSource(r io.ReadCloser, log *slog.Logger) *FileByteSource {
	if log == nil {
		log = slog.Default()
	}
	return &FileByteSource{
		log:    log.With("component", "bytesource"),
		r:      r,
		notify: make(chan struct{}, 1),
	}
}

// ReadBlock returns buffered bytes if any are available. If none are ready
// and no background read is in flight, it starts one and returns Delayed;
// a read already in flight also yields Delayed. Once the background read
// completes, the next call drains it.
func (f *FileByteSource) ReadBlock(want int) ([]byte, outcome.Outcome) {
	if f.closed.Load() {
		return nil, outcome.EOF
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) > 0 {
		n := want
		if n > len(f.pending) {
			n = len(f.pending)
		}
		chunk := f.pending[:n]
		f.pending = f.pending[n:]
		return chunk, outcome.OK
	}

	if f.err != nil {
		return nil, outcome.NotReady
	}

	if f.eof {
		return nil, outcome.EOF
	}

	if !f.reading {
		f.reading = true
		go f.pump(want)
	}
	return nil, outcome.Delayed
}

func (f *FileByteSource) pump(want int) {
	buf := make([]byte, want)
	n, err := f.r.Read(buf)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.reading = false
	if n > 0 {
		f.pending = append(f.pending, buf[:n]...)
	}
	if err != nil {
		if err == io.EOF {
			f.eof = true
		} else {
			f.err = err
			f.log.Warn("background read failed", "error", err)
		}
	}
}

// Close releases the underlying reader.
func (f *FileByteSource) Close() error {
	f.closed.Store(true)
	return f.r.Close()
}
