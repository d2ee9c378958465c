package containeradapter

import "github.com/tsmuxer/inputcore/internal/outcome"

// ReaderSource adapts one registered PID reader into a bytesource.ByteSource,
// so a codec parser sourced from a container never has to know it shares a
// ContainerDemuxer with other PIDs. Each returned block is treated as fully
// consumed by the time the next ReadBlock call is made (the same contract
// FileByteSource gives its caller: SetBuffer replaces the block wholesale
// rather than accumulating it), so the reader only needs to remember how
// many bytes it last handed out.
type ReaderSource struct {
	adapter  *ContainerAdapter
	id       ReaderID
	lastSize int
}

// NewReaderSource wraps id, a reader already registered via AddReader, as a
// ByteSource. want is ignored: the adapter serves whatever it has buffered
// for the PID once the policy threshold (Sequential/Fragmented) is met.
func NewReaderSource(adapter *ContainerAdapter, id ReaderID) *ReaderSource {
	return &ReaderSource{adapter: adapter, id: id}
}

func (r *ReaderSource) ReadBlock(want int) ([]byte, outcome.Outcome) {
	buf, rez, err := r.adapter.ReadBlock(r.id, r.lastSize)
	if err != nil {
		return nil, outcome.NotReady
	}
	if rez == outcome.OK {
		r.lastSize = len(buf)
	} else {
		r.lastSize = 0
	}
	return buf, rez
}

// Close releases the underlying reader registration. The shared
// ContainerDemuxer itself is released once every dependent reader is gone.
func (r *ReaderSource) Close() error {
	r.adapter.DeleteReader(r.id)
	return nil
}
