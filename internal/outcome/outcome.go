// Package outcome defines the small set of non-fatal result codes shared by
// every pull-style interface in the core: ByteSource, ContainerAdapter,
// CodecParser, and MetaDemuxer all return one of these instead of blocking.
package outcome

// Outcome is a non-fatal result code from a pull-style read.
type Outcome int

const (
	// OK indicates a successful read; output was produced.
	OK Outcome = iota
	// NotReady indicates upstream back-pressure: the caller should stop
	// pulling this round and retry later. For a MetaDemuxer caller, this
	// propagates immediately as the result of the whole readPacket call.
	NotReady
	// Delayed indicates the stream is temporarily unavailable but may
	// recover without the caller backing off entirely; a Fragmented-policy
	// PID, or a producer still buffering. A round where every stream is
	// Delayed triggers ResetDelayedMark and a retry.
	Delayed
	// EOF indicates the underlying source is exhausted and no residue
	// remains to flush.
	EOF
	// EOFResidual indicates the underlying source is exhausted but the
	// parser still holds buffered bytes that must be flushed via
	// FlushPacket before the stream is truly done (spec's DATA_EOF2).
	EOFResidual
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "OK"
	case NotReady:
		return "DATA_NOT_READY"
	case Delayed:
		return "DATA_DELAYED"
	case EOF:
		return "DATA_EOF"
	case EOFResidual:
		return "DATA_EOF2"
	default:
		return "UNKNOWN"
	}
}
