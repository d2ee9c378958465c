// Package containeradapter implements the single shared adapter that turns
// any container.ContainerDemuxer into a per-PID pull-style byte source for
// codec parsers, enforcing the per-PID Sequential/Fragmented read policy,
// the 192 MiB overflow guard, and the prelude-preserving buffer shift.
package containeradapter

import (
	"fmt"

	"github.com/tsmuxer/inputcore/internal/container"
	"github.com/tsmuxer/inputcore/internal/errs"
	"github.com/tsmuxer/inputcore/internal/outcome"
)

// ReadPolicy controls how eagerly the adapter serves a PID's buffer.
type ReadPolicy int

const (
	// Sequential waits for at least MinReadBlock bytes (or a non-OK demux
	// outcome) before serving data. The default for audio/video PIDs.
	Sequential ReadPolicy = iota
	// Fragmented serves bytes as soon as any exist. Used for PGS/SUP/SRT
	// PIDs, where waiting for 16 KiB would stall small subtitle packets.
	Fragmented
)

// MinReadBlock is the minimum buffered size a Sequential PID waits for.
const MinReadBlock = 16 * 1024

// MaxPIDBuffer is the per-PID overflow limit; exceeding it outside an
// exempt container kind is a fatal ERR_CONTAINER_STREAM_NOT_SYNC.
const MaxPIDBuffer = 192 * 1024 * 1024

// ContainerKind distinguishes container families that need the overflow
// guard (TS/M2TS, program stream, Matroska) from those exempt from it
// (MP4/MOV, where legitimate out-of-order moov/mdat interleave is normal).
type ContainerKind int

const (
	KindTS ContainerKind = iota
	KindProgramStream
	KindMatroska
	KindMP4
	KindMOV
	KindRawES
)

func (k ContainerKind) overflowExempt() bool {
	return k == KindMP4 || k == KindMOV
}

// ReaderID identifies one registered PID reader.
type ReaderID int

type pidBuffer struct {
	policy      ReadPolicy
	preludeLen  int
	buf         []byte // preludeLen bytes of prelude, then the unconsumed tail
	lastOutcome outcome.Outcome
}

type containerEntry struct {
	streamName string
	demuxer    container.ContainerDemuxer
	kind       ContainerKind
	pids       map[uint16]*pidBuffer
	eof        bool
	err        error
	allDelayed bool
}

type readerBinding struct {
	entry *containerEntry
	pid   uint16
}

// ContainerAdapter is the single instance shared by every track sourced
// from containers. It is driven exclusively by the MetaDemuxer's refill
// phase; no locking is required (spec.md §5: exclusive access is a
// structural property of the single driving routine).
type ContainerAdapter struct {
	entries      map[string]*containerEntry
	readers      map[ReaderID]*readerBinding
	nextReaderID ReaderID
	terminated   bool
}

// New creates an empty ContainerAdapter.
func New() *ContainerAdapter {
	return &ContainerAdapter{
		entries: make(map[string]*containerEntry),
		readers: make(map[ReaderID]*readerBinding),
	}
}

// OpenStream registers demuxer under streamName if not already open. A
// second OpenStream for the same streamName is a no-op: the ContainerAdapter
// shares one ContainerDemuxer instance across every PID reader sourced from
// it, per spec.md §3's lifecycle ("a ContainerDemuxer lives until its last
// dependent PID is released").
func (a *ContainerAdapter) OpenStream(streamName string, demuxer container.ContainerDemuxer, kind ContainerKind) {
	if _, ok := a.entries[streamName]; ok {
		return
	}
	a.entries[streamName] = &containerEntry{
		streamName: streamName,
		demuxer:    demuxer,
		kind:       kind,
		pids:       make(map[uint16]*pidBuffer),
	}
}

// AddReader registers a PID on an already-open stream and returns a handle
// for ReadBlock. preludeBytes reserves that many leading bytes in every
// buffer the reader sees, for a consumer (typically a CodecParser) that
// needs to prepend carried-over state without copying.
func (a *ContainerAdapter) AddReader(streamName string, pid uint16, policy ReadPolicy, preludeBytes int) (ReaderID, error) {
	entry, ok := a.entries[streamName]
	if !ok {
		return 0, fmt.Errorf("containeradapter: stream %q not open", streamName)
	}
	pb, ok := entry.pids[pid]
	if !ok {
		pb = &pidBuffer{policy: policy, preludeLen: preludeBytes, buf: make([]byte, preludeBytes)}
		entry.pids[pid] = pb
	}
	id := a.nextReaderID
	a.nextReaderID++
	a.readers[id] = &readerBinding{entry: entry, pid: pid}
	return id, nil
}

// DeleteReader releases a reader; once a stream's last reader is released
// its ContainerDemuxer entry is dropped too.
func (a *ContainerAdapter) DeleteReader(id ReaderID) {
	binding, ok := a.readers[id]
	if !ok {
		return
	}
	delete(a.readers, id)
	delete(binding.entry.pids, binding.pid)
	for rid, b := range a.readers {
		if b.entry == binding.entry {
			_ = rid
			return // another reader still depends on this entry
		}
	}
	delete(a.entries, binding.entry.streamName)
}

// ReadBlock returns the PID's current buffer (prelude included) and the
// outcome of producing it. consumed is the number of post-prelude bytes the
// caller consumed from the buffer it was handed on the previous call; the
// adapter shifts that much off the front (preserving the prelude) before
// topping the buffer back up.
func (a *ContainerAdapter) ReadBlock(id ReaderID, consumed int) ([]byte, outcome.Outcome, error) {
	binding, ok := a.readers[id]
	if !ok {
		return nil, outcome.EOF, nil
	}
	pb := binding.entry.pids[binding.pid]

	if consumed > 0 {
		shiftBuffer(pb, consumed)
	}

	if a.terminated {
		return nil, outcome.EOF, nil
	}

	threshold := MinReadBlock
	if pb.policy == Fragmented {
		threshold = 1
	}

	for len(pb.buf)-pb.preludeLen < threshold {
		o, err := a.pumpEntry(binding.entry, binding.pid)
		if err != nil {
			return nil, 0, err
		}

		switch o {
		case outcome.NotReady, outcome.Delayed:
			// spec.md §4.2/§8: starvation reports Delayed for a Fragmented
			// PID (subtitle/caption consumers must not stall behind the
			// Sequential threshold) and NotReady for a Sequential one,
			// regardless of which starvation code the demuxer itself raised.
			starved := outcome.NotReady
			if pb.policy == Fragmented {
				starved = outcome.Delayed
			}
			pb.lastOutcome = starved
			return nil, starved, nil

		case outcome.EOF, outcome.EOFResidual:
			pb.lastOutcome = o
			if len(pb.buf)-pb.preludeLen > 0 {
				return pb.buf, outcome.OK, nil
			}
			// Preserved verbatim: the adapter's readiness test compares
			// lastOutcome == outcome.EOFResidual against itself, mirroring
			// original_source/tsMuxer/metaDemuxer.cpp:1306-1307's identical
			// repeated operand. Behavior preserved; intent unclear — flagged
			// for review rather than silently collapsed.
			if pb.lastOutcome == outcome.EOFResidual && pb.lastOutcome == outcome.EOFResidual {
				return nil, outcome.EOFResidual, nil
			}
			return nil, outcome.EOF, nil

		default: // outcome.OK: loop again and recheck the threshold
		}
	}

	pb.lastOutcome = outcome.OK
	return pb.buf, outcome.OK, nil
}

// pumpEntry runs one SimpleDemuxBlock round and distributes any newly
// produced bytes to every registered PID on that entry.
func (a *ContainerAdapter) pumpEntry(entry *containerEntry, forPID uint16) (outcome.Outcome, error) {
	if entry.err != nil {
		return outcome.NotReady, nil
	}
	if entry.eof {
		return outcome.EOF, nil
	}

	o := entry.demuxer.SimpleDemuxBlock()
	switch o {
	case outcome.OK:
		entry.allDelayed = false
		for pid, pb := range entry.pids {
			data := entry.demuxer.TakePIDData(pid)
			if len(data) == 0 {
				continue
			}
			pb.buf = append(pb.buf, data...)
			if len(pb.buf)-pb.preludeLen > MaxPIDBuffer && !entry.kind.overflowExempt() {
				return 0, errs.NewStreamError(errs.KindContainerStreamNotSync,
					fmt.Sprintf("PID %d buffer exceeded %d bytes without being consumed", pid, MaxPIDBuffer), nil)
			}
		}
		return outcome.OK, nil

	case outcome.Delayed:
		entry.allDelayed = true
		return outcome.Delayed, nil

	case outcome.NotReady:
		return outcome.NotReady, nil

	case outcome.EOF, outcome.EOFResidual:
		entry.eof = true
		return o, nil
	}
	return o, nil
}

// shiftBuffer discards consumed post-prelude bytes, preserving the prelude
// in place so a consumer can keep writing carried-over state there without
// the adapter copying it on every call.
func shiftBuffer(pb *pidBuffer, consumed int) {
	start := pb.preludeLen + consumed
	if start > len(pb.buf) {
		start = len(pb.buf)
	}
	tail := pb.buf[start:]
	shifted := make([]byte, pb.preludeLen, pb.preludeLen+len(tail))
	copy(shifted, pb.buf[:pb.preludeLen])
	pb.buf = append(shifted, tail...)
}

// ResetDelayedMark clears every entry's soft back-pressure mark so the
// MetaDemuxer's refill phase can retry a round where every stream reported
// Delayed. This is the only mechanism that unsticks that cycle; callers
// bound the number of consecutive resets to avoid spinning forever on a
// producer that truly never advances.
func (a *ContainerAdapter) ResetDelayedMark() {
	for _, entry := range a.entries {
		entry.allDelayed = false
	}
}

// Terminate arms EOF for every PID as of the next ReadBlock call. The
// in-flight demux round (if any) is allowed to complete; no partial state
// is rolled back.
func (a *ContainerAdapter) Terminate() {
	a.terminated = true
}
