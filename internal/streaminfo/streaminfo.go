// Package streaminfo implements StreamState, the per-configured-track
// record the MetaDemuxer interleaves: a ByteSource handle, a codec parser,
// a time shift, and the EOF/flush bookkeeping the interleaver's selection
// phase depends on.
package streaminfo

import (
	"github.com/tsmuxer/inputcore/internal/bytesource"
	"github.com/tsmuxer/inputcore/internal/codec"
	"github.com/tsmuxer/inputcore/internal/outcome"
	"github.com/tsmuxer/inputcore/internal/packet"
)

const readBlockSize = 16 * 1024

// StreamState is one per configured track. It owns the ByteSource handle,
// the CodecParser, and the bookkeeping the MetaDemuxer's refill/select
// phases read: time shift, last-produced DTS, EOF/flush flags. Field names
// follow the reference StreamInfo record.
type StreamState struct {
	// StreamIndex is this track's position in configuration order; it
	// breaks DTS ties in the interleaver's selection phase and marks the
	// PCR stream when 0.
	StreamIndex int

	// SourceFileName and ManifestName identify the track for logging and
	// diagnostics; ManifestName is the manifest's declared name (may
	// differ from the resolved file path for BD playlist segments).
	SourceFileName string
	ManifestName   string

	// PID is the container PID this stream was demultiplexed from; -1 for
	// a raw elementary-stream source with no container framing.
	PID int

	// IsSubStream marks a dependent-view track (MVC) duplicated from a
	// base-view track sharing the same PID, per the autodetector's
	// duplicate-and-mark-substream handling.
	IsSubStream bool

	// CodecName and AddParams carry the manifest's declared codec and the
	// opaque option table entries the core does not itself interpret
	// (subtitle rendering hints, PiP placement) but must preserve for the
	// downstream consumer.
	CodecName string
	AddParams map[string]string

	// Lang is the track's language, normalized through langnorm before
	// being stored here.
	Lang string

	Source bytesource.ByteSource
	Parser codec.Parser

	// TimeShift is added to both PTS and DTS of every emitted packet, in
	// internal ticks. Set once at construction from the manifest's
	// timeshift option.
	TimeShift int64

	// LastDTS is the DTS (plus TimeShift) plus Duration of the most recently
	// emitted packet, or the initial TimeShift if nothing has been emitted yet.
	// Invariant: monotone non-decreasing after each successful readPacket.
	LastDTS int64

	// LastAVRez is the outcome of this stream's most recent ByteSource
	// read. It is recorded only; whether Read pulls a new block is decided
	// by needsRefill.
	LastAVRez outcome.Outcome

	IsEOF    bool
	Flushed  bool
	Notified bool

	// needsRefill mirrors the reference StreamInfo::read()'s m_lastAVRez
	// check: Read only pulls a new block from the ByteSource when the
	// previous packet-production attempt on this stream failed to produce
	// one. A stream that just produced a packet is assumed to still have
	// buffered data worth trying again before paying for another pull.
	needsRefill bool

	// blockPtr/blockSize record the most recent block handed to the codec
	// parser, for diagnostics only; the parser owns the authoritative copy.
	blockPtr  []byte
	blockSize int
}

// LastBlock returns the most recent block this stream handed to its codec
// parser, for diagnostic/log use only.
func (s *StreamState) LastBlock() []byte { return s.blockPtr[:s.blockSize] }

// New creates a StreamState. timeShift is in internal ticks (see
// ticks.ParseTimeShift); it seeds LastDTS so the stream is not selected
// before its shift elapses.
func New(streamIndex int, sourceFileName, manifestName string, pid int, source bytesource.ByteSource, parser codec.Parser, timeShift int64) *StreamState {
	return &StreamState{
		StreamIndex:    streamIndex,
		SourceFileName: sourceFileName,
		ManifestName:   manifestName,
		PID:            pid,
		Source:         source,
		Parser:         parser,
		TimeShift:      timeShift,
		LastDTS:        timeShift,
		AddParams:      make(map[string]string),
		needsRefill:    true,
	}
}

// Read pulls the next block from the underlying ByteSource and hands it to
// the codec parser, unless the previous packet-production attempt on this
// stream already succeeded (needsRefill false) — in which case it is a
// no-op that reports OK, letting the caller try ReadPacket/FlushPacket
// again against data the parser may still be holding. It is the one
// suspension point a StreamState exposes to the MetaDemuxer's refill
// phase; it never blocks.
func (s *StreamState) Read() outcome.Outcome {
	if s.IsEOF {
		if s.Flushed {
			return outcome.EOF
		}
		return outcome.EOFResidual
	}

	if !s.needsRefill {
		return outcome.OK
	}

	buf, rez := s.Source.ReadBlock(readBlockSize)
	s.LastAVRez = rez

	switch rez {
	case outcome.OK:
		s.blockPtr, s.blockSize = buf, len(buf)
		s.Parser.SetBuffer(buf, false)
		return outcome.OK
	case outcome.EOF:
		s.IsEOF = true
		s.Parser.SetBuffer(nil, true)
		return outcome.EOFResidual
	default:
		return rez
	}
}

// ReadPacket asks the codec parser for the next frame, applies TimeShift,
// and advances LastDTS. Returns false if no complete frame is available,
// in which case the next Read call will pull another block.
func (s *StreamState) ReadPacket(out *packet.Packet) bool {
	if !s.Parser.ReadPacket(out) {
		s.needsRefill = true
		return false
	}
	s.needsRefill = false
	s.applyTimeShift(out)
	return true
}

// FlushPacket drains one residual frame once the stream is at EOF, marking
// Flushed once nothing remains.
func (s *StreamState) FlushPacket(out *packet.Packet) bool {
	if !s.Parser.FlushPacket(out) {
		s.Flushed = true
		return false
	}
	s.applyTimeShift(out)
	return true
}

func (s *StreamState) applyTimeShift(out *packet.Packet) {
	out.StreamIndex = s.StreamIndex
	out.PTS += s.TimeShift
	out.DTS += s.TimeShift
	if s.StreamIndex == 0 {
		out.Flags |= packet.FlagPCRStream
	}
	s.LastDTS = out.DTS + out.Duration
}

// Close releases the underlying ByteSource.
func (s *StreamState) Close() error {
	return s.Source.Close()
}
