// Package codec implements the per-codec frame-boundary parsers and the
// fixed-order autodetector that classifies an unlabeled elementary stream.
package codec

import (
	"github.com/tsmuxer/inputcore/internal/bitio"
	"github.com/tsmuxer/inputcore/internal/packet"
)

// CheckResult is the outcome of a CodecParser's probe against a sample
// buffer during autodetection or manifest-declared stream validation.
type CheckResult int

const (
	CheckFail CheckResult = iota
	CheckOK
	CheckNeedMoreData
)

// ContainerType tells a parser's CheckStream what kind of source the buffer
// came from, since the same codec can be framed differently in a raw ES
// file versus a TS/PES stream (e.g. ADTS vs. LOAS framing for AAC).
type ContainerType int

const (
	ContainerRawES ContainerType = iota
	ContainerTS
	ContainerProgramStream
	ContainerMP4
	ContainerMatroska
)

// Parser is the shared contract every per-codec frame parser implements.
// A Parser is stateful and resumable: SetBuffer hands it the next raw
// block, ReadPacket drains as many complete frames as the buffer allows,
// and FlushPacket drains whatever residue remains once the source is at
// EOF. It never blocks and never fails the stream: the interface has no
// error return, so a parser that finds no sync reports no frame and waits
// for more data.
type Parser interface {
	// CheckStream probes buf for this codec's framing. streamIndex is
	// informational (for log attribution only).
	CheckStream(buf []byte, containerType ContainerType, streamIndex int) CheckResult

	// SetBuffer hands the parser its next block of raw bytes. isEOF
	// indicates no further bytes will ever arrive for this stream.
	SetBuffer(buf []byte, isEOF bool)

	// ReadPacket fills out with the next complete frame. ok is false if no
	// complete frame is available yet (caller should SetBuffer more data
	// and retry, or treat as residue if isEOF was already set).
	ReadPacket(out *packet.Packet) (ok bool)

	// FlushPacket drains one buffered residual frame after EOF. ok is
	// false once nothing remains to flush.
	FlushPacket(out *packet.Packet) (ok bool)

	GetFreq() int
	GetChannels() int
	GetFrameDuration() int64
	GetCodecInfo() packet.CodecInfo
	GetTSDescriptor() []byte
	GetStreamInfo() string
}

// RemoveEmulationBytes strips Annex-B emulation-prevention bytes; shared by
// H.264/HEVC/VVC NAL parsing.
func RemoveEmulationBytes(data []byte) []byte {
	return bitio.RemoveEmulationPrevention(data)
}
