package container

import (
	"github.com/tsmuxer/inputcore/internal/bytesource"
	"github.com/tsmuxer/inputcore/internal/outcome"
)

// rawESPID is the single synthetic PID a RawESDemuxer exposes.
const rawESPID uint16 = 0

// RawESDemuxer is the degenerate ContainerDemuxer for a manifest entry that
// names a bare elementary stream file directly (no container framing). It
// passes bytes from its ByteSource straight through under one fixed PID, so
// the rest of the pipeline — ContainerAdapter, CodecParser, MetaDemuxer —
// needs no special case for "no container".
type RawESDemuxer struct {
	src     bytesource.ByteSource
	pending []byte
}

// NewRawESDemuxer wraps src as a single-track passthrough container.
func NewRawESDemuxer(src bytesource.ByteSource) *RawESDemuxer {
	return &RawESDemuxer{src: src}
}

func (d *RawESDemuxer) GetTrackList() []TrackInfo {
	return []TrackInfo{{PID: rawESPID}}
}

func (d *RawESDemuxer) GetTrackDelay(uint16) int64 { return 0 }
func (d *RawESDemuxer) GetFileDurationNano() int64 { return 0 }

func (d *RawESDemuxer) SimpleDemuxBlock() outcome.Outcome {
	block, o := d.src.ReadBlock(64 * 1024)
	if o != outcome.OK {
		return o
	}
	d.pending = append(d.pending, block...)
	return outcome.OK
}

func (d *RawESDemuxer) TakePIDData(pid uint16) []byte {
	if pid != rawESPID || len(d.pending) == 0 {
		return nil
	}
	data := d.pending
	d.pending = nil
	return data
}
