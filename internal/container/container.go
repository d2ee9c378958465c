// Package container implements the ContainerDemuxer family: one demuxer per
// container format, each extracting per-PID (or per-track) elementary byte
// runs for the ContainerAdapter to turn into codec-parser input. Container
// demuxers never block: each round is driven by a single SimpleDemuxBlock
// call that pulls from an underlying bytesource.ByteSource and reports the
// same non-blocking outcome vocabulary.
package container

import "github.com/tsmuxer/inputcore/internal/outcome"

// TrackInfo describes one elementary stream discovered inside a container.
type TrackInfo struct {
	PID        uint16
	StreamType uint8
	// Language is set when the container (or a sidecar clip-info source)
	// carries a language tag for this track; empty otherwise.
	Language string
}

// ContainerDemuxer is implemented once per container family. A single
// instance is shared by every track sourced from the same underlying file,
// and is driven exclusively by the ContainerAdapter.
type ContainerDemuxer interface {
	// GetTrackList returns the tracks discovered so far. For streaming
	// formats (TS) this list can grow as PAT/PMT sections arrive.
	GetTrackList() []TrackInfo
	// GetTrackDelay returns the track's initial presentation delay in
	// internal ticks, derived from the first timestamp the container
	// format carries for that track. Zero if the format carries none.
	GetTrackDelay(pid uint16) int64
	// GetFileDurationNano returns the container's declared duration in
	// nanoseconds, or 0 if the format carries no duration field.
	GetFileDurationNano() int64
	// SimpleDemuxBlock pulls one round of input from the underlying byte
	// source and appends any newly completed elementary byte runs to
	// their respective PID buffers (drained via TakePIDData). It never
	// blocks: the returned Outcome mirrors the ByteSource outcome that
	// produced it.
	SimpleDemuxBlock() outcome.Outcome
	// TakePIDData returns and clears the buffered elementary bytes for
	// pid. Returns nil if nothing is buffered.
	TakePIDData(pid uint16) []byte
}
