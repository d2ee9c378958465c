package container

import (
	"github.com/tsmuxer/inputcore/internal/bytesource"
	"github.com/tsmuxer/inputcore/internal/outcome"
)

// Program-stream (MPEG-1/2 PS, .vob/.mpg) start codes.
const (
	psPackStartCode    = 0x000001BA
	psSystemHeaderCode = 0x000001BB
	psProgramEndCode   = 0x000001B9
)

type psTrackState struct {
	pid      uint16 // synthetic: the stream_id byte
	data     []byte
	firstPTS int64
	sawPTS   bool
}

// ProgStreamDemuxer demuxes an MPEG program stream: a sequence of packs,
// each holding a system header and/or PES packets, with no PSI layer —
// stream identity is the PES stream_id byte itself.
type ProgStreamDemuxer struct {
	src    bytesource.ByteSource
	carry  []byte
	tracks []TrackInfo
	known  map[uint16]bool
	states map[uint16]*psTrackState
}

// NewProgStreamDemuxer creates a program-stream demuxer pulling from src.
func NewProgStreamDemuxer(src bytesource.ByteSource) *ProgStreamDemuxer {
	return &ProgStreamDemuxer{
		src:    src,
		known:  make(map[uint16]bool),
		states: make(map[uint16]*psTrackState),
	}
}

func (d *ProgStreamDemuxer) GetTrackList() []TrackInfo { return d.tracks }

func (d *ProgStreamDemuxer) GetTrackDelay(pid uint16) int64 {
	if s, ok := d.states[pid]; ok && s.sawPTS {
		return s.firstPTS
	}
	return 0
}

func (d *ProgStreamDemuxer) GetFileDurationNano() int64 { return 0 }

func (d *ProgStreamDemuxer) SimpleDemuxBlock() outcome.Outcome {
	block, o := d.src.ReadBlock(64 * 1024)
	if o != outcome.OK {
		return o
	}
	buf := append(d.carry, block...)

	pos := 0
	for {
		start := findStartCode(buf, pos)
		if start < 0 {
			break
		}
		if len(buf) < start+4 {
			break
		}
		code := uint32(buf[start])<<24 | uint32(buf[start+1])<<16 | uint32(buf[start+2])<<8 | uint32(buf[start+3])

		switch {
		case code == psPackStartCode:
			if len(buf) < start+14 {
				pos = start
				goto carryRemainder
			}
			pos = start + 14 // fixed pack_header length for MPEG-2 PS (no stuffing parsed)

		case code == psSystemHeaderCode:
			if len(buf) < start+6 {
				pos = start
				goto carryRemainder
			}
			hdrLen := int(buf[start+4])<<8 | int(buf[start+5])
			end := start + 6 + hdrLen
			if end > len(buf) {
				pos = start
				goto carryRemainder
			}
			pos = end

		case code == psProgramEndCode:
			pos = start + 4

		case code >= 0x000001BD && code <= 0x000001FF || (code&0xFFFFFF00) == 0x00000100:
			streamID := uint16(code & 0xFF)
			next := findStartCode(buf, start+4)
			// PES packets carry an explicit length; trust it when present,
			// otherwise fall back to the next start code as the boundary.
			if len(buf) < start+6 {
				pos = start
				goto carryRemainder
			}
			pesLen := int(buf[start+4])<<8 | int(buf[start+5])
			end := start + 6 + pesLen
			if pesLen == 0 {
				if next < 0 {
					pos = start
					goto carryRemainder
				}
				end = next
			} else if end > len(buf) {
				pos = start
				goto carryRemainder
			}
			d.handlePESPacket(streamID, buf[start:end])
			pos = end

		default:
			pos = start + 1
		}
	}

carryRemainder:
	if pos > len(buf) {
		pos = len(buf)
	}
	d.carry = append(d.carry[:0], buf[pos:]...)
	return outcome.OK
}

func findStartCode(buf []byte, from int) int {
	for i := from; i+3 < len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 {
			return i
		}
	}
	return -1
}

func (d *ProgStreamDemuxer) handlePESPacket(streamID uint16, pkt []byte) {
	if !isElementaryStreamID(streamID) {
		return
	}
	if !d.known[streamID] {
		d.known[streamID] = true
		d.tracks = append(d.tracks, TrackInfo{PID: streamID})
		d.states[streamID] = &psTrackState{pid: streamID}
	}
	s := d.states[streamID]

	if len(pkt) < 9 {
		return
	}
	ptsDTSIndicator := (pkt[7] >> 6) & 0x03
	headerDataLength := int(pkt[8])
	dataStart := 9 + headerDataLength
	if dataStart > len(pkt) {
		dataStart = len(pkt)
	}
	if !s.sawPTS && (ptsDTSIndicator == 2 || ptsDTSIndicator == 3) && len(pkt) >= 14 {
		s.firstPTS = pesTimestamp(pkt[9:14])
		s.sawPTS = true
	}
	if dataStart < len(pkt) {
		s.data = append(s.data, pkt[dataStart:]...)
	}
}

// isElementaryStreamID reports whether a PES stream_id carries audio/video
// payload rather than padding/private/system data.
func isElementaryStreamID(id uint16) bool {
	return (id >= 0xC0 && id <= 0xDF) || // audio
		(id >= 0xE0 && id <= 0xEF) || // video
		id == 0xBD // private_stream_1 (AC-3/DTS/PGS/subtitles in VOB)
}

func (d *ProgStreamDemuxer) TakePIDData(pid uint16) []byte {
	s, ok := d.states[pid]
	if !ok || len(s.data) == 0 {
		return nil
	}
	data := s.data
	s.data = nil
	return data
}
