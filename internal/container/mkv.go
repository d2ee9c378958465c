package container

import (
	"github.com/tsmuxer/inputcore/internal/bytesource"
	"github.com/tsmuxer/inputcore/internal/outcome"
)

// Matroska/EBML element IDs this reduced-scope demuxer recognizes.
const (
	ebmlIDSegment     = 0x18538067
	ebmlIDTracks      = 0x1654AE6B
	ebmlIDTrackEntry  = 0xAE
	ebmlIDTrackNum    = 0xD7
	ebmlIDTrackType   = 0x83
	ebmlIDCluster     = 0x1F43B675
	ebmlIDSimpleBlock = 0xA3
	ebmlIDBlockGroup  = 0xA0
	ebmlIDBlock       = 0xA1
)

// MKVDemuxer is a reduced-scope Matroska/WebM demuxer: it walks Segment →
// Tracks to build the track list, then Segment → Cluster → SimpleBlock (or
// BlockGroup → Block) to extract each track's frame payloads in file
// order. Lacing, CueSheet seeking, and tags are out of scope.
type MKVDemuxer struct {
	src   bytesource.ByteSource
	carry []byte

	tracks []TrackInfo
	known  map[uint16]bool
	data   map[uint16][]byte

	tracksParsed bool
}

func NewMKVDemuxer(src bytesource.ByteSource) *MKVDemuxer {
	return &MKVDemuxer{
		src:   src,
		known: make(map[uint16]bool),
		data:  make(map[uint16][]byte),
	}
}

func (d *MKVDemuxer) GetTrackList() []TrackInfo { return d.tracks }
func (d *MKVDemuxer) GetTrackDelay(uint16) int64 { return 0 }
func (d *MKVDemuxer) GetFileDurationNano() int64 { return 0 }

func (d *MKVDemuxer) SimpleDemuxBlock() outcome.Outcome {
	block, o := d.src.ReadBlock(256 * 1024)
	if o != outcome.OK {
		return o
	}
	d.carry = append(d.carry, block...)
	d.scan()
	return outcome.OK
}

// scan walks every EBML element reachable in the buffered bytes so far,
// parsing Tracks once and appending any new SimpleBlock/Block payloads it
// can fully read. Consumed leading bytes are never discarded here: full
// random access into Segment requires knowing element sizes up front,
// which an append-only byte stream does not guarantee until they arrive.
func (d *MKVDemuxer) scan() {
	pos := 0
	for pos < len(d.carry) {
		id, idLen, ok := readEBMLID(d.carry[pos:])
		if !ok {
			break
		}
		size, sizeLen, ok := readEBMLSize(d.carry[pos+idLen:])
		if !ok {
			break
		}
		bodyStart := pos + idLen + sizeLen
		isMaster := id == ebmlIDSegment || id == ebmlIDTracks || id == ebmlIDTrackEntry ||
			id == ebmlIDCluster || id == ebmlIDBlockGroup

		if isMaster {
			// Descend without consuming: master elements are walked via
			// recursive scanning of their body range once fully buffered.
			if size < 0 || bodyStart+int(size) > len(d.carry) {
				// Segment is commonly size-unknown (streaming write); walk
				// children directly rather than waiting for a bound.
				if id == ebmlIDSegment && size < 0 {
					pos = bodyStart
					continue
				}
				break
			}
			if id == ebmlIDTracks && !d.tracksParsed {
				d.parseTracks(d.carry[bodyStart : bodyStart+int(size)])
				d.tracksParsed = true
			}
			if id == ebmlIDCluster || id == ebmlIDBlockGroup || id == ebmlIDTrackEntry {
				d.scanRange(bodyStart, bodyStart+int(size))
			}
			pos = bodyStart
			continue
		}

		if size < 0 || bodyStart+int(size) > len(d.carry) {
			break
		}
		if id == ebmlIDSimpleBlock || id == ebmlIDBlock {
			d.handleBlock(d.carry[bodyStart : bodyStart+int(size)])
		}
		pos = bodyStart + int(size)
	}
}

func (d *MKVDemuxer) scanRange(from, to int) {
	if to > len(d.carry) {
		to = len(d.carry)
	}
	pos := from
	for pos < to {
		id, idLen, ok := readEBMLID(d.carry[pos:])
		if !ok {
			return
		}
		size, sizeLen, ok := readEBMLSize(d.carry[pos+idLen:])
		if !ok {
			return
		}
		bodyStart := pos + idLen + sizeLen
		if size < 0 || bodyStart+int(size) > to {
			return
		}
		if id == ebmlIDBlockGroup {
			d.scanRange(bodyStart, bodyStart+int(size))
		} else if id == ebmlIDSimpleBlock || id == ebmlIDBlock {
			d.handleBlock(d.carry[bodyStart : bodyStart+int(size)])
		}
		pos = bodyStart + int(size)
	}
}

func (d *MKVDemuxer) parseTracks(body []byte) {
	pos := 0
	for pos < len(body) {
		id, idLen, ok := readEBMLID(body[pos:])
		if !ok {
			return
		}
		size, sizeLen, ok := readEBMLSize(body[pos+idLen:])
		if !ok {
			return
		}
		bodyStart := pos + idLen + sizeLen
		if size < 0 || bodyStart+int(size) > len(body) {
			return
		}
		if id == ebmlIDTrackEntry {
			d.parseTrackEntry(body[bodyStart : bodyStart+int(size)])
		}
		pos = bodyStart + int(size)
	}
}

func (d *MKVDemuxer) parseTrackEntry(body []byte) {
	var trackNum uint16
	var streamType uint8
	pos := 0
	for pos < len(body) {
		id, idLen, ok := readEBMLID(body[pos:])
		if !ok {
			break
		}
		size, sizeLen, ok := readEBMLSize(body[pos+idLen:])
		if !ok {
			break
		}
		bodyStart := pos + idLen + sizeLen
		if size < 0 || bodyStart+int(size) > len(body) {
			break
		}
		val := body[bodyStart : bodyStart+int(size)]
		switch id {
		case ebmlIDTrackNum:
			trackNum = uint16(ebmlUint(val))
		case ebmlIDTrackType:
			streamType = uint8(ebmlUint(val))
		}
		pos = bodyStart + int(size)
	}
	if trackNum != 0 && !d.known[trackNum] {
		d.known[trackNum] = true
		d.tracks = append(d.tracks, TrackInfo{PID: trackNum, StreamType: streamType})
	}
}

func (d *MKVDemuxer) handleBlock(block []byte) {
	trackNum, n, ok := readEBMLVInt(block)
	if !ok || len(block) < n+3 {
		return
	}
	// Skip the 2-byte relative timecode and 1-byte flags field.
	payload := block[n+3:]
	d.data[uint16(trackNum)] = append(d.data[uint16(trackNum)], payload...)
}

func (d *MKVDemuxer) TakePIDData(pid uint16) []byte {
	data, ok := d.data[pid]
	if !ok || len(data) == 0 {
		return nil
	}
	d.data[pid] = nil
	return data
}

// readEBMLID reads a variable-length EBML element ID (the leading bits are
// NOT stripped, unlike size fields — the ID includes its length marker).
func readEBMLID(buf []byte) (id uint32, length int, ok bool) {
	if len(buf) == 0 {
		return 0, 0, false
	}
	length = ebmlVIntLength(buf[0])
	if length == 0 || len(buf) < length {
		return 0, 0, false
	}
	var v uint32
	for i := 0; i < length; i++ {
		v = v<<8 | uint32(buf[i])
	}
	return v, length, true
}

// readEBMLSize reads a variable-length EBML size field, stripping the
// length marker bits. Returns size == -1 for the reserved all-ones
// "unknown size" encoding.
func readEBMLSize(buf []byte) (size int64, length int, ok bool) {
	if len(buf) == 0 {
		return 0, 0, false
	}
	length = ebmlVIntLength(buf[0])
	if length == 0 || len(buf) < length {
		return 0, 0, false
	}
	first := buf[0] &^ (0xFF << uint(8-length))
	var v uint64 = uint64(first)
	allOnes := first == (1<<uint(8-length))-1
	for i := 1; i < length; i++ {
		v = v<<8 | uint64(buf[i])
		allOnes = allOnes && buf[i] == 0xFF
	}
	if allOnes {
		return -1, length, true
	}
	return int64(v), length, true
}

// readEBMLVInt reads a variable-length integer WITH its length marker bits
// stripped (used for Matroska Block track-number fields, which reuse the
// EBML vint encoding but not the ID encoding).
func readEBMLVInt(buf []byte) (v uint64, length int, ok bool) {
	size, length, ok := readEBMLSize(buf)
	return uint64(size), length, ok
}

func ebmlVIntLength(first byte) int {
	for i := 0; i < 8; i++ {
		if first&(0x80>>uint(i)) != 0 {
			return i + 1
		}
	}
	return 0
}

func ebmlUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
