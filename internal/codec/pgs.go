package codec

import (
	"encoding/binary"

	"github.com/tsmuxer/inputcore/internal/packet"
)

// PGS (Presentation Graphic Stream) segment types, per the Blu-ray BDSPEC.
const (
	pgsSegPresentationComposition = 0x16
	pgsSegWindow                  = 0x17
	pgsSegPalette                 = 0x14
	pgsSegObject                  = 0x15
	pgsSegEnd                     = 0x80
)

var pgsCodecInfo = packet.CodecInfo{CodecID: "S_HDMV/PGS", ProgramName: "PGS", DisplayName: "HDMV PGS", MimeFamily: "application/vnd.dlna.mpeg-tts"}

// PGSParser is a Fragmented-policy parser (spec.md scenario 5: a display
// set must be emitted the same call it first appears, no 16 KiB wait).
// Each PES payload is a complete display set: a run of segments each
// headed by {type(1), size(2)} ending in an END (0x80) segment.
type PGSParser struct {
	buf []byte
	eof bool
}

func NewPGSParser() *PGSParser { return &PGSParser{} }

func (p *PGSParser) CheckStream(buf []byte, _ ContainerType, _ int) CheckResult {
	if len(buf) < 3 {
		return CheckFail
	}
	switch buf[0] {
	case pgsSegPresentationComposition, pgsSegWindow, pgsSegPalette, pgsSegObject, pgsSegEnd:
		return CheckOK
	default:
		return CheckFail
	}
}

func (p *PGSParser) SetBuffer(buf []byte, isEOF bool) {
	p.buf = append(p.buf, buf...)
	p.eof = isEOF
}

// ReadPacket emits everything buffered up to and including the next END
// segment as one display-set packet, marking it priority data (every PGS
// display set is a random-access point).
func (p *PGSParser) ReadPacket(out *packet.Packet) bool {
	pos := 0
	for pos+3 <= len(p.buf) {
		segType := p.buf[pos]
		segLen := int(binary.BigEndian.Uint16(p.buf[pos+1 : pos+3]))
		end := pos + 3 + segLen
		if end > len(p.buf) {
			return false
		}
		if segType == pgsSegEnd {
			out.Reset()
			out.Data = append([]byte(nil), p.buf[:end]...)
			out.Size = end
			out.Flags |= packet.FlagPriorityData
			p.buf = p.buf[end:]
			return true
		}
		pos = end
	}
	return false
}

func (p *PGSParser) FlushPacket(out *packet.Packet) bool {
	if len(p.buf) == 0 {
		return false
	}
	out.Reset()
	out.Data = p.buf
	out.Size = len(p.buf)
	p.buf = nil
	return true
}

func (p *PGSParser) GetFreq() int            { return 0 }
func (p *PGSParser) GetChannels() int        { return 0 }
func (p *PGSParser) GetFrameDuration() int64 { return 0 }
func (p *PGSParser) GetCodecInfo() packet.CodecInfo { return pgsCodecInfo }
func (p *PGSParser) GetTSDescriptor() []byte { return []byte{0x59, 0x00} }
func (p *PGSParser) GetStreamInfo() string   { return pgsCodecInfo.DisplayName }
