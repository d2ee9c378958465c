package codec

import (
	"github.com/tsmuxer/inputcore/internal/bitio"
	"github.com/tsmuxer/inputcore/internal/packet"
	"github.com/tsmuxer/inputcore/internal/ticks"
)

const (
	mpeg2SeqHeaderCode = 0xB3
	mpeg2ExtensionCode = 0xB5
	mpeg2GOPHeaderCode = 0xB8
	mpeg2PictureCode   = 0x00
)

var mpeg2FrameRates = map[uint64][2]uint32{
	1: {24000, 1001}, 2: {24, 1}, 3: {25, 1}, 4: {30000, 1001},
	5: {30, 1}, 6: {50, 1}, 7: {60000, 1001}, 8: {60, 1},
}

var mpeg2VideoCodecInfo = packet.CodecInfo{CodecID: "V_MPEG-2", ProgramName: "MPEG-2", DisplayName: "MPEG-2 Video", MimeFamily: "video/mpeg"}

// MPEG2VideoParser accumulates start-code-delimited units and emits one
// packet per picture, marking I-pictures (coding_type==1) as priority data.
// Adapted from the scan-accumulate-then-inspect shape of
// wnielson-go-mediainfo's mpeg2VideoParser, turned into a frame-boundary
// CodecParser rather than a one-shot metadata scan.
type MPEG2VideoParser struct {
	buf []byte
	eof bool

	width, height int
	frameRateNum  uint32
	frameRateDen  uint32
	frameDur      int64
}

func NewMPEG2VideoParser() *MPEG2VideoParser { return &MPEG2VideoParser{} }

func findMPEG2StartCode(buf []byte, from int) (offset int, code byte, ok bool) {
	for i := from; i+4 <= len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 {
			return i, buf[i+3], true
		}
	}
	return -1, 0, false
}

func (p *MPEG2VideoParser) CheckStream(buf []byte, _ ContainerType, _ int) CheckResult {
	off, code, ok := findMPEG2StartCode(buf, 0)
	if !ok || off != 0 || code != mpeg2SeqHeaderCode {
		return CheckFail
	}
	return CheckOK
}

func (p *MPEG2VideoParser) SetBuffer(buf []byte, isEOF bool) {
	p.buf = append(p.buf, buf...)
	p.eof = isEOF
}

// ReadPacket scans forward from the buffer's start, treating the first
// picture_start_code it meets as the opening of the in-progress access unit
// (any sequence/GOP/extension headers preceding it belong to that same
// unit) and the next picture_start_code after that as the boundary closing
// it, parsing non-picture headers encountered along the way for metadata.
func (p *MPEG2VideoParser) ReadPacket(out *packet.Packet) bool {
	search := 0
	sawPicture := false
	var pictureHeaderOff int

	for {
		off, code, ok := findMPEG2StartCode(p.buf, search)
		if !ok {
			return false // need more data to find the closing boundary
		}
		if code != mpeg2PictureCode {
			p.parseNonPicture(code, p.buf[off+4:])
			search = off + 4
			continue
		}
		if !sawPicture {
			sawPicture = true
			pictureHeaderOff = off
			search = off + 4
			continue
		}

		// off is the next access unit's picture start: emit [0, off).
		isI := p.isIntraPicture(p.buf[pictureHeaderOff+4 : off])

		out.Reset()
		out.Data = append([]byte(nil), p.buf[:off]...)
		out.Size = len(out.Data)
		out.Duration = p.frameDur
		if isI {
			out.Flags |= packet.FlagPriorityData
		}

		p.buf = p.buf[off:]
		return true
	}
}

func (p *MPEG2VideoParser) isIntraPicture(pictureHeader []byte) bool {
	if len(pictureHeader) < 2 {
		return false
	}
	r := bitio.NewReader(pictureHeader)
	_, _ = r.ReadBits(10) // temporal_reference
	codingType, _ := r.ReadBits(3)
	return codingType == 1
}

func (p *MPEG2VideoParser) parseNonPicture(code byte, data []byte) {
	switch code {
	case mpeg2SeqHeaderCode:
		p.parseSequenceHeader(data)
	}
}

func (p *MPEG2VideoParser) parseSequenceHeader(data []byte) {
	if len(data) < 8 {
		return
	}
	r := bitio.NewReader(data)
	width, _ := r.ReadBits(12)
	height, _ := r.ReadBits(12)
	_, _ = r.ReadBits(4) // aspect ratio
	frameRateCode, _ := r.ReadBits(4)

	p.width = int(width)
	p.height = int(height)
	if fr, ok := mpeg2FrameRates[frameRateCode]; ok {
		p.frameRateNum, p.frameRateDen = fr[0], fr[1]
		p.frameDur = int64(ticks.InternalPTSFreq) * int64(p.frameRateDen) / int64(p.frameRateNum)
	}
}

func (p *MPEG2VideoParser) FlushPacket(out *packet.Packet) bool {
	if len(p.buf) == 0 {
		return false
	}
	out.Reset()
	out.Data = p.buf
	out.Size = len(p.buf)
	out.Duration = p.frameDur
	p.buf = nil
	return true
}

func (p *MPEG2VideoParser) GetFreq() int     { return 0 }
func (p *MPEG2VideoParser) GetChannels() int { return 0 }
func (p *MPEG2VideoParser) GetFrameDuration() int64 { return p.frameDur }
func (p *MPEG2VideoParser) GetCodecInfo() packet.CodecInfo { return mpeg2VideoCodecInfo }
func (p *MPEG2VideoParser) GetTSDescriptor() []byte { return nil }

func (p *MPEG2VideoParser) GetStreamInfo() string {
	return mpeg2VideoCodecInfo.DisplayName
}
