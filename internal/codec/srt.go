package codec

import (
	"bytes"

	"github.com/tsmuxer/inputcore/internal/packet"
)

var srtCodecInfo = packet.CodecInfo{CodecID: "S_TEXT/UTF8", ProgramName: "SRT", DisplayName: "SubRip", MimeFamily: "text/plain"}

// SRTParser is a Fragmented-policy parser over SubRip cue blocks: a cue is
// an index line, a "start --> end" timing line, one or more text lines,
// and a blank-line terminator. Framed the same scan-for-sentinel shape as
// pgs.go's END-segment search, generalized to a blank-line-pair sentinel.
type SRTParser struct {
	buf []byte
	eof bool
}

func NewSRTParser() *SRTParser { return &SRTParser{} }

func (p *SRTParser) CheckStream(buf []byte, _ ContainerType, _ int) CheckResult {
	if bytes.Contains(buf, []byte("-->")) {
		return CheckOK
	}
	return CheckFail
}

func (p *SRTParser) SetBuffer(buf []byte, isEOF bool) {
	p.buf = append(p.buf, buf...)
	p.eof = isEOF
}

// ReadPacket emits one complete cue block, bounded by a blank-line pair
// ("\n\n") or, failing that, EOF.
func (p *SRTParser) ReadPacket(out *packet.Packet) bool {
	idx := bytes.Index(p.buf, []byte("\n\n"))
	if idx < 0 {
		if p.eof && len(p.buf) > 0 {
			return false // let FlushPacket drain the final cue without a terminator
		}
		return false
	}
	cueEnd := idx + 2

	out.Reset()
	out.Data = append([]byte(nil), p.buf[:cueEnd]...)
	out.Size = cueEnd
	p.buf = p.buf[cueEnd:]
	return true
}

func (p *SRTParser) FlushPacket(out *packet.Packet) bool {
	if len(p.buf) == 0 {
		return false
	}
	out.Reset()
	out.Data = p.buf
	out.Size = len(p.buf)
	p.buf = nil
	return true
}

func (p *SRTParser) GetFreq() int            { return 0 }
func (p *SRTParser) GetChannels() int        { return 0 }
func (p *SRTParser) GetFrameDuration() int64 { return 0 }
func (p *SRTParser) GetCodecInfo() packet.CodecInfo { return srtCodecInfo }
func (p *SRTParser) GetTSDescriptor() []byte { return nil }
func (p *SRTParser) GetStreamInfo() string   { return srtCodecInfo.DisplayName }
