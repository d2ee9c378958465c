package codec

import "github.com/tsmuxer/inputcore/internal/packet"

var dvbSubCodecInfo = packet.CodecInfo{CodecID: "S_DVBSUB", ProgramName: "DVB Subtitle", DisplayName: "DVB Subtitle", MimeFamily: "application/dvbsubs"}

// DVBSubParser is a Fragmented-policy parser: a DVB subtitle PES payload is
// one display-set frame, so one SetBuffer call's worth of data is emitted
// whole, mirroring lpcm.go's single-frame-per-call shape. Segment walking
// (page/region composition) is adapted from wnielson-go-mediainfo's
// consumeDVBSubtitle; the page ID and region count it records are not used
// by the descriptor or the stream-info text.
type DVBSubParser struct {
	buf        []byte
	eof        bool
	pageID     uint16
	regionsSet int
}

func NewDVBSubParser() *DVBSubParser { return &DVBSubParser{} }

func (p *DVBSubParser) CheckStream(buf []byte, _ ContainerType, _ int) CheckResult {
	if len(buf) < 2 || buf[0] != 0x20 {
		return CheckFail
	}
	return CheckOK
}

func (p *DVBSubParser) SetBuffer(buf []byte, isEOF bool) {
	p.buf = append(p.buf, buf...)
	p.eof = isEOF
}

func (p *DVBSubParser) ReadPacket(out *packet.Packet) bool {
	if len(p.buf) < 2 {
		return false
	}
	p.scanSegments(p.buf)

	out.Reset()
	out.Data = p.buf
	out.Size = len(p.buf)
	out.Flags |= packet.FlagPriorityData
	p.buf = nil
	return true
}

// scanSegments walks page/region composition segments (sync byte 0x0F) the
// same loop shape as consumeDVBSubtitle, keeping only the page ID and
// region count.
func (p *DVBSubParser) scanSegments(payload []byte) {
	pos := 2
	for pos+6 <= len(payload) {
		if payload[pos] != 0x0F {
			pos++
			continue
		}
		segType := payload[pos+1]
		pageID := uint16(payload[pos+2])<<8 | uint16(payload[pos+3])
		segLen := int(payload[pos+4])<<8 | int(payload[pos+5])
		pos += 6
		if segLen < 0 || pos+segLen > len(payload) {
			break
		}
		seg := payload[pos : pos+segLen]
		pos += segLen

		switch segType {
		case 0x10:
			p.pageID = pageID
		case 0x11:
			p.regionsSet++
		}
		_ = seg
	}
}

func (p *DVBSubParser) FlushPacket(out *packet.Packet) bool {
	if len(p.buf) == 0 {
		return false
	}
	out.Reset()
	out.Data = p.buf
	out.Size = len(p.buf)
	p.buf = nil
	return true
}

func (p *DVBSubParser) GetFreq() int            { return 0 }
func (p *DVBSubParser) GetChannels() int        { return 0 }
func (p *DVBSubParser) GetFrameDuration() int64 { return 0 }
func (p *DVBSubParser) GetCodecInfo() packet.CodecInfo { return dvbSubCodecInfo }
func (p *DVBSubParser) GetTSDescriptor() []byte { return []byte{0x59, 0x00} }
func (p *DVBSubParser) GetStreamInfo() string   { return dvbSubCodecInfo.DisplayName }
