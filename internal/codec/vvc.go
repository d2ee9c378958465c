package codec

import (
	"github.com/tsmuxer/inputcore/internal/packet"
	"github.com/tsmuxer/inputcore/internal/ticks"
)

// VVC (H.266) NAL unit type constants, ITU-T H.266 Table 5. The header is
// 2 bytes like HEVC, but the type field moves to bits 3..8 of the first
// byte (forbidden_zero_bit, nuh_reserved_zero_bit, nuh_layer_id's high
// bit sit above it).
const (
	vvcNALIDRWRadl  = 7
	vvcNALIDRNlp    = 8
	vvcNALCraNut    = 9
	vvcNALVPS       = 13
	vvcNALSPS       = 14
	vvcNALPPS       = 15
	vvcNALAUD       = 20
	vvcNALSuffixSEI = 24
)

func vvcNALType(firstByte byte) byte { return (firstByte >> 3) & 0x1F }

func vvcIsKeyframe(t byte) bool { return t >= vvcNALIDRWRadl && t <= vvcNALCraNut }
func vvcIsSlice(t byte) bool    { return t <= vvcNALCraNut }

var vvcCodecInfo = packet.CodecInfo{CodecID: "V_MPEGI/ISO/VVC", ProgramName: "VVC", DisplayName: "H.266/VVC", MimeFamily: "video/vvc"}

// VVCParser reuses hevc.go's Annex-B accumulate-until-next-slice shape
// (splitAnnexB, consumeThroughNAL-style offset recovery), generalized to
// VVC's NAL type field position, per SPEC_FULL.md's "VVC reuses the HEVC
// NAL scanner" note.
type VVCParser struct {
	buf []byte
	eof bool

	vps, sps, pps map[int][]byte
	frameDur      int64
}

func NewVVCParser() *VVCParser {
	return &VVCParser{vps: make(map[int][]byte), sps: make(map[int][]byte), pps: make(map[int][]byte)}
}

func (p *VVCParser) CheckStream(buf []byte, _ ContainerType, _ int) CheckResult {
	for i := 0; i+4 < len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 {
			if t := vvcNALType(buf[i+3]); t == vvcNALVPS || t == vvcNALSPS {
				return CheckOK
			}
		}
	}
	return CheckFail
}

func (p *VVCParser) SetBuffer(buf []byte, isEOF bool) {
	p.buf = append(p.buf, buf...)
	p.eof = isEOF
}

func (p *VVCParser) ReadPacket(out *packet.Packet) bool {
	nals := splitAnnexB(p.buf)
	if len(nals) == 0 {
		return false
	}

	sawSlice := false
	cut := -1
	isKey := false
	for i, nal := range nals {
		if len(nal) < 2 {
			continue
		}
		t := vvcNALType(nal[0])
		switch {
		case t == vvcNALVPS:
			p.vps[0] = nal
		case t == vvcNALSPS:
			p.sps[0] = nal
		case t == vvcNALPPS:
			p.pps[0] = nal
		case vvcIsSlice(t):
			if sawSlice {
				cut = i
			} else {
				sawSlice = true
				isKey = vvcIsKeyframe(t)
			}
		}
		if cut >= 0 {
			break
		}
	}
	if cut < 0 {
		return false
	}

	consumed := consumeThroughOffsetH264(p.buf, nals, cut) // offset recovery is codec-agnostic
	emit := nals[:cut]

	out.Reset()
	for _, nal := range emit {
		out.Data = append(out.Data, 0, 0, 0, 1)
		out.Data = append(out.Data, nal...)
	}
	out.Size = len(out.Data)
	if isKey {
		out.Flags |= packet.FlagPriorityData
	}
	out.Duration = p.frameDur
	if p.frameDur == 0 {
		out.Duration = ticks.InternalPTSFreq / 25
	}

	p.buf = p.buf[consumed:]
	return true
}

func (p *VVCParser) FlushPacket(out *packet.Packet) bool {
	if len(p.buf) == 0 {
		return false
	}
	out.Reset()
	out.Data = p.buf
	out.Size = len(p.buf)
	p.buf = nil
	return true
}

func (p *VVCParser) GetFreq() int            { return 0 }
func (p *VVCParser) GetChannels() int        { return 0 }
func (p *VVCParser) GetFrameDuration() int64 { return p.frameDur }
func (p *VVCParser) GetCodecInfo() packet.CodecInfo { return vvcCodecInfo }
func (p *VVCParser) GetTSDescriptor() []byte { return []byte{0x4A, 0x01, 0x00} }
func (p *VVCParser) GetStreamInfo() string   { return vvcCodecInfo.DisplayName }
