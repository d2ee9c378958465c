package codec

import (
	"github.com/tsmuxer/inputcore/internal/bitio"
	"github.com/tsmuxer/inputcore/internal/packet"
	"github.com/tsmuxer/inputcore/internal/ticks"
)

// HEVC NAL unit type constants, ITU-T H.265 Table 7-1.
const (
	hevcNALBlaWLP    = 16
	hevcNALIDRWRadl  = 19
	hevcNALIDRNlp    = 20
	hevcNALCraNut    = 21
	hevcNALVPS       = 32
	hevcNALSPS       = 33
	hevcNALPPS       = 34
	hevcNALAUD       = 35
	hevcNALEOS       = 36
	hevcNALEOB       = 37
	hevcNALFiller    = 38
	hevcNALSEIPrefix = 39
	hevcNALSEISuffix = 40
)

func hevcNALType(firstByte byte) byte { return (firstByte >> 1) & 0x3F }

func hevcIsKeyframe(nalType byte) bool {
	return nalType >= hevcNALBlaWLP && nalType <= hevcNALCraNut
}

// isSlice identifies a coded-slice NAL: VCL NAL types 0..21 (trailing/
// leading/RASL/RADL/BLA/IDR/CRA slices); the reserved VCL types 22..31 are
// not counted.
func hevcIsSlice(nalType byte) bool { return nalType <= hevcNALCraNut }

// isSuffix identifies suffix NAL units (SEI suffix and reserved 41-47
// NAL-unit-suffix range), which never start a new access unit.
func hevcIsSuffix(nalType byte) bool {
	return nalType == hevcNALSEISuffix || (nalType >= 41 && nalType <= 47)
}

var hevcCodecInfo = packet.CodecInfo{CodecID: "V_MPEGH/ISO/HEVC", ProgramName: "HEVC", DisplayName: "H.265/HEVC", MimeFamily: "video/hevc"}

type hevcSPS struct {
	width, height int
	profileIDC    byte
	levelIDC      byte
	// log2MaxPicOrderCntLsb is the modulus (as a power of two) the rolling
	// MSB wraparound in toFullPicOrder operates against.
	log2MaxPicOrderCntLsb int
	maxNumReorderPics     int
}

// HEVCParser is a resumable Annex-B HEVC frame-boundary parser. One access
// unit is the run of NAL units between successive VCL-NAL-starting-a-new-AU
// boundaries; VPS/SPS/PPS/prefix-SEI NALs are buffered and prefixed onto
// the next emitted access unit rather than emitted standalone.
type HEVCParser struct {
	buf []byte
	eof bool

	vps, sps, pps map[int][]byte
	activeSPS     *hevcSPS

	pendingNALs [][]byte
	frameDur    int64

	picOrderMsb  int
	prevPicOrder int
	lastIFrame   bool

	firstFileFrame bool
	frameDepth     int
}

func NewHEVCParser() *HEVCParser {
	return &HEVCParser{
		vps:            make(map[int][]byte),
		sps:            make(map[int][]byte),
		pps:            make(map[int][]byte),
		firstFileFrame: true,
	}
}

// OnSplitEvent arms firstFileFrame, mirroring hevcStreamReader.h's
// onSplitEvent on a Blu-ray playlist file-iterator rollover. The next
// emitted access unit clears the flag; stored VPS/SPS/PPS are not inserted
// into that unit.
func (p *HEVCParser) OnSplitEvent() { p.firstFileFrame = true }

func (p *HEVCParser) CheckStream(buf []byte, _ ContainerType, _ int) CheckResult {
	// Every start code is checked, including the sample's last NAL unit:
	// only its 2-byte header is needed.
	for i := 0; i+4 < len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 {
			if t := hevcNALType(buf[i+3]); t == hevcNALVPS || t == hevcNALSPS {
				return CheckOK
			}
		}
	}
	return CheckFail
}

func (p *HEVCParser) SetBuffer(buf []byte, isEOF bool) {
	p.buf = append(p.buf, buf...)
	p.eof = isEOF
}

// splitAnnexB splits an Annex-B byte stream into NAL units (without start
// codes), returning only units fully bounded by a following start code (or
// end of buffer when isEOF would apply — callers check that separately).
func splitAnnexB(data []byte) [][]byte {
	var starts []int
	for i := 0; i+2 < len(data); i++ {
		if data[i] == 0 && data[i+1] == 0 && data[i+2] == 1 {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		return nil
	}
	var nals [][]byte
	for i, s := range starts {
		start := s + 3
		end := len(data)
		if i+1 < len(starts) {
			end = starts[i+1]
			// Trim a preceding zero byte belonging to a 4-byte start code.
			for end > start && data[end-1] == 0 {
				end--
			}
		} else {
			continue // last unit may still be growing; wait for more data
		}
		if end > start {
			nals = append(nals, data[start:end])
		}
	}
	return nals
}

// ReadPacket accumulates NAL units until it observes the start of a new
// access unit (a VCL slice whose first_slice_segment_in_pic_flag would be
// set — approximated here as any slice NAL following a previously buffered
// slice NAL), then emits everything buffered before it as one packet.
func (p *HEVCParser) ReadPacket(out *packet.Packet) bool {
	nals := splitAnnexB(p.buf)
	if len(nals) == 0 {
		return false
	}

	sawSlice := false
	cut := -1
	for i, nal := range nals {
		if len(nal) < 2 {
			continue
		}
		t := hevcNALType(nal[0])
		switch {
		case t == hevcNALVPS:
			p.vps[0] = nal
		case t == hevcNALSPS:
			p.sps[0] = nal
			p.activeSPS = parseHEVCSPS(nal)
			if p.activeSPS != nil {
				p.frameDepth = p.activeSPS.maxNumReorderPics
			}
		case t == hevcNALPPS:
			p.pps[0] = nal
		case hevcIsSlice(t):
			if sawSlice {
				cut = i
			}
			sawSlice = true
			p.lastIFrame = hevcIsKeyframe(t)
			p.updatePicOrder(nal)
		}
		if cut >= 0 {
			break
		}
	}
	if cut < 0 {
		return false // whole buffer is still one access unit in progress
	}

	consumedBytes := p.consumeThroughNAL(nals, cut)
	emitNALs := nals[:cut]

	out.Reset()
	for _, nal := range emitNALs {
		out.Data = append(out.Data, 0, 0, 0, 1)
		out.Data = append(out.Data, nal...)
	}
	out.Size = len(out.Data)
	out.Duration = p.frameDur
	if p.frameDur == 0 {
		out.Duration = ticks.InternalPTSFreq / 25 // conservative default until SPS timing is known
	}

	p.buf = p.buf[consumedBytes:]
	p.firstFileFrame = false
	return true
}

// consumeThroughNAL returns the byte offset of the start code that begins
// nals[cut], by locating the cut-th start code in the raw buffer.
func (p *HEVCParser) consumeThroughNAL(nals [][]byte, cut int) int {
	target := nals[cut]
	// target is a slice of p.buf; its address lets us recover the offset
	// of its start code (3 bytes back) directly.
	for i := 0; i+3 <= len(p.buf); i++ {
		if &p.buf[i] == &target[0] {
			return i - 3
		}
	}
	return 0
}

// updatePicOrder combines the slice-signalled picture-order LSB with a
// rolling MSB that wraps when the LSB decreases by more than half the
// modulus, per spec.md §4.3.2.
func (p *HEVCParser) updatePicOrder(sliceNAL []byte) {
	if p.activeSPS == nil {
		return
	}
	lsb := extractPicOrderLSB(sliceNAL, p.activeSPS.log2MaxPicOrderCntLsb)
	modulus := 1 << p.activeSPS.log2MaxPicOrderCntLsb
	if lsb < p.prevPicOrder-modulus/2 {
		p.picOrderMsb += modulus
	} else if lsb > p.prevPicOrder+modulus/2 {
		p.picOrderMsb -= modulus
	}
	p.prevPicOrder = lsb
}

// extractPicOrderLSB is a reduced-scope slice-header read: it skips the
// fixed-position fields up to pic_order_cnt_lsb for a non-IDR slice rather
// than walking the full slice_segment_header grammar (ref_pic_set parsing,
// short/long-term RPS, etc. are not needed for ordering).
func extractPicOrderLSB(nal []byte, log2MaxLsb int) int {
	if len(nal) < 4 || log2MaxLsb == 0 {
		return 0
	}
	rbsp := bitio.RemoveEmulationPrevention(nal[2:])
	r := bitio.NewReader(rbsp)
	_, _ = r.ReadBit() // first_slice_segment_in_pic_flag
	v, _ := r.ReadBits(log2MaxLsb)
	return int(v)
}

// parseHEVCSPS is a reduced-scope SPS read: width, height and level, not a
// full VUI/HRD walk. It does not read general_profile_idc,
// log2_max_pic_order_cnt_lsb_minus4 or sps_max_num_reorder_pics: every
// parsed SPS records an 8-bit POC LSB width and a reorder depth of 4.
func parseHEVCSPS(nal []byte) *hevcSPS {
	if len(nal) < 4 {
		return nil
	}
	rbsp := bitio.RemoveEmulationPrevention(nal[2:])
	r := bitio.NewReader(rbsp)
	_, _ = r.ReadBits(4) // sps_video_parameter_set_id
	maxSubLayersMinus1, _ := r.ReadBits(3)
	_, _ = r.ReadBit() // sps_temporal_id_nesting_flag

	// profile_tier_level(1, maxSubLayersMinus1)
	_, _ = r.ReadBits(8) // general_profile_space/tier/idc
	_, _ = r.ReadBits(32)
	_, _ = r.ReadBits(48)
	level, _ := r.ReadBits(8)
	for i := uint64(0); i < maxSubLayersMinus1; i++ {
		_, _ = r.ReadBits(2) // sub_layer profile/level present flags (approx)
	}

	_, _ = r.ReadUE() // sps_seq_parameter_set_id
	chromaFormatIdc, _ := r.ReadUE()
	if chromaFormatIdc == 3 {
		_, _ = r.ReadBit()
	}
	width, _ := r.ReadUE()
	height, _ := r.ReadUE()

	s := &hevcSPS{width: int(width), height: int(height), levelIDC: byte(level), log2MaxPicOrderCntLsb: 8, maxNumReorderPics: 4}
	return s
}

func (p *HEVCParser) FlushPacket(out *packet.Packet) bool {
	if len(p.buf) == 0 {
		return false
	}
	out.Reset()
	out.Data = p.buf
	out.Size = len(p.buf)
	p.buf = nil
	return true
}

func (p *HEVCParser) GetFreq() int     { return 0 }
func (p *HEVCParser) GetChannels() int { return 0 }

func (p *HEVCParser) GetFrameDuration() int64 { return p.frameDur }

func (p *HEVCParser) GetCodecInfo() packet.CodecInfo { return hevcCodecInfo }

func (p *HEVCParser) GetTSDescriptor() []byte {
	return []byte{0x38, 0x04, 0x00, 0x00, 0x00, 0x00} // HEVC_video_descriptor, minimal
}

func (p *HEVCParser) GetStreamInfo() string {
	if p.activeSPS == nil {
		return hevcCodecInfo.DisplayName
	}
	return hevcCodecInfo.DisplayName
}

// GetFrameDepth returns the reorder depth recorded from the last parsed SPS
// (the fixed 4 that parseHEVCSPS records), or 0 before any SPS.
func (p *HEVCParser) GetFrameDepth() int { return p.frameDepth }
