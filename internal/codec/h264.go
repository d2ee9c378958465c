package codec

import (
	"fmt"

	"github.com/tsmuxer/inputcore/internal/bitio"
	"github.com/tsmuxer/inputcore/internal/packet"
	"github.com/tsmuxer/inputcore/internal/ticks"
)

// H.264 NAL unit type constants, ITU-T H.264 Table 7-1.
const (
	h264NALSlice      = 1
	h264NALIDR        = 5
	h264NALSEI        = 6
	h264NALSPS        = 7
	h264NALPPS        = 8
	h264NALAUD        = 9
	h264NALSubsetSPS  = 15
	h264NALPrefix     = 14
	h264NALSliceExt   = 20 // coded slice extension (MVC dependent view)
	h264NALFillerData = 12
)

func h264NALType(firstByte byte) byte { return firstByte & 0x1F }

func h264IsKeyframe(nalType byte) bool { return nalType == h264NALIDR }
func h264IsSlice(nalType byte) bool    { return nalType == h264NALSlice || nalType == h264NALIDR }
func h264IsMVCSlice(nalType byte) bool { return nalType == h264NALSliceExt }

var h264CodecInfo = packet.CodecInfo{CodecID: "V_MPEG4/ISO/AVC", ProgramName: "H.264", DisplayName: "AVC/H.264", MimeFamily: "video/avc"}
var mvcCodecInfo = packet.CodecInfo{CodecID: "V_MPEG4/ISO/MVC", ProgramName: "MVC", DisplayName: "MVC/H.264", MimeFamily: "video/mvc"}

type h264SPS struct {
	width, height int
	profileIDC    byte
	constraint    byte
	levelIDC      byte
}

func (s h264SPS) codecString() string {
	return fmt.Sprintf("avc1.%02X%02X%02X", s.profileIDC, s.constraint, s.levelIDC)
}

// H264Parser is a resumable Annex-B H.264 frame-boundary parser. When
// isSubStream is set it treats NAL type 20 (coded slice extension) as the
// access-unit-defining slice instead of type 1/5, per spec.md's MVC
// dependent-view substream handling. NewMVCDependentParser builds that
// variant; Autodetect never returns it and does not split one stream into
// base and dependent tracks.
type H264Parser struct {
	buf []byte
	eof bool

	sps         *h264SPS
	pps         []byte
	isSubStream bool
	frameDur    int64
}

func NewH264Parser() *H264Parser { return &H264Parser{} }

// NewMVCDependentParser returns a parser configured for the MVC dependent
// view: it frames on NAL type 20 rather than 1/5, per spec.md §4.3.4.
func NewMVCDependentParser() *H264Parser { return &H264Parser{isSubStream: true} }

func (p *H264Parser) IsSubStream() bool { return p.isSubStream }

func (p *H264Parser) CheckStream(buf []byte, _ ContainerType, _ int) CheckResult {
	// Every start code is checked, including the sample's last NAL unit:
	// only its header byte is needed.
	for i := 0; i+3 < len(buf); i++ {
		if buf[i] == 0 && buf[i+1] == 0 && buf[i+2] == 1 && h264NALType(buf[i+3]) == h264NALSPS {
			return CheckOK
		}
	}
	return CheckFail
}

func (p *H264Parser) SetBuffer(buf []byte, isEOF bool) {
	p.buf = append(p.buf, buf...)
	p.eof = isEOF
}

func (p *H264Parser) sliceTypeForBoundary(nalType byte) bool {
	if p.isSubStream {
		return h264IsMVCSlice(nalType)
	}
	return h264IsSlice(nalType)
}

// ReadPacket accumulates NAL units until a second access-unit-starting
// slice NAL is observed, emitting everything buffered before it — the same
// shape as hevc.go's ReadPacket, specialized to H.264's 1-byte NAL header
// and (for the MVC dependent substream) type-20 slice extensions.
func (p *H264Parser) ReadPacket(out *packet.Packet) bool {
	nals := splitAnnexB(p.buf)
	if len(nals) == 0 {
		return false
	}

	sawSlice := false
	cut := -1
	isKey := false
	for i, nal := range nals {
		if len(nal) < 1 {
			continue
		}
		t := h264NALType(nal[0])
		switch {
		case t == h264NALSPS:
			p.sps = parseH264SPS(nal)
		case t == h264NALPPS:
			p.pps = nal
		case p.sliceTypeForBoundary(t):
			if sawSlice {
				cut = i
			} else {
				sawSlice = true
				isKey = h264IsKeyframe(t)
			}
		}
		if cut >= 0 {
			break
		}
	}
	if cut < 0 {
		return false
	}

	consumed := consumeThroughOffsetH264(p.buf, nals, cut)
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

// consumeThroughOffsetH264 recovers the byte offset of nals[cut]'s start
// code the same pointer-identity way hevc.go's consumeThroughNAL does.
func consumeThroughOffsetH264(buf []byte, nals [][]byte, cut int) int {
	target := nals[cut]
	for i := 0; i+3 <= len(buf); i++ {
		if &buf[i] == &target[0] {
			return i - 3
		}
	}
	return 0
}

// parseH264SPS adapts zsiec-prism/internal/demux/h264.go's ParseSPS (full
// scaling-list/VUI/HRD walk) down to the fields this parser surfaces:
// width/height/profile/level, via the shared bitio.Reader/Exp-Golomb
// helpers rather than that file's private bitReader.
func parseH264SPS(nalu []byte) *h264SPS {
	if len(nalu) < 4 {
		return nil
	}
	rbsp := bitio.RemoveEmulationPrevention(nalu[1:])
	r := bitio.NewReader(rbsp)

	profileIdc, err := r.ReadBits(8)
	if err != nil {
		return nil
	}
	constraintFlags, _ := r.ReadBits(8)
	levelIdc, _ := r.ReadBits(8)
	_, _ = r.ReadUE() // sps_id

	chromaFormatIdc := uint64(1)
	separateColourPlane := false
	if isHighProfile(byte(profileIdc)) {
		chromaFormatIdc, _ = r.ReadUE()
		if chromaFormatIdc == 3 {
			v, _ := r.ReadBit()
			separateColourPlane = v == 1
		}
		_, _ = r.ReadUE() // bit_depth_luma_minus8
		_, _ = r.ReadUE() // bit_depth_chroma_minus8
		_, _ = r.ReadBit()
		scalingMatrixPresent, _ := r.ReadBit()
		if scalingMatrixPresent == 1 {
			limit := 8
			if chromaFormatIdc == 3 {
				limit = 12
			}
			for i := 0; i < limit; i++ {
				flag, _ := r.ReadBit()
				if flag == 1 {
					size := 16
					if i >= 6 {
						size = 64
					}
					skipScalingListH264(r, size)
				}
			}
		}
	}

	_, _ = r.ReadUE() // log2_max_frame_num_minus4
	picOrderCntType, _ := r.ReadUE()
	switch picOrderCntType {
	case 0:
		_, _ = r.ReadUE()
	case 1:
		_, _ = r.ReadBit()
		_, _ = r.ReadSE()
		_, _ = r.ReadSE()
		numRef, _ := r.ReadUE()
		for i := uint64(0); i < numRef; i++ {
			_, _ = r.ReadSE()
		}
	}
	_, _ = r.ReadUE() // max_num_ref_frames
	_, _ = r.ReadBit()

	picWidthMbs, _ := r.ReadUE()
	picHeightMapUnits, _ := r.ReadUE()
	frameMbsOnly, _ := r.ReadBit()
	if frameMbsOnly == 0 {
		_, _ = r.ReadBit()
	}
	_, _ = r.ReadBit()

	var cropLeft, cropRight, cropTop, cropBottom uint64
	cropFlag, _ := r.ReadBit()
	if cropFlag == 1 {
		cropLeft, _ = r.ReadUE()
		cropRight, _ = r.ReadUE()
		cropTop, _ = r.ReadUE()
		cropBottom, _ = r.ReadUE()
	}

	chromaArrayType := chromaFormatIdc
	if separateColourPlane {
		chromaArrayType = 0
	}
	var subWidthC, subHeightC uint64
	switch chromaArrayType {
	case 1:
		subWidthC, subHeightC = 2, 2
	case 2:
		subWidthC, subHeightC = 2, 1
	default:
		subWidthC, subHeightC = 1, 1
	}
	cropUnitX := subWidthC
	cropUnitY := subHeightC * (2 - frameMbsOnly)

	width := (picWidthMbs+1)*16 - cropUnitX*(cropLeft+cropRight)
	height := (picHeightMapUnits+1)*16*(2-frameMbsOnly) - cropUnitY*(cropTop+cropBottom)

	return &h264SPS{
		width:      int(width),
		height:     int(height),
		profileIDC: byte(profileIdc),
		constraint: byte(constraintFlags),
		levelIDC:   byte(levelIdc),
	}
}

func isHighProfile(profileIdc byte) bool {
	switch profileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134:
		return true
	default:
		return false
	}
}

func skipScalingListH264(r *bitio.Reader, size int) {
	lastScale, nextScale := 8, 8
	for j := 0; j < size; j++ {
		if nextScale != 0 {
			delta, _ := r.ReadSE()
			nextScale = (lastScale + int(delta) + 256) % 256
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}
}

func (p *H264Parser) FlushPacket(out *packet.Packet) bool {
	if len(p.buf) == 0 {
		return false
	}
	out.Reset()
	out.Data = p.buf
	out.Size = len(p.buf)
	p.buf = nil
	return true
}

func (p *H264Parser) GetFreq() int     { return 0 }
func (p *H264Parser) GetChannels() int { return 0 }

func (p *H264Parser) GetFrameDuration() int64 { return p.frameDur }

func (p *H264Parser) GetCodecInfo() packet.CodecInfo {
	if p.isSubStream {
		return mvcCodecInfo
	}
	return h264CodecInfo
}

func (p *H264Parser) GetTSDescriptor() []byte {
	return []byte{0x28, 0x00} // AVC_video_descriptor, minimal
}

func (p *H264Parser) GetStreamInfo() string {
	if p.sps == nil {
		return p.GetCodecInfo().DisplayName
	}
	return fmt.Sprintf("%s %dx%d (%s)", p.GetCodecInfo().DisplayName, p.sps.width, p.sps.height, p.sps.codecString())
}
