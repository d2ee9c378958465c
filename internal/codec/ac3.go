package codec

import (
	"github.com/tsmuxer/inputcore/internal/bitio"
	"github.com/tsmuxer/inputcore/internal/packet"
	"github.com/tsmuxer/inputcore/internal/ticks"
)

const (
	ac3SyncByte0 = 0x0b
	ac3SyncByte1 = 0x77
)

var ac3BitrateKbps = [...]int{32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, 448, 512, 576, 640}
var ac3Channels = [...]int{2, 1, 2, 3, 3, 4, 4, 5}
var ac3SampleRates = [...]int{48000, 44100, 32000}
var eac3SampleRatesHalf = [...]int{24000, 22050, 16000}

// ac3FrameSizeWords gives a core AC-3 frame's length in 16-bit words for
// each (frmsizecod, fscod) pair; frame byte length is 2x this for 48/32 kHz
// and (2x + padding) for 44.1 kHz, per ATSC A/52 Table 5.18.
var ac3FrameSizeWords = [38][3]int{
	{64, 69, 96}, {64, 70, 96}, {80, 87, 120}, {80, 88, 120}, {96, 104, 144}, {96, 105, 144},
	{112, 121, 168}, {112, 122, 168}, {128, 139, 192}, {128, 140, 192}, {160, 174, 240}, {160, 175, 240},
	{192, 208, 288}, {192, 209, 288}, {224, 243, 336}, {224, 244, 336}, {256, 278, 384}, {256, 279, 384},
	{320, 348, 480}, {320, 349, 480}, {384, 417, 576}, {384, 418, 576}, {448, 487, 672}, {448, 488, 672},
	{512, 557, 768}, {512, 558, 768}, {640, 696, 960}, {640, 697, 960}, {768, 835, 1152}, {768, 836, 1152},
	{896, 975, 1344}, {896, 976, 1344}, {1024, 1114, 1536}, {1024, 1115, 1536}, {1152, 1253, 1728}, {1152, 1254, 1728},
	{1280, 1393, 1920}, {1280, 1394, 1920},
}

var ac3CodecInfo = packet.CodecInfo{CodecID: "A_AC3", ProgramName: "AC-3", DisplayName: "Dolby Digital", MimeFamily: "audio/ac3"}
var eac3CodecInfo = packet.CodecInfo{CodecID: "A_EAC3", ProgramName: "E-AC-3", DisplayName: "Dolby Digital Plus", MimeFamily: "audio/eac3"}

type ac3Subtype int

const (
	ac3SubtypeCore ac3Subtype = iota
	ac3SubtypeEAC3
)

// AC3Parser is a resumable AC-3 / E-AC-3 frame-boundary parser, mirroring
// dts.go's core+extension split for the analogous BSID<=10 core vs.
// BSID==16 E-AC-3 split in ATSC A/52.
type AC3Parser struct {
	buf []byte
	eof bool

	subtype    ac3Subtype
	sampleRate int
	channels   int
	lfe        bool
	bitrate    int64
	frameDur   int64
}

func NewAC3Parser() *AC3Parser { return &AC3Parser{} }

func findAC3Sync(buf []byte) int {
	for i := 0; i+2 <= len(buf); i++ {
		if buf[i] == ac3SyncByte0 && buf[i+1] == ac3SyncByte1 {
			return i
		}
	}
	return -1
}

func (p *AC3Parser) CheckStream(buf []byte, _ ContainerType, _ int) CheckResult {
	if len(buf) < 7 || findAC3Sync(buf) != 0 {
		return CheckFail
	}
	return CheckOK
}

func (p *AC3Parser) SetBuffer(buf []byte, isEOF bool) {
	p.buf = append(p.buf, buf...)
	p.eof = isEOF
}

// ReadPacket decodes the frame header, same bit layout ScanAC3 uses, but
// converts the header into the frame's exact byte length (frmsizecod/fscod
// drive a words-per-frame table instead of only deriving bitrate) so it can
// slice exactly one frame rather than scanning for the next sync.
func (p *AC3Parser) ReadPacket(out *packet.Packet) bool {
	off := findAC3Sync(p.buf)
	if off < 0 {
		if len(p.buf) > 8192 {
			p.buf = p.buf[len(p.buf)-1:]
		}
		return false
	}
	if off > 0 {
		p.buf = p.buf[off:]
	}
	if len(p.buf) < 7 {
		return false
	}

	r := bitio.NewReader(p.buf)
	_, _ = r.ReadBits(16) // sync
	_, _ = r.ReadBits(16) // crc1
	fscod, _ := r.ReadBits(2)
	frmsizecod, _ := r.ReadBits(6)
	bsid, _ := r.ReadBits(5)

	if bsid <= 10 {
		return p.readCoreFrame(out, fscod, frmsizecod, r)
	}
	return p.readEAC3Frame(out)
}

func (p *AC3Parser) readCoreFrame(out *packet.Packet, fscod, frmsizecod uint64, r *bitio.Reader) bool {
	if int(fscod) >= len(ac3SampleRates) || int(frmsizecod) >= len(ac3FrameSizeWords) {
		p.buf = p.buf[1:]
		return false
	}
	words := ac3FrameSizeWords[frmsizecod][fscod]
	frameBytes := words * 2

	_, _ = r.ReadBits(3) // bsmod
	acmod, _ := r.ReadBits(3)
	if acmod == 2 {
		_, _ = r.ReadBits(2) // dsurmod
	}
	lfeon, _ := r.ReadBits(1)

	if len(p.buf) < frameBytes {
		return false
	}

	p.subtype = ac3SubtypeCore
	p.sampleRate = ac3SampleRates[fscod]
	p.bitrate = int64(ac3BitrateKbps[frmsizecod/2]) * 1000
	if int(acmod) < len(ac3Channels) {
		p.channels = ac3Channels[acmod]
	}
	p.lfe = lfeon > 0
	p.frameDur = 1536 * int64(ticks.InternalPTSFreq) / int64(p.sampleRate) // 1536 PCM samples per AC-3 frame

	out.Reset()
	out.Data = append([]byte(nil), p.buf[:frameBytes]...)
	out.Size = frameBytes
	out.Duration = p.frameDur
	p.buf = p.buf[frameBytes:]
	return true
}

// readEAC3Frame decodes an E-AC-3 frame header (strmtyp/substreamid/frmsiz
// carry the frame's exact word count directly, unlike the core table).
func (p *AC3Parser) readEAC3Frame(out *packet.Packet) bool {
	r := bitio.NewReader(p.buf)
	_, _ = r.ReadBits(16) // sync
	_, _ = r.ReadBits(2)  // strmtyp
	_, _ = r.ReadBits(3)  // substreamid
	frmsiz, _ := r.ReadBits(11)
	fscod, _ := r.ReadBits(2)

	frameBytes := (int(frmsiz) + 1) * 2
	if len(p.buf) < frameBytes {
		return false
	}

	if fscod == 3 {
		fscod2, _ := r.ReadBits(2)
		if int(fscod2) < len(eac3SampleRatesHalf) {
			p.sampleRate = eac3SampleRatesHalf[fscod2]
		}
	} else {
		if int(fscod) < len(ac3SampleRates) {
			p.sampleRate = ac3SampleRates[fscod]
		}
		_, _ = r.ReadBits(2) // numblkscod
	}
	acmod, _ := r.ReadBits(3)
	lfeon, _ := r.ReadBits(1)
	if int(acmod) < len(ac3Channels) {
		p.channels = ac3Channels[acmod]
	}
	p.lfe = lfeon > 0
	p.subtype = ac3SubtypeEAC3
	if p.sampleRate != 0 {
		p.frameDur = 1536 * int64(ticks.InternalPTSFreq) / int64(p.sampleRate)
	}

	out.Reset()
	out.Data = append([]byte(nil), p.buf[:frameBytes]...)
	out.Size = frameBytes
	out.Duration = p.frameDur
	p.buf = p.buf[frameBytes:]
	return true
}

func (p *AC3Parser) FlushPacket(out *packet.Packet) bool {
	if len(p.buf) == 0 {
		return false
	}
	out.Reset()
	out.Data = p.buf
	out.Size = len(p.buf)
	p.buf = nil
	return true
}

func (p *AC3Parser) GetFreq() int            { return p.sampleRate }
func (p *AC3Parser) GetChannels() int        { return p.channels }
func (p *AC3Parser) GetFrameDuration() int64 { return p.frameDur }

func (p *AC3Parser) GetCodecInfo() packet.CodecInfo {
	if p.subtype == ac3SubtypeEAC3 {
		return eac3CodecInfo
	}
	return ac3CodecInfo
}

func (p *AC3Parser) GetTSDescriptor() []byte {
	if p.subtype == ac3SubtypeEAC3 {
		return []byte{0x7a, 0x01, 0x00} // enhanced_AC-3_descriptor, minimal
	}
	return []byte{0x6a, 0x01, 0x00} // AC-3_descriptor, minimal
}

func (p *AC3Parser) GetStreamInfo() string {
	return p.GetCodecInfo().DisplayName
}
