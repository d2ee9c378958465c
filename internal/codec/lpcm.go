package codec

import (
	"github.com/tsmuxer/inputcore/internal/packet"
	"github.com/tsmuxer/inputcore/internal/ticks"
)

// lpcmChannelCounts maps the 4-bit channel_assignment field of a Blu-ray
// LPCM PES header (BDSPEC 3-15-4) to a channel count.
var lpcmChannelCounts = map[byte]int{1: 1, 3: 2, 4: 3, 5: 3, 6: 4, 7: 4, 8: 5, 9: 5, 10: 6, 11: 6, 12: 7, 14: 8}
var lpcmSampleRates = map[byte]int{1: 48000, 4: 96000, 5: 192000}
var lpcmBitDepths = map[byte]int{1: 16, 2: 20, 3: 24}

var lpcmCodecInfo = packet.CodecInfo{CodecID: "A_LPCM", ProgramName: "LPCM", DisplayName: "LPCM", MimeFamily: "audio/L24"}

// LPCMParser frames Blu-ray LPCM: unlike every other audio codec here, LPCM
// carries no self-delimiting sync word — one PES packet is one frame, so
// this parser has no resync loop and simply consumes whatever SetBuffer
// hands it whole. Only the 4-byte Blu-ray LPCM header is recognized; WAV
// and W64 headers are not parsed.
type LPCMParser struct {
	buf        []byte
	eof        bool
	sampleRate int
	channels   int
	bitDepth   int
	frameDur   int64
}

func NewLPCMParser() *LPCMParser { return &LPCMParser{} }

// CheckStream validates the 4-byte LPCM audio-data-header fields rather
// than a sync word: the first two bytes are the big-endian frame size and
// the two nibbles of the third byte must decode to a known channel
// assignment and sample rate.
func (p *LPCMParser) CheckStream(buf []byte, _ ContainerType, _ int) CheckResult {
	if len(buf) < 4 {
		return CheckFail
	}
	if _, ok := lpcmChannelCounts[buf[2]>>4]; !ok {
		return CheckFail
	}
	if _, ok := lpcmSampleRates[buf[2]&0x0F]; !ok {
		return CheckFail
	}
	return CheckOK
}

func (p *LPCMParser) SetBuffer(buf []byte, isEOF bool) {
	p.buf = append(p.buf, buf...)
	p.eof = isEOF
}

func (p *LPCMParser) ReadPacket(out *packet.Packet) bool {
	if len(p.buf) < 4 {
		return false
	}
	channelAssign := p.buf[2] >> 4
	sampleRateField := p.buf[2] & 0x0F
	bitDepthField := (p.buf[3] >> 6) & 0x03

	if ch, ok := lpcmChannelCounts[channelAssign]; ok {
		p.channels = ch
	}
	if sr, ok := lpcmSampleRates[sampleRateField]; ok {
		p.sampleRate = sr
	}
	if bd, ok := lpcmBitDepths[bitDepthField]; ok {
		p.bitDepth = bd
	}
	if p.sampleRate == 0 {
		return false
	}

	frame := p.buf
	samples := 0
	if p.channels > 0 && p.bitDepth > 0 {
		bytesPerSample := p.bitDepth / 8
		samples = (len(frame) - 4) / (p.channels * bytesPerSample)
	}
	p.frameDur = int64(samples) * int64(ticks.InternalPTSFreq) / int64(p.sampleRate)

	out.Reset()
	out.Data = append([]byte(nil), frame...)
	out.Size = len(frame)
	out.Duration = p.frameDur
	p.buf = nil
	return true
}

func (p *LPCMParser) FlushPacket(out *packet.Packet) bool {
	if len(p.buf) == 0 {
		return false
	}
	out.Reset()
	out.Data = p.buf
	out.Size = len(p.buf)
	p.buf = nil
	return true
}

func (p *LPCMParser) GetFreq() int            { return p.sampleRate }
func (p *LPCMParser) GetChannels() int        { return p.channels }
func (p *LPCMParser) GetFrameDuration() int64 { return p.frameDur }
func (p *LPCMParser) GetCodecInfo() packet.CodecInfo { return lpcmCodecInfo }
func (p *LPCMParser) GetTSDescriptor() []byte { return []byte{0x83, 0x00} }
func (p *LPCMParser) GetStreamInfo() string   { return lpcmCodecInfo.DisplayName }
