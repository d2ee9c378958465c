package codec

import (
	"github.com/tsmuxer/inputcore/internal/packet"
	"github.com/tsmuxer/inputcore/internal/ticks"
)

// MPEG-1/2 Layer I/II/III header tables, ISO 11172-3 / 13818-3.
var mpaBitrateV1L1 = [...]int{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448}
var mpaBitrateV1L2 = [...]int{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384}
var mpaBitrateV1L3 = [...]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320}
var mpaBitrateV2 = [...]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160}
var mpaSampleRatesV1 = [...]int{44100, 48000, 32000}
var mpaSampleRatesV2 = [...]int{22050, 24000, 16000}
var mpaSampleRatesV25 = [...]int{11025, 12000, 8000}

var mpegAudioCodecInfo = packet.CodecInfo{CodecID: "A_MPEG/L2", ProgramName: "MPEG Audio", DisplayName: "MPEG Audio", MimeFamily: "audio/mpeg"}

// MPEGAudioParser is a resumable MPEG-1/2/2.5 Layer I/II/III frame-boundary
// parser, framed the same scan-for-sync-then-slice way as aac.go.
type MPEGAudioParser struct {
	buf []byte
	eof bool

	sampleRate int
	channels   int
	frameDur   int64
	layer      int
}

func NewMPEGAudioParser() *MPEGAudioParser { return &MPEGAudioParser{} }

func findMPEGAudioSync(buf []byte) int {
	for i := 0; i+4 <= len(buf); i++ {
		if buf[i] == 0xFF && buf[i+1]&0xE0 == 0xE0 {
			return i
		}
	}
	return -1
}

func (p *MPEGAudioParser) CheckStream(buf []byte, _ ContainerType, _ int) CheckResult {
	if findMPEGAudioSync(buf) != 0 {
		return CheckFail
	}
	return CheckOK
}

func (p *MPEGAudioParser) SetBuffer(buf []byte, isEOF bool) {
	p.buf = append(p.buf, buf...)
	p.eof = isEOF
}

func (p *MPEGAudioParser) ReadPacket(out *packet.Packet) bool {
	off := findMPEGAudioSync(p.buf)
	if off < 0 {
		if len(p.buf) > 8192 {
			p.buf = p.buf[len(p.buf)-3:]
		}
		return false
	}
	if off > 0 {
		p.buf = p.buf[off:]
	}
	if len(p.buf) < 4 {
		return false
	}

	versionBits := (p.buf[1] >> 3) & 0x03
	layerField := (p.buf[1] >> 1) & 0x03
	bitrateIdx := (p.buf[2] >> 4) & 0x0F
	sampleRateIdx := (p.buf[2] >> 2) & 0x03
	padding := (p.buf[2] >> 1) & 0x01
	channelMode := (p.buf[3] >> 6) & 0x03

	if sampleRateIdx == 3 || layerField == 0 {
		p.buf = p.buf[1:]
		return false
	}

	var sampleRate int
	switch versionBits {
	case 3: // MPEG-1
		sampleRate = mpaSampleRatesV1[sampleRateIdx]
	case 2: // MPEG-2
		sampleRate = mpaSampleRatesV2[sampleRateIdx]
	default: // MPEG-2.5
		sampleRate = mpaSampleRatesV25[sampleRateIdx]
	}

	var bitrateKbps int
	var layer int
	switch layerField {
	case 3: // Layer I
		layer = 1
		if int(bitrateIdx) < len(mpaBitrateV1L1) {
			bitrateKbps = mpaBitrateV1L1[bitrateIdx]
		}
	case 2: // Layer II
		layer = 2
		table := mpaBitrateV1L2
		if versionBits != 3 {
			table = mpaBitrateV2
		}
		if int(bitrateIdx) < len(table) {
			bitrateKbps = table[bitrateIdx]
		}
	default: // Layer III
		layer = 3
		table := mpaBitrateV1L3
		if versionBits != 3 {
			table = mpaBitrateV2
		}
		if int(bitrateIdx) < len(table) {
			bitrateKbps = table[bitrateIdx]
		}
	}
	if bitrateKbps == 0 || sampleRate == 0 {
		p.buf = p.buf[1:]
		return false
	}

	var frameBytes, samplesPerFrame int
	if layer == 1 {
		frameBytes = (12*bitrateKbps*1000/sampleRate + int(padding)) * 4
		samplesPerFrame = 384
	} else {
		frameBytes = 144*bitrateKbps*1000/sampleRate + int(padding)
		samplesPerFrame = 1152
		if versionBits != 3 && layer == 3 {
			frameBytes = 72*bitrateKbps*1000/sampleRate + int(padding)
			samplesPerFrame = 576
		}
	}
	if frameBytes < 4 {
		p.buf = p.buf[1:]
		return false
	}
	if len(p.buf) < frameBytes {
		return false
	}

	p.sampleRate = sampleRate
	p.layer = layer
	p.channels = 2
	if channelMode == 3 {
		p.channels = 1
	}
	p.frameDur = int64(samplesPerFrame) * int64(ticks.InternalPTSFreq) / int64(sampleRate)

	out.Reset()
	out.Data = append([]byte(nil), p.buf[:frameBytes]...)
	out.Size = frameBytes
	out.Duration = p.frameDur
	p.buf = p.buf[frameBytes:]
	return true
}

func (p *MPEGAudioParser) FlushPacket(out *packet.Packet) bool {
	if len(p.buf) == 0 {
		return false
	}
	out.Reset()
	out.Data = p.buf
	out.Size = len(p.buf)
	p.buf = nil
	return true
}

func (p *MPEGAudioParser) GetFreq() int            { return p.sampleRate }
func (p *MPEGAudioParser) GetChannels() int        { return p.channels }
func (p *MPEGAudioParser) GetFrameDuration() int64 { return p.frameDur }
func (p *MPEGAudioParser) GetCodecInfo() packet.CodecInfo { return mpegAudioCodecInfo }

func (p *MPEGAudioParser) GetTSDescriptor() []byte { return nil }

func (p *MPEGAudioParser) GetStreamInfo() string { return mpegAudioCodecInfo.DisplayName }
