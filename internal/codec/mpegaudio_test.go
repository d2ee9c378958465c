package codec

import (
	"testing"

	"github.com/tsmuxer/inputcore/internal/packet"
)

// buildMPEGAudioFrame hand-packs an MPEG-1 Layer II frame at 48000Hz,
// 128kbps, stereo, no padding.
func buildMPEGAudioFrame() []byte {
	const bitrateKbps, sampleRate = 128, 48000
	frameBytes := 144 * bitrateKbps * 1000 / sampleRate
	buf := make([]byte, frameBytes)
	buf[0] = 0xFF
	buf[1] = 0xE0 | (3 << 3) | (2 << 1) // MPEG-1, Layer II
	buf[2] = (8 << 4) | (1 << 2)        // bitrateIdx=8 (128kbps), sampleRateIdx=1 (48000)
	buf[3] = 0x00                       // stereo
	return buf
}

func TestMPEGAudioParserReadsOneFrame(t *testing.T) {
	t.Parallel()
	frame := buildMPEGAudioFrame()
	p := NewMPEGAudioParser()
	p.SetBuffer(append(append([]byte{}, frame...), frame...), false)

	var out packet.Packet
	if !p.ReadPacket(&out) {
		t.Fatal("expected a frame to be available")
	}
	if out.Size == 0 {
		t.Fatal("expected non-zero frame size")
	}
}

func TestMPEGAudioParserCheckStream(t *testing.T) {
	t.Parallel()
	p := NewMPEGAudioParser()
	if p.CheckStream(buildMPEGAudioFrame(), ContainerRawES, 0) != CheckOK {
		t.Fatal("expected CheckOK on a valid MPEG audio sync")
	}
	if p.CheckStream([]byte{0, 1, 2, 3}, ContainerRawES, 0) != CheckFail {
		t.Fatal("expected CheckFail on non-MPEG-audio data")
	}
}
