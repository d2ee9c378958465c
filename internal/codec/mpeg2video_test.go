package codec

import (
	"testing"

	"github.com/tsmuxer/inputcore/internal/packet"
)

func startCode(code byte) []byte { return []byte{0x00, 0x00, 0x01, code} }

// buildMPEG2Stream builds sequence_header + two picture headers (I then P),
// each followed by a few bytes of filler payload.
func buildMPEG2Stream() []byte {
	var buf []byte
	buf = append(buf, startCode(mpeg2SeqHeaderCode)...)
	buf = append(buf, make([]byte, 8)...) // width/height/aspect/framerate bits, all zero (ok for test)

	buf = append(buf, startCode(mpeg2PictureCode)...)
	buf = append(buf, 0x00, 0x08) // temporal_reference=0, coding_type=1 (I)

	buf = append(buf, startCode(mpeg2PictureCode)...)
	buf = append(buf, 0x00, 0x10) // temporal_reference=0, coding_type=2 (P)

	buf = append(buf, startCode(mpeg2SeqHeaderCode)...) // sentinel to close the 2nd picture
	return buf
}

func TestMPEG2VideoParserEmitsIPicture(t *testing.T) {
	t.Parallel()
	stream := buildMPEG2Stream()
	p := NewMPEG2VideoParser()
	p.SetBuffer(stream, false)

	var out packet.Packet
	if !p.ReadPacket(&out) {
		t.Fatal("expected a picture to be available")
	}
	if !out.Flags.Has(packet.FlagPriorityData) {
		t.Fatal("expected first picture to be marked priority data (I-frame)")
	}
}

func TestMPEG2VideoParserCheckStream(t *testing.T) {
	t.Parallel()
	p := NewMPEG2VideoParser()
	seq := append(startCode(mpeg2SeqHeaderCode), make([]byte, 8)...)
	if p.CheckStream(seq, ContainerRawES, 0) != CheckOK {
		t.Fatal("expected CheckOK on a sequence header start")
	}
	if p.CheckStream([]byte{0, 1, 2, 3}, ContainerRawES, 0) != CheckFail {
		t.Fatal("expected CheckFail on non-MPEG-2 data")
	}
}
