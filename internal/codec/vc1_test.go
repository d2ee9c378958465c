package codec

import (
	"testing"

	"github.com/tsmuxer/inputcore/internal/packet"
)

func TestVC1ParserCheckStream(t *testing.T) {
	t.Parallel()
	p := NewVC1Parser()
	seq := []byte{0, 0, 1, vc1SeqHeaderCode, 0xC0, 0x00, 0x00, 0x00}
	if p.CheckStream(seq, ContainerRawES, 0) != CheckOK {
		t.Fatal("expected CheckOK on a VC-1 sequence header start")
	}
	if p.CheckStream([]byte{0, 1, 2, 3}, ContainerRawES, 0) != CheckFail {
		t.Fatal("expected CheckFail on non-VC-1 data")
	}
}

func TestVC1ParserReadsFrame(t *testing.T) {
	t.Parallel()
	var stream []byte
	stream = append(stream, 0, 0, 1, vc1FramePrefix, 0xAA)
	stream = append(stream, 0, 0, 1, vc1FramePrefix, 0xBB)

	p := NewVC1Parser()
	p.SetBuffer(stream, false)

	var out packet.Packet
	if !p.ReadPacket(&out) {
		t.Fatal("expected a frame to be available")
	}
}
