package codec

import (
	"testing"

	"github.com/tsmuxer/inputcore/internal/packet"
)

func TestSRTParserReadsOneCue(t *testing.T) {
	t.Parallel()
	cue1 := "1\n00:00:01,000 --> 00:00:02,000\nHello\n\n"
	cue2 := "2\n00:00:03,000 --> 00:00:04,000\nWorld\n\n"

	p := NewSRTParser()
	p.SetBuffer([]byte(cue1+cue2), false)

	var out packet.Packet
	if !p.ReadPacket(&out) {
		t.Fatal("expected a cue to be available")
	}
	if out.Size != len(cue1) {
		t.Fatalf("cue size = %d, want %d", out.Size, len(cue1))
	}
}

func TestSRTParserCheckStream(t *testing.T) {
	t.Parallel()
	p := NewSRTParser()
	if p.CheckStream([]byte("1\n00:00:01,000 --> 00:00:02,000\nHi\n\n"), ContainerRawES, 0) != CheckOK {
		t.Fatal("expected CheckOK on SRT-timed text")
	}
	if p.CheckStream([]byte("just some text"), ContainerRawES, 0) != CheckFail {
		t.Fatal("expected CheckFail on non-SRT text")
	}
}

func TestSRTParserFlushResidue(t *testing.T) {
	t.Parallel()
	p := NewSRTParser()
	p.SetBuffer([]byte("3\n00:00:05,000 --> 00:00:06,000\nNo terminator"), true)
	var out packet.Packet
	if p.ReadPacket(&out) {
		t.Fatal("cue without a blank-line terminator should not be readable before flush")
	}
	if !p.FlushPacket(&out) {
		t.Fatal("expected residue to flush at EOF")
	}
}
