package streaminfo

import (
	"testing"

	"github.com/tsmuxer/inputcore/internal/codec"
	"github.com/tsmuxer/inputcore/internal/outcome"
	"github.com/tsmuxer/inputcore/internal/packet"
)

type fakeSource struct {
	blocks [][]byte
	i      int
}

func (f *fakeSource) ReadBlock(int) ([]byte, outcome.Outcome) {
	if f.i >= len(f.blocks) {
		return nil, outcome.EOF
	}
	b := f.blocks[f.i]
	f.i++
	return b, outcome.OK
}

func (f *fakeSource) Close() error { return nil }

type fakeParser struct {
	frames  [][]byte
	i       int
	flushed bool
}

func (f *fakeParser) CheckStream([]byte, codec.ContainerType, int) codec.CheckResult {
	return codec.CheckOK
}
func (f *fakeParser) SetBuffer([]byte, bool) {}
func (f *fakeParser) ReadPacket(out *packet.Packet) bool {
	if f.i >= len(f.frames) {
		return false
	}
	out.Reset()
	out.Data = f.frames[f.i]
	out.Size = len(f.frames[f.i])
	out.DTS = int64(f.i) * 1000
	out.PTS = out.DTS
	out.Duration = 1000
	f.i++
	return true
}
func (f *fakeParser) FlushPacket(out *packet.Packet) bool {
	if f.flushed {
		return false
	}
	f.flushed = true
	out.Reset()
	out.Data = []byte{0xFF}
	out.Size = 1
	return true
}
func (f *fakeParser) GetFreq() int                     { return 48000 }
func (f *fakeParser) GetChannels() int                 { return 2 }
func (f *fakeParser) GetFrameDuration() int64          { return 1000 }
func (f *fakeParser) GetCodecInfo() packet.CodecInfo   { return packet.CodecInfo{CodecID: "fake"} }
func (f *fakeParser) GetTSDescriptor() []byte          { return nil }
func (f *fakeParser) GetStreamInfo() string            { return "fake" }

func TestStreamStateAppliesTimeShiftAndPCRFlag(t *testing.T) {
	t.Parallel()
	src := &fakeSource{blocks: [][]byte{{0x01}}}
	p := &fakeParser{frames: [][]byte{{0x01}, {0x02}}}
	s := New(0, "a.es", "a.es", -1, src, p, 500)

	var out packet.Packet
	if !s.ReadPacket(&out) {
		t.Fatal("expected a packet")
	}
	if out.DTS != 500 {
		t.Fatalf("DTS = %d, want 500 (time shift applied to a zero-DTS frame)", out.DTS)
	}
	if !out.Flags.Has(packet.FlagPCRStream) {
		t.Fatal("stream index 0 should carry FlagPCRStream")
	}
	if s.LastDTS != out.DTS+out.Duration {
		t.Fatalf("LastDTS = %d, want %d", s.LastDTS, out.DTS+out.Duration)
	}
}

func TestStreamStateLastDTSMonotone(t *testing.T) {
	t.Parallel()
	src := &fakeSource{blocks: [][]byte{{0x01}}}
	p := &fakeParser{frames: [][]byte{{0x01}, {0x02}, {0x03}}}
	s := New(1, "b.es", "b.es", -1, src, p, 0)

	var prev int64 = -1
	var out packet.Packet
	for s.ReadPacket(&out) {
		if out.DTS < prev {
			t.Fatalf("DTS went backwards: %d after %d", out.DTS, prev)
		}
		prev = out.DTS
	}
}

func TestStreamStateReadTransitionsToEOFResidual(t *testing.T) {
	t.Parallel()
	src := &fakeSource{}
	p := &fakeParser{}
	s := New(0, "c.es", "c.es", -1, src, p, 0)

	if rez := s.Read(); rez != outcome.EOFResidual {
		t.Fatalf("Read() = %v, want EOFResidual", rez)
	}
	if !s.IsEOF {
		t.Fatal("expected IsEOF to be set")
	}
}

func TestStreamStateFlushDrainsThenMarksFlushed(t *testing.T) {
	t.Parallel()
	p := &fakeParser{}
	s := New(0, "d.es", "d.es", -1, &fakeSource{}, p, 0)

	var out packet.Packet
	if !s.FlushPacket(&out) {
		t.Fatal("expected one residual packet")
	}
	if s.Flushed {
		t.Fatal("Flushed should not be set until FlushPacket returns false")
	}
	if s.FlushPacket(&out) {
		t.Fatal("expected no further residue")
	}
	if !s.Flushed {
		t.Fatal("expected Flushed to be set once residue is drained")
	}
}
