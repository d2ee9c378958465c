package metademux

import (
	"testing"

	"github.com/tsmuxer/inputcore/internal/codec"
	"github.com/tsmuxer/inputcore/internal/outcome"
	"github.com/tsmuxer/inputcore/internal/packet"
	"github.com/tsmuxer/inputcore/internal/streaminfo"
)

// fakeSource returns readsLeft successful blocks, then switches to
// permanently reporting terminal (rez is ignored once readsLeft is
// exhausted unless it is itself a terminal outcome like NotReady, which is
// returned immediately every time).
type fakeSource struct {
	rez       outcome.Outcome
	readsLeft int
}

func (f *fakeSource) ReadBlock(int) ([]byte, outcome.Outcome) {
	if f.rez != outcome.OK {
		return nil, f.rez
	}
	if f.readsLeft <= 0 {
		return nil, outcome.EOF
	}
	f.readsLeft--
	return []byte{0x00}, outcome.OK
}
func (f *fakeSource) Close() error { return nil }

// scriptedParser emits one frame per DTS value in dtsValues. If
// hasResidue is set, FlushPacket yields exactly one more frame once the
// stream reaches EOF; otherwise it reports no residue at all.
type scriptedParser struct {
	dtsValues  []int64
	hasResidue bool
	i          int
	flushed    bool
}

func (p *scriptedParser) CheckStream([]byte, codec.ContainerType, int) codec.CheckResult {
	return codec.CheckOK
}
func (p *scriptedParser) SetBuffer([]byte, bool) {}
func (p *scriptedParser) ReadPacket(out *packet.Packet) bool {
	if p.i >= len(p.dtsValues) {
		return false
	}
	out.Reset()
	out.Data = []byte{0x01}
	out.Size = 1
	out.DTS = p.dtsValues[p.i]
	out.PTS = out.DTS
	out.Duration = 10
	p.i++
	return true
}
func (p *scriptedParser) FlushPacket(out *packet.Packet) bool {
	if !p.hasResidue || p.flushed {
		return false
	}
	p.flushed = true
	out.Reset()
	out.Data = []byte{0xEE}
	out.Size = 1
	return true
}
func (p *scriptedParser) GetFreq() int                   { return 0 }
func (p *scriptedParser) GetChannels() int               { return 0 }
func (p *scriptedParser) GetFrameDuration() int64        { return 0 }
func (p *scriptedParser) GetCodecInfo() packet.CodecInfo { return packet.CodecInfo{CodecID: "fake"} }
func (p *scriptedParser) GetTSDescriptor() []byte        { return nil }
func (p *scriptedParser) GetStreamInfo() string          { return "fake" }

func TestMetaDemuxerInterleavesByDTS(t *testing.T) {
	t.Parallel()
	m := New(nil)

	a := streaminfo.New(0, "a.es", "a.es", -1, &fakeSource{rez: outcome.OK, readsLeft: 50}, &scriptedParser{dtsValues: []int64{0, 20, 40}}, 0)
	b := streaminfo.New(1, "b.es", "b.es", -1, &fakeSource{rez: outcome.OK, readsLeft: 50}, &scriptedParser{dtsValues: []int64{10, 30}}, 0)
	// Each frame carries duration 10, so after stream a produces DTS 0 its
	// LastDTS advances to 10 — past stream b's untouched initial 0 — letting
	// the selection phase's min-LastDTS rule actually alternate streams
	// instead of ties always favoring the lower stream index.
	m.AddStream(a)
	m.AddStream(b)

	var gotOrder []int
	var gotDTS []int64
	for {
		var out packet.Packet
		rez := m.ReadPacket(&out)
		if rez == outcome.EOF {
			break
		}
		if rez != outcome.OK {
			t.Fatalf("unexpected outcome %v", rez)
		}
		gotOrder = append(gotOrder, out.StreamIndex)
		gotDTS = append(gotDTS, out.DTS)
	}

	wantDTS := []int64{0, 10, 20, 30, 40}
	if len(gotDTS) != len(wantDTS) {
		t.Fatalf("got %d packets, want %d (order=%v dts=%v)", len(gotDTS), len(wantDTS), gotOrder, gotDTS)
	}
	for i, want := range wantDTS {
		if gotDTS[i] != want {
			t.Fatalf("packet %d: DTS = %d, want %d (full sequence %v)", i, gotDTS[i], want, gotDTS)
		}
	}
}

func TestMetaDemuxerFirstStreamIsPCR(t *testing.T) {
	t.Parallel()
	m := New(nil)
	a := streaminfo.New(0, "a.es", "a.es", -1, &fakeSource{rez: outcome.OK, readsLeft: 50}, &scriptedParser{dtsValues: []int64{0}}, 0)
	b := streaminfo.New(1, "b.es", "b.es", -1, &fakeSource{rez: outcome.OK, readsLeft: 50}, &scriptedParser{dtsValues: []int64{0}}, 0)
	m.AddStream(a)
	m.AddStream(b)

	seenPCR := map[int]bool{}
	for {
		var out packet.Packet
		rez := m.ReadPacket(&out)
		if rez == outcome.EOF {
			break
		}
		if rez != outcome.OK {
			t.Fatalf("unexpected outcome %v", rez)
		}
		seenPCR[out.StreamIndex] = out.Flags.Has(packet.FlagPCRStream)
	}
	if !seenPCR[0] {
		t.Fatal("stream 0 should carry FlagPCRStream")
	}
	if seenPCR[1] {
		t.Fatal("stream 1 should not carry FlagPCRStream")
	}
}

func TestMetaDemuxerNotReadyPropagatesImmediately(t *testing.T) {
	t.Parallel()
	m := New(nil)
	a := streaminfo.New(0, "a.es", "a.es", -1, &fakeSource{rez: outcome.NotReady}, &scriptedParser{}, 0)
	m.AddStream(a)

	var out packet.Packet
	if rez := m.ReadPacket(&out); rez != outcome.NotReady {
		t.Fatalf("ReadPacket = %v, want NotReady", rez)
	}
}

func TestMetaDemuxerFlushesResidueBeforeEOF(t *testing.T) {
	t.Parallel()
	m := New(nil)
	a := streaminfo.New(0, "a.es", "a.es", -1, &fakeSource{rez: outcome.EOF}, &scriptedParser{hasResidue: true}, 0)
	m.AddStream(a)

	var out packet.Packet
	rez := m.ReadPacket(&out)
	if rez != outcome.OK {
		t.Fatalf("expected the residual flush packet, got %v", rez)
	}
	if out.Data[0] != 0xEE {
		t.Fatalf("expected flushed residue marker, got %v", out.Data)
	}

	if rez := m.ReadPacket(&out); rez != outcome.EOF {
		t.Fatalf("ReadPacket after residue drained = %v, want EOF", rez)
	}
}
