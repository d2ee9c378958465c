package containeradapter

import (
	"testing"

	"github.com/tsmuxer/inputcore/internal/container"
	"github.com/tsmuxer/inputcore/internal/outcome"
)

// fakeDemuxer is a scripted container.ContainerDemuxer stub.
type fakeDemuxer struct {
	rounds  []outcome.Outcome
	pidData map[uint16][][]byte
	idx     int
}

func (f *fakeDemuxer) GetTrackList() []container.TrackInfo { return nil }
func (f *fakeDemuxer) GetTrackDelay(uint16) int64          { return 0 }
func (f *fakeDemuxer) GetFileDurationNano() int64          { return 0 }

func (f *fakeDemuxer) SimpleDemuxBlock() outcome.Outcome {
	if f.idx >= len(f.rounds) {
		return outcome.EOF
	}
	o := f.rounds[f.idx]
	f.idx++
	return o
}

func (f *fakeDemuxer) TakePIDData(pid uint16) []byte {
	queue := f.pidData[pid]
	if len(queue) == 0 {
		return nil
	}
	data := queue[0]
	f.pidData[pid] = queue[1:]
	return data
}

func TestFragmentedServesImmediately(t *testing.T) {
	t.Parallel()
	d := &fakeDemuxer{
		rounds:  []outcome.Outcome{outcome.OK},
		pidData: map[uint16][][]byte{1: {{0xAA, 0xBB}}},
	}
	a := New()
	a.OpenStream("sub.sup", d, KindTS)
	id, err := a.AddReader("sub.sup", 1, Fragmented, 0)
	if err != nil {
		t.Fatal(err)
	}
	data, o, err := a.ReadBlock(id, 0)
	if err != nil || o != outcome.OK {
		t.Fatalf("ReadBlock = %v, %v, %v", data, o, err)
	}
	if len(data) != 2 {
		t.Fatalf("data = %x, want 2 bytes", data)
	}
}

func TestSequentialWaitsForThreshold(t *testing.T) {
	t.Parallel()
	d := &fakeDemuxer{
		rounds:  []outcome.Outcome{outcome.Delayed},
		pidData: map[uint16][][]byte{2: {{0x01}}},
	}
	a := New()
	a.OpenStream("main.m2ts", d, KindTS)
	id, _ := a.AddReader("main.m2ts", 2, Sequential, 0)
	_, o, err := a.ReadBlock(id, 0)
	if err != nil {
		t.Fatal(err)
	}
	if o != outcome.NotReady {
		t.Fatalf("o = %v, want NotReady (Sequential starvation is never Delayed)", o)
	}
}

func TestFragmentedStarvationIsDelayedNotNotReady(t *testing.T) {
	t.Parallel()
	d := &fakeDemuxer{
		rounds:  []outcome.Outcome{outcome.NotReady},
		pidData: map[uint16][][]byte{5: {{0x01}}},
	}
	a := New()
	a.OpenStream("sub2.sup", d, KindTS)
	id, _ := a.AddReader("sub2.sup", 5, Fragmented, 0)
	_, o, err := a.ReadBlock(id, 0)
	if err != nil {
		t.Fatal(err)
	}
	if o != outcome.Delayed {
		t.Fatalf("o = %v, want Delayed (Fragmented starvation is never NotReady)", o)
	}
}

func TestPreludePreservedAcrossShift(t *testing.T) {
	t.Parallel()
	d := &fakeDemuxer{
		rounds:  []outcome.Outcome{outcome.OK},
		pidData: map[uint16][][]byte{3: {{0x01, 0x02, 0x03, 0x04}}},
	}
	a := New()
	a.OpenStream("s.es", d, KindRawES)
	id, _ := a.AddReader("s.es", 3, Fragmented, 4)

	data, o, err := a.ReadBlock(id, 0)
	if err != nil || o != outcome.OK {
		t.Fatalf("ReadBlock = %v, %v, %v", data, o, err)
	}
	if len(data) != 4+4 {
		t.Fatalf("len(data) = %d, want 8 (4 prelude + 4 payload)", len(data))
	}
	copy(data[:4], []byte{0xDE, 0xAD, 0xBE, 0xEF})

	d.rounds = append(d.rounds, outcome.EOF)
	data2, _, err := a.ReadBlock(id, 2)
	if err != nil {
		t.Fatal(err)
	}
	if string(data2[:4]) != "\xDE\xAD\xBE\xEF" {
		t.Fatalf("prelude not preserved across shift: %x", data2[:4])
	}
}

func TestOverflowGuardFatalExceptMP4(t *testing.T) {
	t.Parallel()
	big := make([]byte, MaxPIDBuffer+1)
	d := &fakeDemuxer{
		rounds:  []outcome.Outcome{outcome.OK},
		pidData: map[uint16][][]byte{9: {big}},
	}
	a := New()
	a.OpenStream("overflow.ts", d, KindTS)
	id, _ := a.AddReader("overflow.ts", 9, Sequential, 0)
	_, _, err := a.ReadBlock(id, 0)
	if err == nil {
		t.Fatal("expected overflow error for non-MP4 container")
	}

	d2 := &fakeDemuxer{
		rounds:  []outcome.Outcome{outcome.OK},
		pidData: map[uint16][][]byte{9: {big}},
	}
	a2 := New()
	a2.OpenStream("overflow.mp4", d2, KindMP4)
	id2, _ := a2.AddReader("overflow.mp4", 9, Sequential, 0)
	_, _, err = a2.ReadBlock(id2, 0)
	if err != nil {
		t.Fatalf("MP4 should be exempt from the overflow guard, got %v", err)
	}
}
