package codec

import (
	"encoding/binary"
	"testing"

	"github.com/tsmuxer/inputcore/internal/packet"
)

func pgsSegment(segType byte, payload []byte) []byte {
	header := make([]byte, 3)
	header[0] = segType
	binary.BigEndian.PutUint16(header[1:3], uint16(len(payload)))
	return append(header, payload...)
}

func TestPGSParserEmitsOnEndSegment(t *testing.T) {
	t.Parallel()
	var ds []byte
	ds = append(ds, pgsSegment(pgsSegPresentationComposition, []byte{0x01, 0x02})...)
	ds = append(ds, pgsSegment(pgsSegEnd, nil)...)

	p := NewPGSParser()
	p.SetBuffer(ds, false)

	var out packet.Packet
	if !p.ReadPacket(&out) {
		t.Fatal("expected a display set to be available")
	}
	if out.Size != len(ds) {
		t.Fatalf("display set size = %d, want %d", out.Size, len(ds))
	}
	if !out.Flags.Has(packet.FlagPriorityData) {
		t.Fatal("expected PGS display set to be marked priority data")
	}
}

func TestPGSParserCheckStream(t *testing.T) {
	t.Parallel()
	p := NewPGSParser()
	if p.CheckStream(pgsSegment(pgsSegPresentationComposition, []byte{0, 0}), ContainerRawES, 0) != CheckOK {
		t.Fatal("expected CheckOK on a valid PGS segment header")
	}
	if p.CheckStream([]byte{0xFF, 0, 0}, ContainerRawES, 0) != CheckFail {
		t.Fatal("expected CheckFail on an unknown segment type")
	}
}
