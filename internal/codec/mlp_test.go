package codec

import (
	"encoding/binary"
	"testing"

	"github.com/tsmuxer/inputcore/internal/packet"
)

// buildMLPAccessUnit hand-packs a minimal TrueHD access unit: a 4-byte
// access-unit header (length in 16-bit words) followed by the major sync
// word and a 28-byte major sync block with a chosen substream count.
func buildMLPAccessUnit(totalBytes, substreams int) []byte {
	buf := make([]byte, totalBytes)
	binary.BigEndian.PutUint16(buf[0:2], uint16(totalBytes/2)&0x0FFF)
	binary.BigEndian.PutUint32(buf[4:8], mlpSyncWord)
	// buf[8:12] is where parseMajorSync reads the rate bits; the subtype is
	// decided from the sync word at buf[4:8].
	binary.BigEndian.PutUint32(buf[8:12], 0xF8726FBB)
	// rate field: the top 4 bits of buf[8] are 0xF, outside mlpRateTable, so
	// the sample rate stays unset; buf[16] is not read by the parser.
	buf[16] = 0x00
	if totalBytes > 27 {
		buf[27] = byte((substreams - 1) << 4)
	}
	return buf
}

func TestMLPParserReadsOneFrame(t *testing.T) {
	t.Parallel()
	const auBytes = 64
	au1 := buildMLPAccessUnit(auBytes, 2)
	au2 := buildMLPAccessUnit(auBytes, 2)

	p := NewMLPParser()
	p.SetBuffer(append(au1, au2...), false)

	var out packet.Packet
	if !p.ReadPacket(&out) {
		t.Fatal("expected an access unit to be available")
	}
	if out.Size != auBytes {
		t.Fatalf("access unit size = %d, want %d", out.Size, auBytes)
	}
}

func TestMLPParserAtmosAnnotation(t *testing.T) {
	t.Parallel()
	const auBytes = 64
	au := buildMLPAccessUnit(auBytes, 4)

	p := NewMLPParser()
	p.SetBuffer(append(au, buildMLPAccessUnit(auBytes, 4)...), false)

	var out packet.Packet
	if !p.ReadPacket(&out) {
		t.Fatal("expected an access unit to be available")
	}
	info := p.GetStreamInfo()
	if !containsAtmos(info) {
		t.Fatalf("GetStreamInfo() = %q, want ATMOS annotation", info)
	}
}

func containsAtmos(s string) bool {
	for i := 0; i+5 <= len(s); i++ {
		if s[i:i+5] == "ATMOS" {
			return true
		}
	}
	return false
}

func TestMLPParserCheckStream(t *testing.T) {
	t.Parallel()
	p := NewMLPParser()
	au := buildMLPAccessUnit(64, 2)
	if p.CheckStream(au, ContainerRawES, 0) != CheckOK {
		t.Fatal("expected CheckOK on a valid MLP/TrueHD sync")
	}
	if p.CheckStream([]byte{0, 1, 2, 3}, ContainerRawES, 0) != CheckFail {
		t.Fatal("expected CheckFail on non-MLP data")
	}
}

func TestMLPParserFlushSkipsPriorityPTS(t *testing.T) {
	t.Parallel()
	p := NewMLPParser()
	p.sampleRate = 48000
	p.lastWasPriority = true
	p.buf = []byte{1, 2, 3, 4}

	var out packet.Packet
	out.PTS, out.DTS = 111, 222
	if !p.FlushPacket(&out) {
		t.Fatal("expected residue to flush")
	}
	if out.PTS != 111 || out.DTS != 222 {
		t.Fatalf("PRIORITY_DATA residue PTS/DTS overwritten: got %d/%d", out.PTS, out.DTS)
	}
}

func TestMLPParserTSDescriptor(t *testing.T) {
	t.Parallel()
	p := NewMLPParser()
	desc := p.GetTSDescriptor()
	want := []byte{0x05, 0x04, 'm', 'l', 'p', 'a'}
	if len(desc) != len(want) {
		t.Fatalf("descriptor length = %d, want %d", len(desc), len(want))
	}
	for i := range want {
		if desc[i] != want[i] {
			t.Fatalf("descriptor[%d] = %x, want %x", i, desc[i], want[i])
		}
	}
}
