package codec

import (
	"encoding/binary"
	"testing"

	"github.com/tsmuxer/inputcore/internal/packet"
)

// buildDTSCoreFrame constructs a minimal synthetic DTS core frame with the
// given frame byte length and a 48 kHz/2-channel header, for parser tests.
// It is not bit-exact to a real encoder's output beyond the fields this
// parser actually reads.
func buildDTSCoreFrame(frameBytes int) []byte {
	buf := make([]byte, frameBytes)
	binary.BigEndian.PutUint32(buf[0:4], dtsCoreSync)

	// Hand-pack the header bitfields parseDTSCoreHeader reads, in order:
	// 6(skip) 1(crc=0) 7(skip) 14(frameSize=frameBytes-1) 6(skip) 4(rateIdx=13->48000)
	// 5(bitRateIdx) 8(skip) 1(extCoding=0) 1(skip) 2(lfe=0) 1(skip) 7(skip)
	// 3(pcmRes=0) 2(skip) 4(dialNorm) 4(skip) 3(totalChannels-1-extCoding=1 -> 2ch)
	bits := make([]bool, 0, 128)
	pushBits := func(v uint64, n int) {
		for i := n - 1; i >= 0; i-- {
			bits = append(bits, (v>>uint(i))&1 == 1)
		}
	}
	pushBits(0, 6)
	pushBits(0, 1) // crc present
	pushBits(0, 7)
	pushBits(uint64(frameBytes-1), 14)
	pushBits(0, 6)
	pushBits(13, 4) // sample rate index -> 48000
	pushBits(0, 5)  // bit rate index
	pushBits(0, 8)
	pushBits(0, 1) // ext coding
	pushBits(0, 1)
	pushBits(0, 2) // lfe
	pushBits(0, 1)
	pushBits(0, 7)
	pushBits(0, 3) // pcm res
	pushBits(0, 2)
	pushBits(0, 4) // dialog norm
	pushBits(0, 4)
	pushBits(1, 3) // total channels field -> 1+1+0 = 2

	for i, b := range bits {
		if b {
			buf[4+i/8] |= 1 << uint(7-i%8)
		}
	}

	binary.BigEndian.PutUint32(buf[frameBytes-4:frameBytes], dtsCoreSync)
	return buf
}

func TestDTSParserReadsOneFrame(t *testing.T) {
	t.Parallel()
	const frameBytes = 200
	frame1 := buildDTSCoreFrame(frameBytes)
	frame2 := buildDTSCoreFrame(frameBytes)

	p := NewDTSParser()
	p.SetBuffer(append(frame1, frame2...), false)

	var out packet.Packet
	if !p.ReadPacket(&out) {
		t.Fatal("expected a frame to be available")
	}
	if out.Size != frameBytes {
		t.Fatalf("frame size = %d, want %d", out.Size, frameBytes)
	}
	if p.GetFreq() != 48000 {
		t.Fatalf("GetFreq() = %d, want 48000", p.GetFreq())
	}
	if p.GetChannels() != 2 {
		t.Fatalf("GetChannels() = %d, want 2", p.GetChannels())
	}
}

func TestDTSParserCheckStream(t *testing.T) {
	t.Parallel()
	p := NewDTSParser()
	frame := buildDTSCoreFrame(200)
	if p.CheckStream(frame, ContainerRawES, 0) != CheckOK {
		t.Fatal("expected CheckOK on a valid DTS sync")
	}
	if p.CheckStream([]byte{0, 1, 2, 3}, ContainerRawES, 0) != CheckFail {
		t.Fatal("expected CheckFail on non-DTS data")
	}
}

func TestDTSParserFlushResidue(t *testing.T) {
	t.Parallel()
	p := NewDTSParser()
	p.SetBuffer([]byte{0x7F, 0xFE, 0x80, 0x01, 0x00}, true)
	var out packet.Packet
	if p.ReadPacket(&out) {
		t.Fatal("incomplete frame should not be readable")
	}
	if !p.FlushPacket(&out) {
		t.Fatal("expected residue to flush at EOF")
	}
}
