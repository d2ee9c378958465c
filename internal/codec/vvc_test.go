package codec

import (
	"testing"

	"github.com/tsmuxer/inputcore/internal/packet"
)

func vvcAnnexBUnit(nalType byte, payload ...byte) []byte {
	firstByte := nalType << 3
	return append([]byte{0, 0, 0, 1, firstByte, 0x01}, payload...)
}

func TestVVCParserEmitsKeyframe(t *testing.T) {
	t.Parallel()
	var stream []byte
	stream = append(stream, vvcAnnexBUnit(vvcNALIDRWRadl, 0xAA)...)
	stream = append(stream, vvcAnnexBUnit(vvcNALIDRWRadl, 0xBB)...)
	stream = append(stream, vvcAnnexBUnit(vvcNALAUD, 0x00)...)

	p := NewVVCParser()
	p.SetBuffer(stream, false)

	var out packet.Packet
	if !p.ReadPacket(&out) {
		t.Fatal("expected an access unit to be available")
	}
	if !out.Flags.Has(packet.FlagPriorityData) {
		t.Fatal("expected IDR access unit to be marked priority data")
	}
}

func TestVVCParserCheckStream(t *testing.T) {
	t.Parallel()
	p := NewVVCParser()
	sps := vvcAnnexBUnit(vvcNALSPS, 0x00, 0x00)
	if p.CheckStream(sps, ContainerRawES, 0) != CheckOK {
		t.Fatal("expected CheckOK on a stream containing an SPS")
	}
	if p.CheckStream([]byte{0, 1, 2, 3}, ContainerRawES, 0) != CheckFail {
		t.Fatal("expected CheckFail on non-Annex-B data")
	}
}
