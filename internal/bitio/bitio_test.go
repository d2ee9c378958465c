package bitio

import "testing"

func TestReadBits(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0b10110010, 0b11110000})
	v, err := r.ReadBits(4)
	if err != nil || v != 0b1011 {
		t.Fatalf("ReadBits(4) = %d, %v", v, err)
	}
	v, err = r.ReadBits(8)
	if err != nil || v != 0b00101111 {
		t.Fatalf("ReadBits(8) = %d, %v", v, err)
	}
}

func TestReadUE(t *testing.T) {
	t.Parallel()
	// Exp-Golomb encoding of 0, 1, 2, 3: "1", "010", "011", "00100"
	r := NewReader([]byte{0b1_010_011_0, 0b0100_0000})
	for _, want := range []uint64{0, 1, 2, 3} {
		got, err := r.ReadUE()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("ReadUE() = %d, want %d", got, want)
		}
	}
}

func TestRemoveEmulationPrevention(t *testing.T) {
	t.Parallel()
	in := []byte{0x00, 0x00, 0x03, 0x01, 0x00, 0x00, 0x03, 0x02}
	want := []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x02}
	got := RemoveEmulationPrevention(in)
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %x, want %x", i, got[i], want[i])
		}
	}
}

func TestShortRead(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0xFF})
	if _, err := r.ReadBits(16); err == nil {
		t.Fatal("expected short read error")
	}
}
