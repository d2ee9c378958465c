// Package packet defines the Packet and CodecInfo data types that flow
// from codec parsers through the MetaDemuxer interleaver.
package packet

// PacketFlags is a bitmask of per-packet attributes.
type PacketFlags uint8

// Recognized packet flags.
const (
	// FlagPCRStream marks packets from the track the downstream muxer uses
	// as its Program Clock Reference. Set once, on the first configured
	// stream only.
	FlagPCRStream PacketFlags = 1 << iota
	// FlagPriorityData marks a key frame / random-access point.
	FlagPriorityData
	// FlagForced marks a forced subtitle packet.
	FlagForced
)

// Has reports whether all bits in mask are set.
func (f PacketFlags) Has(mask PacketFlags) bool { return f&mask == mask }

// CodecInfo is an immutable, one-per-codec descriptor. Every parser exposes
// exactly one canonical instance via GetCodecInfo.
type CodecInfo struct {
	CodecID     string
	ProgramName string
	DisplayName string
	MimeFamily  string
}

// Packet carries one demultiplexed, codec-framed access unit. Data aliases
// a shared byte range owned by the parser's internal buffer; callers must
// not retain it past the next ReadPacket/FlushPacket call on that parser.
type Packet struct {
	StreamIndex int
	Data        []byte
	Size        int
	PTS         int64
	DTS         int64
	Duration    int64
	Flags       PacketFlags
	CodecRef    *CodecInfo
}

// Reset zeroes a packet for reuse, matching the "a fresh packet starts
// zero" invariant of the data model.
func (p *Packet) Reset() {
	p.StreamIndex = 0
	p.Data = nil
	p.Size = 0
	p.PTS = 0
	p.DTS = 0
	p.Duration = 0
	p.Flags = 0
	p.CodecRef = nil
}
