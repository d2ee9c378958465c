package bdrom

import (
	"fmt"
	"io"

	"github.com/tsmuxer/inputcore/internal/langnorm"
)

// CodingType is a CLPI stream_coding_type byte, as found verbatim in the
// clip info's program info table.
type CodingType byte

// Coding types the demultiplexer cares about; values are the CLPI wire
// constants, not reassigned.
const (
	CodingMPEG2Video   CodingType = 0x02
	CodingAVCVideo     CodingType = 0x1B
	CodingHEVCVideo    CodingType = 0x24
	CodingVC1Video     CodingType = 0xEA
	CodingMPEG1Audio   CodingType = 0x03
	CodingMPEG2Audio   CodingType = 0x04
	CodingLPCMAudio    CodingType = 0x80
	CodingAC3Audio     CodingType = 0x81
	CodingDTSAudio     CodingType = 0x82
	CodingTrueHDAudio  CodingType = 0x83
	CodingAC3PlusAudio CodingType = 0x84
	CodingDTSHDAudio   CodingType = 0x85
	CodingDTSHDMAAudio CodingType = 0x86
	CodingPG           CodingType = 0x90
	CodingIG           CodingType = 0x91
	CodingText         CodingType = 0x92
)

// hasLanguage reports whether coding carries a 3-byte ISO 639-2 language
// code in its stream attributes, per the CLPI program info table layout.
func (c CodingType) hasLanguage() bool {
	switch c {
	case CodingMPEG1Audio, CodingMPEG2Audio, CodingLPCMAudio, CodingAC3Audio,
		CodingDTSAudio, CodingTrueHDAudio, CodingAC3PlusAudio, CodingDTSHDAudio,
		CodingDTSHDMAAudio, CodingPG, CodingIG, CodingText:
		return true
	default:
		return false
	}
}

// StreamAttributes is the minimal per-PID clip-info record the
// demultiplexer consumes: which coding type a PID carries, and its
// normalized language (empty for video, which carries none).
type StreamAttributes struct {
	PID        uint16
	CodingType CodingType
	Language   string
}

// ParseClipInfo reads a .clpi file's program info table and returns its
// per-PID stream attributes, keyed by PID. Only the fields the
// demultiplexer needs (PID, coding type, language) are extracted; video
// format/frame rate/aspect ratio and audio channel layout/sample rate are
// not parsed, since nothing downstream of the manifest+autodetector
// consumes them here.
//
// Layout grounded on the CLPI ClipInfo() program_info block: an 8-byte
// "HDMV0???" file type, a big-endian ClipInfo start-address pointer at
// offset 12, a 4-byte length-prefixed ClipInfo block, and within it (after
// a 10-byte fixed header) one variable-length StreamCodingInfo entry per
// stream, each led by a 2-byte PID and a length-prefixed attribute block
// whose second byte is the stream_coding_type.
func ParseClipInfo(r io.Reader) (map[uint16]StreamAttributes, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("bdrom: read clip info: %w", err)
	}
	if len(data) < 20 {
		return nil, fmt.Errorf("bdrom: clip info too short (%d bytes)", len(data))
	}

	switch fileType := string(data[:8]); fileType {
	case "HDMV0100", "HDMV0200", "HDMV0300":
	default:
		return nil, fmt.Errorf("bdrom: unrecognized clip info file type %q", fileType)
	}

	clipIndex := int(be32(data[12:16]))
	if clipIndex+4 > len(data) {
		return nil, fmt.Errorf("bdrom: clip info start address out of range")
	}
	clipLength := int(be32(data[clipIndex : clipIndex+4]))
	if clipIndex+4+clipLength > len(data) {
		return nil, fmt.Errorf("bdrom: clip info block length out of range")
	}
	clipData := data[clipIndex+4 : clipIndex+4+clipLength]
	if len(clipData) < 12 {
		return nil, fmt.Errorf("bdrom: clip info block too short")
	}

	streamCount := int(clipData[8])
	attrs := make(map[uint16]StreamAttributes, streamCount)

	offset := 10
	for i := 0; i < streamCount; i++ {
		if offset+3 > len(clipData) {
			break
		}
		pid := uint16(clipData[offset])<<8 | uint16(clipData[offset+1])
		blockOffset := offset + 2
		blockLen := int(clipData[blockOffset])
		attrStart := blockOffset + 1
		if attrStart+blockLen > len(clipData) || blockLen < 1 {
			break
		}
		block := clipData[attrStart : attrStart+blockLen]
		coding := CodingType(block[0])

		sa := StreamAttributes{PID: pid, CodingType: coding}
		if coding.hasLanguage() && len(block) >= 4 {
			// Audio/graphics/text language fields sit at different fixed
			// offsets within their attribute block; the last 3 bytes of a
			// well-formed language-carrying block are always the ISO 639-2
			// code, so read from the tail rather than per-type offsets.
			lang := string(block[len(block)-3:])
			sa.Language = langnorm.Normalize(lang)
		}
		attrs[pid] = sa

		offset = attrStart + blockLen
	}

	return attrs, nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
