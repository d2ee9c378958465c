package codec

// probe pairs a parser constructor with the name Autodetect reports for it.
type probe struct {
	name string
	new  func() Parser
}

// autodetectOrder is the fixed priority list from spec.md §4.4. LPCM and
// PGS are tried early because their headers are unambiguous; MPEG audio is
// tried last because its sync word is the most permissive and would
// otherwise false-positive against other codecs' payloads.
var autodetectOrder = []probe{
	{"PGS", func() Parser { return NewPGSParser() }},
	{"SRT", func() Parser { return NewSRTParser() }},
	{"LPCM", func() Parser { return NewLPCMParser() }},
	{"H264", func() Parser { return NewH264Parser() }},
	{"DTS", func() Parser { return NewDTSParser() }},
	{"AC3", func() Parser { return NewAC3Parser() }},
	{"MLP", func() Parser { return NewMLPParser() }},
	{"AAC", func() Parser { return NewAACParser() }},
	{"VC1", func() Parser { return NewVC1Parser() }},
	{"HEVC", func() Parser { return NewHEVCParser() }},
	{"VVC", func() Parser { return NewVVCParser() }},
	{"MPEG2Video", func() Parser { return NewMPEG2VideoParser() }},
	{"MPEGAudio", func() Parser { return NewMPEGAudioParser() }},
	{"DVBSub", func() Parser { return NewDVBSubParser() }},
}

// Autodetect tries each parser in autodetectOrder's fixed priority against
// sample, returning the first one whose CheckStream accepts it. streamIndex
// is passed through for log attribution only.
func Autodetect(sample []byte, containerType ContainerType, streamIndex int) (Parser, string) {
	for _, p := range autodetectOrder {
		parser := p.new()
		if parser.CheckStream(sample, containerType, streamIndex) == CheckOK {
			return parser, p.name
		}
	}
	return nil, ""
}
