package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tsmuxer/inputcore/internal/bytesource"
	"github.com/tsmuxer/inputcore/internal/codec"
	"github.com/tsmuxer/inputcore/internal/container"
	"github.com/tsmuxer/inputcore/internal/containeradapter"
	"github.com/tsmuxer/inputcore/internal/errs"
	"github.com/tsmuxer/inputcore/internal/langnorm"
	"github.com/tsmuxer/inputcore/internal/manifest"
	"github.com/tsmuxer/inputcore/internal/metademux"
	"github.com/tsmuxer/inputcore/internal/outcome"
	"github.com/tsmuxer/inputcore/internal/streaminfo"
	"github.com/tsmuxer/inputcore/internal/ticks"
)

// codecByName maps the manifest's recognized codec names (spec.md §6) to a
// constructor for the parser that frames them. A track whose codec is not
// in this table falls back to the fixed-order autodetector.
var codecByName = map[string]func() codec.Parser{
	"V_MPEG4/ISO/AVC":  func() codec.Parser { return codec.NewH264Parser() },
	"V_MPEG4/ISO/MVC":  func() codec.Parser { return codec.NewMVCDependentParser() },
	"V_MPEGH/ISO/HEVC": func() codec.Parser { return codec.NewHEVCParser() },
	"V_MPEGI/ISO/VVC":  func() codec.Parser { return codec.NewVVCParser() },
	"V_MS/VFW/WVC1":    func() codec.Parser { return codec.NewVC1Parser() },
	"V_MPEG-2":         func() codec.Parser { return codec.NewMPEG2VideoParser() },
	"A_AAC":            func() codec.Parser { return codec.NewAACParser() },
	"A_MP3":            func() codec.Parser { return codec.NewMPEGAudioParser() },
	"A_AC3":            func() codec.Parser { return codec.NewAC3Parser() },
	"A_DTS":            func() codec.Parser { return codec.NewDTSParser() },
	"A_MLP":            func() codec.Parser { return codec.NewMLPParser() },
	"A_LPCM":           func() codec.Parser { return codec.NewLPCMParser() },
	"S_HDMV/PGS":       func() codec.Parser { return codec.NewPGSParser() },
	"S_SUP":            func() codec.Parser { return codec.NewPGSParser() },
	"S_TEXT/UTF8":      func() codec.Parser { return codec.NewSRTParser() },
}

// fragmentedCodecs is the set of codec names whose PID must be served under
// containeradapter.Fragmented policy (spec.md §4.3.4 / §8's fragmented
// latency property): subtitle and caption formats, where waiting for a
// full 16 KiB block would stall small display-set packets.
var fragmentedCodecs = map[string]bool{
	"S_HDMV/PGS":  true,
	"S_SUP":       true,
	"S_TEXT/UTF8": true,
}

// openTrack is one manifest track resolved to a live StreamState plus the
// codec name it was configured with, for log attribution.
type openTrack struct {
	state *streaminfo.StreamState
	codec string
}

// pipeline ties a parsed manifest to its opened streams and the
// interleaver pulling them, so both probe and run share one build path.
type pipeline struct {
	log     *slog.Logger
	adapter *containeradapter.ContainerAdapter
	demuxer *metademux.MetaDemuxer
	tracks  []openTrack

	openFiles map[string]bool // stream-file paths already registered with adapter
}

// buildPipeline parses manifestPath and opens every track it declares,
// wiring container demuxing for containerized sources and direct
// file-backed parsing for raw elementary streams. The returned pipeline
// owns every opened resource; call Close to release them.
func buildPipeline(manifestPath string, log *slog.Logger) (*pipeline, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "cmd/inputcore")

	f, err := os.Open(manifestPath)
	if err != nil {
		return nil, errs.NewConfigError(errs.KindCommon, "opening manifest", err)
	}
	defer f.Close()

	man, err := manifest.Parse(f)
	if err != nil {
		return nil, err
	}
	if man.MuxOpt != "" {
		log.Debug("ignoring MUXOPT line", "muxopt", man.MuxOpt)
	}

	p := &pipeline{
		log:       log,
		adapter:   containeradapter.New(),
		demuxer:   metademux.New(log),
		openFiles: make(map[string]bool),
	}
	p.demuxer.AddDelayedResetter(p.adapter)

	for i, tr := range man.Tracks {
		state, err := p.openTrackState(i, tr)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.demuxer.AddStream(state)
		p.tracks = append(p.tracks, openTrack{state: state, codec: tr.Codec})
	}
	return p, nil
}

// openTrackState resolves one manifest track into a StreamState: a codec
// parser (from codecByName, or the autodetector if unrecognized) and a
// ByteSource (a shared ContainerAdapter reader for containerized formats,
// a direct FileByteSource for raw elementary streams).
func (p *pipeline) openTrackState(index int, tr manifest.Track) (*streaminfo.StreamState, error) {
	if len(tr.Paths) == 0 {
		return nil, errs.NewConfigError(errs.KindInvalidCodecFormat, "track has no stream path", nil)
	}
	path := tr.Paths[0]
	if len(tr.Paths) > 1 {
		p.log.Warn("multi-file concatenated track is read from its first segment only",
			"track", index, "paths", tr.Paths)
	}

	pid, err := trackPID(tr.Options)
	if err != nil {
		return nil, errs.NewConfigError(errs.KindInvalidCodecFormat, "parsing track/subTrack option", err)
	}

	src, containerType, err := p.openSource(path, pid, tr.Codec)
	if err != nil {
		return nil, err
	}

	newParser, recognized := codecByName[tr.Codec]
	var parser codec.Parser
	if recognized {
		parser = newParser()
	} else {
		p.log.Warn("unrecognized codec name, deferring to autodetection", "codec", tr.Codec, "track", index)
		sample, rez := src.ReadBlock(16 * 1024)
		if rez != outcome.OK {
			return nil, errs.NewConfigError(errs.KindUnknownCodec,
				fmt.Sprintf("track %d: could not sample stream for autodetection", index), nil)
		}
		var name string
		parser, name = codec.Autodetect(sample, containerType, index)
		if parser == nil {
			return nil, errs.NewConfigError(errs.KindUnknownCodec,
				fmt.Sprintf("track %d: no parser recognized this stream", index), nil)
		}
		parser.SetBuffer(sample, false)
		p.log.Info("autodetected codec", "track", index, "codec", name)
	}

	timeShift, err := trackTimeShift(tr.Options)
	if err != nil {
		return nil, errs.NewConfigError(errs.KindInvalidCodecFormat, "parsing timeshift option", err)
	}

	state := streaminfo.New(index, path, path, pid, src, parser, timeShift)
	if lang, ok := tr.Options["lang"]; ok {
		state.Lang = langnorm.Normalize(lang)
	}
	for k, v := range tr.Options {
		state.AddParams[k] = v
	}
	return state, nil
}

// openSource opens the ByteSource for path: a shared ContainerAdapter
// reader for a recognized container extension, or a direct FileByteSource
// for anything else (treated as a raw elementary stream, pid ignored).
func (p *pipeline) openSource(path string, pid int, codecName string) (bytesource.ByteSource, codec.ContainerType, error) {
	kind, containerType, isContainer := classifyContainer(path)
	if !isContainer {
		f, err := os.Open(path)
		if err != nil {
			return nil, codec.ContainerRawES, errs.NewStreamError(errs.KindCommon, "opening elementary stream file", err)
		}
		return bytesource.NewFileByteSource(f, p.log), codec.ContainerRawES, nil
	}

	if pid < 0 {
		return nil, containerType, errs.NewConfigError(errs.KindInvalidCodecFormat,
			fmt.Sprintf("containerized track %q requires a track= option", path), nil)
	}

	if !p.openFiles[path] {
		f, err := os.Open(path)
		if err != nil {
			return nil, containerType, errs.NewStreamError(errs.KindCommon, "opening container file", err)
		}
		demuxer := newContainerDemuxer(kind, bytesource.NewFileByteSource(f, p.log))
		p.adapter.OpenStream(path, demuxer, kind)
		p.openFiles[path] = true
	}

	readerID, err := p.adapter.AddReader(path, uint16(pid), readPolicy(codecName), 0)
	if err != nil {
		return nil, containerType, errs.NewConfigError(errs.KindUnsupportedContainerFormat, err.Error(), nil)
	}
	return containeradapter.NewReaderSource(p.adapter, readerID), containerType, nil
}

func newContainerDemuxer(kind containeradapter.ContainerKind, src bytesource.ByteSource) container.ContainerDemuxer {
	switch kind {
	case containeradapter.KindTS:
		return container.NewTSDemuxer(src)
	case containeradapter.KindProgramStream:
		return container.NewProgStreamDemuxer(src)
	case containeradapter.KindMatroska:
		return container.NewMKVDemuxer(src)
	case containeradapter.KindMP4, containeradapter.KindMOV:
		return container.NewMP4Demuxer(src)
	default:
		return container.NewRawESDemuxer(src)
	}
}

func readPolicy(codecName string) containeradapter.ReadPolicy {
	if fragmentedCodecs[codecName] {
		return containeradapter.Fragmented
	}
	return containeradapter.Sequential
}

// classifyContainer maps a file extension to its ContainerKind and the
// codec.ContainerType a parser's CheckStream should be told about. ok is
// false for any extension not recognized as a container, in which case the
// caller treats the file as a raw elementary stream.
func classifyContainer(path string) (kind containeradapter.ContainerKind, containerType codec.ContainerType, ok bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".m2ts", ".mts":
		return containeradapter.KindTS, codec.ContainerTS, true
	case ".mpg", ".mpeg", ".vob":
		return containeradapter.KindProgramStream, codec.ContainerProgramStream, true
	case ".mkv":
		return containeradapter.KindMatroska, codec.ContainerMatroska, true
	case ".mp4", ".m4v":
		return containeradapter.KindMP4, codec.ContainerMP4, true
	case ".mov":
		return containeradapter.KindMOV, codec.ContainerMP4, true
	default:
		return 0, codec.ContainerRawES, false
	}
}

// trackPID resolves the PID a containerized track reads from: the "track"
// option, combined with "subTrack" via pidToSubPid if present. Returns -1
// (no PID) if neither option is set, the signal for a raw elementary
// stream source.
func trackPID(opts map[string]string) (int, error) {
	trackStr, ok := opts["track"]
	if !ok {
		return -1, nil
	}
	pid, err := parsePID(trackStr)
	if err != nil {
		return 0, fmt.Errorf("track=%q: %w", trackStr, err)
	}
	if subStr, ok := opts["subTrack"]; ok {
		sub, err := parsePID(subStr)
		if err != nil {
			return 0, fmt.Errorf("subTrack=%q: %w", subStr, err)
		}
		pid = pidToSubPid(pid, sub)
	}
	return pid, nil
}

// pidToSubPid combines a base PID with a sub-track index into the packed
// PID identifying a PG text/graphics sub-stream sharing one container PID.
// A TS PID is 13 bits (0-8191); the sub-track index is packed into the top
// 3 bits of the uint16 PID space. SubTrackFilter::pidToSubPid's own packing
// is not in the retrieved source, so this is a grounded approximation of
// its documented purpose (disambiguating a subTrack option on a shared
// PID), not a byte-for-byte port.
func pidToSubPid(pid, sub int) int {
	return pid | (sub << 13)
}

func parsePID(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func trackTimeShift(opts map[string]string) (int64, error) {
	v, ok := opts["timeshift"]
	if !ok {
		return 0, nil
	}
	return ticks.ParseTimeShift(v)
}

// Close releases every opened stream and terminates the shared adapter.
func (p *pipeline) Close() {
	p.demuxer.ReadClose()
	p.adapter.Terminate()
}
