package manifest

import (
	"strings"
	"testing"

	"github.com/tsmuxer/inputcore/internal/errs"
)

func TestParseSkipsCommentsAndMuxOpt(t *testing.T) {
	t.Parallel()
	src := `MUXOPT --vbr --no-pcr-on-video-pid
# a comment
V_MPEG4/ISO/AVC, "video.264", track=4113
`
	m, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.MuxOpt != "MUXOPT --vbr --no-pcr-on-video-pid" {
		t.Fatalf("MuxOpt = %q", m.MuxOpt)
	}
	if len(m.Tracks) != 1 {
		t.Fatalf("got %d tracks, want 1", len(m.Tracks))
	}
}

func TestParseTrackLineBasic(t *testing.T) {
	t.Parallel()
	m, err := Parse(strings.NewReader(`A_AC3, "audio.ac3", track=4352, lang=eng, timeshift=500ms`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(m.Tracks) != 1 {
		t.Fatalf("got %d tracks, want 1", len(m.Tracks))
	}
	tr := m.Tracks[0]
	if tr.Codec != "A_AC3" {
		t.Errorf("Codec = %q, want A_AC3", tr.Codec)
	}
	if len(tr.Paths) != 1 || tr.Paths[0] != "audio.ac3" {
		t.Errorf("Paths = %v, want [audio.ac3]", tr.Paths)
	}
	want := map[string]string{"track": "4352", "lang": "eng", "timeshift": "500ms"}
	for k, v := range want {
		if tr.Options[k] != v {
			t.Errorf("Options[%q] = %q, want %q", k, tr.Options[k], v)
		}
	}
}

func TestParseCommaInsideQuotedPathIsNotASplit(t *testing.T) {
	t.Parallel()
	m, err := Parse(strings.NewReader(`V_MPEG-2, "video, with, commas.m2v", track=4113`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(m.Tracks) != 1 {
		t.Fatalf("got %d tracks, want 1", len(m.Tracks))
	}
	if got := m.Tracks[0].Paths[0]; got != "video, with, commas.m2v" {
		t.Errorf("Paths[0] = %q", got)
	}
}

func TestParseConcatenatedMPLSPaths(t *testing.T) {
	t.Parallel()
	m, err := Parse(strings.NewReader(`V_MPEG4/ISO/AVC, "a.mpls"+"b.mpls", track=4113`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tr := m.Tracks[0]
	want := []string{"a.mpls", "b.mpls"}
	if len(tr.Paths) != len(want) {
		t.Fatalf("Paths = %v, want %v", tr.Paths, want)
	}
	for i := range want {
		if tr.Paths[i] != want[i] {
			t.Errorf("Paths[%d] = %q, want %q", i, tr.Paths[i], want[i])
		}
	}
}

func TestParsePreservesUninterpretedOptions(t *testing.T) {
	t.Parallel()
	m, err := Parse(strings.NewReader(
		`S_HDMV/PGS, "sub.sup", track=4608, bottom-offset=10, video-width=1920, video-height=1080, font-name=Arial`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	opts := m.Tracks[0].Options
	want := map[string]string{
		"bottom-offset": "10",
		"video-width":   "1920",
		"video-height":  "1080",
		"font-name":     "Arial",
	}
	for k, v := range want {
		if opts[k] != v {
			t.Errorf("Options[%q] = %q, want %q", k, opts[k], v)
		}
	}
}

func TestParseRejectsMalformedTrackLine(t *testing.T) {
	t.Parallel()
	_, err := Parse(strings.NewReader("V_MPEG-2\n"))
	if err == nil {
		t.Fatal("expected an error for a line with no stream path")
	}
	var cfgErr *errs.ConfigError
	if !asConfigError(err, &cfgErr) {
		t.Fatalf("error %v is not a *errs.ConfigError", err)
	}
	if cfgErr.Kind != errs.KindInvalidCodecFormat {
		t.Errorf("Kind = %v, want KindInvalidCodecFormat", cfgErr.Kind)
	}
}

func TestParseSkipsBlankLines(t *testing.T) {
	t.Parallel()
	m, err := Parse(strings.NewReader("\n\n  \nA_AAC, \"audio.aac\", track=4352\n\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(m.Tracks) != 1 {
		t.Fatalf("got %d tracks, want 1", len(m.Tracks))
	}
}

func asConfigError(err error, target **errs.ConfigError) bool {
	ce, ok := err.(*errs.ConfigError)
	if ok {
		*target = ce
	}
	return ok
}
