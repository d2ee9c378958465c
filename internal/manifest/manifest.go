// Package manifest parses the line-based track manifest external interface:
// comments, an ignored MUXOPT line, and track lines of the form
// CODEC_NAME, "stream_path", key=value, key=value, ... It is a thin outer
// layer exercised by cmd/inputcore, not a core demuxing package.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tsmuxer/inputcore/internal/errs"
)

// Track is one parsed track line: a codec name, one or more concatenated
// file paths (more than one only for "a.mpls"+"b.mpls"-style multi-segment
// tracks), and the raw key=value option table. Options the core does not
// itself interpret are preserved here rather than dropped, so a caller can
// copy unrecognized ones onto StreamState.AddParams.
type Track struct {
	Codec   string
	Paths   []string
	Options map[string]string
}

// Manifest is a parsed track list. MuxOpt carries the raw MUXOPT line, if
// any, unparsed — it is consumed by the downstream muxer, not this core.
type Manifest struct {
	MuxOpt string
	Tracks []Track
}

// Parse reads a manifest from r. Blank lines and lines starting with '#'
// are skipped. A line starting with "MUXOPT" is recorded in MuxOpt and
// otherwise ignored. Every other non-empty line must be a track definition;
// a malformed one is reported as an *errs.ConfigError with
// errs.KindInvalidCodecFormat.
func Parse(r io.Reader) (*Manifest, error) {
	m := &Manifest{}
	scanner := bufio.NewScanner(r)
	// Manifest lines can carry long PiP/subtitle-hint option lists; grow
	// past bufio.Scanner's default 64 KiB token limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "MUXOPT") {
			m.MuxOpt = line
			continue
		}

		track, err := parseTrackLine(line)
		if err != nil {
			return nil, errs.NewConfigError(errs.KindInvalidCodecFormat,
				fmt.Sprintf("line %d: %v", lineNo, err), nil)
		}
		m.Tracks = append(m.Tracks, track)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return m, nil
}

// parseTrackLine parses one "CODEC, \"path\"[+\"path\"...], key=value, ..."
// line. The first field is the codec name, the second the (possibly
// '+'-concatenated, quoted) stream path; every field after that is an
// option. Fields are comma-separated outside double quotes, mirroring the
// reference splitQuotedStr(str, ',') parser.
func parseTrackLine(line string) (Track, error) {
	fields := splitQuoted(line, ',')
	if len(fields) < 2 {
		return Track{}, fmt.Errorf("invalid codec format: %q", line)
	}

	codec := strings.ToUpper(strings.TrimSpace(fields[0]))
	paths := splitConcatenatedPaths(strings.TrimSpace(fields[1]))
	if len(paths) == 0 {
		return Track{}, fmt.Errorf("invalid codec format: empty stream path in %q", line)
	}

	options := make(map[string]string, len(fields)-2)
	for _, f := range fields[2:] {
		k, v := splitOption(f)
		if k == "" {
			continue
		}
		options[k] = v
	}

	return Track{Codec: codec, Paths: paths, Options: options}, nil
}

// splitConcatenatedPaths splits a "a.mpls"+"b.mpls" path expression into
// its unquoted path components.
func splitConcatenatedPaths(s string) []string {
	parts := splitQuoted(s, '+')
	paths := make([]string, 0, len(parts))
	for _, p := range parts {
		p = unquote(strings.TrimSpace(p))
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// splitOption splits one "key=value" field into its trimmed parts. A field
// with no '=' is returned as (key, "").
func splitOption(field string) (string, string) {
	k, v, found := strings.Cut(field, "=")
	k = strings.TrimSpace(k)
	if !found {
		return k, ""
	}
	return k, strings.TrimSpace(v)
}

// splitQuoted splits s on sep, treating double-quoted spans as opaque (a
// sep byte inside a quoted span does not split the field). This mirrors
// the reference manifest parser's splitQuotedStr.
func splitQuoted(s string, sep byte) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
		case c == sep && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

// unquote strips one matching pair of surrounding double quotes, if present.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
