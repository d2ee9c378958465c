// Package bdrom resolves Blu-ray playlist references to concrete stream
// files and reads the minimal per-PID clip-info fields the demultiplexer
// consumes (language, coding type). Full MPLS/CLPI structural parsing
// (chapter marks, playlist marks, stream attribute blocks beyond PID/coding
// type/language) is out of scope.
package bdrom

import (
	"os"
	"path/filepath"
	"strings"
)

// ClipPath returns the primary STREAM/ file a playlist's clip reference
// resolves to: <root>/STREAM/<clipName>.m2ts for an .mpls playlist, or
// <root>/STREAM/<clipName>.mts for the alternate .mpl extension, mirroring
// the reference mplsTrackToFullName.
func ClipPath(mplsPath, clipName string) string {
	return filepath.Join(streamDir(mplsPath), clipName+"."+m2tsExt(mplsPath))
}

// SSIFPath returns the dependent-view interleaved-stream fallback path:
// <root>/STREAM/SSIF/<clipName>.ssif (or .sif for the .mpl variant),
// mirroring the reference mplsTrackToSSIFName.
func SSIFPath(mplsPath, clipName string) string {
	return filepath.Join(streamDir(mplsPath), "SSIF", clipName+"."+ssifExt(mplsPath))
}

// ResolveClip returns the file a playlist's clip reference should be read
// from: the primary STREAM/ file, or the STREAM/SSIF/ fallback when
// dependentExists is true and the primary file is not present on disk.
func ResolveClip(mplsPath, clipName string, dependentExists bool) string {
	primary := ClipPath(mplsPath, clipName)
	if dependentExists {
		if _, err := os.Stat(primary); err != nil {
			return SSIFPath(mplsPath, clipName)
		}
	}
	return primary
}

// ClipInfoDir returns the CLIPINF directory to read a clip's .clpi file
// from: <root>/CLIPINF if present, otherwise the <root>/BACKUP/CLIPINF
// fallback, per the Blu-ray file resolution rule. root is the disc root
// (the parent of PLAYLIST/STREAM/CLIPINF), not the PLAYLIST directory.
func ClipInfoDir(root string) string {
	primary := filepath.Join(root, "CLIPINF")
	if info, err := os.Stat(primary); err == nil && info.IsDir() {
		return primary
	}
	return filepath.Join(root, "BACKUP", "CLIPINF")
}

// streamDir returns <root>/STREAM for an mplsPath of the form
// <root>/PLAYLIST/NN.mpls.
func streamDir(mplsPath string) string {
	playlistDir := filepath.Dir(mplsPath)
	root := filepath.Dir(playlistDir)
	return filepath.Join(root, "STREAM")
}

func m2tsExt(mplsPath string) string {
	if strings.EqualFold(filepath.Ext(mplsPath), ".mpls") {
		return "m2ts"
	}
	return "mts"
}

func ssifExt(mplsPath string) string {
	if strings.EqualFold(filepath.Ext(mplsPath), ".mpls") {
		return "ssif"
	}
	return "sif"
}
