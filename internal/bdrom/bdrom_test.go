package bdrom

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClipPathMpls(t *testing.T) {
	t.Parallel()
	got := ClipPath("/disc/PLAYLIST/00001.mpls", "00002")
	want := filepath.Join("/disc", "STREAM", "00002.m2ts")
	if got != want {
		t.Errorf("ClipPath = %q, want %q", got, want)
	}
}

func TestClipPathAlternateExtension(t *testing.T) {
	t.Parallel()
	got := ClipPath("/disc/PLAYLIST/00001.mpl", "00002")
	want := filepath.Join("/disc", "STREAM", "00002.mts")
	if got != want {
		t.Errorf("ClipPath = %q, want %q", got, want)
	}
}

func TestSSIFPath(t *testing.T) {
	t.Parallel()
	got := SSIFPath("/disc/PLAYLIST/00001.mpls", "00002")
	want := filepath.Join("/disc", "STREAM", "SSIF", "00002.ssif")
	if got != want {
		t.Errorf("SSIFPath = %q, want %q", got, want)
	}
}

func TestResolveClipFallsBackToSSIFWhenPrimaryMissing(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "PLAYLIST"))
	mustMkdirAll(t, filepath.Join(root, "STREAM", "SSIF"))
	mplsPath := filepath.Join(root, "PLAYLIST", "00001.mpls")

	ssifPath := SSIFPath(mplsPath, "00002")
	if err := os.WriteFile(ssifPath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write ssif: %v", err)
	}

	got := ResolveClip(mplsPath, "00002", true)
	if got != ssifPath {
		t.Errorf("ResolveClip = %q, want %q", got, ssifPath)
	}
}

func TestResolveClipPrefersPrimaryWhenPresent(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "PLAYLIST"))
	mustMkdirAll(t, filepath.Join(root, "STREAM"))
	mplsPath := filepath.Join(root, "PLAYLIST", "00001.mpls")

	primaryPath := ClipPath(mplsPath, "00002")
	if err := os.WriteFile(primaryPath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write primary: %v", err)
	}

	got := ResolveClip(mplsPath, "00002", true)
	if got != primaryPath {
		t.Errorf("ResolveClip = %q, want %q", got, primaryPath)
	}
}

func TestClipInfoDirPrefersCLIPINFOverBackup(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "CLIPINF"))
	mustMkdirAll(t, filepath.Join(root, "BACKUP", "CLIPINF"))

	got := ClipInfoDir(root)
	want := filepath.Join(root, "CLIPINF")
	if got != want {
		t.Errorf("ClipInfoDir = %q, want %q", got, want)
	}
}

func TestClipInfoDirFallsBackToBackup(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "BACKUP", "CLIPINF"))

	got := ClipInfoDir(root)
	want := filepath.Join(root, "BACKUP", "CLIPINF")
	if got != want {
		t.Errorf("ClipInfoDir = %q, want %q", got, want)
	}
}

func mustMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("MkdirAll(%q): %v", path, err)
	}
}
