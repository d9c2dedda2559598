package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	// raw path unaffected
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	p, err := ExpandHome("~")
	if err != nil || p != home {
		t.Fatalf("expected %q, got %q (err=%v)", home, p, err)
	}
	exp, err := ExpandHome("~/outputs")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if filepath.Base(exp) != "outputs" || !strings.HasPrefix(exp, home) {
		t.Fatalf("unexpected expanded path: %q", exp)
	}
}

func TestSafeStem(t *testing.T) {
	cases := map[string]string{
		"/videos/My Clip (1).mp4": "My_Clip__1",
		"clip-01_final.mkv":       "clip-01_final",
		"/videos/.mp4":            "result",
		"":                        "result",
		"***.avi":                 "result",
		"видео.mp4":               "видео",
	}
	for in, want := range cases {
		if got := SafeStem(in); got != want {
			t.Fatalf("SafeStem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultOutputPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	now := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	got, err := DefaultOutputPath("/in/clip.mp4", dir, now)
	if err != nil {
		t.Fatalf("DefaultOutputPath: %v", err)
	}
	want := filepath.Join(dir, "clip_restored_20250203_040506.mp4")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if !PathExists(dir) {
		t.Fatalf("output dir not created")
	}
}

func TestResolveOutputPath(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	explicit := filepath.Join(root, "a", "b", "out.mp4")
	got, err := ResolveOutputPath("in.mp4", explicit, root, now)
	if err != nil || got != explicit {
		t.Fatalf("explicit file: %q, %v", got, err)
	}
	if !PathExists(filepath.Dir(explicit)) {
		t.Fatalf("parent not created")
	}

	existingDir := filepath.Join(root, "dir")
	if err := os.MkdirAll(existingDir, 0o755); err != nil {
		t.Fatal(err)
	}
	got, err = ResolveOutputPath("in.mp4", existingDir, root, now)
	if err != nil || filepath.Dir(got) != existingDir {
		t.Fatalf("existing dir: %q, %v", got, err)
	}

	got, err = ResolveOutputPath("in.mp4", filepath.Join(root, "slash")+"/", root, now)
	if err != nil || filepath.Base(filepath.Dir(got)) != "slash" {
		t.Fatalf("trailing slash: %q, %v", got, err)
	}

	got, err = ResolveOutputPath("in.mp4", "", filepath.Join(root, "default"), now)
	if err != nil || filepath.Base(got) != "in_restored_20250101_000000.mp4" {
		t.Fatalf("default: %q, %v", got, err)
	}
}
