package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewRequestID(t *testing.T) {
	t.Run("generates_uuid_when_missing", func(t *testing.T) {
		id := NewRequestID("")
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("expected UUID, got %q", id)
		}
	})

	t.Run("keeps_valid_incoming", func(t *testing.T) {
		if got := NewRequestID("req-42_a.b"); got != "req-42_a.b" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("replaces_unsafe_incoming", func(t *testing.T) {
		got := NewRequestID("bad id\nwith newline")
		if strings.Contains(got, "\n") {
			t.Fatalf("unsafe id kept: %q", got)
		}
		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("expected generated UUID, got %q", got)
		}
	})
}

func TestIsValidURL(t *testing.T) {
	tests := map[string]bool{
		"https://cdn.example.com/a.wav": true,
		"http://localhost:8080/x":       true,
		"ftp://example.com/a.wav":       false,
		"/relative/path.wav":            false,
		"not a url":                     false,
		"https://":                      false,
	}
	for in, want := range tests {
		if got := IsValidURL(in); got != want {
			t.Errorf("IsValidURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFilenameFromURL(t *testing.T) {
	now := time.Unix(1700000000, 0)
	if got := FilenameFromURL("https://x.io/media/clip.m4a?sig=1", now); got != "clip.m4a" {
		t.Errorf("got %q, want clip.m4a", got)
	}
	if got := FilenameFromURL("https://x.io/stream", now); got != "audio_1700000000.webm" {
		t.Errorf("got %q, want generated webm name", got)
	}
}

func TestReadFileLimited(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	if err := os.WriteFile(path, make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}

	data, over, err := ReadFileLimited(path, 100)
	if err != nil || over || len(data) != 100 {
		t.Fatalf("at limit: len=%d over=%v err=%v", len(data), over, err)
	}

	_, over, err = ReadFileLimited(path, 99)
	if err != nil || !over {
		t.Fatalf("above limit: over=%v err=%v", over, err)
	}

	if _, _, err := ReadFileLimited(filepath.Join(dir, "missing"), 10); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnsureParentDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "out.png")
	if err := EnsureParentDir(target); err != nil {
		t.Fatal(err)
	}
	if st, err := os.Stat(filepath.Dir(target)); err != nil || !st.IsDir() {
		t.Errorf("parent dir not created: %v", err)
	}
}
