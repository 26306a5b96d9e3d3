//go:build !js

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/himanishpuri/voicematch/internal/testaudio"
	"github.com/himanishpuri/voicematch/pkg/models"
)

func writeVoice(t *testing.T, dir, name string, f0 float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := testaudio.WAV(t, testaudio.Voice(f0, 2*time.Second, 16000), 16000, 1)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--no-vad", "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCompareCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeVoice(t, dir, "a.wav", 130)

	out, err := runCLI(t, "compare", a, a, "--json")
	if err != nil {
		t.Fatalf("compare: %v\n%s", err, out)
	}
	var res models.ComparisonResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if res.Conclusion != models.SamePerson || res.Threshold != 0.80 {
		t.Errorf("result = %+v", res)
	}

	out, err = runCLI(t, "compare", a, a, "--threshold", "1")
	if err != nil {
		t.Fatalf("compare table: %v", err)
	}
	if !strings.Contains(out, "Similarity") || !strings.Contains(out, "1.00") {
		t.Errorf("table output:\n%s", out)
	}
}

func TestCompareCommandFailures(t *testing.T) {
	dir := t.TempDir()
	a := writeVoice(t, dir, "a.wav", 130)
	txt := filepath.Join(dir, "notes.txt")
	os.WriteFile(txt, []byte("hello"), 0o644)

	out, err := runCLI(t, "compare", a, txt)
	if err == nil || !strings.Contains(err.Error(), string(models.KindUnsupportedFormat)) {
		t.Errorf("err = %v", err)
	}
	if !strings.Contains(out, "unsupported_format") {
		t.Errorf("table should show the kind:\n%s", out)
	}

	if _, err := runCLI(t, "compare", a, filepath.Join(dir, "missing.wav")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := runCLI(t, "compare", a); err == nil {
		t.Error("expected error for one argument")
	}
}

func TestEmbedAndInspectCommands(t *testing.T) {
	dir := t.TempDir()
	a := writeVoice(t, dir, "a.wav", 180)

	out, err := runCLI(t, "embed", a, "--json")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	var emb struct {
		Dimension int       `json:"dimension"`
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal([]byte(out), &emb); err != nil {
		t.Fatal(err)
	}
	if emb.Dimension != 256 || len(emb.Embedding) != 256 {
		t.Errorf("dimension = %d/%d", emb.Dimension, len(emb.Embedding))
	}

	out, err = runCLI(t, "inspect", a)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"wav", "16000 Hz", "Duration"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestSpectrogramCommand(t *testing.T) {
	dir := t.TempDir()
	a := writeVoice(t, dir, "a.wav", 150)
	png := filepath.Join(dir, "out", "a.png")

	if _, err := runCLI(t, "spectrogram", a, png, "--width", "256", "--height", "128"); err != nil {
		t.Fatalf("spectrogram: %v", err)
	}
	st, err := os.Stat(png)
	if err != nil || st.Size() == 0 {
		t.Fatalf("png not written: %v", err)
	}
}
