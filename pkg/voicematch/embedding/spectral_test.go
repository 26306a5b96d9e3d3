package embedding

import (
	"math"
	"testing"
	"time"

	"github.com/himanishpuri/voicematch/internal/testaudio"
	"github.com/himanishpuri/voicematch/pkg/models"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / math.Sqrt(na*nb)
}

func TestSpectralDeterministic(t *testing.T) {
	s := NewSpectral(16000)
	voice := testaudio.Voice(130, 2*time.Second, 16000)

	a, err := s.Embed(voice)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Embed(voice)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != s.Dimension() {
		t.Fatalf("len = %d, want %d", len(a), s.Dimension())
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("component %d differs between runs", i)
		}
	}
	if n := models.Embedding(a).Norm(); math.Abs(n-1) > 1e-3 {
		t.Errorf("norm = %v, want 1", n)
	}
}

func TestSpectralGainInvariant(t *testing.T) {
	s := NewSpectral(16000)
	voice := testaudio.Voice(160, 2*time.Second, 16000)
	quiet := make([]float32, len(voice))
	for i, v := range voice {
		quiet[i] = v * 0.5
	}

	a, _ := s.Embed(voice)
	b, _ := s.Embed(quiet)
	if c := cosine(a, b); c < 0.999 {
		t.Errorf("cosine after gain change = %v, want ~1", c)
	}
}

func TestSpectralSeparatesVoices(t *testing.T) {
	s := NewSpectral(16000)
	low, _ := s.Embed(testaudio.Voice(100, 2*time.Second, 16000))
	high, _ := s.Embed(testaudio.Voice(240, 2*time.Second, 16000))
	if c := cosine(low, high); c > 0.99 {
		t.Errorf("different voices scored %v", c)
	}
}

func TestSpectralSilenceIsDegenerate(t *testing.T) {
	vec, err := NewSpectral(16000).Embed(make([]float32, 16000))
	if err != nil {
		t.Fatal(err)
	}
	if !models.Embedding(vec).Degenerate() {
		t.Error("silence should produce a zero vector")
	}
}

func TestSpectralTooShort(t *testing.T) {
	if _, err := NewSpectral(16000).Embed(make([]float32, 100)); err == nil {
		t.Error("expected error for sub-frame input")
	}
}
