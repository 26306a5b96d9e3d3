package audio

import (
	"math"
	"testing"
	"time"

	"github.com/himanishpuri/voicematch/internal/testaudio"
)

func TestDownmix(t *testing.T) {
	got := Downmix([]float32{1, 0, 0.5, 0.5, -1, 1}, 2)
	want := []float32{0.5, 0.5, 0}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTrimSilence(t *testing.T) {
	in := []float32{0, 0.001, 0.2, -0.3, 0, 0.4, 0.005, 0}
	got := TrimSilence(in, 0.01)
	if len(got) != 4 || got[0] != 0.2 || got[3] != 0.4 {
		t.Errorf("TrimSilence = %v", got)
	}
	if len(TrimSilence(make([]float32, 10), 0.01)) != 0 {
		t.Error("all-silent input should trim to nothing")
	}
}

func TestNormalizeVolume(t *testing.T) {
	t.Run("raises quiet signal", func(t *testing.T) {
		s := testaudio.Tone(440, 0.001, time.Second, 16000)
		NormalizeVolume(s, -30)
		if got := dbfs(RMS(s)); math.Abs(got-(-30)) > 0.1 {
			t.Errorf("RMS = %.2f dBFS, want -30", got)
		}
	})

	t.Run("leaves loud signal", func(t *testing.T) {
		s := testaudio.Tone(440, 0.5, time.Second, 16000)
		before := RMS(s)
		NormalizeVolume(s, -30)
		if RMS(s) != before {
			t.Error("loud signal should not be attenuated")
		}
	})

	t.Run("limits peak", func(t *testing.T) {
		s := make([]float32, 16000)
		s[100] = 0.5
		NormalizeVolume(s, -10)
		if p := Peak(s); p > 1.0001 {
			t.Errorf("peak = %v, want <= 1", p)
		}
	})
}

func TestResampleLength(t *testing.T) {
	in := testaudio.Tone(1000, 0.5, time.Second, 48000)
	out, err := Resample(in, 48000, 16000)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if len(out) != 16000 {
		t.Fatalf("len = %d, want 16000", len(out))
	}
	mid := out[4000:12000]
	if rms := RMS(mid); math.Abs(rms-0.5/math.Sqrt2) > 0.05 {
		t.Errorf("RMS after resampling = %.3f, want about %.3f", rms, 0.5/math.Sqrt2)
	}

	if _, err := Resample(in, 0, 16000); err == nil {
		t.Error("expected error for zero source rate")
	}
}

func TestKeepVoiced(t *testing.T) {
	const frameLen = 4
	voiced := make([]bool, 30)
	voiced[0], voiced[1] = true, true
	voiced[28], voiced[29] = true, true
	samples := make([]float32, len(voiced)*frameLen+2)
	for i := range samples {
		samples[i] = float32(i)
	}

	out := keepVoiced(samples, voiced, frameLen)
	// 26 silent frames, 3 kept on each side of the cut.
	wantFrames := 2 + 3 + 3 + 2
	if len(out) != wantFrames*frameLen+2 {
		t.Fatalf("len = %d, want %d", len(out), wantFrames*frameLen+2)
	}

	short := make([]bool, 8)
	short[0] = true
	if got := keepVoiced(samples[:32], short, frameLen); len(got) != 32 {
		t.Errorf("short pause should be kept, len = %d", len(got))
	}
	if got := keepVoiced(samples, make([]bool, 30), frameLen); len(got) != len(samples) {
		t.Error("no voiced frames should leave the signal unchanged")
	}
}
