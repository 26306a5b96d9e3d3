package embedding

import (
	"testing"
	"time"

	"github.com/himanishpuri/voicematch/internal/testaudio"
)

func TestFbankShape(t *testing.T) {
	f := NewFbank(DefaultFbankConfig())
	feats := f.Extract(make([]float32, 16000))
	if want := (16000-400)/160 + 1; len(feats) != want {
		t.Fatalf("frames = %d, want %d", len(feats), want)
	}
	if len(feats[0]) != 80 {
		t.Errorf("bins = %d, want 80", len(feats[0]))
	}
	if f.Extract(make([]float32, 399)) != nil {
		t.Error("input shorter than a window should yield no frames")
	}
}

func TestFbankPeaksAtToneBand(t *testing.T) {
	f := NewFbank(DefaultFbankConfig())
	feats := f.Extract(testaudio.Tone(1000, 0.5, 500*time.Millisecond, 16000))

	row := feats[len(feats)/2]
	best := 0
	for m := range row {
		if row[m] > row[best] {
			best = m
		}
	}
	lowHz := melToHz(hzToMel(20) + float64(best)*(hzToMel(7600)-hzToMel(20))/81)
	highHz := melToHz(hzToMel(20) + float64(best+2)*(hzToMel(7600)-hzToMel(20))/81)
	if lowHz > 1000 || highHz < 1000 {
		t.Errorf("loudest band %d spans %.0f-%.0f Hz, want it to cover 1000 Hz", best, lowHz, highHz)
	}
}

func TestSubtractMean(t *testing.T) {
	feats := [][]float32{{1, 10}, {3, 20}}
	SubtractMean(feats)
	if feats[0][0] != -1 || feats[1][0] != 1 || feats[0][1] != -5 || feats[1][1] != 5 {
		t.Errorf("SubtractMean = %v", feats)
	}
	if got := Flatten(feats); len(got) != 4 || got[3] != 5 {
		t.Errorf("Flatten = %v", got)
	}
}
