package embedding

import (
	"errors"
	"math"
	"sort"
)

// Backend names.
const (
	BackendSpectral = "spectral"
	BackendONNX     = "onnx"
)

const (
	spectralMels = 64
	// Frames more than this many dB below the loudest frame are ignored.
	spectralGateDB = 40
)

func init() {
	Register(BackendSpectral, func(cfg Config) (Model, error) {
		return NewSpectral(cfg.SampleRate), nil
	})
}

// Spectral is a deterministic, dependency-free speaker descriptor built
// from long-term log-mel statistics. Four 64-bin blocks are concatenated:
// spectral envelope, per-band variability, per-band modulation and
// per-band dynamic range. Each block is centred across bands and scaled to
// unit length, which makes the vector invariant to overall gain.
type Spectral struct {
	fbank *Fbank
}

func NewSpectral(sampleRate int) *Spectral {
	cfg := DefaultFbankConfig()
	cfg.SampleRate = sampleRate
	cfg.WindowSize = sampleRate * 25 / 1000
	cfg.HopSize = sampleRate * 10 / 1000
	cfg.FFTSize = nextPow2(cfg.WindowSize)
	cfg.NumMels = spectralMels
	return &Spectral{fbank: NewFbank(cfg)}
}

func (s *Spectral) Dimension() int { return 4 * spectralMels }

func (s *Spectral) ConcurrencySafe() bool { return true }

func (s *Spectral) Close() error { return nil }

func (s *Spectral) Embed(samples []float32) ([]float32, error) {
	feats := s.fbank.Extract(samples)
	if len(feats) < 2 {
		return nil, errors.New("waveform shorter than two analysis frames")
	}
	feats = gateFrames(feats)

	n := float64(len(feats))
	mean := make([]float64, spectralMels)
	std := make([]float64, spectralMels)
	delta := make([]float64, spectralMels)
	spread := make([]float64, spectralMels)

	column := make([]float64, len(feats))
	for m := 0; m < spectralMels; m++ {
		var sum, sq, d float64
		for t, row := range feats {
			v := float64(row[m])
			column[t] = v
			sum += v
			sq += v * v
			if t > 0 {
				d += math.Abs(v - float64(feats[t-1][m]))
			}
		}
		mean[m] = sum / n
		std[m] = math.Sqrt(math.Max(sq/n-mean[m]*mean[m], 0))
		if len(feats) > 1 {
			delta[m] = d / (n - 1)
		}
		sort.Float64s(column)
		spread[m] = percentile(column, 0.9) - percentile(column, 0.1)
	}

	out := make([]float32, 0, s.Dimension())
	for _, block := range [][]float64{mean, std, delta, spread} {
		out = append(out, centredUnit(block)...)
	}
	return out, nil
}

// gateFrames keeps frames whose total log energy is within spectralGateDB
// of the loudest frame.
func gateFrames(feats [][]float32) [][]float32 {
	energy := make([]float64, len(feats))
	best := math.Inf(-1)
	for t, row := range feats {
		var sum float64
		for _, v := range row {
			sum += math.Exp(float64(v))
		}
		energy[t] = 10 * math.Log10(sum)
		if energy[t] > best {
			best = energy[t]
		}
	}
	kept := make([][]float32, 0, len(feats))
	for t, row := range feats {
		if energy[t] >= best-spectralGateDB {
			kept = append(kept, row)
		}
	}
	if len(kept) < 2 {
		return feats
	}
	return kept
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := p * float64(len(sorted)-1)
	i := int(pos)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(i)
	return sorted[i]*(1-frac) + sorted[i+1]*frac
}

// centredUnit subtracts the block mean and scales to length 1/2, so four
// non-degenerate blocks give a unit vector. A flat block stays zero.
func centredUnit(block []float64) []float32 {
	var mean float64
	for _, v := range block {
		mean += v
	}
	mean /= float64(len(block))

	var norm float64
	for _, v := range block {
		norm += (v - mean) * (v - mean)
	}
	norm = math.Sqrt(norm)

	out := make([]float32, len(block))
	if norm < 1e-9 {
		return out
	}
	for i, v := range block {
		out[i] = float32(0.5 * (v - mean) / norm)
	}
	return out
}
