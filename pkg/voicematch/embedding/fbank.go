package embedding

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FbankConfig controls log-mel filterbank extraction.
type FbankConfig struct {
	SampleRate  int
	WindowSize  int // samples per frame
	HopSize     int // samples between frame starts
	FFTSize     int // zero-padded FFT length, >= WindowSize
	NumMels     int
	LowFreq     float64 // Hz
	HighFreq    float64 // Hz
	PreEmphasis float64
	Scale       float64 // input gain applied before analysis
}

// DefaultFbankConfig is the 25 ms / 10 ms, 80-bin front end most speaker
// networks are trained on. Samples are scaled to the int16 range.
func DefaultFbankConfig() FbankConfig {
	return FbankConfig{
		SampleRate:  16000,
		WindowSize:  400,
		HopSize:     160,
		FFTSize:     512,
		NumMels:     80,
		LowFreq:     20,
		HighFreq:    7600,
		PreEmphasis: 0.97,
		Scale:       32768,
	}
}

type melFilter struct {
	start   int
	weights []float64
}

// Fbank computes log-mel features. It is read-only after construction and
// safe for concurrent use.
type Fbank struct {
	cfg    FbankConfig
	window []float64
	bank   []melFilter
}

func NewFbank(cfg FbankConfig) *Fbank {
	if cfg.FFTSize < cfg.WindowSize {
		cfg.FFTSize = nextPow2(cfg.WindowSize)
	}
	if cfg.Scale == 0 {
		cfg.Scale = 1
	}
	if cfg.HighFreq <= 0 || cfg.HighFreq > float64(cfg.SampleRate)/2 {
		cfg.HighFreq = float64(cfg.SampleRate) / 2
	}
	return &Fbank{
		cfg:    cfg,
		window: Hamming(cfg.WindowSize),
		bank:   melBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.LowFreq, cfg.HighFreq),
	}
}

// Config returns the effective configuration.
func (f *Fbank) Config() FbankConfig { return f.cfg }

// Hamming returns an n-point Hamming window.
func Hamming(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// Frames returns how many frames Extract yields for n samples.
func (f *Fbank) Frames(n int) int {
	if n < f.cfg.WindowSize {
		return 0
	}
	return (n-f.cfg.WindowSize)/f.cfg.HopSize + 1
}

// Extract returns a [frames][NumMels] matrix of natural-log mel energies.
func (f *Fbank) Extract(samples []float32) [][]float32 {
	cfg := f.cfg
	nFrames := f.Frames(len(samples))
	if nFrames == 0 {
		return nil
	}

	features := make([][]float32, nFrames)
	frame := make([]float64, cfg.FFTSize)
	half := cfg.FFTSize/2 + 1
	power := make([]float64, half)

	for t := 0; t < nFrames; t++ {
		start := t * cfg.HopSize
		for i := 0; i < cfg.WindowSize; i++ {
			s := float64(samples[start+i])
			if i > 0 {
				s -= cfg.PreEmphasis * float64(samples[start+i-1])
			}
			frame[i] = s * cfg.Scale * f.window[i]
		}
		for i := cfg.WindowSize; i < cfg.FFTSize; i++ {
			frame[i] = 0
		}

		spectrum := fft.FFTReal(frame)
		for k := 0; k < half; k++ {
			a := cmplx.Abs(spectrum[k])
			power[k] = a * a
		}

		mel := make([]float32, cfg.NumMels)
		for m, filt := range f.bank {
			var sum float64
			for j, w := range filt.weights {
				sum += w * power[filt.start+j]
			}
			if sum < 1e-10 {
				sum = 1e-10
			}
			mel[m] = float32(math.Log(sum))
		}
		features[t] = mel
	}
	return features
}

// SubtractMean removes the per-bin mean across frames in place.
func SubtractMean(features [][]float32) {
	if len(features) == 0 {
		return
	}
	bins := len(features[0])
	for m := 0; m < bins; m++ {
		var sum float64
		for _, row := range features {
			sum += float64(row[m])
		}
		mean := float32(sum / float64(len(features)))
		for _, row := range features {
			row[m] -= mean
		}
	}
}

// Flatten packs [T][bins] row-major.
func Flatten(features [][]float32) []float32 {
	if len(features) == 0 {
		return nil
	}
	cols := len(features[0])
	flat := make([]float32, len(features)*cols)
	for t, row := range features {
		copy(flat[t*cols:], row)
	}
	return flat
}

func hzToMel(hz float64) float64 { return 1127 * math.Log(1+hz/700) }

func melToHz(mel float64) float64 { return 700 * (math.Exp(mel/1127) - 1) }

// melBank builds triangular filters evenly spaced on the mel scale.
func melBank(numMels, fftSize, sampleRate int, low, high float64) []melFilter {
	half := fftSize/2 + 1
	binHz := float64(sampleRate) / float64(fftSize)
	lowMel, highMel := hzToMel(low), hzToMel(high)
	step := (highMel - lowMel) / float64(numMels+1)

	bank := make([]melFilter, numMels)
	for m := 0; m < numMels; m++ {
		left := lowMel + float64(m)*step
		center := left + step
		right := center + step

		var filt melFilter
		filt.start = -1
		for k := 0; k < half; k++ {
			mel := hzToMel(float64(k) * binHz)
			var w float64
			switch {
			case mel > left && mel <= center:
				w = (mel - left) / (center - left)
			case mel > center && mel < right:
				w = (right - mel) / (right - center)
			}
			if w <= 0 {
				if filt.start >= 0 {
					break
				}
				continue
			}
			if filt.start < 0 {
				filt.start = k
			}
			filt.weights = append(filt.weights, w)
		}
		if filt.start < 0 {
			// Filter narrower than one bin: take the nearest bin.
			k := int(math.Round(melToHz(center) / binHz))
			if k >= half {
				k = half - 1
			}
			filt = melFilter{start: k, weights: []float64{1}}
		}
		bank[m] = filt
	}
	return bank
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
