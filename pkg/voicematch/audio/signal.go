package audio

import "math"

// Downmix averages interleaved channels into a mono signal.
func Downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += samples[i*channels+ch]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// TrimSilence drops leading and trailing samples whose magnitude is below
// floor. An all-quiet signal yields an empty slice.
func TrimSilence(samples []float32, floor float64) []float32 {
	f := float32(floor)
	start := 0
	for start < len(samples) && abs32(samples[start]) < f {
		start++
	}
	end := len(samples)
	for end > start && abs32(samples[end-1]) < f {
		end--
	}
	return samples[start:end]
}

// RMS returns the root mean square of the signal.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak returns the largest absolute sample value.
func Peak(samples []float32) float64 {
	var p float32
	for _, s := range samples {
		if a := abs32(s); a > p {
			p = a
		}
	}
	return float64(p)
}

// NormalizeVolume raises the signal's RMS level to targetDBFS in place.
// Quieter signals are amplified, louder ones are left alone, and the gain
// never pushes the peak above full scale.
func NormalizeVolume(samples []float32, targetDBFS float64) {
	rms := RMS(samples)
	if rms == 0 {
		return
	}
	change := targetDBFS - 20*math.Log10(rms)
	if change <= 0 {
		return
	}
	gain := math.Pow(10, change/20)
	if peak := Peak(samples); peak*gain > 1 {
		gain = 1 / peak
	}
	if gain <= 1 {
		return
	}
	g := float32(gain)
	for i := range samples {
		samples[i] *= g
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

const (
	vadFrameMs      = 30
	vadMaxSilenceMs = 300
	vadPadFrames    = 3
)

// keepVoiced removes runs of unvoiced frames longer than
// vadMaxSilenceMs, leaving vadPadFrames of context on each side of the
// cut. voiced holds one flag per frameLen samples; a trailing partial
// frame is kept. If no frame is voiced the signal is returned unchanged.
func keepVoiced(samples []float32, voiced []bool, frameLen int) []float32 {
	found := false
	for _, v := range voiced {
		if v {
			found = true
			break
		}
	}
	if !found {
		return samples
	}

	maxRun := vadMaxSilenceMs / vadFrameMs
	keep := make([]bool, len(voiced))
	for i := range keep {
		keep[i] = true
	}
	for i := 0; i < len(voiced); {
		if voiced[i] {
			i++
			continue
		}
		j := i
		for j < len(voiced) && !voiced[j] {
			j++
		}
		if j-i > maxRun {
			for k := i + vadPadFrames; k < j-vadPadFrames; k++ {
				keep[k] = false
			}
		}
		i = j
	}

	out := make([]float32, 0, len(samples))
	for i, k := range keep {
		if k {
			out = append(out, samples[i*frameLen:(i+1)*frameLen]...)
		}
	}
	return append(out, samples[len(voiced)*frameLen:]...)
}

func toInt16(s float32) int16 {
	v := s * 32767
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	}
	return int16(v)
}
