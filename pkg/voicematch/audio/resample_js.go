//go:build js

package audio

import "fmt"

// Resample converts a mono signal from srcRate to dstRate by linear
// interpolation. The browser build avoids the SIMD-backed resampler.
func Resample(samples []float32, srcRate, dstRate int) ([]float32, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("invalid resample rates %d -> %d", srcRate, dstRate)
	}
	if srcRate == dstRate || len(samples) == 0 {
		return samples, nil
	}

	want := int((int64(len(samples))*int64(dstRate) + int64(srcRate)/2) / int64(srcRate))
	out := make([]float32, want)
	step := float64(srcRate) / float64(dstRate)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = samples[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = samples[j]*(1-frac) + samples[j+1]*frac
	}
	return out, nil
}
