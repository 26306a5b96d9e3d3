//go:build !cgo

package audio

// VADAvailable reports whether voice activity detection is compiled in.
const VADAvailable = false

// TrimLongSilences is a no-op without cgo.
func TrimLongSilences(samples []float32, _ int) ([]float32, error) {
	return samples, nil
}
