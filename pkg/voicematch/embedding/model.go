// Package embedding turns canonical waveforms into speaker embeddings.
//
// Backends register a Factory under a name; the Provider owns one lazily
// loaded Model and serializes inference when the backend requires it.
package embedding

import (
	"fmt"
	"sort"
	"sync"
)

// Model extracts a speaker embedding from mono float samples at the
// provider's sample rate. Embed returns a vector of length Dimension().
type Model interface {
	Embed(samples []float32) ([]float32, error)
	Dimension() int
	Close() error
}

// ConcurrencySafe is implemented by models whose Embed may be called from
// several goroutines at once. Models that do not implement it are
// serialized by the Provider.
type ConcurrencySafe interface {
	ConcurrencySafe() bool
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend    string
	SampleRate int

	ONNXModelPath   string
	ONNXLibraryPath string
	ONNXInput       string
	ONNXOutput      string
	ONNXDim         int
}

// DefaultConfig uses the pure Go spectral backend at 16 kHz.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendSpectral,
		SampleRate: 16000,
		ONNXInput:  "x",
		ONNXOutput: "embedding",
		ONNXDim:    512,
	}
}

// Factory builds a Model. It may be slow and may fail; the Provider calls
// it lazily and retries on later requests after a failure.
type Factory func(cfg Config) (Model, error)

var (
	registryMu  sync.RWMutex
	registry    = make(map[string]Factory)
	unavailable = make(map[string]string)
)

// Register makes a backend available under name. Typically called from
// init().
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// MarkUnavailable records a known backend that this build cannot provide,
// so Lookup can say why instead of reporting an unknown name.
func MarkUnavailable(name, reason string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	unavailable[name] = reason
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	if !ok {
		if reason, known := unavailable[name]; known {
			return nil, fmt.Errorf("embedding: backend %q is unavailable in this build: %s", name, reason)
		}
		return nil, fmt.Errorf("embedding: backend %q not registered (available: %v)", name, backendsLocked())
	}
	return f, nil
}

// Backends lists the registered backend names.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return backendsLocked()
}

func backendsLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
