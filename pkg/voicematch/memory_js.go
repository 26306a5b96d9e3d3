//go:build js

package voicematch

import "runtime"

// runtimeMemory reports memory obtained from the host by the Go runtime.
// A browser exposes no resident set size for the module.
type runtimeMemory struct{}

// NewProcessMemorySampler returns a sampler backed by runtime.MemStats.
func NewProcessMemorySampler() MemorySampler {
	return runtimeMemory{}
}

func (runtimeMemory) RSS() (uint64, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.Sys, nil
}
