//go:build !js

package voicematch

import (
	"os"
	"sync"

	"github.com/shirou/gopsutil/v4/process"
)

// processMemory samples this process's RSS with gopsutil.
type processMemory struct {
	once sync.Once
	proc *process.Process
	err  error
}

// NewProcessMemorySampler returns a sampler for the current process.
func NewProcessMemorySampler() MemorySampler {
	return &processMemory{}
}

func (p *processMemory) RSS() (uint64, error) {
	p.once.Do(func() {
		p.proc, p.err = process.NewProcess(int32(os.Getpid()))
	})
	if p.err != nil {
		return 0, p.err
	}
	info, err := p.proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}
