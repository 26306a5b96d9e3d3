package voicematch

import (
	"math"
	"time"
)

// measurement brackets one comparison: wall time from start to stop and
// the larger of the RSS samples taken at both ends.
type measurement struct {
	start   time.Time
	sampler MemorySampler
	before  uint64
	ok      bool
}

func startMeasurement(s MemorySampler) *measurement {
	m := &measurement{start: time.Now(), sampler: s}
	if s != nil {
		if rss, err := s.RSS(); err == nil {
			m.before, m.ok = rss, true
		}
	}
	return m
}

// stop returns elapsed seconds rounded to 4 decimals, memory in MB rounded
// to 2 decimals, and whether memory could not be sampled.
func (m *measurement) stop() (seconds, memoryMB float64, unavailable bool) {
	seconds = roundTo(time.Since(m.start).Seconds(), 4)

	rss, ok := m.before, m.ok
	if m.sampler != nil {
		if after, err := m.sampler.RSS(); err == nil {
			if !ok || after > rss {
				rss = after
			}
			ok = true
		}
	}
	if !ok {
		return seconds, 0, true
	}
	return seconds, roundTo(float64(rss)/(1024*1024), 2), false
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
