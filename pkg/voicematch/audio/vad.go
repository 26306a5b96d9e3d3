//go:build cgo

package audio

import (
	"encoding/binary"
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

// VADAvailable reports whether voice activity detection is compiled in.
const VADAvailable = true

const vadModeAggressive = 3

// TrimLongSilences runs WebRTC VAD over 30 ms frames and cuts unvoiced
// stretches longer than 300 ms. Rates the VAD does not support are
// returned unchanged.
func TrimLongSilences(samples []float32, sampleRate int) ([]float32, error) {
	frameLen := sampleRate * vadFrameMs / 1000
	nFrames := 0
	if frameLen > 0 {
		nFrames = len(samples) / frameLen
	}
	if nFrames == 0 {
		return samples, nil
	}

	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create vad: %w", err)
	}
	if !vad.ValidRateAndFrameLength(sampleRate, frameLen) {
		return samples, nil
	}
	if err := vad.SetMode(vadModeAggressive); err != nil {
		return nil, fmt.Errorf("failed to set vad mode: %w", err)
	}

	frame := make([]byte, frameLen*2)
	voiced := make([]bool, nFrames)
	for i := 0; i < nFrames; i++ {
		for j, s := range samples[i*frameLen : (i+1)*frameLen] {
			binary.LittleEndian.PutUint16(frame[2*j:], uint16(toInt16(s)))
		}
		active, err := vad.Process(sampleRate, frame)
		if err != nil {
			return nil, fmt.Errorf("vad frame %d: %w", i, err)
		}
		voiced[i] = active
	}
	return keepVoiced(samples, voiced, frameLen), nil
}
