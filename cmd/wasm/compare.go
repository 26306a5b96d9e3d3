//go:build js && wasm

package main

import (
	"fmt"
	"os"

	"github.com/himanishpuri/voicematch/pkg/logger"
	"github.com/himanishpuri/voicematch/pkg/models"
	"github.com/himanishpuri/voicematch/pkg/voicematch"
	"github.com/himanishpuri/voicematch/pkg/voicematch/audio"
)

// newService builds the comparison service for the browser. Samples
// arrive as JS arrays and are handed to the pipeline as float WAVs, so
// only the WAV decoder is registered and the byte cap is lifted; the
// duration bound still applies. Timers need the JS event loop, which a
// synchronous call holds, hence no process timeout.
func newService() (voicematch.Service, error) {
	decoders := audio.NewRegistry()
	decoders.Register(audio.FormatWAV, audio.WAVDecoder{})

	return voicematch.NewService(
		voicematch.WithDecoders(decoders),
		voicematch.WithMaxFileSize(0),
		voicematch.WithVAD(false),
		voicematch.WithProcessTimeout(0),
		voicematch.WithMemorySampler(voicematch.NewProcessMemorySampler()),
		voicematch.WithLogger(logger.New(logger.Config{Level: logger.WARN, Output: os.Stdout})),
	)
}

// pcmBlob wraps interleaved samples as an in-memory WAV payload.
func pcmBlob(label string, samples []float32, rate, channels int) (models.AudioBlob, error) {
	data, err := audio.EncodeFloatWAV(samples, rate, channels)
	if err != nil {
		return models.AudioBlob{}, fmt.Errorf("%s: %w", label, err)
	}
	return models.AudioBlob{Data: data, Filename: label + ".wav", MIMEType: "audio/wav"}, nil
}
