//go:build !js

package main

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	"github.com/eligwz/spectrogram"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/voicematch/pkg/models"
	"github.com/himanishpuri/voicematch/pkg/utils"
	"github.com/himanishpuri/voicematch/pkg/voicematch/audio"
)

type spectrogramOptions struct {
	width  int
	height int
	log10  bool
}

func newSpectrogramCommand(opts *globalOptions) *cobra.Command {
	so := spectrogramOptions{}

	cmd := &cobra.Command{
		Use:   "spectrogram <audio> <out.png>",
		Short: "Render the normalized waveform as a spectrogram PNG",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := readAudio(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			w, err := audio.NewNormalizer(opts.normalizerOptions()).Normalize(ctx, blob)
			if err != nil {
				return fmt.Errorf("%s (%s)", models.PublicMessage(err), models.KindOf(err))
			}
			if err := writeSpectrogram(w, args[1], so); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s spectrogram of %s to %s\n", w.Duration(), args[0], args[1])
			return nil
		},
	}

	cmd.Flags().IntVar(&so.width, "width", 2048, "Image width in pixels")
	cmd.Flags().IntVar(&so.height, "height", 512, "Image height in pixels (frequency bins)")
	cmd.Flags().BoolVar(&so.log10, "log", false, "Log-scale magnitudes")
	return cmd
}

func writeSpectrogram(w models.Waveform, path string, so spectrogramOptions) error {
	if so.width <= 0 || so.height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", so.width, so.height)
	}
	samples := make([]float64, w.Len())
	for i, v := range w.Samples() {
		samples[i] = float64(v)
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, so.width, so.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(spectrogram.ParseColor("000000")), image.Point{}, draw.Src)

	// Hamming window, FFT, magnitude.
	spectrogram.Drawfft(img, samples, uint32(w.SampleRate()), uint32(so.height), false, false, true, so.log10)

	if err := utils.EnsureParentDir(path); err != nil {
		return err
	}
	return spectrogram.SavePng(img, path)
}
