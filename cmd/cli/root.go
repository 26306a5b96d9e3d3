//go:build !js

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/voicematch/pkg/logger"
	"github.com/himanishpuri/voicematch/pkg/models"
	"github.com/himanishpuri/voicematch/pkg/utils"
	"github.com/himanishpuri/voicematch/pkg/voicematch"
	"github.com/himanishpuri/voicematch/pkg/voicematch/audio"
	"github.com/himanishpuri/voicematch/pkg/voicematch/embedding"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	backend     string
	sampleRate  int
	logLevel    string
	onnxModel   string
	onnxLibrary string
	noVAD       bool
	timeout     time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "voicematch",
		Short:         "Compare voices in audio recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.backend, "backend", embedding.BackendSpectral, "Embedding backend (spectral, onnx)")
	flags.IntVar(&opts.sampleRate, "rate", audio.DefaultOptions().SampleRate, "Pipeline sample rate in Hz")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.onnxModel, "onnx-model", "", "Path to an ONNX speaker model (onnx backend)")
	flags.StringVar(&opts.onnxLibrary, "onnx-library", "", "Path to the onnxruntime shared library")
	flags.BoolVar(&opts.noVAD, "no-vad", false, "Disable voice activity trimming")
	flags.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Time limit for one command")

	rootCmd.AddCommand(newCompareCommand(opts))
	rootCmd.AddCommand(newEmbedCommand(opts))
	rootCmd.AddCommand(newInspectCommand(opts))
	rootCmd.AddCommand(newSpectrogramCommand(opts))

	return rootCmd
}

func (o *globalOptions) logger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.ParseLevel(o.logLevel)
	cfg.Output = os.Stderr
	return logger.New(cfg).With("cli")
}

func (o *globalOptions) normalizerOptions() audio.Options {
	n := audio.DefaultOptions()
	n.SampleRate = o.sampleRate
	n.VAD = !o.noVAD
	return n
}

// createService creates a new VoiceMatch service with configured options
func (o *globalOptions) createService(extra ...voicematch.Option) (voicematch.Service, error) {
	opts := []voicematch.Option{
		voicematch.WithLogger(o.logger()),
		voicematch.WithBackend(o.backend),
		voicematch.WithSampleRate(o.sampleRate),
		voicematch.WithVAD(!o.noVAD),
		voicematch.WithProcessTimeout(o.timeout),
	}
	if o.onnxModel != "" || o.onnxLibrary != "" {
		opts = append(opts, voicematch.WithONNX(o.onnxModel, o.onnxLibrary, "", "", 0))
	}
	return voicematch.NewService(append(opts, extra...)...)
}

// readAudio loads a local recording, refusing files over the size limit
// without reading them.
func readAudio(path string) (models.AudioBlob, error) {
	limit := audio.DefaultOptions().MaxFileBytes
	data, over, err := utils.ReadFileLimited(path, limit)
	if err != nil {
		return models.AudioBlob{}, err
	}
	if over {
		return models.AudioBlob{}, fmt.Errorf("%s is larger than %s", path, humanize.IBytes(uint64(limit)))
	}
	return models.AudioBlob{Data: data, Filename: filepath.Base(path)}, nil
}
