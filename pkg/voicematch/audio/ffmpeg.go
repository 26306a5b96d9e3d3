package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FFmpegDecoder pipes container bytes through an ffmpeg subprocess and
// reads back mono signed 16-bit PCM. It covers M4A, WEBM and Opus, which
// have no native decoder here, and backs up the native decoders.
type FFmpegDecoder struct {
	Path       string
	SampleRate int
	Timeout    time.Duration
}

// LookupFFmpeg returns a decoder for the ffmpeg binary on PATH.
func LookupFFmpeg() (FFmpegDecoder, bool) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return FFmpegDecoder{}, false
	}
	return FFmpegDecoder{Path: path}, true
}

func (FFmpegDecoder) Name() string { return "ffmpeg" }

func (d FFmpegDecoder) Decode(ctx context.Context, data []byte) (PCM, error) {
	rate := d.SampleRate
	if rate == 0 {
		rate = 16000
	}
	timeout := d.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	path := d.Path
	if path == "" {
		path = "ffmpeg"
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(
		ctx,
		path,
		"-nostdin",
		"-v", "error",
		"-i", "pipe:0",
		"-vn",
		"-ac", "1", // mono
		"-ar", strconv.Itoa(rate),
		"-f", "s16le",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return PCM{}, ctx.Err()
		}
		return PCM{}, fmt.Errorf("ffmpeg failed: %v (%s)", err, strings.TrimSpace(stderr.String()))
	}

	raw := stdout.Bytes()
	if len(raw) < 2 {
		return PCM{}, errors.New("ffmpeg produced no audio")
	}
	samples := make([]float32, len(raw)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / 32768
	}
	return PCM{Samples: samples, SampleRate: rate, Channels: 1}, nil
}
