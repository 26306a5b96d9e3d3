package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/himanishpuri/voicematch/internal/testaudio"
	"github.com/himanishpuri/voicematch/pkg/models"
)

type countingDecoder struct {
	calls int
	pcm   PCM
	err   error
}

func (d *countingDecoder) Name() string { return "counting" }

func (d *countingDecoder) Decode(context.Context, []byte) (PCM, error) {
	d.calls++
	return d.pcm, d.err
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.VAD = false
	r := NewRegistry()
	r.Register(FormatWAV, WAVDecoder{})
	r.Register(FormatMP3, MP3Decoder{})
	opts.Decoders = r
	return opts
}

func assertKind(t *testing.T, err error, want models.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := models.KindOf(err); got != want {
		t.Fatalf("error kind = %s, want %s (%v)", got, want, err)
	}
}

func TestNormalizeWAV(t *testing.T) {
	const rate = 44100
	voice := testaudio.Voice(140, 2*time.Second, rate)
	mono := testaudio.Concat(testaudio.Silence(500*time.Millisecond, rate), voice, testaudio.Silence(500*time.Millisecond, rate))
	data := testaudio.WAV(t, testaudio.Interleave(mono, 2), rate, 2)

	n := NewNormalizer(testOptions())
	meta, err := n.Inspect(context.Background(), models.AudioBlob{Data: data, Filename: "speech.wav"})
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if meta.Format != FormatWAV || meta.Decoder != "wav" {
		t.Errorf("format/decoder = %s/%s", meta.Format, meta.Decoder)
	}
	if meta.NativeSampleRate != rate || meta.NativeChannels != 2 {
		t.Errorf("native = %d Hz x %d", meta.NativeSampleRate, meta.NativeChannels)
	}
	if d := meta.NativeDuration - 3*time.Second; d < -10*time.Millisecond || d > 10*time.Millisecond {
		t.Errorf("native duration = %v, want 3s", meta.NativeDuration)
	}
	if d := meta.Duration - 2*time.Second; d < -100*time.Millisecond || d > 100*time.Millisecond {
		t.Errorf("trimmed duration = %v, want about 2s", meta.Duration)
	}

	w, err := n.Normalize(context.Background(), models.AudioBlob{Data: data, Filename: "speech.wav"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if w.SampleRate() != 16000 || w.Channels() != 1 {
		t.Errorf("waveform = %d Hz x %d", w.SampleRate(), w.Channels())
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	data := testaudio.WAV(t, testaudio.Voice(180, time.Second, 16000), 16000, 1)
	n := NewNormalizer(testOptions())
	blob := models.AudioBlob{Data: data, Filename: "a.wav"}

	a, err := n.Normalize(context.Background(), blob)
	if err != nil {
		t.Fatal(err)
	}
	b, err := n.Normalize(context.Background(), blob)
	if err != nil {
		t.Fatal(err)
	}
	if a.Len() != b.Len() {
		t.Fatalf("lengths differ: %d vs %d", a.Len(), b.Len())
	}
	for i := range a.Samples() {
		if a.Samples()[i] != b.Samples()[i] {
			t.Fatalf("sample %d differs", i)
		}
	}
}

func TestNormalizeRejectsOversizeBeforeDecode(t *testing.T) {
	dec := &countingDecoder{}
	opts := testOptions()
	opts.MaxFileBytes = 1024
	opts.Decoders = NewRegistry()
	opts.Decoders.Register(FormatWAV, dec)

	_, err := NewNormalizer(opts).Normalize(context.Background(),
		models.AudioBlob{Data: make([]byte, 2048), Filename: "big.wav"})
	assertKind(t, err, models.KindPayloadTooLarge)
	if dec.calls != 0 {
		t.Errorf("decoder called %d times for oversize payload", dec.calls)
	}
}

func TestNormalizeBounds(t *testing.T) {
	const rate = 16000
	tests := []struct {
		name    string
		samples []float32
		maxDur  time.Duration
		noGain  bool
		want    models.Kind
	}{
		{"too short", testaudio.Voice(150, 200*time.Millisecond, rate), 0, false, models.KindAudioTooShort},
		{"too long", testaudio.Voice(150, 2*time.Second, rate), time.Second, false, models.KindAudioTooLong},
		{"silent", testaudio.Silence(2*time.Second, rate), 0, false, models.KindDegenerateEmbedding},
		{"below floor without gain", testaudio.Tone(300, 0.005, 2*time.Second, rate), 0, true, models.KindDegenerateEmbedding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			if tt.maxDur > 0 {
				opts.MaxDuration = tt.maxDur
			}
			if tt.noGain {
				opts.TargetDBFS = 0
			}
			data := testaudio.WAV(t, tt.samples, rate, 1)
			_, err := NewNormalizer(opts).Normalize(context.Background(), models.AudioBlob{Data: data, Filename: "x.wav"})
			assertKind(t, err, tt.want)
		})
	}
}

func TestNormalizeInputErrors(t *testing.T) {
	n := NewNormalizer(testOptions())
	ctx := context.Background()

	_, err := n.Normalize(ctx, models.AudioBlob{Filename: "empty.wav"})
	assertKind(t, err, models.KindInvalidInput)

	_, err = n.Normalize(ctx, models.AudioBlob{Data: []byte("hello"), Filename: "notes.txt"})
	assertKind(t, err, models.KindUnsupportedFormat)

	corrupt := make([]byte, 1024)
	for i := range corrupt {
		corrupt[i] = byte(i * 7)
	}
	_, err = n.Normalize(ctx, models.AudioBlob{Data: corrupt, Filename: "broken.mp3"})
	assertKind(t, err, models.KindDecode)

	_, err = n.Normalize(ctx, models.AudioBlob{Data: []byte("RIFF"), Filename: "clip.m4a"})
	assertKind(t, err, models.KindDecode)
}

func TestRegistryFallsBackToNextDecoder(t *testing.T) {
	first := &countingDecoder{err: errors.New("boom")}
	second := &countingDecoder{pcm: PCM{Samples: []float32{0.1, 0.2}, SampleRate: 8000, Channels: 1}}
	r := NewRegistry()
	r.Register(FormatOGG, first)
	r.Register(FormatOGG, second)

	pcm, name, err := r.Decode(context.Background(), FormatOGG, []byte{1})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if name != "counting" || len(pcm.Samples) != 2 {
		t.Errorf("unexpected result %s %+v", name, pcm)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("calls = %d, %d", first.calls, second.calls)
	}

	bad := &countingDecoder{pcm: PCM{Samples: []float32{1, 2, 3}, SampleRate: 8000, Channels: 2}}
	r = NewRegistry()
	r.Register(FormatOGG, bad)
	_, _, err = r.Decode(context.Background(), FormatOGG, []byte{1})
	if models.KindOf(err) != models.KindDecode {
		t.Errorf("misaligned PCM should be a decode error, got %v", err)
	}
}

func TestFromPCM(t *testing.T) {
	const rate = 48000
	mono := testaudio.Voice(120, 1500*time.Millisecond, rate)
	w, meta, err := NewNormalizer(testOptions()).FromPCM(context.Background(),
		PCM{Samples: testaudio.Interleave(mono, 2), SampleRate: rate, Channels: 2})
	if err != nil {
		t.Fatalf("FromPCM: %v", err)
	}
	if w.SampleRate() != 16000 {
		t.Errorf("rate = %d", w.SampleRate())
	}
	if meta.NativeChannels != 2 || meta.Decoder != "pcm" {
		t.Errorf("meta = %+v", meta)
	}
	if d := w.Duration() - 1500*time.Millisecond; d < -100*time.Millisecond || d > 100*time.Millisecond {
		t.Errorf("duration = %v, want about 1.5s", w.Duration())
	}
}

func TestNormalizeLiftsQuietRecording(t *testing.T) {
	const rate = 16000
	loud := testaudio.Concat(testaudio.Silence(300*time.Millisecond, rate),
		testaudio.Voice(140, 3*time.Second, rate), testaudio.Silence(300*time.Millisecond, rate))
	quiet := make([]float32, len(loud))
	for i, s := range loud {
		quiet[i] = s * 0.02
	}
	if p := Peak(quiet); p >= DefaultOptions().SilenceFloor {
		t.Fatalf("fixture peak %.4f is not below the silence floor", p)
	}

	n := NewNormalizer(testOptions())
	wl, err := n.Normalize(context.Background(), models.AudioBlob{Data: testaudio.WAV(t, loud, rate, 1), Filename: "loud.wav"})
	if err != nil {
		t.Fatalf("loud: %v", err)
	}
	wq, err := n.Normalize(context.Background(), models.AudioBlob{Data: testaudio.WAV(t, quiet, rate, 1), Filename: "quiet.wav"})
	if err != nil {
		t.Fatalf("quiet recording rejected: %v", err)
	}
	if d := wq.Duration() - wl.Duration(); d < -100*time.Millisecond || d > 100*time.Millisecond {
		t.Errorf("quiet duration %v, loud %v", wq.Duration(), wl.Duration())
	}
	if db := 20 * math.Log10(RMS(wq.Samples())); db < -40 {
		t.Errorf("quiet recording left at %.1f dBFS", db)
	}
}

func TestWAVDecoderFloat(t *testing.T) {
	const rate = 16000
	tone := testaudio.Tone(220, 0.3, time.Second, rate)
	data, err := EncodeFloatWAV(tone, rate, 1)
	if err != nil {
		t.Fatalf("EncodeFloatWAV: %v", err)
	}

	pcm, err := WAVDecoder{}.Decode(context.Background(), data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if pcm.SampleRate != rate || pcm.Channels != 1 || len(pcm.Samples) != len(tone) {
		t.Fatalf("pcm = %d Hz x %d, %d samples", pcm.SampleRate, pcm.Channels, len(pcm.Samples))
	}
	for i := range tone {
		if pcm.Samples[i] != tone[i] {
			t.Fatalf("sample %d = %v, want %v", i, pcm.Samples[i], tone[i])
		}
	}
	if p := Peak(pcm.Samples); math.Abs(p-0.3) > 1e-3 {
		t.Errorf("peak = %.4f, want 0.3", p)
	}

	meta, err := NewNormalizer(testOptions()).Inspect(context.Background(), models.AudioBlob{Data: data, Filename: "float.wav"})
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if d := meta.NativeDuration - time.Second; d < -10*time.Millisecond || d > 10*time.Millisecond {
		t.Errorf("native duration = %v", meta.NativeDuration)
	}
}

func TestWAVDecoderRejectsUnknownEncoding(t *testing.T) {
	data := testaudio.WAV(t, testaudio.Tone(220, 0.3, time.Second, 16000), 16000, 1)
	// Format tag lives right after "fmt " and its size in a canonical header.
	binary.LittleEndian.PutUint16(data[20:22], 0x0006) // A-law
	if _, err := (WAVDecoder{}).Decode(context.Background(), data); err == nil {
		t.Fatal("expected an error for A-law WAV")
	}
}

func TestExtensibleSubFormat(t *testing.T) {
	fmtChunk := make([]byte, 40)
	binary.LittleEndian.PutUint16(fmtChunk[0:], wavFormatExtensible)
	binary.LittleEndian.PutUint16(fmtChunk[24:], wavFormatFloat)

	var data []byte
	data = append(data, "RIFF\x00\x00\x00\x00WAVE"...)
	data = append(data, "junk\x03\x00\x00\x00abc\x00"...)
	data = append(data, "fmt "...)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(fmtChunk)))
	data = append(data, fmtChunk...)

	got, ok := extensibleSubFormat(data)
	if !ok || got != wavFormatFloat {
		t.Errorf("sub-format = 0x%04x, %v", got, ok)
	}
	if _, ok := extensibleSubFormat([]byte("RIFF")); ok {
		t.Error("truncated header should not yield a sub-format")
	}
}
