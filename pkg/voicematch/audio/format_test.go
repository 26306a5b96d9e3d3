package audio

import (
	"testing"
	"time"

	"github.com/himanishpuri/voicematch/internal/testaudio"
	"github.com/himanishpuri/voicematch/pkg/models"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"wav":                      FormatWAV,
		".MP3":                     FormatMP3,
		"audio/x-m4a":              FormatM4A,
		"audio/webm;codecs=opus":   FormatWEBM,
		"audio/ogg; codecs=vorbis": FormatOGG,
		"FLAC":                     FormatFLAC,
	}
	for in, want := range tests {
		got, ok := ParseFormat(in)
		if !ok || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	for _, in := range []string{"txt", "text/plain", "aiff", ""} {
		if _, ok := ParseFormat(in); ok {
			t.Errorf("ParseFormat(%q) should fail", in)
		}
	}
}

func TestResolveFormat(t *testing.T) {
	wavData := testaudio.WAV(t, testaudio.Tone(440, 0.3, 100*time.Millisecond, 16000), 16000, 1)

	t.Run("sniffs generic mime", func(t *testing.T) {
		f, err := ResolveFormat(models.AudioBlob{Data: wavData, MIMEType: "application/octet-stream"})
		if err != nil || f != FormatWAV {
			t.Errorf("got %q, %v", f, err)
		}
	})

	t.Run("sniffs missing hint", func(t *testing.T) {
		f, err := ResolveFormat(models.AudioBlob{Data: wavData})
		if err != nil || f != FormatWAV {
			t.Errorf("got %q, %v", f, err)
		}
	})

	t.Run("rejects unsupported hint", func(t *testing.T) {
		_, err := ResolveFormat(models.AudioBlob{Data: wavData, Filename: "notes.txt"})
		if models.KindOf(err) != models.KindUnsupportedFormat {
			t.Errorf("got %v", err)
		}
	})

	t.Run("rejects unknown content", func(t *testing.T) {
		_, err := ResolveFormat(models.AudioBlob{Data: []byte("just some text")})
		if models.KindOf(err) != models.KindUnsupportedFormat {
			t.Errorf("got %v", err)
		}
	})
}
