package audio

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/himanishpuri/voicematch/pkg/models"
)

// Format is a supported audio container.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatM4A  Format = "m4a"
	FormatFLAC Format = "flac"
	FormatOGG  Format = "ogg"
	FormatWEBM Format = "webm"
)

// SupportedFormats lists the accepted containers in display order.
var SupportedFormats = []Format{FormatWAV, FormatMP3, FormatM4A, FormatFLAC, FormatOGG, FormatWEBM}

var formatAliases = map[string]Format{
	"wav":            FormatWAV,
	"wave":           FormatWAV,
	"audio/wav":      FormatWAV,
	"audio/x-wav":    FormatWAV,
	"audio/wave":     FormatWAV,
	"audio/vnd.wave": FormatWAV,

	"mp3":         FormatMP3,
	"audio/mpeg":  FormatMP3,
	"audio/mp3":   FormatMP3,
	"audio/mpeg3": FormatMP3,

	"m4a":         FormatM4A,
	"audio/mp4":   FormatM4A,
	"audio/x-m4a": FormatM4A,
	"audio/m4a":   FormatM4A,

	"flac":         FormatFLAC,
	"audio/flac":   FormatFLAC,
	"audio/x-flac": FormatFLAC,

	"ogg":             FormatOGG,
	"oga":             FormatOGG,
	"opus":            FormatOGG,
	"audio/ogg":       FormatOGG,
	"audio/opus":      FormatOGG,
	"application/ogg": FormatOGG,

	"webm":       FormatWEBM,
	"audio/webm": FormatWEBM,
	"video/webm": FormatWEBM,
}

// ParseFormat maps a file extension (with or without the dot) or a MIME
// type (parameters allowed) to a Format.
func ParseFormat(hint string) (Format, bool) {
	h := strings.ToLower(strings.TrimSpace(hint))
	if i := strings.IndexByte(h, ';'); i >= 0 {
		h = strings.TrimSpace(h[:i])
	}
	h = strings.TrimPrefix(h, ".")
	f, ok := formatAliases[h]
	return f, ok
}

func isGenericHint(h string) bool {
	switch h {
	case "", "application/octet-stream", "binary/octet-stream":
		return true
	}
	return false
}

// DetectFormat sniffs the container from its magic bytes.
func DetectFormat(data []byte) (Format, bool) {
	for mt := mimetype.Detect(data); mt != nil; mt = mt.Parent() {
		if f, ok := ParseFormat(mt.String()); ok {
			return f, true
		}
		if f, ok := ParseFormat(mt.Extension()); ok {
			return f, true
		}
	}
	return "", false
}

// ResolveFormat decides which container a blob holds. A specific hint is
// trusted and must name a supported format; a missing or generic hint
// falls back to content sniffing.
func ResolveFormat(blob models.AudioBlob) (Format, error) {
	hint := blob.Hint()
	if !isGenericHint(hint) {
		if f, ok := ParseFormat(hint); ok {
			return f, nil
		}
		return "", models.Errorf(models.KindUnsupportedFormat, "resolve format",
			"unsupported audio format %q, allowed: %s", hint, allowedList())
	}
	if f, ok := DetectFormat(blob.Data); ok {
		return f, nil
	}
	return "", models.Errorf(models.KindUnsupportedFormat, "resolve format",
		"could not recognise audio format, allowed: %s", allowedList())
}

func allowedList() string {
	names := make([]string, len(SupportedFormats))
	for i, f := range SupportedFormats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
