package voicematch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/voicematch/pkg/models"
	"github.com/himanishpuri/voicematch/pkg/utils"
	"github.com/himanishpuri/voicematch/pkg/voicematch/audio"
)

const (
	fetchUserAgent = "VoiceMatch/1.0"
	fetchAccept    = "audio/*,*/*;q=0.9"
)

// HTTPFetcher downloads recordings over HTTP(S) with a size cap.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
	Timeout  time.Duration
}

func NewHTTPFetcher(maxBytes int64, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{}, MaxBytes: maxBytes, Timeout: timeout}
}

// Fetch downloads rawURL. The format hint comes from the URL's extension
// when it names a supported format, otherwise from the Content-Type.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (models.AudioBlob, error) {
	const op = "fetch"

	if !utils.IsValidURL(rawURL) {
		return models.AudioBlob{}, models.Errorf(models.KindInvalidInput, op, "invalid audio URL %q", rawURL)
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return models.AudioBlob{}, models.Wrap(models.KindInvalidInput, op, "invalid audio URL", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", fetchAccept)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return models.AudioBlob{}, models.ContextError(op, "audio download timed out", ctx.Err())
		}
		return models.AudioBlob{}, models.Wrap(models.KindFetch, op, "failed to download audio", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.AudioBlob{}, models.Wrap(models.KindFetch, op, "failed to download audio",
			fmt.Errorf("server returned %s", resp.Status))
	}
	if f.MaxBytes > 0 && resp.ContentLength > f.MaxBytes {
		return models.AudioBlob{}, f.tooLarge(resp.ContentLength)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = 1 << 62
	}
	data, over, err := utils.ReadAllLimited(resp.Body, limit)
	if err != nil {
		if ctx.Err() != nil {
			return models.AudioBlob{}, models.ContextError(op, "audio download timed out", ctx.Err())
		}
		return models.AudioBlob{}, models.Wrap(models.KindFetch, op, "failed to read audio download", err)
	}
	if over {
		return models.AudioBlob{}, f.tooLarge(-1)
	}

	blob := models.AudioBlob{Data: data, MIMEType: resp.Header.Get("Content-Type")}
	if u, err := url.Parse(rawURL); err == nil {
		if _, ok := audio.ParseFormat(path.Ext(u.Path)); ok {
			blob.Filename = utils.FilenameFromURL(rawURL, time.Now())
		}
	}
	return blob, nil
}

func (f *HTTPFetcher) tooLarge(size int64) error {
	if size > 0 {
		return models.Errorf(models.KindPayloadTooLarge, "fetch", "remote audio is %s, limit is %s",
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(f.MaxBytes)))
	}
	return models.Errorf(models.KindPayloadTooLarge, "fetch", "remote audio exceeds the %s limit",
		humanize.IBytes(uint64(f.MaxBytes)))
}
