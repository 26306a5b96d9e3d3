package utils

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

// IsValidURL reports whether s is an absolute http(s) URL with a host.
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// FilenameFromURL returns the last path element of a URL. URLs without a
// usable filename get a generated webm name, the format browsers record in.
func FilenameFromURL(rawURL string, now time.Time) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		name := path.Base(u.Path)
		if name != "." && name != "/" && strings.Contains(name, ".") {
			return name
		}
	}
	return fmt.Sprintf("audio_%d.webm", now.Unix())
}
