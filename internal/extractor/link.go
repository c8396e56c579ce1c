package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"vidmerge/internal/media"
)

// LinkPolicy is the validity predicate applied before any network call.
type LinkPolicy func(raw string) (media.Link, error)

var validHosts = map[string]bool{
	"youtube.com":              true,
	"www.youtube.com":          true,
	"m.youtube.com":            true,
	"music.youtube.com":        true,
	"gaming.youtube.com":       true,
	"youtu.be":                 true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
}

// idPathPrefixes are the first path segments that carry the id as the
// second segment, as in /shorts/<id>.
var idPathPrefixes = map[string]bool{
	"shorts": true,
	"embed":  true,
	"live":   true,
	"v":      true,
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ValidateHTTPLink accepts any absolute http or https URL with a host.
func ValidateHTTPLink(raw string) (media.Link, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty link", media.ErrInvalidLink)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", media.ErrInvalidLink, err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", media.ErrInvalidLink, parsed.Scheme)
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("%w: missing host", media.ErrInvalidLink)
	}

	return media.Link(parsed.String()), nil
}

// ValidateYouTubeLink accepts watch, shorts, embed, live and youtu.be URLs
// that carry a well-formed video id.
func ValidateYouTubeLink(raw string) (media.Link, error) {
	link, err := ValidateHTTPLink(raw)
	if err != nil {
		return "", err
	}

	parsed, _ := url.Parse(link.String())
	host := strings.ToLower(parsed.Hostname())
	if !validHosts[host] {
		return "", fmt.Errorf("%w: unsupported host %q", media.ErrInvalidLink, parsed.Hostname())
	}

	id := videoID(host, parsed)
	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: no video id in %q", media.ErrInvalidLink, parsed.Path)
	}

	return link, nil
}

// videoID reads the id from the URL structure only: the youtu.be path,
// an id-carrying path segment, or the v query parameter.
func videoID(host string, u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	if host == "youtu.be" {
		return segments[0]
	}
	if len(segments) >= 2 && idPathPrefixes[segments[0]] {
		return segments[1]
	}
	return u.Query().Get("v")
}
