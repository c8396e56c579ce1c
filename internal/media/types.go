package media

import (
	"strings"
)

// Link is a URL that has passed the link predicate. Only validated links
// ever reach the extraction library.
type Link string

// String returns the link as a plain URL string.
func (l Link) String() string {
	return string(l)
}

// Kind discriminates the two independently selectable legs of a download.
type Kind string

const (
	// KindAudio is an encoding that carries audio and no video.
	KindAudio Kind = "audio"
	// KindVideo is an encoding that carries video and no audio.
	KindVideo Kind = "video"
)

// Encoding describes one elementary stream offered for a link.
//
// IDs are assigned by the extractor and are only meaningful within the
// catalog they came from; they are never persisted or compared across
// separate lookups.
type Encoding struct {
	ID            string `json:"itag"`
	Kind          Kind   `json:"kind"`
	Quality       string `json:"quality,omitempty"` // video label, e.g. "1080p"
	Bitrate       int    `json:"bitRate,omitempty"` // kbps, audio only
	Codec         string `json:"codec"`
	Container     string `json:"container"` // "mp4", "webm"
	MimeType      string `json:"type"`      // "audio/mp4", without parameters
	Height        int    `json:"-"`
	ContentLength int64  `json:"-"`
}

// Extension returns the file extension matching the encoding's container.
func (e Encoding) Extension() string {
	switch e.Container {
	case "":
		if e.Kind == KindAudio {
			return "m4a"
		}
		return "mp4"
	case "mp4":
		if e.Kind == KindAudio {
			return "m4a"
		}
		return "mp4"
	default:
		return e.Container
	}
}

// Thumbnail is one preview image reported for a link.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  uint   `json:"width"`
	Height uint   `json:"height"`
}

// Catalog is the per-request view of a link: title, previews and the two
// partitions of selectable encodings. It is built fresh for each request.
type Catalog struct {
	Title      string      `json:"title"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	Audio      []Encoding  `json:"audioFormat"`
	Video      []Encoding  `json:"videoFormat"`
}

// Encodings returns the partition for the given kind.
func (c *Catalog) Encodings(kind Kind) []Encoding {
	if kind == KindAudio {
		return c.Audio
	}
	return c.Video
}

// Policy is a relative encoding choice resolved against a fresh catalog.
type Policy string

const (
	PolicyHighestAudio Policy = "highestaudio"
	PolicyLowestAudio  Policy = "lowestaudio"
	PolicyHighestVideo Policy = "highestvideo"
	PolicyLowestVideo  Policy = "lowestvideo"
)

// Kind returns the partition a policy applies to.
func (p Policy) Kind() Kind {
	if strings.HasSuffix(string(p), "audio") {
		return KindAudio
	}
	return KindVideo
}

// Highest reports whether the policy prefers the best encoding.
func (p Policy) Highest() bool {
	return strings.HasPrefix(string(p), "highest")
}

// Selector names the encoding to open: either a concrete ID from a
// catalog or a Policy.
type Selector struct {
	ID     string
	Policy Policy
}

// ParseSelector interprets a query value for the given kind. An empty
// value selects the highest encoding of that kind.
func ParseSelector(value string, kind Kind) Selector {
	value = strings.TrimSpace(value)
	if value == "" {
		return BestOf(kind)
	}

	switch p := Policy(strings.ToLower(value)); p {
	case PolicyHighestAudio, PolicyLowestAudio, PolicyHighestVideo, PolicyLowestVideo:
		return Selector{Policy: p}
	}

	return Selector{ID: value}
}

// BestOf returns the selector for the highest encoding of kind.
func BestOf(kind Kind) Selector {
	if kind == KindAudio {
		return Selector{Policy: PolicyHighestAudio}
	}
	return Selector{Policy: PolicyHighestVideo}
}

// String renders the selector the way it appears in a query string.
func (s Selector) String() string {
	if s.Policy != "" {
		return string(s.Policy)
	}
	return s.ID
}
