package remux

import (
	"time"

	"vidmerge/internal/media"
)

// Config holds the multiplexer settings.
type Config struct {
	// FFmpegPath is the ffmpeg binary, looked up in PATH when not absolute.
	FFmpegPath string
	// KillGrace is how long an interrupted process may take to exit
	// before it is killed.
	KillGrace time.Duration
	// MaxSessions caps concurrently running processes.
	MaxSessions int
	// AdmitTimeout bounds the wait for a free session slot.
	AdmitTimeout time.Duration
	// StderrLimit is the number of trailing stderr bytes kept for diagnostics.
	StderrLimit int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		FFmpegPath:   "ffmpeg",
		KillGrace:    5 * time.Second,
		MaxSessions:  4,
		AdmitTimeout: 15 * time.Second,
		StderrLimit:  4096,
	}
}

// Format is an ffmpeg output muxer together with its HTTP presentation.
type Format struct {
	// Muxer is the ffmpeg -f value.
	Muxer       string
	ContentType string
	Extension   string
}

var (
	// FormatMP4 is fragmented MP4, streamable without seeking.
	FormatMP4 = Format{Muxer: "mp4", ContentType: "video/mp4", Extension: "mp4"}
	// FormatWebM carries VP8/VP9/AV1 video with Opus/Vorbis audio.
	FormatWebM = Format{Muxer: "webm", ContentType: "video/webm", Extension: "webm"}
	// FormatMatroska accepts any codec pairing.
	FormatMatroska = Format{Muxer: "matroska", ContentType: "video/x-matroska", Extension: "mkv"}
)

// OutputFormat picks the container for a stream-copy of audio and video.
// Matching mp4 or webm inputs keep their family; anything else goes to
// Matroska, which accepts every codec the extractor offers.
func OutputFormat(audio, video media.Encoding) Format {
	switch {
	case audio.Container == "mp4" && video.Container == "mp4":
		return FormatMP4
	case audio.Container == "webm" && video.Container == "webm":
		return FormatWebM
	default:
		return FormatMatroska
	}
}

// Args builds the ffmpeg argument list. Audio arrives on fd 3, video on
// fd 4 and the muxed output leaves on stdout. Streams are copied, never
// re-encoded.
func Args(format Format) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-i", "pipe:3",
		"-i", "pipe:4",
		"-map", "0:a:0",
		"-map", "1:v:0",
		"-c", "copy",
	}

	if format.Muxer == FormatMP4.Muxer {
		// A plain MP4 needs a seekable output to write the moov atom.
		args = append(args, "-movflags", "frag_keyframe+empty_moov+default_base_moof")
	}

	return append(args, "-f", format.Muxer, "pipe:1")
}
