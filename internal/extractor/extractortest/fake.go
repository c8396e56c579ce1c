// Package extractortest provides an in-memory extraction client for tests.
package extractortest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/kkdai/youtube/v2"
)

// Client is a fake extractor. Videos are keyed by the exact URL passed to
// GetVideoContext and stream bodies by itag.
type Client struct {
	mu      sync.Mutex
	videos  map[string]*youtube.Video
	errs    map[string][]error
	bodies  map[int]func() io.ReadCloser
	openErr map[int]error

	lookups atomic.Int32
	opens   atomic.Int32
}

// New returns an empty fake.
func New() *Client {
	return &Client{
		videos:  make(map[string]*youtube.Video),
		errs:    make(map[string][]error),
		bodies:  make(map[int]func() io.ReadCloser),
		openErr: make(map[int]error),
	}
}

// AddVideo registers metadata for url.
func (c *Client) AddVideo(url string, video *youtube.Video) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.videos[url] = video
}

// FailLookup queues errors returned by successive lookups of url before
// the registered video (if any) is returned.
func (c *Client) FailLookup(url string, errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[url] = append(c.errs[url], errs...)
}

// SetBody registers the payload served for itag.
func (c *Client) SetBody(itag int, data []byte) {
	c.SetBodyFunc(itag, func() io.ReadCloser {
		return io.NopCloser(bytes.NewReader(data))
	})
}

// SetBodyFunc registers a constructor for the body served for itag.
func (c *Client) SetBodyFunc(itag int, fn func() io.ReadCloser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bodies[itag] = fn
}

// FailOpen makes GetStreamContext fail for itag.
func (c *Client) FailOpen(itag int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr[itag] = err
}

// Lookups returns the number of GetVideoContext calls.
func (c *Client) Lookups() int {
	return int(c.lookups.Load())
}

// Opens returns the number of GetStreamContext calls.
func (c *Client) Opens() int {
	return int(c.opens.Load())
}

func (c *Client) GetVideoContext(ctx context.Context, url string) (*youtube.Video, error) {
	c.lookups.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if queued := c.errs[url]; len(queued) > 0 {
		c.errs[url] = queued[1:]
		return nil, queued[0]
	}

	video, ok := c.videos[url]
	if !ok {
		return nil, youtube.ErrVideoPrivate
	}
	return video, nil
}

func (c *Client) GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error) {
	c.opens.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.openErr[format.ItagNo]; err != nil {
		return nil, 0, err
	}

	fn, ok := c.bodies[format.ItagNo]
	if !ok {
		return nil, 0, fmt.Errorf("no body for itag %d", format.ItagNo)
	}
	return fn(), format.ContentLength, nil
}

// AudioFormat returns an audio-only format fixture.
func AudioFormat(itag, bitrate int, mimeType string) youtube.Format {
	return youtube.Format{
		ItagNo:         itag,
		MimeType:       mimeType,
		Bitrate:        bitrate,
		AverageBitrate: bitrate,
		AudioChannels:  2,
		AudioQuality:   "AUDIO_QUALITY_MEDIUM",
	}
}

// VideoFormat returns a video-only format fixture.
func VideoFormat(itag, height int, label, mimeType string) youtube.Format {
	return youtube.Format{
		ItagNo:       itag,
		MimeType:     mimeType,
		Bitrate:      height * 2000,
		Width:        height * 16 / 9,
		Height:       height,
		QualityLabel: label,
	}
}

// ProgressiveFormat returns a format carrying both audio and video.
func ProgressiveFormat(itag, height int, label, mimeType string) youtube.Format {
	f := VideoFormat(itag, height, label, mimeType)
	f.AudioChannels = 2
	return f
}

// SampleVideo returns a video with the formats used across tests:
// audio 140 (m4a 128k), 251 (opus 160k); video 18 (360p progressive),
// 137 (1080p mp4), 248 (1080p webm), 134 (360p mp4).
func SampleVideo(title string) *youtube.Video {
	return &youtube.Video{
		ID:    "abcdefghijk",
		Title: title,
		Thumbnails: youtube.Thumbnails{
			{URL: "https://i.ytimg.com/vi/abcdefghijk/default.jpg", Width: 120, Height: 90},
			{URL: "https://i.ytimg.com/vi/abcdefghijk/hqdefault.jpg", Width: 480, Height: 360},
		},
		Formats: youtube.FormatList{
			ProgressiveFormat(18, 360, "360p", `video/mp4; codecs="avc1.42001E, mp4a.40.2"`),
			VideoFormat(137, 1080, "1080p", `video/mp4; codecs="avc1.640028"`),
			VideoFormat(248, 1080, "1080p", `video/webm; codecs="vp9"`),
			VideoFormat(134, 360, "360p", `video/mp4; codecs="avc1.4d401e"`),
			AudioFormat(140, 128000, `audio/mp4; codecs="mp4a.40.2"`),
			AudioFormat(251, 160000, `audio/webm; codecs="opus"`),
			AudioFormat(140, 128000, `audio/mp4; codecs="mp4a.40.2"`),
		},
	}
}
