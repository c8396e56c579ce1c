package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"

	// Image format decoders
	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support

	"vidmerge/internal/logging"
	"vidmerge/internal/media"
)

var log = logging.Named("thumbnail")

const (
	// DefaultWidth is used when the caller does not ask for a width.
	DefaultWidth = 320
	// MinWidth and MaxWidth bound the requested width.
	MinWidth = 16
	MaxWidth = 1280

	// MaxImageBytes caps the upstream body we are willing to buffer.
	MaxImageBytes = 8 << 20

	// MaxImagePixels caps the decoded size (width * height).
	MaxImagePixels = 20_000_000
)

var (
	// ErrUpstream indicates the image host did not return an image.
	ErrUpstream = errors.New("thumbnail upstream failure")
	// ErrDecode indicates the upstream body could not be decoded.
	ErrDecode = errors.New("thumbnail decode failure")
)

// Proxy fetches a preview image and re-encodes it as a resized JPEG.
type Proxy struct {
	client *http.Client
}

// New creates a Proxy over client, normally the shared extractor HTTP
// client so the cookie bundle applies.
func New(client *http.Client) *Proxy {
	if client == nil {
		client = http.DefaultClient
	}
	return &Proxy{client: client}
}

// Best returns the largest thumbnail by area. The first one wins a tie.
func Best(thumbs []media.Thumbnail) (media.Thumbnail, bool) {
	if len(thumbs) == 0 {
		return media.Thumbnail{}, false
	}

	best := thumbs[0]
	for _, t := range thumbs[1:] {
		if t.Width*t.Height > best.Width*best.Height {
			best = t
		}
	}
	return best, true
}

// ClampWidth maps a requested width into [MinWidth, MaxWidth]; zero or
// negative means DefaultWidth.
func ClampWidth(width int) int {
	switch {
	case width <= 0:
		return DefaultWidth
	case width < MinWidth:
		return MinWidth
	case width > MaxWidth:
		return MaxWidth
	default:
		return width
	}
}

// Fetch downloads url and returns a JPEG no wider than width. Images
// already narrower are re-encoded at their own size.
func (p *Proxy) Fetch(ctx context.Context, url string, width int) ([]byte, error) {
	width = ClampWidth(width)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", media.ErrClientAbort, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Debug("failed to close body for %s: %v", url, err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrUpstream, MaxImageBytes)
	}

	return Resize(data, width)
}

// Resize decodes data and encodes it as a JPEG no wider than width.
func Resize(data []byte, width int) ([]byte, error) {
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if config.Width*config.Height > MaxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds pixel limit", ErrDecode, config.Width, config.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	log.Debug("Resized %dx%d to width %d (%d bytes)", config.Width, config.Height, img.Bounds().Dx(), buf.Len())
	return buf.Bytes(), nil
}
