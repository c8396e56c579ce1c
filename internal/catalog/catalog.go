package catalog

import (
	"context"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"vidmerge/internal/extractor"
	"vidmerge/internal/logging"
	"vidmerge/internal/media"
)

var log = logging.Named("catalog")

// Observer records lookup outcomes. The metrics package implements it.
type Observer interface {
	ObserveLookup(outcome string, durationSeconds float64)
}

// Resolver turns a raw link into a fresh catalog. It holds only read-only
// collaborators and is safe for concurrent use.
type Resolver struct {
	client   extractor.Client
	policy   extractor.LinkPolicy
	retry    extractor.RetryConfig
	observer Observer
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLinkPolicy replaces the default link predicate.
func WithLinkPolicy(policy extractor.LinkPolicy) Option {
	return func(r *Resolver) {
		r.policy = policy
	}
}

// WithRetry sets the retry policy for metadata queries.
func WithRetry(config extractor.RetryConfig) Option {
	return func(r *Resolver) {
		r.retry = config
	}
}

// WithObserver sets the lookup observer.
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		r.observer = o
	}
}

// NewResolver creates a resolver backed by client.
func NewResolver(client extractor.Client, opts ...Option) *Resolver {
	r := &Resolver{
		client: client,
		policy: extractor.ValidateYouTubeLink,
		retry:  extractor.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Listing is the result of one metadata lookup: the public catalog plus
// the extractor formats backing each encoding id.
type Listing struct {
	Link    media.Link
	Video   *youtube.Video
	Catalog *media.Catalog

	formats map[string]*youtube.Format
}

// Resolve returns the catalog for raw.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*media.Catalog, error) {
	listing, err := r.Lookup(ctx, raw)
	if err != nil {
		return nil, err
	}
	return listing.Catalog, nil
}

// Lookup validates raw, performs exactly one metadata query (retried on
// transient failures) and partitions the result. Invalid links never
// reach the extractor.
func (r *Resolver) Lookup(ctx context.Context, raw string) (*Listing, error) {
	link, err := r.policy(raw)
	if err != nil {
		r.observe("invalid", 0)
		return nil, err
	}

	start := time.Now()
	video, err := extractor.Lookup(ctx, r.client, link, r.retry)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		r.observe("not_found", elapsed)
		log.Debug("Lookup failed for %s: %v", link, err)
		return nil, err
	}

	if video == nil || len(video.Formats) == 0 {
		r.observe("not_found", elapsed)
		return nil, fmt.Errorf("%w: no formats reported for %s", media.ErrLinkNotFound, link)
	}

	catalog, formats := Build(video)
	r.observe("ok", elapsed)
	log.Debug("Resolved %s: %d audio, %d video encodings", link, len(catalog.Audio), len(catalog.Video))

	return &Listing{
		Link:    link,
		Video:   video,
		Catalog: catalog,
		formats: formats,
	}, nil
}

func (r *Resolver) observe(outcome string, seconds float64) {
	if r.observer != nil {
		r.observer.ObserveLookup(outcome, seconds)
	}
}

// Build partitions the formats of video into audio-only and video-only
// encodings. Progressive formats are dropped and ids are deduplicated per
// partition, keeping the first occurrence.
func Build(video *youtube.Video) (*media.Catalog, map[string]*youtube.Format) {
	catalog := &media.Catalog{
		Title:      video.Title,
		Thumbnails: make([]media.Thumbnail, 0, len(video.Thumbnails)),
		Audio:      []media.Encoding{},
		Video:      []media.Encoding{},
	}
	formats := make(map[string]*youtube.Format)

	for _, t := range video.Thumbnails {
		catalog.Thumbnails = append(catalog.Thumbnails, media.Thumbnail{
			URL:    t.URL,
			Width:  t.Width,
			Height: t.Height,
		})
	}

	for i := range video.Formats {
		f := &video.Formats[i]

		kind, ok := kindOf(f)
		if !ok {
			continue
		}

		enc := encodingOf(f, kind)
		if _, seen := formats[enc.ID]; seen {
			continue
		}
		formats[enc.ID] = f

		if kind == media.KindAudio {
			catalog.Audio = append(catalog.Audio, enc)
		} else {
			catalog.Video = append(catalog.Video, enc)
		}
	}

	return catalog, formats
}

// kindOf reports the partition of f, or false for progressive and
// unclassifiable formats.
func kindOf(f *youtube.Format) (media.Kind, bool) {
	hasVideo := f.Width > 0 || f.Height > 0 || f.QualityLabel != ""
	hasAudio := f.AudioChannels > 0

	switch {
	case hasAudio && !hasVideo:
		return media.KindAudio, true
	case hasVideo && !hasAudio:
		return media.KindVideo, true
	default:
		return "", false
	}
}

func encodingOf(f *youtube.Format, kind media.Kind) media.Encoding {
	enc := media.Encoding{
		ID:            strconv.Itoa(f.ItagNo),
		Kind:          kind,
		Height:        f.Height,
		ContentLength: f.ContentLength,
	}

	mediaType, params, err := mime.ParseMediaType(f.MimeType)
	if err != nil {
		// Fall back to the bare prefix so odd parameters don't hide the type.
		mediaType, _, _ = strings.Cut(f.MimeType, ";")
		mediaType = strings.TrimSpace(mediaType)
	}
	enc.MimeType = mediaType
	if _, sub, ok := strings.Cut(mediaType, "/"); ok {
		enc.Container = sub
	}
	if codecs := params["codecs"]; codecs != "" {
		first, _, _ := strings.Cut(codecs, ",")
		enc.Codec = strings.TrimSpace(first)
	}

	if kind == media.KindVideo {
		enc.Quality = f.QualityLabel
		if enc.Quality == "" && f.Height > 0 {
			enc.Quality = strconv.Itoa(f.Height) + "p"
		}
	}

	bitrate := f.AverageBitrate
	if bitrate == 0 {
		bitrate = f.Bitrate
	}
	if kind == media.KindAudio {
		enc.Bitrate = bitrate / 1000
	}

	return enc
}

// Select resolves sel against the partition of kind. Unknown ids and ids
// of the other kind are ErrEncodingNotFound; there is no closest match.
func (l *Listing) Select(sel media.Selector, kind media.Kind) (media.Encoding, *youtube.Format, error) {
	if sel.Policy != "" {
		if sel.Policy.Kind() != kind {
			return media.Encoding{}, nil, fmt.Errorf("%w: policy %s does not select %s", media.ErrEncodingNotFound, sel.Policy, kind)
		}

		encodings := l.Catalog.Encodings(kind)
		if len(encodings) == 0 {
			return media.Encoding{}, nil, fmt.Errorf("%w: no %s encodings available", media.ErrEncodingNotFound, kind)
		}

		enc := pick(encodings, l.formats, sel.Policy.Highest())
		return enc, l.formats[enc.ID], nil
	}

	for _, enc := range l.Catalog.Encodings(kind) {
		if enc.ID == sel.ID {
			return enc, l.formats[enc.ID], nil
		}
	}

	if _, ok := l.formats[sel.ID]; ok {
		return media.Encoding{}, nil, fmt.Errorf("%w: %s is not a %s encoding", media.ErrEncodingNotFound, sel.ID, kind)
	}
	return media.Encoding{}, nil, fmt.Errorf("%w: %s", media.ErrEncodingNotFound, sel.ID)
}

// pick returns the best (or worst) encoding. Video ranks by height then
// bitrate, audio by bitrate. Ties keep catalog order.
func pick(encodings []media.Encoding, formats map[string]*youtube.Format, highest bool) media.Encoding {
	best := encodings[0]
	for _, enc := range encodings[1:] {
		c := compare(enc, best, formats)
		if (highest && c > 0) || (!highest && c < 0) {
			best = enc
		}
	}
	return best
}

func compare(a, b media.Encoding, formats map[string]*youtube.Format) int {
	if a.Kind == media.KindVideo && a.Height != b.Height {
		if a.Height > b.Height {
			return 1
		}
		return -1
	}

	ra, rb := rate(formats[a.ID]), rate(formats[b.ID])
	switch {
	case ra > rb:
		return 1
	case ra < rb:
		return -1
	default:
		return 0
	}
}

func rate(f *youtube.Format) int {
	if f == nil {
		return 0
	}
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return f.Bitrate
}
