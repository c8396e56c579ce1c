package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kkdai/youtube/v2"

	"vidmerge/internal/extractor"
	"vidmerge/internal/extractor/extractortest"
	"vidmerge/internal/media"
)

const testLink = "https://www.youtube.com/watch?v=abcdefghijk"

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingObserver) ObserveLookup(outcome string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func newTestResolver(client extractor.Client, opts ...Option) *Resolver {
	opts = append([]Option{WithRetry(extractor.RetryConfig{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	})}, opts...)
	return NewResolver(client, opts...)
}

func TestResolveInvalidLinkMakesNoCalls(t *testing.T) {
	client := extractortest.New()
	obs := &recordingObserver{}
	r := newTestResolver(client, WithObserver(obs))

	links := []string{
		"",
		"not a link",
		"https://example.com/watch?v=abcdefghijk",
		"https://www.youtube.com/",
		"https://www.youtube.com/feed/trending",
		"https://www.youtube.com/@somechannel",
	}
	for _, raw := range links {
		_, err := r.Resolve(context.Background(), raw)
		if !errors.Is(err, media.ErrInvalidLink) {
			t.Errorf("Expected ErrInvalidLink for %q, got %v", raw, err)
		}
	}

	if client.Lookups() != 0 {
		t.Errorf("Expected 0 extractor calls, got %d", client.Lookups())
	}
	if len(obs.outcomes) != len(links) {
		t.Fatalf("Expected %d outcomes, got %v", len(links), obs.outcomes)
	}
	for _, outcome := range obs.outcomes {
		if outcome != "invalid" {
			t.Errorf("Expected only invalid outcomes, got %v", obs.outcomes)
			break
		}
	}
}

func TestResolvePartitionsAndDedupes(t *testing.T) {
	client := extractortest.New()
	client.AddVideo(testLink, extractortest.SampleVideo("My Video"))
	r := newTestResolver(client)

	catalog, err := r.Resolve(context.Background(), testLink)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if catalog.Title != "My Video" {
		t.Errorf("Expected title 'My Video', got %q", catalog.Title)
	}
	if len(catalog.Thumbnails) != 2 {
		t.Errorf("Expected 2 thumbnails, got %d", len(catalog.Thumbnails))
	}

	wantAudio := []string{"140", "251"}
	if len(catalog.Audio) != len(wantAudio) {
		t.Fatalf("Expected %d audio encodings, got %d", len(wantAudio), len(catalog.Audio))
	}
	for i, id := range wantAudio {
		if catalog.Audio[i].ID != id {
			t.Errorf("Expected audio[%d]=%s, got %s", i, id, catalog.Audio[i].ID)
		}
		if catalog.Audio[i].Kind != media.KindAudio {
			t.Errorf("Expected audio kind for %s", id)
		}
	}

	// 18 is progressive and must not appear
	wantVideo := []string{"137", "248", "134"}
	if len(catalog.Video) != len(wantVideo) {
		t.Fatalf("Expected %d video encodings, got %d", len(wantVideo), len(catalog.Video))
	}
	for i, id := range wantVideo {
		if catalog.Video[i].ID != id {
			t.Errorf("Expected video[%d]=%s, got %s", i, id, catalog.Video[i].ID)
		}
	}

	seen := make(map[string]bool)
	for _, enc := range append(append([]media.Encoding{}, catalog.Audio...), catalog.Video...) {
		if seen[enc.ID] {
			t.Errorf("Duplicate encoding id %s", enc.ID)
		}
		seen[enc.ID] = true
	}

	if client.Lookups() != 1 {
		t.Errorf("Expected exactly 1 extractor call, got %d", client.Lookups())
	}
}

func TestEncodingFields(t *testing.T) {
	catalog, _ := Build(extractortest.SampleVideo("x"))

	m4a := catalog.Audio[0]
	if m4a.Codec != "mp4a.40.2" {
		t.Errorf("Expected codec mp4a.40.2, got %q", m4a.Codec)
	}
	if m4a.MimeType != "audio/mp4" {
		t.Errorf("Expected type audio/mp4, got %q", m4a.MimeType)
	}
	if m4a.Container != "mp4" {
		t.Errorf("Expected container mp4, got %q", m4a.Container)
	}
	if m4a.Bitrate != 128 {
		t.Errorf("Expected bitrate 128, got %d", m4a.Bitrate)
	}

	vp9 := catalog.Video[1]
	if vp9.Codec != "vp9" || vp9.Container != "webm" || vp9.Quality != "1080p" {
		t.Errorf("Unexpected webm encoding: %+v", vp9)
	}
}

func TestResolvePrivateLink(t *testing.T) {
	client := extractortest.New()
	client.FailLookup(testLink, youtube.ErrVideoPrivate)
	obs := &recordingObserver{}
	r := newTestResolver(client, WithObserver(obs))

	_, err := r.Resolve(context.Background(), testLink)
	if !errors.Is(err, media.ErrLinkNotFound) {
		t.Errorf("Expected ErrLinkNotFound, got %v", err)
	}
	if client.Lookups() != 1 {
		t.Errorf("Expected restricted link not to be retried, got %d calls", client.Lookups())
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0] != "not_found" {
		t.Errorf("Expected not_found outcome, got %v", obs.outcomes)
	}
}

func TestResolveNoFormats(t *testing.T) {
	client := extractortest.New()
	client.AddVideo(testLink, &youtube.Video{Title: "empty"})
	r := newTestResolver(client)

	if _, err := r.Resolve(context.Background(), testLink); !errors.Is(err, media.ErrLinkNotFound) {
		t.Errorf("Expected ErrLinkNotFound, got %v", err)
	}
}

func TestResolveCustomPolicy(t *testing.T) {
	const link = "https://x/watch?id=abc"
	client := extractortest.New()
	client.AddVideo(link, extractortest.SampleVideo("x"))

	r := newTestResolver(client, WithLinkPolicy(extractor.ValidateHTTPLink))
	if _, err := r.Resolve(context.Background(), link); err != nil {
		t.Errorf("Expected permissive policy to accept %s, got %v", link, err)
	}

	r = newTestResolver(client)
	if _, err := r.Resolve(context.Background(), link); !errors.Is(err, media.ErrInvalidLink) {
		t.Errorf("Expected default policy to reject %s, got %v", link, err)
	}
}

func TestListingSelect(t *testing.T) {
	client := extractortest.New()
	client.AddVideo(testLink, extractortest.SampleVideo("x"))
	listing, err := newTestResolver(client).Lookup(context.Background(), testLink)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	tests := []struct {
		name    string
		sel     media.Selector
		kind    media.Kind
		wantID  string
		wantErr error
	}{
		{name: "highest video", sel: media.BestOf(media.KindVideo), kind: media.KindVideo, wantID: "137"},
		{name: "lowest video", sel: media.Selector{Policy: media.PolicyLowestVideo}, kind: media.KindVideo, wantID: "134"},
		{name: "highest audio", sel: media.BestOf(media.KindAudio), kind: media.KindAudio, wantID: "251"},
		{name: "lowest audio", sel: media.Selector{Policy: media.PolicyLowestAudio}, kind: media.KindAudio, wantID: "140"},
		{name: "concrete video id", sel: media.Selector{ID: "248"}, kind: media.KindVideo, wantID: "248"},
		{name: "concrete audio id", sel: media.Selector{ID: "140"}, kind: media.KindAudio, wantID: "140"},
		{name: "unknown id", sel: media.Selector{ID: "9999"}, kind: media.KindVideo, wantErr: media.ErrEncodingNotFound},
		{name: "audio id as video", sel: media.Selector{ID: "140"}, kind: media.KindVideo, wantErr: media.ErrEncodingNotFound},
		{name: "progressive id", sel: media.Selector{ID: "18"}, kind: media.KindVideo, wantErr: media.ErrEncodingNotFound},
		{name: "policy of other kind", sel: media.BestOf(media.KindAudio), kind: media.KindVideo, wantErr: media.ErrEncodingNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, format, err := listing.Select(tt.sel, tt.kind)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select failed: %v", err)
			}
			if enc.ID != tt.wantID {
				t.Errorf("Expected id %s, got %s", tt.wantID, enc.ID)
			}
			if format == nil || format.ItagNo == 0 {
				t.Error("Expected backing format")
			}
		})
	}
}

func TestSelectEmptyPartition(t *testing.T) {
	video := &youtube.Video{
		Title: "audio only",
		Formats: youtube.FormatList{
			extractortest.AudioFormat(140, 128000, `audio/mp4; codecs="mp4a.40.2"`),
		},
	}
	client := extractortest.New()
	client.AddVideo(testLink, video)

	listing, err := newTestResolver(client).Lookup(context.Background(), testLink)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if _, _, err := listing.Select(media.BestOf(media.KindVideo), media.KindVideo); !errors.Is(err, media.ErrEncodingNotFound) {
		t.Errorf("Expected ErrEncodingNotFound, got %v", err)
	}
}
