package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"vidmerge/internal/media"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestBest(t *testing.T) {
	tests := []struct {
		name   string
		thumbs []media.Thumbnail
		want   string
		ok     bool
	}{
		{name: "empty", thumbs: nil, ok: false},
		{
			name: "largest area",
			thumbs: []media.Thumbnail{
				{URL: "small", Width: 120, Height: 90},
				{URL: "large", Width: 1280, Height: 720},
				{URL: "medium", Width: 480, Height: 360},
			},
			want: "large",
			ok:   true,
		},
		{
			name: "tie keeps first",
			thumbs: []media.Thumbnail{
				{URL: "a", Width: 100, Height: 100},
				{URL: "b", Width: 100, Height: 100},
			},
			want: "a",
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Best(tt.thumbs)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if got.URL != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got.URL)
			}
		})
	}
}

func TestClampWidth(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultWidth},
		{-5, DefaultWidth},
		{1, MinWidth},
		{200, 200},
		{5000, MaxWidth},
	}

	for _, tt := range tests {
		if got := ClampWidth(tt.in); got != tt.want {
			t.Errorf("ClampWidth(%d): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestResize(t *testing.T) {
	tests := []struct {
		name      string
		w, h      int
		width     int
		wantWidth int
	}{
		{name: "downscales", w: 400, h: 200, width: 100, wantWidth: 100},
		{name: "keeps narrower image", w: 64, h: 32, width: 320, wantWidth: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Resize(pngBytes(t, tt.w, tt.h), tt.width)
			if err != nil {
				t.Fatalf("Resize failed: %v", err)
			}

			img, err := jpeg.Decode(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("output is not a JPEG: %v", err)
			}
			if img.Bounds().Dx() != tt.wantWidth {
				t.Errorf("Expected width %d, got %d", tt.wantWidth, img.Bounds().Dx())
			}
			if wantHeight := tt.h * tt.wantWidth / tt.w; img.Bounds().Dy() != wantHeight {
				t.Errorf("Expected height %d, got %d", wantHeight, img.Bounds().Dy())
			}
		})
	}
}

func TestResizeRejectsGarbage(t *testing.T) {
	_, err := Resize([]byte("definitely not an image"), 100)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
}

func TestFetch(t *testing.T) {
	data := pngBytes(t, 300, 150)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(data)
		case "/garbage":
			_, _ = w.Write([]byte("<html>nope</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	proxy := New(server.Client())

	t.Run("resizes", func(t *testing.T) {
		out, err := proxy.Fetch(context.Background(), server.URL+"/ok.png", 150)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		img, err := jpeg.Decode(bytes.NewReader(out))
		if err != nil {
			t.Fatalf("output is not a JPEG: %v", err)
		}
		if img.Bounds().Dx() != 150 {
			t.Errorf("Expected width 150, got %d", img.Bounds().Dx())
		}
	})

	t.Run("upstream status", func(t *testing.T) {
		_, err := proxy.Fetch(context.Background(), server.URL+"/missing", 150)
		if !errors.Is(err, ErrUpstream) {
			t.Errorf("Expected ErrUpstream, got %v", err)
		}
	})

	t.Run("undecodable body", func(t *testing.T) {
		_, err := proxy.Fetch(context.Background(), server.URL+"/garbage", 150)
		if !errors.Is(err, ErrDecode) {
			t.Errorf("Expected ErrDecode, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := proxy.Fetch(ctx, server.URL+"/ok.png", 150)
		if !errors.Is(err, media.ErrClientAbort) {
			t.Errorf("Expected ErrClientAbort, got %v", err)
		}
	})
}
