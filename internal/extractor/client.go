package extractor

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/kkdai/youtube/v2"
)

// Client is the part of the extraction library the pipeline depends on.
// *youtube.Client satisfies it; tests substitute fakes.
type Client interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// Config holds the ambient settings shared by every extractor request.
// It is read-only once the server has started.
type Config struct {
	// Cookies is the authentication bundle handed to the extractor.
	// Empty is allowed but restricted assets will likely fail.
	Cookies []*http.Cookie
	// HeaderTimeout bounds the wait for response headers. Bodies are not
	// bounded here; stalled bodies are caught by the source watchdog.
	HeaderTimeout time.Duration
	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		HeaderTimeout: 20 * time.Second,
		DialTimeout:   10 * time.Second,
	}
}

// NewHTTPClient builds the HTTP client used for metadata, stream and
// thumbnail requests. The cookie bundle is installed into its jar.
func NewHTTPClient(config Config) (*http.Client, error) {
	jar, err := NewCookieJar(config.Cookies)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	dialer := &net.Dialer{
		Timeout:   config.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: config.HeaderTimeout,
		ExpectContinueTimeout: time.Second,
	}

	// No Client.Timeout: it would cap the whole body read and cut off long
	// downloads.
	return &http.Client{
		Transport: transport,
		Jar:       jar,
	}, nil
}

// New returns an extraction client that uses httpClient for every request.
func New(httpClient *http.Client) *youtube.Client {
	return &youtube.Client{
		HTTPClient: httpClient,
	}
}
