package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"vidmerge/internal/catalog"
	"vidmerge/internal/extractor"
	"vidmerge/internal/media"
	"vidmerge/internal/remux"

	"golang.org/x/term"
)

const (
	// Default timeout for a metadata lookup
	defaultTimeout = 30 * time.Second
	// Default multiplexer binary
	defaultFFmpegPath = "ffmpeg"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	switch command {
	case "info":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: info requires a link")
			printUsage()
			os.Exit(1)
		}
		asJSON := !term.IsTerminal(int(os.Stdout.Fd()))
		if !showInfo(ctx, os.Stdout, os.Args[2], asJSON) {
			os.Exit(1)
		}
	case "check":
		if !checkSetup(os.Stdout) {
			os.Exit(1)
		}
	default:
		// Sanitize command input using allowlist to break taint chain
		sanitized := sanitizeCommand(command)
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitized)
		printUsage()
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// It uses an allowlist approach, replacing any character that is not alphanumeric,
// a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage() {
	fmt.Println("vidmerge Catalog Inspector")
	fmt.Println("")
	fmt.Println("Usage: vidinfo <command> [link]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  info <link>  - List the audio and video encodings of a link")
	fmt.Println("  check        - Check ffmpeg and cookie configuration")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Println("  YOUTUBE_COOKIE - Cookie bundle in \"a=1; b=2\" form")
	fmt.Printf("  FFMPEG_PATH    - Multiplexer binary (default: %s)\n", defaultFFmpegPath)
}

// newResolver builds a resolver over the real extractor.
func newResolver() (*catalog.Resolver, error) {
	config := extractor.DefaultConfig()
	config.Cookies = extractor.ParseCookies(os.Getenv("YOUTUBE_COOKIE"))

	httpClient, err := extractor.NewHTTPClient(config)
	if err != nil {
		return nil, err
	}
	return catalog.NewResolver(extractor.New(httpClient)), nil
}

func showInfo(ctx context.Context, w io.Writer, link string, asJSON bool) bool {
	// Add timeout to context for the metadata lookup
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	resolver, err := newResolver()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	return runInfo(ctx, w, resolver, link, asJSON)
}

// catalogResolver is the part of catalog.Resolver used by info.
type catalogResolver interface {
	Resolve(ctx context.Context, raw string) (*media.Catalog, error)
}

func runInfo(ctx context.Context, w io.Writer, resolver catalogResolver, link string, asJSON bool) bool {
	c, err := resolver.Resolve(ctx, link)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrInvalidLink):
			fmt.Fprintf(os.Stderr, "Error: Invalid URL: %v\n", err)
		case errors.Is(err, media.ErrLinkNotFound):
			fmt.Fprintf(os.Stderr, "Error: Video Not Found: %v\n", err)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return false
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(c); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to encode catalog: %v\n", err)
			return false
		}
		return true
	}

	if err := printCatalog(w, c); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to print catalog: %v\n", err)
		return false
	}
	return true
}

// printCatalog writes the catalog as two aligned tables.
func printCatalog(w io.Writer, c *media.Catalog) error {
	fmt.Fprintf(w, "Title: %s\n\n", c.Title)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VIDEO\tQUALITY\tCODEC\tTYPE\tSIZE")
	for _, e := range c.Video {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Quality, e.Codec, e.MimeType, formatSize(e.ContentLength))
	}
	fmt.Fprintln(tw, "\t\t\t\t")
	fmt.Fprintln(tw, "AUDIO\tBITRATE\tCODEC\tTYPE\tSIZE")
	for _, e := range c.Audio {
		fmt.Fprintf(tw, "%s\t%dk\t%s\t%s\t%s\n", e.ID, e.Bitrate, e.Codec, e.MimeType, formatSize(e.ContentLength))
	}
	return tw.Flush()
}

// formatSize renders a byte count in MiB, or "-" when unknown.
func formatSize(n int64) string {
	if n <= 0 {
		return "-"
	}
	return strconv.FormatFloat(float64(n)/(1<<20), 'f', 1, 64) + "M"
}

func checkSetup(w io.Writer) bool {
	ffmpegPath := os.Getenv("FFMPEG_PATH")
	if ffmpegPath == "" {
		ffmpegPath = defaultFFmpegPath
	}
	return runCheck(w, ffmpegPath, os.Getenv("YOUTUBE_COOKIE"))
}

func runCheck(w io.Writer, ffmpegPath, cookie string) bool {
	ok := true

	config := remux.DefaultConfig()
	config.FFmpegPath = ffmpegPath
	if err := remux.New(config, nil).Available(); err != nil {
		fmt.Fprintf(w, "FFmpeg:  NOT FOUND (%s): %v\n", ffmpegPath, err)
		ok = false
	} else {
		fmt.Fprintf(w, "FFmpeg:  available (%s)\n", ffmpegPath)
	}

	if cookies := extractor.ParseCookies(cookie); len(cookies) > 0 {
		fmt.Fprintf(w, "Cookies: %d configured\n", len(cookies))
	} else {
		fmt.Fprintln(w, "Cookies: none (restricted videos will not resolve)")
	}

	return ok
}
