package media

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		kind     Kind
		expected Selector
	}{
		{"Empty audio is highest audio", "", KindAudio, Selector{Policy: PolicyHighestAudio}},
		{"Empty video is highest video", "  ", KindVideo, Selector{Policy: PolicyHighestVideo}},
		{"Concrete id", "140", KindAudio, Selector{ID: "140"}},
		{"Policy token", "lowestvideo", KindVideo, Selector{Policy: PolicyLowestVideo}},
		{"Policy token is case insensitive", "HighestAudio", KindAudio, Selector{Policy: PolicyHighestAudio}},
		{"Unknown word is an id", "best", KindVideo, Selector{ID: "best"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSelector(tt.value, tt.kind)
			if got != tt.expected {
				t.Errorf("ParseSelector(%q) = %+v, want %+v", tt.value, got, tt.expected)
			}
		})
	}
}

func TestPolicyKind(t *testing.T) {
	tests := []struct {
		policy  Policy
		kind    Kind
		highest bool
	}{
		{PolicyHighestAudio, KindAudio, true},
		{PolicyLowestAudio, KindAudio, false},
		{PolicyHighestVideo, KindVideo, true},
		{PolicyLowestVideo, KindVideo, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			if tt.policy.Kind() != tt.kind {
				t.Errorf("Expected kind %s, got %s", tt.kind, tt.policy.Kind())
			}
			if tt.policy.Highest() != tt.highest {
				t.Errorf("Expected Highest()=%v", tt.highest)
			}
		})
	}
}

func TestEncodingExtension(t *testing.T) {
	tests := []struct {
		encoding Encoding
		expected string
	}{
		{Encoding{Kind: KindAudio, Container: "mp4"}, "m4a"},
		{Encoding{Kind: KindVideo, Container: "mp4"}, "mp4"},
		{Encoding{Kind: KindAudio, Container: "webm"}, "webm"},
		{Encoding{Kind: KindVideo}, "mp4"},
	}

	for _, tt := range tests {
		if got := tt.encoding.Extension(); got != tt.expected {
			t.Errorf("Extension() for %+v = %q, want %q", tt.encoding, got, tt.expected)
		}
	}
}

func TestCatalogEncodings(t *testing.T) {
	c := &Catalog{
		Audio: []Encoding{{ID: "140", Kind: KindAudio}},
		Video: []Encoding{{ID: "18", Kind: KindVideo}, {ID: "22", Kind: KindVideo}},
	}

	if len(c.Encodings(KindAudio)) != 1 {
		t.Errorf("Expected 1 audio encoding, got %d", len(c.Encodings(KindAudio)))
	}
	if len(c.Encodings(KindVideo)) != 2 {
		t.Errorf("Expected 2 video encodings, got %d", len(c.Encodings(KindVideo)))
	}
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{fmt.Errorf("resolve: %w", ErrInvalidLink), true},
		{fmt.Errorf("resolve: %w", ErrLinkNotFound), true},
		{fmt.Errorf("open: %w", ErrEncodingNotFound), true},
		{ErrStreamFailure, false},
		{ErrMuxStart, false},
		{errors.New("other"), false},
	}

	for _, tt := range tests {
		if got := IsClientError(tt.err); got != tt.expected {
			t.Errorf("IsClientError(%v) = %v, want %v", tt.err, got, tt.expected)
		}
	}
}
