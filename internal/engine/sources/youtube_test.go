package sources

import (
	"errors"
	"testing"

	"github.com/anatolykoptev/go_tutor/internal/engine"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", `{"a":1};var x=2`, `{"a":1}`},
		{"nested", `{"a":{"b":2}} trailing`, `{"a":{"b":2}}`},
		{"brace in string", `{"a":"}"}rest`, `{"a":"}"}`},
		{"escaped quote", `{"a":"\"}"}rest`, `{"a":"\"}"}`},
		{"not an object", `[1,2]`, ""},
		{"unbalanced", `{"a":1`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractJSON([]byte(tt.in))
			if string(got) != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTimedText(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.0" dur="2.5">hello &amp;amp; welcome</text>
  <text start="2.5" dur="3.0">&lt;b&gt;bold&lt;/b&gt; line</text>
  <text start="5.5" dur="1.0"></text>
  <text start="6.5" dur="2.0">last one</text>
</transcript>`)

	snippets, err := parseTimedText(body)
	if err != nil {
		t.Fatalf("parseTimedText: %v", err)
	}
	if len(snippets) != 3 {
		t.Fatalf("got %d snippets, want 3: %+v", len(snippets), snippets)
	}
	if snippets[0].Text != "hello & welcome" {
		t.Errorf("entity decode: got %q", snippets[0].Text)
	}
	if snippets[1].Text != "bold line" {
		t.Errorf("tag strip: got %q", snippets[1].Text)
	}
	if snippets[0].Start != 0.0 || snippets[0].Duration != 2.5 {
		t.Errorf("timing: got start=%v dur=%v", snippets[0].Start, snippets[0].Duration)
	}
}

func TestParseTimedTextBadXML(t *testing.T) {
	if _, err := parseTimedText([]byte("not xml at all <<<")); err == nil {
		t.Fatal("expected error for malformed XML")
	}
}

func TestTracksFromPlayerResp(t *testing.T) {
	mk := func(status, reason string, captions bool, tracks ...captionTrack) *innertubePlayerResp {
		r := &innertubePlayerResp{}
		if status != "" {
			r.PlayabilityStatus = &struct {
				Status string `json:"status"`
				Reason string `json:"reason"`
			}{Status: status, Reason: reason}
		}
		if captions {
			r.Captions = &struct {
				PlayerCaptionsTracklistRenderer struct {
					CaptionTracks []captionTrack `json:"captionTracks"`
				} `json:"playerCaptionsTracklistRenderer"`
			}{}
			r.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks = tracks
		}
		return r
	}

	t.Run("login required", func(t *testing.T) {
		_, err := tracksFromPlayerResp(mk("LOGIN_REQUIRED", "private video", true))
		if !errors.Is(err, engine.ErrVideoUnavailable) {
			t.Fatalf("want ErrVideoUnavailable, got %v", err)
		}
	})

	t.Run("captions disabled", func(t *testing.T) {
		_, err := tracksFromPlayerResp(mk("OK", "", false))
		if !errors.Is(err, engine.ErrCaptionsDisabled) {
			t.Fatalf("want ErrCaptionsDisabled, got %v", err)
		}
	})

	t.Run("empty track list is not an error", func(t *testing.T) {
		tracks, err := tracksFromPlayerResp(mk("OK", "", true))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 0 {
			t.Fatalf("want empty tracks, got %v", tracks)
		}
	})

	t.Run("tracks returned", func(t *testing.T) {
		tracks, err := tracksFromPlayerResp(mk("OK", "", true,
			captionTrack{BaseURL: "u1", LanguageCode: "hi"},
			captionTrack{BaseURL: "u2", LanguageCode: "en", Kind: "asr"},
		))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 2 || tracks[0].LanguageCode != "hi" {
			t.Fatalf("unexpected tracks: %v", tracks)
		}
	})
}

func TestTitleFromHTML(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"og title",
			`<html><head><meta property="og:title" content="Go Tutorial Part 1"><title>ignored</title></head></html>`,
			"Go Tutorial Part 1",
		},
		{
			"title fallback",
			`<html><head><title>Intro to Channels - YouTube</title></head></html>`,
			"Intro to Channels",
		},
		{
			"no title",
			`<html><body><p>nothing</p></body></html>`,
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := titleFromHTML([]byte(tt.body)); got != tt.want {
				t.Errorf("titleFromHTML = %q, want %q", got, tt.want)
			}
		})
	}
}
