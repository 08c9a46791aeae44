// Package sources implements engine.CaptionSource against YouTube.
//
// The implementation is split across three files by responsibility:
//
//	youtube_innertube.go — Innertube API types, constants, and low-level HTTP primitives
//	youtube_tracks.go    — track listing and timedtext fetching (watch-page scrape
//	                       with ANDROID player fallback)
//	youtube_title.go     — video title extraction from watch-page HTML
package sources

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_tutor/internal/engine"
)

// YouTube is a caption source over the public Innertube endpoints.
// A client-side rate limiter keeps request bursts below what reliably
// triggers upstream 429s from datacenter IPs.
type YouTube struct {
	http    *http.Client
	limiter *rate.Limiter

	mu     sync.Mutex
	tracks map[string]trackset // videoID → resolved tracks, short-lived
}

// trackSetTTL bounds how long resolved track URLs are reused between
// ListTracks and FetchTrack. Caption URLs expire server-side after a while.
const trackSetTTL = 5 * time.Minute

type trackset struct {
	tracks    []captionTrack
	fetchedAt time.Time
}

// NewYouTube creates a YouTube caption source. hc may be nil to use the
// engine's configured HTTP client.
func NewYouTube(hc *http.Client) *YouTube {
	if hc == nil {
		hc = engine.Cfg.HTTPClient
	}
	return &YouTube{
		http:    hc,
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		tracks:  make(map[string]trackset),
	}
}

// ListTracks returns the caption tracks a video offers.
// Implements engine.CaptionSource.
func (y *YouTube) ListTracks(ctx context.Context, videoID string) ([]engine.CaptionTrack, error) {
	engine.IncrTrackListRequests()

	tracks, err := y.resolveTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}

	out := make([]engine.CaptionTrack, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, engine.CaptionTrack{LanguageCode: t.LanguageCode, Kind: t.Kind})
	}
	return out, nil
}

// FetchTrack fetches one language track as a timed snippet sequence.
// Implements engine.CaptionSource.
func (y *YouTube) FetchTrack(ctx context.Context, videoID, lang string) ([]engine.Snippet, error) {
	engine.IncrTrackFetchRequests()

	tracks, err := y.resolveTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}

	track, ok := findTrack(tracks, lang)
	if !ok {
		return nil, engine.ErrNoTranscript
	}
	return y.fetchTimedText(ctx, track.BaseURL)
}

// resolveTracks returns the raw caption tracks for a video, reusing a
// recent resolution when available.
func (y *YouTube) resolveTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	y.mu.Lock()
	if ts, ok := y.tracks[videoID]; ok && time.Since(ts.fetchedAt) < trackSetTTL {
		y.mu.Unlock()
		return ts.tracks, nil
	}
	y.mu.Unlock()

	tracks, err := y.loadTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}

	y.mu.Lock()
	y.tracks[videoID] = trackset{tracks: tracks, fetchedAt: time.Now()}
	y.mu.Unlock()
	return tracks, nil
}

// findTrack prefers a manual track in lang over an auto-generated one.
func findTrack(tracks []captionTrack, lang string) (captionTrack, bool) {
	for _, t := range tracks {
		if t.LanguageCode == lang && t.Kind != "asr" {
			return t, true
		}
	}
	for _, t := range tracks {
		if t.LanguageCode == lang {
			return t, true
		}
	}
	return captionTrack{}, false
}
