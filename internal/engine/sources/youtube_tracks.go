package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go_tutor/internal/engine"
)

// Track resolution.
// Primary:  scrape watch page ytInitialPlayerResponse → captionTracks (works from any IP)
// Fallback: ANDROID Innertube /player → captionTracks

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// loadTracks resolves the caption tracks for a video, classifying
// playability problems into the engine's caption-source error classes.
func (y *YouTube) loadTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	body, err := y.fetchWatchPage(ctx, videoID)
	if err == nil {
		if tracks, perr := tracksFromWatchPage(body); perr == nil {
			return tracks, nil
		} else {
			slog.Warn("youtube: watch page gave no tracks, trying player",
				slog.String("id", videoID), slog.Any("err", perr))
		}
	} else {
		slog.Warn("youtube: watch page fetch failed, trying player",
			slog.String("id", videoID), slog.Any("err", err))
	}

	data, err := y.postPlayer(ctx, videoID)
	if err != nil {
		return nil, err
	}
	var playerResp innertubePlayerResp
	if err := json.Unmarshal(data, &playerResp); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return tracksFromPlayerResp(&playerResp)
}

// fetchWatchPage retrieves the watch-page HTML for a video.
func (y *YouTube) fetchWatchPage(ctx context.Context, videoID string) ([]byte, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	watchURL := "https://www.youtube.com/watch?v=" + videoID
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentChrome)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return y.http.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", mapUpstreamErr(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}
	return body, nil
}

// tracksFromWatchPage extracts caption tracks from ytInitialPlayerResponse
// embedded in watch-page HTML.
func tracksFromWatchPage(body []byte) ([]captionTrack, error) {
	idx := strings.Index(string(body), ytInitialPlayerResponseMarker)
	if idx < 0 {
		return nil, fmt.Errorf("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, fmt.Errorf("failed to extract ytInitialPlayerResponse JSON")
	}

	var playerResp innertubePlayerResp
	if err := json.Unmarshal(jsonData, &playerResp); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return tracksFromPlayerResp(&playerResp)
}

// tracksFromPlayerResp classifies a player response into tracks or a
// typed caption-source error.
func tracksFromPlayerResp(resp *innertubePlayerResp) ([]captionTrack, error) {
	if ps := resp.PlayabilityStatus; ps != nil && ps.Status != "" && ps.Status != "OK" {
		switch ps.Status {
		case "LOGIN_REQUIRED", "UNPLAYABLE", "ERROR":
			return nil, fmt.Errorf("%w: %s", engine.ErrVideoUnavailable, ps.Reason)
		}
	}
	if resp.Captions == nil {
		return nil, engine.ErrCaptionsDisabled
	}
	// Zero tracks with captions present is "nothing to pick", not "disabled";
	// the acquirer turns the empty set into its own no-track error.
	return resp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks, nil
}

// fetchTimedText fetches and parses a timedtext XML caption URL into
// timed snippets.
func (y *YouTube) fetchTimedText(ctx context.Context, baseURL string) ([]engine.Snippet, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return y.http.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", mapUpstreamErr(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, err
	}
	return parseTimedText(body)
}

// parseTimedText decodes timedtext XML into snippets, stripping the HTML
// tags and entities caption lines carry.
func parseTimedText(body []byte) ([]engine.Snippet, error) {
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	snippets := make([]engine.Snippet, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := engine.DecodeEntities(engine.CleanHTML(line.Text))
		if text == "" {
			continue
		}
		snippets = append(snippets, engine.Snippet{
			Text:     text,
			Start:    line.Start,
			Duration: line.Dur,
		})
	}
	return snippets, nil
}
