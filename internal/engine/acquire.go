package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Acquirer fetches a caption track for a video, walking language
// preferences in order and retrying rate-limit failures with backoff.
type Acquirer struct {
	Source CaptionSource
	Retry  RetryConfig
}

// AcquireRetryConfig retries only rate-limit signals; everything else a
// caption source reports is permanent.
var AcquireRetryConfig = RetryConfig{
	MaxRetries:  3,
	InitialWait: time.Second,
	MaxWait:     30 * time.Second,
	Multiplier:  2.0,
	Jitter:      0.1,
	Retryable:   IsRateLimited,
}

// NewAcquirer creates an Acquirer over the given caption source.
func NewAcquirer(src CaptionSource) *Acquirer {
	return &Acquirer{Source: src, Retry: AcquireRetryConfig}
}

// Acquire fetches the best caption track for videoID. The first language in
// prefs that the video offers wins; if none match but tracks exist, the
// first available track is used (fallback, not an error). Returns the raw
// snippet sequence and the resolved language code.
func (a *Acquirer) Acquire(ctx context.Context, videoID string, prefs []string) ([]Snippet, string, error) {
	tracks, err := a.Source.ListTracks(ctx, videoID)
	if err != nil {
		return nil, "", classifyUnavailable(videoID, err)
	}
	if len(tracks) == 0 {
		return nil, "", &UnavailableError{VideoID: videoID, Cause: CauseNoTrack}
	}

	lang := pickLanguage(tracks, prefs)
	if !containsLang(prefs, lang) {
		slog.Warn("no preferred caption language, falling back",
			slog.String("video", videoID), slog.String("lang", lang))
	}

	snippets, err := RetryDo(ctx, a.Retry, func() ([]Snippet, error) {
		return a.Source.FetchTrack(ctx, videoID, lang)
	})
	if err != nil {
		if IsRateLimited(err) {
			return nil, "", &UnavailableError{VideoID: videoID, Cause: CauseRateLimited, Err: err}
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, "", err
		}
		return nil, "", classifyUnavailable(videoID, err)
	}

	if err := validateSnippets(snippets); err != nil {
		return nil, "", &UnavailableError{VideoID: videoID, Cause: CauseMalformed, Err: err}
	}
	return snippets, lang, nil
}

// pickLanguage walks prefs in order and returns the first language the
// video offers; otherwise the first available track's language.
func pickLanguage(tracks []CaptionTrack, prefs []string) string {
	for _, lang := range prefs {
		for _, t := range tracks {
			if t.LanguageCode == lang {
				return lang
			}
		}
	}
	return tracks[0].LanguageCode
}

func containsLang(prefs []string, lang string) bool {
	for _, p := range prefs {
		if p == lang {
			return true
		}
	}
	return false
}

// validateSnippets rejects empty or structurally broken fetch results.
func validateSnippets(snippets []Snippet) error {
	if len(snippets) == 0 {
		return errors.New("empty snippet sequence")
	}
	for i, s := range snippets {
		if s.Text == "" {
			return fmt.Errorf("snippet %d has no text", i)
		}
	}
	return nil
}

func classifyUnavailable(videoID string, err error) error {
	cause := CauseUnavailable
	switch {
	case errors.Is(err, ErrCaptionsDisabled):
		cause = CauseDisabled
	case errors.Is(err, ErrNoTranscript):
		cause = CauseNoTrack
	case IsRateLimited(err):
		cause = CauseRateLimited
	}
	return &UnavailableError{VideoID: videoID, Cause: cause, Err: err}
}
