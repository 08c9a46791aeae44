package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors surfaced by the pipeline. Callers branch with errors.Is.
var (
	// ErrInvalidReference means the video reference matched no known shape.
	ErrInvalidReference = errors.New("invalid video reference")

	// ErrEmptyTranscript means formatting produced no text.
	ErrEmptyTranscript = errors.New("transcript empty after formatting")

	// ErrEmptyAnswer rejects blank answer submissions before any counter moves.
	ErrEmptyAnswer = errors.New("answer cannot be empty")
)

// UnavailableCause classifies why a transcript could not be acquired.
type UnavailableCause string

const (
	CauseDisabled    UnavailableCause = "captions_disabled"
	CauseUnavailable UnavailableCause = "video_unavailable"
	CauseNoTrack     UnavailableCause = "no_track"
	CauseRateLimited UnavailableCause = "rate_limit_exhausted"
	CauseMalformed   UnavailableCause = "malformed_data"
)

// UnavailableError reports a failed acquisition with its cause class.
// Rate-limit exhaustion carries the last transient error in Err.
type UnavailableError struct {
	VideoID string
	Cause   UnavailableCause
	Err     error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcript unavailable for %s (%s): %v", e.VideoID, e.Cause, e.Err)
	}
	return fmt.Sprintf("transcript unavailable for %s (%s)", e.VideoID, e.Cause)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is a transcript-unavailable error,
// optionally returning its cause.
func IsUnavailable(err error) (UnavailableCause, bool) {
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return ue.Cause, true
	}
	return "", false
}

// Caption source error classes. The production source maps upstream
// responses onto these; fakes return them directly.
var (
	ErrCaptionsDisabled = errors.New("captions disabled")
	ErrVideoUnavailable = errors.New("video unavailable")
	ErrNoTranscript     = errors.New("no transcript for language")
	ErrRateLimited      = errors.New("rate limited")
)

// IsRateLimited reports whether err is a transient rate-limit signal.
// Besides the sentinel, a 429 status or the literal "rate limit" marker in
// an upstream message counts — caption providers are not consistent.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var httpErr *httpStatusError
	if errors.As(err, &httpErr) && httpErr.StatusCode == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}
