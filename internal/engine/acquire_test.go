package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeSource scripts ListTracks / FetchTrack responses.
type fakeSource struct {
	tracks     []CaptionTrack
	listErr    error
	fetchErrs  []error // consumed one per FetchTrack call
	snippets   []Snippet
	fetchCalls int
	fetchLangs []string
}

func (f *fakeSource) ListTracks(_ context.Context, _ string) ([]CaptionTrack, error) {
	return f.tracks, f.listErr
}

func (f *fakeSource) FetchTrack(_ context.Context, _ string, lang string) ([]Snippet, error) {
	f.fetchCalls++
	f.fetchLangs = append(f.fetchLangs, lang)
	if len(f.fetchErrs) > 0 {
		err := f.fetchErrs[0]
		f.fetchErrs = f.fetchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.snippets, nil
}

func newTestAcquirer(src CaptionSource, waits *[]time.Duration) *Acquirer {
	a := NewAcquirer(src)
	a.Retry.InitialWait = time.Millisecond
	a.Retry.MaxWait = time.Second
	a.Retry.Jitter = 0
	a.Retry.Sleep = func(_ context.Context, d time.Duration) error {
		if waits != nil {
			*waits = append(*waits, d)
		}
		return nil
	}
	return a
}

func TestAcquirePreferredLanguage(t *testing.T) {
	src := &fakeSource{
		tracks:   []CaptionTrack{{LanguageCode: "en"}},
		snippets: []Snippet{{Text: "hello", Start: 0, Duration: 1}},
	}
	a := newTestAcquirer(src, nil)

	snippets, lang, err := a.Acquire(context.Background(), "dQw4w9WgXcQ", []string{"hi", "en"})
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if lang != "en" {
		t.Errorf("resolved language = %q, want en", lang)
	}
	if len(snippets) != 1 || snippets[0].Text != "hello" {
		t.Errorf("unexpected snippets: %v", snippets)
	}
}

func TestAcquireFirstAvailableFallback(t *testing.T) {
	src := &fakeSource{
		tracks:   []CaptionTrack{{LanguageCode: "de"}, {LanguageCode: "fr"}},
		snippets: []Snippet{{Text: "hallo"}},
	}
	a := newTestAcquirer(src, nil)

	_, lang, err := a.Acquire(context.Background(), "dQw4w9WgXcQ", []string{"hi", "en"})
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if lang != "de" {
		t.Errorf("resolved language = %q, want first available (de)", lang)
	}
}

func TestAcquireNoTracks(t *testing.T) {
	a := newTestAcquirer(&fakeSource{}, nil)

	_, _, err := a.Acquire(context.Background(), "dQw4w9WgXcQ", []string{"en"})
	cause, ok := IsUnavailable(err)
	if !ok {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if cause != CauseNoTrack {
		t.Errorf("cause = %q, want %q", cause, CauseNoTrack)
	}
}

func TestAcquireCaptionsDisabled(t *testing.T) {
	a := newTestAcquirer(&fakeSource{listErr: ErrCaptionsDisabled}, nil)

	_, _, err := a.Acquire(context.Background(), "dQw4w9WgXcQ", []string{"en"})
	if cause, ok := IsUnavailable(err); !ok || cause != CauseDisabled {
		t.Errorf("expected disabled cause, got %v", err)
	}
}

func TestAcquireRetriesRateLimitThenSucceeds(t *testing.T) {
	src := &fakeSource{
		tracks:    []CaptionTrack{{LanguageCode: "en"}},
		fetchErrs: []error{ErrRateLimited, ErrRateLimited, ErrRateLimited, nil},
		snippets:  []Snippet{{Text: "finally"}},
	}
	var waits []time.Duration
	a := newTestAcquirer(src, &waits)

	snippets, _, err := a.Acquire(context.Background(), "dQw4w9WgXcQ", []string{"en"})
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if snippets[0].Text != "finally" {
		t.Errorf("unexpected snippets: %v", snippets)
	}
	if src.fetchCalls != 4 {
		t.Errorf("expected 4 fetch calls, got %d", src.fetchCalls)
	}
	if len(waits) != 3 {
		t.Fatalf("expected 3 waits, got %d", len(waits))
	}
	for i := 1; i < len(waits); i++ {
		if waits[i] <= waits[i-1] {
			t.Errorf("wait %d (%v) not greater than wait %d (%v)", i, waits[i], i-1, waits[i-1])
		}
	}
}

func TestAcquireRateLimitExhausted(t *testing.T) {
	src := &fakeSource{
		tracks:    []CaptionTrack{{LanguageCode: "en"}},
		fetchErrs: []error{ErrRateLimited, ErrRateLimited, ErrRateLimited, ErrRateLimited},
	}
	a := newTestAcquirer(src, nil)

	_, _, err := a.Acquire(context.Background(), "dQw4w9WgXcQ", []string{"en"})
	cause, ok := IsUnavailable(err)
	if !ok || cause != CauseRateLimited {
		t.Fatalf("expected rate-limit exhaustion, got %v", err)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Error("exhaustion error should carry the last transient cause")
	}
	if src.fetchCalls != 4 { // initial + 3 retries
		t.Errorf("expected 4 fetch calls, got %d", src.fetchCalls)
	}
}

func TestAcquirePermanentFetchErrorNotRetried(t *testing.T) {
	src := &fakeSource{
		tracks:    []CaptionTrack{{LanguageCode: "en"}},
		fetchErrs: []error{ErrVideoUnavailable},
	}
	a := newTestAcquirer(src, nil)

	_, _, err := a.Acquire(context.Background(), "dQw4w9WgXcQ", []string{"en"})
	if cause, ok := IsUnavailable(err); !ok || cause != CauseUnavailable {
		t.Fatalf("expected unavailable cause, got %v", err)
	}
	if src.fetchCalls != 1 {
		t.Errorf("permanent errors must not retry: %d calls", src.fetchCalls)
	}
}

func TestAcquireMalformedData(t *testing.T) {
	tests := []struct {
		name     string
		snippets []Snippet
	}{
		{"empty sequence", []Snippet{}},
		{"snippet without text", []Snippet{{Text: "ok"}, {Text: ""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{
				tracks:   []CaptionTrack{{LanguageCode: "en"}},
				snippets: tt.snippets,
			}
			a := newTestAcquirer(src, nil)
			_, _, err := a.Acquire(context.Background(), "dQw4w9WgXcQ", []string{"en"})
			if cause, ok := IsUnavailable(err); !ok || cause != CauseMalformed {
				t.Errorf("expected malformed cause, got %v", err)
			}
		})
	}
}
