package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_tutor/internal/engine"
	"github.com/anatolykoptev/go_tutor/internal/toolutil"
)

// TitleFetcher resolves a display title for a video. Failures return ""
// rather than an error; titles never block transcript creation.
type TitleFetcher interface {
	FetchTitle(ctx context.Context, videoID string) string
}

// Service wires acquisition, formatting, generation, and grading over a
// Store. One instance serves all tools.
type Service struct {
	store    Store
	acquirer *engine.Acquirer
	gen      *engine.Generator
	titles   TitleFetcher
	tracker  *Tracker
}

// NewService builds a Service over the given store and caption source.
// titles may be nil.
func NewService(store Store, src engine.CaptionSource, titles TitleFetcher) *Service {
	return &Service{
		store:    store,
		acquirer: engine.NewAcquirer(src),
		gen:      engine.NewGenerator(),
		titles:   titles,
		tracker:  NewTracker(store),
	}
}

// Store exposes the underlying store for list and toggle operations.
func (s *Service) Store() Store { return s.store }

// cachedTranscript is the caption-level cache payload, keyed by video
// and language preference so a re-request skips the upstream fetch even
// when the transcript ended up stored under a different owner.
type cachedTranscript struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// CreateFromVideo resolves a video reference, acquires and formats its
// transcript, and stores it for the owner. If the owner already has a
// transcript for the video, the stored record is returned with
// created=false and no network work is done.
func (s *Service) CreateFromVideo(ctx context.Context, ownerID, ref, title string, langs []string) (t *Transcript, created bool, err error) {
	videoID, err := engine.ExtractVideoID(ref)
	if err != nil {
		return nil, false, err
	}
	engine.IncrTranscriptRequests()

	if existing, err := s.store.FindTranscript(ctx, ownerID, videoID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("lookup transcript: %w", err)
	}

	if len(langs) == 0 {
		langs = engine.Cfg.LanguagePrefs
	}

	text, lang, err := s.acquireText(ctx, videoID, langs)
	if err != nil {
		return nil, false, err
	}

	if title == "" && s.titles != nil {
		title = s.titles.FetchTitle(ctx, videoID)
	}

	stored, err := s.store.InsertTranscriptIfAbsent(ctx, &Transcript{
		OwnerID:  ownerID,
		VideoID:  videoID,
		Title:    title,
		Language: lang,
		Text:     text,
	})
	var dup *DuplicateError
	if errors.As(err, &dup) {
		// Lost a concurrent race for the same video: the other
		// writer's record wins.
		return dup.Existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	slog.Info("transcript created",
		slog.String("video", videoID),
		slog.String("lang", lang),
		slog.Int("chars", len(text)))
	return stored, true, nil
}

// acquireText fetches and formats the transcript, consulting the cache
// first. The whole acquisition runs under the configured deadline,
// retries included.
func (s *Service) acquireText(ctx context.Context, videoID string, langs []string) (string, string, error) {
	key := engine.CacheKey("transcript", videoID, strings.Join(langs, ","))
	if c, ok := toolutil.CacheLoadJSON[cachedTranscript](ctx, key); ok && c.Text != "" {
		return c.Text, c.Language, nil
	}

	actx, cancel := context.WithTimeout(ctx, engine.Cfg.AcquireTimeout)
	defer cancel()

	snippets, lang, err := s.acquirer.Acquire(actx, videoID, langs)
	if err != nil {
		return "", "", err
	}
	text, err := engine.FormatSnippets(snippets)
	if err != nil {
		return "", "", err
	}

	toolutil.CacheStoreJSON(ctx, key, cachedTranscript{Text: text, Language: lang})
	return text, lang, nil
}

// GenerateQuestions generates a batch of questions of the given type
// from one of the owner's transcripts and appends them to the
// transcript's set. An empty batch (the model produced nothing usable)
// is not an error.
func (s *Service) GenerateQuestions(ctx context.Context, ownerID string, transcriptID int64, qtype engine.QuestionType) ([]QuestionItem, error) {
	if qtype == "" {
		qtype = engine.TypeNovice
	}
	if !engine.ValidQuestionType(qtype) {
		return nil, fmt.Errorf("unsupported question type %q (valid: novice, mcq, fill_blanks)", qtype)
	}

	t, err := s.store.GetTranscript(ctx, transcriptID)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != ownerID {
		return nil, ErrNotFound
	}

	pairs, err := s.gen.Generate(ctx, t.Text, qtype)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		slog.Warn("generation produced no usable pairs",
			slog.String("video", t.VideoID), slog.String("type", string(qtype)))
		return nil, nil
	}

	items := make([]QuestionItem, 0, len(pairs))
	for _, p := range pairs {
		items = append(items, QuestionItem{
			TranscriptID: t.ID,
			OwnerID:      t.OwnerID,
			VideoID:      t.VideoID,
			Type:         p.Type,
			Question:     p.Question,
			Answer:       p.Answer,
			Options:      p.Options,
		})
	}

	stored, err := s.store.InsertQuestionBatch(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("store question batch: %w", err)
	}
	engine.IncrQABatches()
	return stored, nil
}

// SubmitAnswer grades an answer without touching progress.
func (s *Service) SubmitAnswer(ctx context.Context, questionID int64, answer string) (*SubmitResult, error) {
	return s.tracker.SubmitAnswer(ctx, questionID, answer)
}

// PracticeSubmit grades an answer and folds it into the set's progress.
func (s *Service) PracticeSubmit(ctx context.Context, questionID int64, answer string) (*SubmitResult, *ProgressRecord, error) {
	res, err := s.tracker.SubmitAnswer(ctx, questionID, answer)
	if err != nil {
		return nil, nil, err
	}
	rec, err := s.tracker.RecordProgress(ctx, res.Question, answer, res.Correct)
	if err != nil {
		return nil, nil, fmt.Errorf("record progress: %w", err)
	}
	return res, rec, nil
}

// PracticeSets lists the owner's practice sets with question counts.
func (s *Service) PracticeSets(ctx context.Context, ownerID string) ([]PracticeSet, error) {
	return s.store.ListPracticeSets(ctx, ownerID)
}

// PracticeQuestions returns one practice set's questions together with
// the owner's progress over it, if any.
func (s *Service) PracticeQuestions(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType) ([]QuestionItem, *ProgressRecord, error) {
	if !engine.ValidQuestionType(qtype) {
		return nil, nil, fmt.Errorf("unsupported question type %q (valid: novice, mcq, fill_blanks)", qtype)
	}
	items, err := s.store.ListQuestionsBySet(ctx, ownerID, videoID, qtype)
	if err != nil {
		return nil, nil, err
	}
	rec, err := s.store.GetProgress(ctx, ownerID, videoID, qtype)
	if errors.Is(err, ErrNotFound) {
		return items, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return items, rec, nil
}
