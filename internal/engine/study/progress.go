package study

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go_tutor/internal/engine"
)

// Tracker grades submitted answers and maintains per-set progress.
type Tracker struct {
	store Store

	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

// NewTracker creates a Tracker over the given store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, keys: make(map[string]*sync.Mutex)}
}

// SubmitResult is the outcome of grading one submission.
type SubmitResult struct {
	Question *QuestionItem `json:"question"`
	Correct  bool          `json:"correct"`
	Expected string        `json:"expected"`
}

// SubmitAnswer grades an answer against the stored question and bumps
// the question's attempt counters. The counters move on every
// submission, including repeats of an already-answered question.
func (t *Tracker) SubmitAnswer(ctx context.Context, questionID int64, answer string) (*SubmitResult, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, engine.ErrEmptyAnswer
	}

	q, err := t.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	correct := gradeAnswer(q.Answer, answer)
	if err := t.store.IncrementQuestionAttempt(ctx, questionID, correct); err != nil {
		return nil, fmt.Errorf("record attempt: %w", err)
	}
	q.Attempts++
	if correct {
		q.CorrectAttempts++
	}
	engine.IncrAnswerSubmissions()

	return &SubmitResult{Question: q, Correct: correct, Expected: q.Answer}, nil
}

// gradeAnswer compares trimmed, case-folded answer text.
func gradeAnswer(expected, got string) bool {
	return strings.EqualFold(strings.TrimSpace(expected), strings.TrimSpace(got))
}

// RecordProgress merges a graded submission into the (owner, video, type)
// progress record and recomputes the completion percentage. The
// merge-then-recompute pair runs under a per-set lock so two concurrent
// submissions cannot interleave between the two steps and persist a
// stale percentage.
func (t *Tracker) RecordProgress(ctx context.Context, q *QuestionItem, answer string, correct bool) (*ProgressRecord, error) {
	unlock := t.lockSet(q.OwnerID, q.VideoID, q.Type)
	defer unlock()

	rec, err := t.store.UpsertProgressAnswer(ctx, q.OwnerID, q.VideoID, q.Type, q.ID,
		AnswerEntry{Answer: answer, Correct: correct, SubmittedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}

	total, err := t.store.CountQuestions(ctx, q.OwnerID, q.VideoID, q.Type)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	percent := 0.0
	if total > 0 {
		percent = min(float64(len(rec.Answers))/float64(total)*100, 100)
	}
	if err := t.store.SetProgressPercent(ctx, q.OwnerID, q.VideoID, q.Type, percent); err != nil {
		return nil, err
	}
	rec.Percent = percent
	return rec, nil
}

func (t *Tracker) lockSet(ownerID, videoID string, qtype engine.QuestionType) func() {
	key := ownerID + "|" + videoID + "|" + string(qtype)
	t.mu.Lock()
	m, ok := t.keys[key]
	if !ok {
		m = &sync.Mutex{}
		t.keys[key] = m
	}
	t.mu.Unlock()
	m.Lock()
	return m.Unlock
}
