package study

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_tutor/internal/engine"
)

func seedQuestions(t *testing.T, store *memStore, n int) []QuestionItem {
	t.Helper()
	items := make([]QuestionItem, n)
	for i := range items {
		items[i] = QuestionItem{
			TranscriptID: 1,
			OwnerID:      "learner",
			VideoID:      "dQw4w9WgXcQ",
			Type:         engine.TypeNovice,
			Question:     "q",
			Answer:       "Answer",
		}
	}
	stored, err := store.InsertQuestionBatch(context.Background(), items)
	require.NoError(t, err)
	return stored
}

func TestSubmitAnswerGrading(t *testing.T) {
	store := newMemStore()
	qs := seedQuestions(t, store, 1)
	tracker := NewTracker(store)
	ctx := context.Background()

	tests := []struct {
		name    string
		answer  string
		correct bool
	}{
		{"exact", "Answer", true},
		{"case folded", "aNsWeR", true},
		{"surrounding space", "  answer  ", true},
		{"wrong", "something else", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tracker.SubmitAnswer(ctx, qs[0].ID, tt.answer)
			require.NoError(t, err)
			assert.Equal(t, tt.correct, res.Correct)
			assert.Equal(t, "Answer", res.Expected)
		})
	}

	q, err := store.GetQuestion(ctx, qs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), q.Attempts)
	assert.Equal(t, int64(3), q.CorrectAttempts)
}

func TestSubmitAnswerEmpty(t *testing.T) {
	store := newMemStore()
	qs := seedQuestions(t, store, 1)
	tracker := NewTracker(store)

	for _, answer := range []string{"", "   ", "\t\n"} {
		_, err := tracker.SubmitAnswer(context.Background(), qs[0].ID, answer)
		assert.ErrorIs(t, err, engine.ErrEmptyAnswer)
	}

	q, err := store.GetQuestion(context.Background(), qs[0].ID)
	require.NoError(t, err)
	assert.Zero(t, q.Attempts, "rejected submissions must not count as attempts")
}

func TestSubmitAnswerUnknownQuestion(t *testing.T) {
	tracker := NewTracker(newMemStore())
	_, err := tracker.SubmitAnswer(context.Background(), 999, "answer")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordProgressPercent(t *testing.T) {
	store := newMemStore()
	qs := seedQuestions(t, store, 4)
	tracker := NewTracker(store)
	ctx := context.Background()

	rec, err := tracker.RecordProgress(ctx, &qs[0], "Answer", true)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, rec.Percent, 0.001)

	rec, err = tracker.RecordProgress(ctx, &qs[1], "wrong", false)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, rec.Percent, 0.001)
	assert.Len(t, rec.Answers, 2)

	got, err := store.GetProgress(ctx, "learner", "dQw4w9WgXcQ", engine.TypeNovice)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, got.Percent, 0.001)
}

func TestRecordProgressResubmission(t *testing.T) {
	store := newMemStore()
	qs := seedQuestions(t, store, 4)
	tracker := NewTracker(store)
	ctx := context.Background()

	rec, err := tracker.RecordProgress(ctx, &qs[0], "wrong", false)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, rec.Percent, 0.001)

	// Same question again: entry overwritten, percent unchanged.
	rec, err = tracker.RecordProgress(ctx, &qs[0], "Answer", true)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, rec.Percent, 0.001)
	assert.Len(t, rec.Answers, 1)
	entry := rec.Answers["1"]
	assert.True(t, entry.Correct)
	assert.Equal(t, "Answer", entry.Answer)
	assert.False(t, entry.SubmittedAt.IsZero())
}

func TestRecordProgressSessionCounters(t *testing.T) {
	store := newMemStore()
	qs := seedQuestions(t, store, 4)
	tracker := NewTracker(store)
	ctx := context.Background()

	first, err := tracker.RecordProgress(ctx, &qs[0], "Answer", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.TotalAttempts)
	assert.Equal(t, int64(1), first.CorrectAttempts)
	assert.False(t, first.StartedAt.IsZero())

	_, err = tracker.RecordProgress(ctx, &qs[1], "wrong", false)
	require.NoError(t, err)

	// Resubmitting a question keeps the denominator but still counts
	// toward the session totals.
	rec, err := tracker.RecordProgress(ctx, &qs[1], "Answer", true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.TotalAttempts)
	assert.Equal(t, int64(2), rec.CorrectAttempts)
	assert.Len(t, rec.Answers, 2)
	assert.Equal(t, first.StartedAt, rec.StartedAt)
}

func TestRecordProgressSeparateSets(t *testing.T) {
	store := newMemStore()
	novice := seedQuestions(t, store, 2)

	mcq, err := store.InsertQuestionBatch(context.Background(), []QuestionItem{{
		TranscriptID: 1,
		OwnerID:      "learner",
		VideoID:      "dQw4w9WgXcQ",
		Type:         engine.TypeMCQ,
		Question:     "q",
		Answer:       "Answer",
		Options:      []string{"Answer", "b", "c", "d"},
	}})
	require.NoError(t, err)

	tracker := NewTracker(store)
	ctx := context.Background()

	recN, err := tracker.RecordProgress(ctx, &novice[0], "Answer", true)
	require.NoError(t, err)
	recM, err := tracker.RecordProgress(ctx, &mcq[0], "Answer", true)
	require.NoError(t, err)

	assert.InDelta(t, 50.0, recN.Percent, 0.001)
	assert.InDelta(t, 100.0, recM.Percent, 0.001)
}
