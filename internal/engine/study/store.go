// Package study persists transcripts, generated questions, and learner
// progress, and implements the grading and progress-tracking logic on top.
//
// Two Store implementations exist: postgres.go (pgx pool, shared
// deployments) and sqlite.go (local single-user file). Both satisfy the
// same interface; main picks one from the environment.
package study

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anatolykoptev/go_tutor/internal/engine"
)

// ErrNotFound is returned when a transcript, question, or progress
// record does not exist.
var ErrNotFound = errors.New("not found")

// DuplicateError is returned by InsertTranscriptIfAbsent when the owner
// already has a transcript for the video. Existing carries the stored
// record so callers can return it without a second lookup.
type DuplicateError struct {
	Existing *Transcript
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("transcript already exists for video %s (id=%d)",
		e.Existing.VideoID, e.Existing.ID)
}

// Transcript is a stored, formatted transcript owned by one user.
type Transcript struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"owner_id"`
	VideoID   string    `json:"video_id"`
	Title     string    `json:"title,omitempty"`
	Language  string    `json:"language,omitempty"`
	Text      string    `json:"text"`
	Favorite  bool      `json:"favorite"`
	CreatedAt time.Time `json:"created_at"`
}

// QuestionItem is one stored question of any type. Options is populated
// only for mcq items. Attempt counters are owned by the store and only
// move through IncrementQuestionAttempt.
type QuestionItem struct {
	ID              int64               `json:"id"`
	TranscriptID    int64               `json:"transcript_id"`
	OwnerID         string              `json:"owner_id"`
	VideoID         string              `json:"video_id"`
	Type            engine.QuestionType `json:"type"`
	Question        string              `json:"question"`
	Answer          string              `json:"answer"`
	Options         []string            `json:"options,omitempty"`
	Favorite        bool                `json:"favorite"`
	Attempts        int64               `json:"attempts"`
	CorrectAttempts int64               `json:"correct_attempts"`
	CreatedAt       time.Time           `json:"created_at"`
}

// AnswerEntry is one graded submission inside a progress record.
type AnswerEntry struct {
	Answer      string    `json:"answer"`
	Correct     bool      `json:"correct"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ProgressRecord tracks a learner's answers for one (owner, video, type)
// practice set. Answers is keyed by question id; re-submitting a question
// overwrites its entry, so the answered count never double-counts. The
// session counters move on every submission regardless, and StartedAt is
// set once when the record is first created.
type ProgressRecord struct {
	ID              int64                  `json:"id"`
	OwnerID         string                 `json:"owner_id"`
	VideoID         string                 `json:"video_id"`
	Type            engine.QuestionType    `json:"type"`
	Answers         map[string]AnswerEntry `json:"answers"`
	TotalAttempts   int64                  `json:"total_attempts"`
	CorrectAttempts int64                  `json:"correct_attempts"`
	Percent         float64                `json:"percent"`
	StartedAt       time.Time              `json:"started_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// PracticeSet summarizes one (video, type) group of stored questions
// with the owner's completion percentage, 0 when nothing is answered yet.
type PracticeSet struct {
	VideoID   string              `json:"video_id"`
	Title     string              `json:"title,omitempty"`
	Type      engine.QuestionType `json:"type"`
	Questions int                 `json:"questions"`
	Percent   float64             `json:"percent"`
}

// Store is the persistence contract. Implementations must make
// InsertTranscriptIfAbsent atomic under the (owner_id, video_id) unique
// key and IncrementQuestionAttempt safe under concurrent submissions.
type Store interface {
	// Transcripts.
	InsertTranscriptIfAbsent(ctx context.Context, t *Transcript) (*Transcript, error)
	GetTranscript(ctx context.Context, id int64) (*Transcript, error)
	FindTranscript(ctx context.Context, ownerID, videoID string) (*Transcript, error)
	ListTranscripts(ctx context.Context, ownerID string, favoritesOnly bool) ([]Transcript, error)
	ToggleTranscriptFavorite(ctx context.Context, id int64) (bool, error)

	// Questions.
	InsertQuestionBatch(ctx context.Context, items []QuestionItem) ([]QuestionItem, error)
	GetQuestion(ctx context.Context, id int64) (*QuestionItem, error)
	ListQuestions(ctx context.Context, transcriptID int64) ([]QuestionItem, error)
	ListQuestionsBySet(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType) ([]QuestionItem, error)
	ToggleQuestionFavorite(ctx context.Context, id int64) (bool, error)
	IncrementQuestionAttempt(ctx context.Context, id int64, correct bool) error
	CountQuestions(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType) (int, error)

	// Progress.
	UpsertProgressAnswer(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType, questionID int64, ans AnswerEntry) (*ProgressRecord, error)
	SetProgressPercent(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType, percent float64) error
	GetProgress(ctx context.Context, ownerID, videoID string, qtype engine.QuestionType) (*ProgressRecord, error)
	ListPracticeSets(ctx context.Context, ownerID string) ([]PracticeSet, error)

	Close()
}
