package engine

import "context"

// --- Caption types ---

// Snippet is one timed unit of caption text.
type Snippet struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// CaptionTrack describes one language track available for a video.
type CaptionTrack struct {
	LanguageCode string `json:"language_code"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// CaptionSource lists and fetches caption tracks for a video.
// The production implementation lives in internal/engine/sources.
type CaptionSource interface {
	ListTracks(ctx context.Context, videoID string) ([]CaptionTrack, error)
	FetchTrack(ctx context.Context, videoID, lang string) ([]Snippet, error)
}

// --- Question types ---

// QuestionType tags a generated question set.
type QuestionType string

const (
	TypeNovice     QuestionType = "novice"
	TypeMCQ        QuestionType = "mcq"
	TypeFillBlanks QuestionType = "fill_blanks"
)

// ValidQuestionType reports whether qt is a supported question type.
func ValidQuestionType(qt QuestionType) bool {
	switch qt {
	case TypeNovice, TypeMCQ, TypeFillBlanks:
		return true
	}
	return false
}

// QuestionTypes lists the supported question types.
func QuestionTypes() []QuestionType {
	return []QuestionType{TypeNovice, TypeMCQ, TypeFillBlanks}
}

// QAPair is one generated question/answer unit. Options is present only
// for mcq items: the correct answer plus distractors, order unspecified.
type QAPair struct {
	Question string       `json:"question"`
	Answer   string       `json:"answer"`
	Type     QuestionType `json:"type"`
	Options  []string     `json:"options,omitempty"`
}

// --- Tool inputs (MCP surface) ---

type TranscriptCreateInput struct {
	VideoURL  string   `json:"video_url" jsonschema:"Video reference: watch URL, youtu.be short link, embed URL, or bare 11-char id"`
	Title     string   `json:"title,omitempty" jsonschema:"Optional title; scraped from the watch page when empty"`
	Languages []string `json:"languages,omitempty" jsonschema:"Ordered caption language preferences (default: hi, en)"`
}

type TranscriptListInput struct {
	FavoritesOnly bool `json:"favorites_only,omitempty" jsonschema:"Return only favorited transcripts"`
}

type QuestionGenerateInput struct {
	TranscriptID int64  `json:"transcript_id" jsonschema:"Transcript to generate questions from"`
	QuestionType string `json:"question_type,omitempty" jsonschema:"Question type: novice (default), mcq, fill_blanks"`
}

type QuestionListInput struct {
	TranscriptID int64 `json:"transcript_id" jsonschema:"Transcript whose questions to list"`
}

type AnswerSubmitInput struct {
	QuestionID int64  `json:"question_id" jsonschema:"Question being answered"`
	Answer     string `json:"answer" jsonschema:"Submitted answer text"`
}

type PracticeSubmitInput struct {
	QuestionID int64  `json:"question_id" jsonschema:"Question being answered"`
	Answer     string `json:"answer" jsonschema:"Submitted answer text"`
}

type PracticeSetsInput struct{}

type PracticeQuestionsInput struct {
	VideoID      string `json:"video_id" jsonschema:"11-char video id of the practice set"`
	QuestionType string `json:"question_type" jsonschema:"Question type: novice, mcq, fill_blanks"`
}

type FavoriteToggleInput struct {
	ID int64 `json:"id" jsonschema:"Record id to toggle"`
}
