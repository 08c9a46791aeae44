package tutorserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_tutor/internal/engine"
	"github.com/anatolykoptev/go_tutor/internal/engine/study"
	"github.com/anatolykoptev/go_tutor/internal/toolutil"
)

// AnswerSubmitOutput is the output for answer_submit.
type AnswerSubmitOutput struct {
	Correct         bool   `json:"correct"`
	Expected        string `json:"expected"`
	Attempts        int64  `json:"attempts"`
	CorrectAttempts int64  `json:"correct_attempts"`
}

// PracticeSubmitOutput is the output for practice_submit.
type PracticeSubmitOutput struct {
	Correct  bool    `json:"correct"`
	Expected string  `json:"expected"`
	Percent  float64 `json:"percent"`
	Answered int     `json:"answered"`
}

// PracticeSetsOutput is the output for practice_sets.
type PracticeSetsOutput struct {
	Sets  []study.PracticeSet `json:"sets"`
	Total int                 `json:"total"`
}

// PracticeQuestionsOutput is the output for practice_questions.
type PracticeQuestionsOutput struct {
	Questions []study.QuestionItem  `json:"questions"`
	Progress  *study.ProgressRecord `json:"progress,omitempty"`
}

func registerAnswerSubmit(server *mcp.Server, svc *study.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "answer_submit",
		Description: "Grade an answer against a stored question without affecting practice progress. Matching is case-insensitive and ignores surrounding whitespace. Get question ids from question_list.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.AnswerSubmitInput) (*mcp.CallToolResult, *AnswerSubmitOutput, error) {
		res, err := svc.SubmitAnswer(ctx, input.QuestionID, input.Answer)
		if err != nil {
			return nil, nil, submitErr(err, input.QuestionID)
		}
		return nil, &AnswerSubmitOutput{
			Correct:         res.Correct,
			Expected:        res.Expected,
			Attempts:        res.Question.Attempts,
			CorrectAttempts: res.Question.CorrectAttempts,
		}, nil
	})
}

func registerPracticeSubmit(server *mcp.Server, svc *study.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "practice_submit",
		Description: "Grade an answer and record it in the practice set's progress. Re-answering a question overwrites its recorded answer; the completion percentage counts each question once.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.PracticeSubmitInput) (*mcp.CallToolResult, *PracticeSubmitOutput, error) {
		res, rec, err := svc.PracticeSubmit(ctx, input.QuestionID, input.Answer)
		if err != nil {
			return nil, nil, submitErr(err, input.QuestionID)
		}
		return nil, &PracticeSubmitOutput{
			Correct:  res.Correct,
			Expected: res.Expected,
			Percent:  rec.Percent,
			Answered: len(rec.Answers),
		}, nil
	})
}

func registerPracticeSets(server *mcp.Server, svc *study.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "practice_sets",
		Description: "List available practice sets: one per (video, question type) pair, with question counts.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ engine.PracticeSetsInput) (*mcp.CallToolResult, *PracticeSetsOutput, error) {
		sets, err := svc.PracticeSets(ctx, toolutil.Owner(""))
		if err != nil {
			return nil, nil, err
		}
		return nil, &PracticeSetsOutput{Sets: sets, Total: len(sets)}, nil
	})
}

func registerPracticeQuestions(server *mcp.Server, svc *study.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "practice_questions",
		Description: "List one practice set's questions together with recorded progress. Requires the 11-character video id and a question type: novice, mcq, fill_blanks.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.PracticeQuestionsInput) (*mcp.CallToolResult, *PracticeQuestionsOutput, error) {
		if input.VideoID == "" {
			return nil, nil, errors.New("video_id is required")
		}
		items, rec, err := svc.PracticeQuestions(ctx, toolutil.Owner(""),
			input.VideoID, engine.QuestionType(input.QuestionType))
		if err != nil {
			return nil, nil, err
		}
		return nil, &PracticeQuestionsOutput{Questions: items, Progress: rec}, nil
	})
}

func submitErr(err error, questionID int64) error {
	if errors.Is(err, study.ErrNotFound) {
		return fmt.Errorf("question %d not found", questionID)
	}
	if errors.Is(err, engine.ErrEmptyAnswer) {
		return errors.New("answer must not be empty")
	}
	return err
}
