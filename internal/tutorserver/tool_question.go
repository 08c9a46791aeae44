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

// QuestionGenerateOutput is the output for question_generate.
type QuestionGenerateOutput struct {
	Questions []study.QuestionItem `json:"questions"`
	Count     int                  `json:"count"`
	Message   string               `json:"message"`
}

// QuestionListOutput is the output for question_list.
type QuestionListOutput struct {
	Questions []study.QuestionItem `json:"questions"`
	Total     int                  `json:"total"`
}

func registerQuestionGenerate(server *mcp.Server, svc *study.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "question_generate",
		Description: "Generate study questions from a stored transcript. Types: novice (open questions, default), mcq (multiple choice with 4 options), fill_blanks. Questions are in Hindi and appended to the transcript's question set.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.QuestionGenerateInput) (*mcp.CallToolResult, *QuestionGenerateOutput, error) {
		if input.TranscriptID <= 0 {
			return nil, nil, errors.New("transcript_id is required")
		}

		items, err := svc.GenerateQuestions(ctx, toolutil.Owner(""), input.TranscriptID, engine.QuestionType(input.QuestionType))
		if err != nil {
			if errors.Is(err, study.ErrNotFound) {
				return nil, nil, fmt.Errorf("transcript %d not found", input.TranscriptID)
			}
			return nil, nil, err
		}

		msg := fmt.Sprintf("Generated %d questions", len(items))
		if len(items) == 0 {
			msg = "The model produced no usable questions; try again"
		}
		return nil, &QuestionGenerateOutput{Questions: items, Count: len(items), Message: msg}, nil
	})
}

func registerQuestionList(server *mcp.Server, svc *study.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "question_list",
		Description: "List all stored questions for a transcript, across all question types. Get transcript ids from transcript_list.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.QuestionListInput) (*mcp.CallToolResult, *QuestionListOutput, error) {
		if input.TranscriptID <= 0 {
			return nil, nil, errors.New("transcript_id is required")
		}
		items, err := svc.Store().ListQuestions(ctx, input.TranscriptID)
		if err != nil {
			return nil, nil, err
		}
		return nil, &QuestionListOutput{Questions: items, Total: len(items)}, nil
	})
}

func registerQuestionFavorite(server *mcp.Server, svc *study.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "question_favorite",
		Description: "Toggle the favorite flag on a question by id. Get ids from question_list.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.FavoriteToggleInput) (*mcp.CallToolResult, *FavoriteOutput, error) {
		if input.ID <= 0 {
			return nil, nil, errors.New("id is required")
		}
		fav, err := svc.Store().ToggleQuestionFavorite(ctx, input.ID)
		if err != nil {
			if errors.Is(err, study.ErrNotFound) {
				return nil, nil, fmt.Errorf("question %d not found", input.ID)
			}
			return nil, nil, err
		}
		return nil, &FavoriteOutput{ID: input.ID, Favorite: fav}, nil
	})
}
