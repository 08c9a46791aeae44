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

// TranscriptCreateOutput is the output for transcript_create.
type TranscriptCreateOutput struct {
	Transcript *study.Transcript `json:"transcript"`
	Created    bool              `json:"created"`
	Message    string            `json:"message"`
}

// TranscriptListOutput is the output for transcript_list.
type TranscriptListOutput struct {
	Transcripts []study.Transcript `json:"transcripts"`
	Total       int                `json:"total"`
}

// FavoriteOutput is the output for favorite toggles.
type FavoriteOutput struct {
	ID       int64 `json:"id"`
	Favorite bool  `json:"favorite"`
}

func registerTranscriptCreate(server *mcp.Server, svc *study.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcript_create",
		Description: "Fetch a YouTube video's captions, format them into a clean transcript, and store it. Accepts a watch URL, youtu.be link, embed URL, or bare 11-character video id. If a transcript for the video already exists, returns the stored one without refetching.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.TranscriptCreateInput) (*mcp.CallToolResult, *TranscriptCreateOutput, error) {
		if input.VideoURL == "" {
			return nil, nil, errors.New("video_url is required")
		}

		owner := toolutil.Owner("")
		t, created, err := svc.CreateFromVideo(ctx, owner, input.VideoURL, input.Title, input.Languages)
		if err != nil {
			return nil, nil, userFacingErr(err)
		}

		msg := fmt.Sprintf("Transcript for video %s stored (id=%d, lang=%s, %d chars)",
			t.VideoID, t.ID, t.Language, len(t.Text))
		if !created {
			msg = fmt.Sprintf("Transcript for video %s already exists (id=%d)", t.VideoID, t.ID)
		}
		return nil, &TranscriptCreateOutput{Transcript: t, Created: created, Message: msg}, nil
	})
}

func registerTranscriptList(server *mcp.Server, svc *study.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcript_list",
		Description: "List stored transcripts, newest first. Set favorites_only to filter to favorited ones.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.TranscriptListInput) (*mcp.CallToolResult, *TranscriptListOutput, error) {
		list, err := svc.Store().ListTranscripts(ctx, toolutil.Owner(""), input.FavoritesOnly)
		if err != nil {
			return nil, nil, err
		}
		return nil, &TranscriptListOutput{Transcripts: list, Total: len(list)}, nil
	})
}

func registerTranscriptFavorite(server *mcp.Server, svc *study.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcript_favorite",
		Description: "Toggle the favorite flag on a stored transcript by id. Get ids from transcript_list.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.FavoriteToggleInput) (*mcp.CallToolResult, *FavoriteOutput, error) {
		if input.ID <= 0 {
			return nil, nil, errors.New("id is required")
		}
		fav, err := svc.Store().ToggleTranscriptFavorite(ctx, input.ID)
		if err != nil {
			if errors.Is(err, study.ErrNotFound) {
				return nil, nil, fmt.Errorf("transcript %d not found", input.ID)
			}
			return nil, nil, err
		}
		return nil, &FavoriteOutput{ID: input.ID, Favorite: fav}, nil
	})
}

// userFacingErr rewrites acquisition errors into messages an MCP client
// can show a learner directly.
func userFacingErr(err error) error {
	if cause, ok := engine.IsUnavailable(err); ok {
		switch cause {
		case engine.CauseDisabled:
			return errors.New("captions are disabled for this video")
		case engine.CauseNoTrack:
			return errors.New("this video has no caption track to fetch")
		case engine.CauseRateLimited:
			return errors.New("caption service is rate limiting; try again in a minute")
		case engine.CauseMalformed:
			return errors.New("the caption track could not be parsed")
		default:
			return errors.New("this video is unavailable (private, removed, or region-locked)")
		}
	}
	if errors.Is(err, engine.ErrInvalidReference) {
		return errors.New("not a recognizable YouTube URL or 11-character video id")
	}
	return err
}
