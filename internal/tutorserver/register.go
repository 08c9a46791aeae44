// Package tutorserver registers the go_tutor MCP tools: transcript
// management, question generation, answer grading, and practice
// progress tracking.
package tutorserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_tutor/internal/engine/study"
)

// RegisterTools registers all tutor tools on the given MCP server.
// The study service is injected; tools hold no other state.
func RegisterTools(server *mcp.Server, svc *study.Service) {
	registerTranscriptCreate(server, svc)
	registerTranscriptList(server, svc)
	registerTranscriptFavorite(server, svc)

	registerQuestionGenerate(server, svc)
	registerQuestionList(server, svc)
	registerQuestionFavorite(server, svc)

	registerAnswerSubmit(server, svc)
	registerPracticeSubmit(server, svc)
	registerPracticeSets(server, svc)
	registerPracticeQuestions(server, svc)
}
