package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Generator produces typed question sets from transcript text. The LLM
// client is injected so call sites and tests control the lifecycle.
type Generator struct {
	Client Completer
}

// NewGenerator creates a Generator over the configured LLM client.
func NewGenerator() *Generator {
	return &Generator{Client: cfg.LLMClient}
}

// maxPromptRunes caps transcript text sent to the model.
const maxPromptRunes = 24000

// qaEnvelope is the JSON shape the model is instructed to return.
type qaEnvelope struct {
	Pairs []QAPair `json:"qa_pairs"`
}

// Generate builds the per-type instruction, invokes the completion service
// and extracts a validated question set from its output. Model output that
// cannot be parsed yields an empty slice, not an error — a batch of zero
// items is a reportable outcome the caller decides on. The only error
// returned is a failed completion call itself.
func (g *Generator) Generate(ctx context.Context, text string, qtype QuestionType) ([]QAPair, error) {
	instruction, ok := qaTypeInstructions[qtype]
	if !ok {
		instruction = qaTypeInstructions[TypeNovice]
		qtype = TypeNovice
	}

	// Long lecture transcripts can overflow the completion context.
	text = TruncateRunes(text, maxPromptRunes, "…")

	IncrLLMCalls()
	raw, err := g.Client.Complete(ctx, qaSystemPrompt, fmt.Sprintf(qaUserPrompt, instruction, text))
	if err != nil {
		IncrLLMErrors()
		return nil, fmt.Errorf("completion: %w", err)
	}

	pairs := ParseQAPairs(stripFences(raw))
	valid := make([]QAPair, 0, len(pairs))
	for _, p := range pairs {
		if !validQAPair(p, qtype) {
			slog.Debug("dropping invalid qa pair", slog.String("question", p.Question), slog.String("type", string(qtype)))
			continue
		}
		p.Type = qtype
		valid = append(valid, p)
	}
	return valid, nil
}

// ParseQAPairs recovers the qa_pairs list from free-form model text:
// stage one locates the outer braces, stage two decodes the envelope.
// A bare top-level array is accepted too. Anything unparsable yields nil.
func ParseQAPairs(raw string) []QAPair {
	obj := ExtractJSONObject(raw)
	if obj == nil {
		// Some models return the bare array without the envelope.
		if arr := extractJSONArray(raw); arr != nil {
			var pairs []QAPair
			if json.Unmarshal(arr, &pairs) == nil {
				return pairs
			}
		}
		return nil
	}

	var env qaEnvelope
	if err := json.Unmarshal(obj, &env); err != nil {
		slog.Warn("qa output not parseable", slog.Any("error", err))
		return nil
	}
	return env.Pairs
}

func extractJSONArray(raw string) []byte {
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end <= start {
		return nil
	}
	return []byte(raw[start : end+1])
}

// validQAPair checks the required field set for the item's type. Items
// missing fields are dropped rather than failing the whole batch.
// mcq items must carry exactly four options, one of them the answer.
func validQAPair(p QAPair, qtype QuestionType) bool {
	if strings.TrimSpace(p.Question) == "" || strings.TrimSpace(p.Answer) == "" {
		return false
	}
	if qtype == TypeMCQ {
		if len(p.Options) != 4 {
			return false
		}
		answer := strings.TrimSpace(p.Answer)
		for _, o := range p.Options {
			if strings.EqualFold(strings.TrimSpace(o), answer) {
				return true
			}
		}
		return false
	}
	return true
}
