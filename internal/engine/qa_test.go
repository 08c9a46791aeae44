package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/anatolykoptev/go-kit/llm"
)

// fakeCompleter returns a scripted response.
type fakeCompleter struct {
	resp string
	err  error

	system string
	prompt string
}

func (f *fakeCompleter) Complete(_ context.Context, system, prompt string, _ ...llm.ChatOption) (string, error) {
	f.system = system
	f.prompt = prompt
	return f.resp, f.err
}

func TestParseQAPairs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{
			name: "clean object",
			raw:  `{"qa_pairs":[{"question":"Q","answer":"A","type":"novice"}]}`,
			want: 1,
		},
		{
			name: "noise around object",
			raw:  `noise {"qa_pairs":[{"question":"Q","answer":"A","type":"novice"}]} trailing`,
			want: 1,
		},
		{
			name: "bare array",
			raw:  `[{"question":"Q1","answer":"A1"},{"question":"Q2","answer":"A2"}]`,
			want: 2,
		},
		{
			name: "no braces at all",
			raw:  "I could not generate questions for this text.",
			want: 0,
		},
		{
			name: "broken json inside braces",
			raw:  `{"qa_pairs": [{"question": "Q", `,
			want: 0,
		},
		{
			name: "empty input",
			raw:  "",
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseQAPairs(tt.raw)
			if len(got) != tt.want {
				t.Errorf("ParseQAPairs() returned %d pairs, want %d", len(got), tt.want)
			}
		})
	}
}

func TestGenerateExtractsFromNoisyOutput(t *testing.T) {
	fake := &fakeCompleter{
		resp: "noise {\"qa_pairs\":[{\"question\":\"Q\",\"answer\":\"A\",\"type\":\"novice\"}]} trailing",
	}
	g := &Generator{Client: fake}

	pairs, err := g.Generate(context.Background(), "some transcript", TypeNovice)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0].Question != "Q" || pairs[0].Answer != "A" {
		t.Errorf("unexpected pair: %+v", pairs[0])
	}
	if fake.system == "" {
		t.Error("system prompt not sent")
	}
}

func TestGenerateUnparsableIsEmptyNotError(t *testing.T) {
	fake := &fakeCompleter{resp: "sorry, no json here"}
	g := &Generator{Client: fake}

	pairs, err := g.Generate(context.Background(), "text", TypeNovice)
	if err != nil {
		t.Fatalf("unparsable output must not error: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("expected empty batch, got %d", len(pairs))
	}
}

func TestGenerateDropsInvalidItems(t *testing.T) {
	fake := &fakeCompleter{
		resp: `{"qa_pairs":[
			{"question":"good","answer":"a","type":"mcq","options":["a","b","c","d"]},
			{"question":"no options","answer":"a","type":"mcq"},
			{"question":"","answer":"a","type":"mcq","options":["a","b"]},
			{"question":"no answer","answer":"","type":"mcq","options":["a","b"]}
		]}`,
	}
	g := &Generator{Client: fake}

	pairs, err := g.Generate(context.Background(), "text", TypeMCQ)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected only the valid mcq item, got %d", len(pairs))
	}
	if pairs[0].Question != "good" || len(pairs[0].Options) != 4 {
		t.Errorf("unexpected survivor: %+v", pairs[0])
	}
}

func TestValidQAPairMCQShape(t *testing.T) {
	tests := []struct {
		name string
		pair QAPair
		want bool
	}{
		{"four options with answer", QAPair{Question: "q", Answer: "a", Options: []string{"a", "b", "c", "d"}}, true},
		{"answer matched case-insensitively", QAPair{Question: "q", Answer: "Delhi", Options: []string{"delhi ", "b", "c", "d"}}, true},
		{"three options", QAPair{Question: "q", Answer: "a", Options: []string{"a", "b", "c"}}, false},
		{"five options", QAPair{Question: "q", Answer: "a", Options: []string{"a", "b", "c", "d", "e"}}, false},
		{"answer missing from options", QAPair{Question: "q", Answer: "z", Options: []string{"a", "b", "c", "d"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validQAPair(tt.pair, TypeMCQ); got != tt.want {
				t.Errorf("validQAPair = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateStampsTypeTag(t *testing.T) {
	fake := &fakeCompleter{
		resp: `{"qa_pairs":[{"question":"Q","answer":"A","type":"something else"}]}`,
	}
	g := &Generator{Client: fake}

	pairs, err := g.Generate(context.Background(), "text", TypeFillBlanks)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if pairs[0].Type != TypeFillBlanks {
		t.Errorf("type tag = %q, want %q", pairs[0].Type, TypeFillBlanks)
	}
}

func TestGenerateCompletionError(t *testing.T) {
	wantErr := errors.New("upstream down")
	g := &Generator{Client: &fakeCompleter{err: wantErr}}

	_, err := g.Generate(context.Background(), "text", TypeNovice)
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped completion error, got %v", err)
	}
}

func TestStripFences(t *testing.T) {
	raw := "```json\n{\"qa_pairs\":[]}\n```"
	if got := stripFences(raw); got != `{"qa_pairs":[]}` {
		t.Errorf("stripFences() = %q", got)
	}
}
