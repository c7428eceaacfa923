package tagger_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"ieprep/internal/annotation"
	"ieprep/internal/config"
	"ieprep/internal/services"
	"ieprep/internal/services/annotator"
	"ieprep/internal/tagger"
	"ieprep/internal/tokenizer"
)

func tokenized(t *testing.T, text string) *annotation.Document {
	t.Helper()
	doc := &annotation.Document{ID: "doc-1", Text: text}
	payload, err := tokenizer.New(nil).Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	doc.Apply(annotation.StageTokenize, payload, time.Now())
	return doc
}

type stubExecutor struct {
	out string
	err error
}

func (s stubExecutor) Run(context.Context, string, []string, []byte) ([]byte, error) {
	return []byte(s.out), s.err
}

func (s stubExecutor) LookPath(binary string) (string, error) {
	return binary, s.err
}

func TestTagWord(t *testing.T) {
	tests := []struct {
		word    string
		initial bool
		want    string
	}{
		{"The", true, "DT"},
		{"Smith", false, "NNP"},
		{"Ann", true, "NNP"},
		{"NASA", true, "NNP"},
		{"Paris", false, "NNP"},
		{"running", false, "VBG"},
		{"Running", true, "VBG"},
		{"quickly", false, "RB"},
		{"cats", false, "NNS"},
		{"3,250.50", false, "CD"},
		{",", false, ","},
		{"?", false, "."},
		{"(", false, "-LRB-"},
		{"table", false, "NN"},
		{"will", false, "MD"},
	}
	for _, tt := range tests {
		if got := tagger.TagWord(tt.word, tt.initial); got != tt.want {
			t.Errorf("TagWord(%q, %v) = %q, want %q", tt.word, tt.initial, got, tt.want)
		}
	}
}

func TestBuiltinRunner(t *testing.T) {
	doc := tokenized(t, "Ann met Bob in Paris. They left.")
	runner, err := tagger.FromConfig(config.Tagger{Backend: config.TaggerBuiltin})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	payload, err := runner.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"NNP", "VBD", "NNP", "IN", "NNP", ".", "PRP", "VBD", "."}
	if !reflect.DeepEqual(payload.PosTags, want) {
		t.Fatalf("tags = %v, want %v", payload.PosTags, want)
	}
	if err := annotation.Validate(annotation.StagePOSTag, doc, payload); err != nil {
		t.Fatalf("payload invalid: %v", err)
	}
	if h := runner.HealthCheck(context.Background()); !h.Ready {
		t.Fatalf("builtin should be healthy: %+v", h)
	}
}

func TestRunnerRequiresTokens(t *testing.T) {
	_, err := tagger.New(tagger.Builtin{}).Run(context.Background(), &annotation.Document{Text: "x"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCommandBackend(t *testing.T) {
	cfg := config.Tagger{Backend: config.TaggerCommand, Command: "pos-tool", TimeoutSeconds: 5}
	doc := tokenized(t, "Hello there.")

	runner, err := tagger.FromConfig(cfg, annotator.WithExecutor(stubExecutor{out: `{"postags":["UH","RB","."]}`}))
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	payload, err := runner.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(payload.PosTags, []string{"UH", "RB", "."}) {
		t.Fatalf("unexpected tags %v", payload.PosTags)
	}

	short, err := tagger.FromConfig(cfg, annotator.WithExecutor(stubExecutor{out: `{"postags":["UH"]}`}))
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if _, err := short.Run(context.Background(), doc); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error for short reply, got %v", err)
	}
}

func TestFromConfigRejectsUnknownBackend(t *testing.T) {
	if _, err := tagger.FromConfig(config.Tagger{Backend: "neural"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
