package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"ieprep/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "pos-tag", "invoke tagger", "tagger exited", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"pos-tag", "invoke tagger", "tagger exited", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
		kind  services.Kind
	}{
		{"validation", services.Wrap(services.ErrValidation, "tokenize", "", "empty text", nil), false, services.KindValidation},
		{"timeout", services.Wrap(services.ErrTimeout, "ner", "", "", nil), false, services.KindTimeout},
		{"tool error", services.Wrap(services.ErrExternalTool, "ner", "", "", nil), false, services.KindExternalTool},
		{"configuration", services.Wrap(services.ErrConfiguration, "ner", "", "", nil), true, services.KindConfiguration},
		{"unavailable", fmt.Errorf("outer: %w", services.Wrap(services.ErrUnavailable, "ner", "", "", nil)), true, services.KindUnavailable},
		{"unclassified", errors.New("disk full"), true, services.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.IsFatal(tt.err); got != tt.fatal {
				t.Fatalf("IsFatal = %v, want %v", got, tt.fatal)
			}
			if got := services.IsRecoverable(tt.err); got == tt.fatal {
				t.Fatalf("IsRecoverable = %v, want %v", got, !tt.fatal)
			}
			if got := services.KindOf(tt.err); got != tt.kind {
				t.Fatalf("KindOf = %q, want %q", got, tt.kind)
			}
		})
	}
	if services.IsFatal(nil) || services.IsRecoverable(nil) {
		t.Fatal("nil error must be neither fatal nor recoverable")
	}
}

func TestDetails(t *testing.T) {
	cause := errors.New("exit status 2")
	err := services.WithHint(
		services.Wrap(services.ErrExternalTool, "ner", "run recognizer", "recognizer failed", cause),
		"inspect recognizer stderr",
	)
	details := services.Details(err)
	if details.Kind != services.KindExternalTool {
		t.Fatalf("unexpected kind %q", details.Kind)
	}
	if details.Operation != "run recognizer" || details.Message != "recognizer failed" {
		t.Fatalf("unexpected details %+v", details)
	}
	if details.Hint != "inspect recognizer stderr" || details.Cause != cause {
		t.Fatalf("unexpected hint/cause %+v", details)
	}

	plain := services.Details(errors.New("plain"))
	if plain.Kind != services.KindUnknown || plain.Message != "plain" {
		t.Fatalf("unexpected plain details %+v", plain)
	}
}
