package stage

import (
	"errors"
	"testing"

	"ieprep/internal/annotation"
	"ieprep/internal/services"
)

func TestCheckPrerequisites(t *testing.T) {
	if err := CheckPrerequisites(annotation.StageNER, []annotation.Stage{annotation.StageTokenize, annotation.StagePOSTag}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := CheckPrerequisites(annotation.StagePOSTag, []annotation.Stage{annotation.StageNER})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for later prerequisite, got %v", err)
	}
	if err := CheckPrerequisites(annotation.StageTokenize, []annotation.Stage{annotation.StageTokenize}); err == nil {
		t.Fatal("expected error for self prerequisite")
	}
	if err := CheckPrerequisites("lemmas", nil); err == nil {
		t.Fatal("expected error for unknown stage")
	}
}

func TestRequireTokens(t *testing.T) {
	err := RequireTokens(annotation.StagePOSTag, &annotation.Document{})
	if !errors.Is(err, services.ErrValidation) || services.IsFatal(err) {
		t.Fatalf("expected recoverable validation error, got %v", err)
	}
	doc := &annotation.Document{Tokens: []annotation.Token{{Text: "a"}}}
	if err := RequireTokens(annotation.StagePOSTag, doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
