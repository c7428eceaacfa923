package stage

import (
	"fmt"

	"ieprep/internal/annotation"
	"ieprep/internal/services"
)

// CheckPrerequisites verifies that every prerequisite is a known stage that
// precedes target. It returns a configuration error otherwise.
func CheckPrerequisites(target annotation.Stage, prereqs []annotation.Stage) error {
	if !target.Valid() {
		return services.Wrap(services.ErrConfiguration, string(target), "register", "unknown stage", nil)
	}
	for _, p := range prereqs {
		if !p.Before(target) {
			return services.Wrap(
				services.ErrConfiguration, string(target), "register",
				fmt.Sprintf("prerequisite %q must precede %q", p, target), nil)
		}
	}
	return nil
}

// RequireTokens fails with a validation error when doc carries no tokens.
func RequireTokens(stageName annotation.Stage, doc *annotation.Document) error {
	if doc == nil || len(doc.Tokens) == 0 {
		return services.Wrap(services.ErrValidation, string(stageName), "load tokens",
			"document has no tokens; rerun tokenize-sentence-split", nil)
	}
	return nil
}
