package annotation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidPayload marks payloads that are inconsistent with their document.
var ErrInvalidPayload = errors.New("invalid payload")

func invalid(stage Stage, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidPayload, stage, fmt.Sprintf(format, args...))
}

// Validate checks that payload is a complete, well-formed result for stage
// given the annotations already present on doc.
func Validate(stage Stage, doc *Document, payload Payload) error {
	if doc == nil {
		return invalid(stage, "document is nil")
	}
	switch stage {
	case StageTokenize:
		return validateTokens(doc, payload)
	case StagePOSTag:
		if len(payload.PosTags) != len(doc.Tokens) {
			return invalid(stage, "got %d tags for %d tokens", len(payload.PosTags), len(doc.Tokens))
		}
		for i, tag := range payload.PosTags {
			if strings.TrimSpace(tag) == "" {
				return invalid(stage, "empty tag at token %d", i)
			}
		}
		return nil
	case StageNER:
		return validateEntities(len(doc.Tokens), payload.Entities)
	case StageSegmentation:
		return validateSegments(len(doc.Tokens), len(doc.Entities), payload.Segments)
	default:
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidPayload, stage)
	}
}

func validateTokens(doc *Document, payload Payload) error {
	tokens := payload.Tokens
	if len(tokens) == 0 {
		return invalid(StageTokenize, "no tokens")
	}
	last := -1
	for i, tok := range tokens {
		if tok.Text == "" {
			return invalid(StageTokenize, "empty token at %d", i)
		}
		if tok.Offset < last {
			return invalid(StageTokenize, "token offsets not ordered at %d", i)
		}
		if tok.Offset < 0 || tok.Offset+len(tok.Text) > len(doc.Text) {
			return invalid(StageTokenize, "token %d offset %d outside text", i, tok.Offset)
		}
		last = tok.Offset
	}

	sentences := payload.Sentences
	if len(sentences) == 0 {
		return invalid(StageTokenize, "no sentences")
	}
	if !sort.IntsAreSorted(sentences) {
		return invalid(StageTokenize, "sentences must be ordered")
	}
	for i := 1; i < len(sentences); i++ {
		if sentences[i] == sentences[i-1] {
			return invalid(StageTokenize, "sentences must not contain duplicates")
		}
	}
	if sentences[0] != 0 {
		return invalid(StageTokenize, "sentences must start with 0, got %d", sentences[0])
	}
	if end := sentences[len(sentences)-1]; end != len(tokens) {
		return invalid(StageTokenize, "sentences must end with token count %d, got %d", len(tokens), end)
	}
	return nil
}

func validateEntities(tokenCount int, entities []Entity) error {
	prevEnd := 0
	for i, e := range entities {
		if e.Start < 0 || e.End <= e.Start || e.End > tokenCount {
			return invalid(StageNER, "entity %d span (%d,%d) outside %d tokens", i, e.Start, e.End, tokenCount)
		}
		if strings.TrimSpace(e.Kind) == "" {
			return invalid(StageNER, "entity %d has no kind", i)
		}
		if i > 0 && e.Start < prevEnd {
			return invalid(StageNER, "entity %d overlaps or precedes entity %d", i, i-1)
		}
		prevEnd = e.End
	}
	return nil
}

func validateSegments(tokenCount, entityCount int, segments []Segment) error {
	for i, seg := range segments {
		if seg.Start < 0 || seg.End <= seg.Start || seg.End > tokenCount {
			return invalid(StageSegmentation, "segment %d range (%d,%d) outside %d tokens", i, seg.Start, seg.End, tokenCount)
		}
		for _, idx := range seg.Entities {
			if idx < 0 || idx >= entityCount {
				return invalid(StageSegmentation, "segment %d references unknown entity %d", i, idx)
			}
		}
	}
	return nil
}
