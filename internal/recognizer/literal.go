package recognizer

import (
	"context"
	"strings"

	"golang.org/x/text/cases"

	"ieprep/internal/annotation"
	"ieprep/internal/gazetteer"
	"ieprep/internal/stage"
	"ieprep/internal/tokenizer"
)

// SourceGazetteer names the literal recognizer in merged annotations.
const SourceGazetteer = "gazetteer"

const phraseSep = "\x1f"

type phrase struct {
	kind string
	key  string
}

// Literal recognizes gazetteer aliases by greedy longest match over
// case-folded tokens.
type Literal struct {
	phrases map[string]phrase
	maxLen  int
}

// NewLiteral indexes every alias of g. When two entries share an alias the
// first one loaded wins.
func NewLiteral(g *gazetteer.Gazetteer) *Literal {
	l := &Literal{phrases: make(map[string]phrase)}
	if g == nil {
		return l
	}
	fold := cases.Fold()
	for _, entry := range g.Entries() {
		key := strings.Join(strings.Fields(fold.String(entry.Canonical)), " ")
		for _, alias := range entry.Aliases {
			tokens := tokenizer.Tokenize(alias)
			if len(tokens) == 0 {
				continue
			}
			words := make([]string, len(tokens))
			for i, tok := range tokens {
				words[i] = fold.String(tok.Text)
			}
			joined := strings.Join(words, phraseSep)
			if _, exists := l.phrases[joined]; exists {
				continue
			}
			l.phrases[joined] = phrase{kind: entry.Kind, key: key}
			if len(tokens) > l.maxLen {
				l.maxLen = len(tokens)
			}
		}
	}
	return l
}

func (l *Literal) Source() string { return SourceGazetteer }

// Len returns the number of indexed aliases.
func (l *Literal) Len() int { return len(l.phrases) }

func (l *Literal) Recognize(ctx context.Context, doc *annotation.Document) ([]annotation.Entity, error) {
	if err := stage.RequireTokens(annotation.StageNER, doc); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fold := cases.Fold()
	folded := make([]string, len(doc.Tokens))
	for i, tok := range doc.Tokens {
		folded[i] = fold.String(tok.Text)
	}

	var out []annotation.Entity
	for i := 0; i < len(folded); {
		matched := 0
		for n := min(l.maxLen, len(folded)-i); n > 0; n-- {
			p, ok := l.phrases[strings.Join(folded[i:i+n], phraseSep)]
			if !ok {
				continue
			}
			out = append(out, annotation.Entity{
				Start: i,
				End:   i + n,
				Kind:  p.kind,
				Key:   p.key,
				Alias: doc.SpanText(i, i+n),
			})
			matched = n
			break
		}
		if matched == 0 {
			matched = 1
		}
		i += matched
	}
	return out, nil
}
