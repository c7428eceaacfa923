package tokenizer

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"ieprep/internal/annotation"
	"ieprep/internal/logging"
	"ieprep/internal/services"
)

// Runner tokenizes document text and finds sentence starts.
type Runner struct {
	abbreviations map[string]struct{}
	logger        *slog.Logger
}

// New builds a runner. Abbreviations are matched case-insensitively without
// their trailing period.
func New(abbreviations []string) *Runner {
	set := make(map[string]struct{}, len(abbreviations))
	for _, abbr := range abbreviations {
		abbr = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(abbr)), ".")
		if abbr != "" {
			set[abbr] = struct{}{}
		}
	}
	return &Runner{abbreviations: set, logger: logging.NewNop()}
}

func (r *Runner) Stage() annotation.Stage { return annotation.StageTokenize }

func (r *Runner) Prerequisites() []annotation.Stage { return nil }

// SetLogger implements stage.LoggerAware.
func (r *Runner) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Run tokenizes doc.Text.
func (r *Runner) Run(ctx context.Context, doc *annotation.Document) (annotation.Payload, error) {
	if err := ctx.Err(); err != nil {
		return annotation.Payload{}, err
	}
	if !utf8.ValidString(doc.Text) {
		return annotation.Payload{}, services.Wrap(services.ErrValidation, string(r.Stage()), "read text",
			"text is not valid UTF-8", nil)
	}
	tokens := Tokenize(doc.Text)
	if len(tokens) == 0 {
		return annotation.Payload{}, services.WithHint(
			services.Wrap(services.ErrValidation, string(r.Stage()), "read text", "document has no text", nil),
			"remove the document or re-ingest it with content",
		)
	}
	sentences := r.SplitSentences(tokens)
	r.logger.Debug("tokenized document",
		logging.Int("tokens", len(tokens)),
		logging.Int("sentences", len(sentences)-1),
	)
	return annotation.Payload{Tokens: tokens, Sentences: sentences}, nil
}

// Tokenize splits text into word and punctuation tokens. Words may contain
// inner apostrophes and hyphens; numbers may contain inner periods and
// commas.
func Tokenize(text string) []annotation.Token {
	var tokens []annotation.Token
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case isWordRune(r):
			end := scanWord(text, i)
			tokens = append(tokens, annotation.Token{Text: text[i:end], Offset: i})
			i = end
		default:
			tokens = append(tokens, annotation.Token{Text: text[i : i+size], Offset: i})
			i += size
		}
	}
	return tokens
}

func scanWord(text string, start int) int {
	i := start
	prev := rune(0)
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if isWordRune(r) {
			prev = r
			i += size
			continue
		}
		next, nextSize := utf8.DecodeRuneInString(text[i+size:])
		if nextSize == 0 {
			break
		}
		switch {
		case (r == '\'' || r == '’' || r == '-') && isWordRune(next) && prev != 0:
			prev = r
			i += size
		case (r == '.' || r == ',') && unicode.IsDigit(prev) && unicode.IsDigit(next):
			prev = r
			i += size
		default:
			return i
		}
	}
	return i
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// SplitSentences returns sentence start indices followed by len(tokens).
func (r *Runner) SplitSentences(tokens []annotation.Token) []int {
	if len(tokens) == 0 {
		return nil
	}
	starts := []int{0}
	for i := 0; i < len(tokens); i++ {
		if !r.endsSentence(tokens, i) {
			continue
		}
		end := i + 1
		for end < len(tokens) && isCloser(tokens[end].Text) && adjacent(tokens[end-1], tokens[end]) {
			end++
		}
		if end < len(tokens) {
			starts = append(starts, end)
		}
		i = end - 1
	}
	return append(starts, len(tokens))
}

func (r *Runner) endsSentence(tokens []annotation.Token, i int) bool {
	switch tokens[i].Text {
	case "!", "?", "…":
		return true
	case ".":
	default:
		return false
	}
	if i == 0 {
		return true
	}
	prev := tokens[i-1]
	if !adjacent(prev, tokens[i]) {
		return true
	}
	word := strings.ToLower(prev.Text)
	if _, ok := r.abbreviations[word]; ok {
		return false
	}
	if utf8.RuneCountInString(prev.Text) == 1 {
		if first, _ := utf8.DecodeRuneInString(prev.Text); unicode.IsUpper(first) {
			return false
		}
	}
	return true
}

func adjacent(a, b annotation.Token) bool {
	return a.Offset+len(a.Text) == b.Offset
}

func isCloser(tok string) bool {
	switch tok {
	case "\"", "'", ")", "]", "}", "”", "’", "»":
		return true
	}
	return false
}
