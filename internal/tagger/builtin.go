package tagger

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"ieprep/internal/annotation"
)

var closedClass = map[string]string{
	"a": "DT", "an": "DT", "the": "DT", "this": "DT", "that": "DT", "these": "DT", "those": "DT",
	"every": "DT", "each": "DT", "some": "DT", "any": "DT", "no": "DT", "all": "DT",
	"and": "CC", "or": "CC", "but": "CC", "nor": "CC", "yet": "CC",
	"of": "IN", "in": "IN", "on": "IN", "at": "IN", "by": "IN", "for": "IN", "with": "IN",
	"from": "IN", "into": "IN", "about": "IN", "after": "IN", "before": "IN", "during": "IN",
	"over": "IN", "under": "IN", "between": "IN", "through": "IN", "against": "IN",
	"because": "IN", "if": "IN", "while": "IN", "although": "IN", "since": "IN",
	"to": "TO",
	"i":  "PRP", "you": "PRP", "he": "PRP", "she": "PRP", "it": "PRP", "we": "PRP", "they": "PRP",
	"me": "PRP", "him": "PRP", "us": "PRP", "them": "PRP",
	"my": "PRP$", "your": "PRP$", "his": "PRP$", "her": "PRP$", "its": "PRP$", "our": "PRP$", "their": "PRP$",
	"is": "VBZ", "are": "VBP", "am": "VBP", "was": "VBD", "were": "VBD", "be": "VB", "been": "VBN", "being": "VBG",
	"has": "VBZ", "have": "VBP", "had": "VBD", "does": "VBZ", "do": "VBP", "did": "VBD",
	"said": "VBD", "says": "VBZ", "made": "VBD", "went": "VBD", "met": "VBD", "took": "VBD", "left": "VBD",
	"will": "MD", "would": "MD", "can": "MD", "could": "MD", "shall": "MD", "should": "MD",
	"may": "MD", "might": "MD", "must": "MD",
	"not": "RB", "n't": "RB", "very": "RB", "also": "RB", "too": "RB", "then": "RB", "now": "RB",
	"there": "EX",
	"who":   "WP", "whom": "WP", "what": "WP", "which": "WDT", "whose": "WP$",
	"where": "WRB", "when": "WRB", "how": "WRB", "why": "WRB",
}

var punctuation = map[string]string{
	".": ".", "!": ".", "?": ".", "…": ":",
	",": ",", ":": ":", ";": ":", "-": ":", "–": ":", "—": ":",
	"(": "-LRB-", "[": "-LRB-", "{": "-LRB-", ")": "-RRB-", "]": "-RRB-", "}": "-RRB-",
	"\"": "''", "“": "``", "”": "''", "'": "''", "‘": "``", "’": "''",
	"$": "$", "€": "$", "£": "$", "#": "#", "%": "NN",
}

var suffixRules = []struct {
	suffix string
	tag    string
}{
	{"ing", "VBG"},
	{"ed", "VBD"},
	{"ly", "RB"},
	{"est", "JJS"},
	{"ous", "JJ"},
	{"ful", "JJ"},
	{"able", "JJ"},
	{"ible", "JJ"},
	{"ive", "JJ"},
	{"less", "JJ"},
	{"ical", "JJ"},
	{"tion", "NN"},
	{"ness", "NN"},
	{"ment", "NN"},
}

// Builtin is a lexicon and suffix-rule tagger emitting Penn Treebank tags.
type Builtin struct{}

func (Builtin) Name() string { return "builtin" }

func (Builtin) Tag(ctx context.Context, doc *annotation.Document) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	starts := make(map[int]struct{}, len(doc.Sentences))
	for _, s := range doc.Sentences {
		starts[s] = struct{}{}
	}
	tags := make([]string, len(doc.Tokens))
	for i, tok := range doc.Tokens {
		_, initial := starts[i]
		tags[i] = TagWord(tok.Text, initial)
	}
	return tags, nil
}

// TagWord returns the tag for a single word. sentenceInitial relaxes the
// capitalization rule for proper nouns.
func TagWord(word string, sentenceInitial bool) string {
	if tag, ok := punctuation[word]; ok {
		return tag
	}
	if isNumber(word) {
		return "CD"
	}
	lower := strings.ToLower(word)
	if tag, ok := closedClass[lower]; ok {
		return tag
	}
	first, _ := utf8.DecodeRuneInString(word)
	capitalized := unicode.IsUpper(first)
	if capitalized && (!sentenceInitial || isAllUpper(word)) {
		return "NNP"
	}
	for _, rule := range suffixRules {
		if len(lower) > len(rule.suffix)+1 && strings.HasSuffix(lower, rule.suffix) {
			return rule.tag
		}
	}
	if isPluralForm(lower) {
		return "NNS"
	}
	if capitalized {
		return "NNP"
	}
	if !unicode.IsLetter(first) && !unicode.IsDigit(first) {
		return "SYM"
	}
	return "NN"
}

func isNumber(word string) bool {
	digits := 0
	for _, r := range word {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.' || r == ',':
		default:
			return false
		}
	}
	return digits > 0
}

func isAllUpper(word string) bool {
	letters := 0
	for _, r := range word {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}

func isPluralForm(word string) bool {
	return len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss")
}
