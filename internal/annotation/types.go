package annotation

import (
	"strings"
	"time"
)

// Token is a single token with its byte offset into the document text.
type Token struct {
	Text   string `json:"text"`
	Offset int    `json:"offset"`
}

// Entity is a tagged token span. Start is inclusive and End exclusive.
type Entity struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Kind       string  `json:"kind"`
	Key        string  `json:"key,omitempty"`
	Alias      string  `json:"alias,omitempty"`
	Source     string  `json:"source,omitempty"`
	Priority   int     `json:"priority"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Len returns the number of tokens covered by the span.
func (e Entity) Len() int {
	return e.End - e.Start
}

// Overlaps reports whether the two spans share at least one token.
func (e Entity) Overlaps(other Entity) bool {
	return e.Start < other.End && other.Start < e.End
}

// SameSpan reports whether both entities cover exactly the same tokens.
func (e Entity) SameSpan(other Entity) bool {
	return e.Start == other.Start && e.End == other.End
}

// Segment is a token range selected for downstream extraction together with
// the indices of the document entities it fully contains.
type Segment struct {
	Start    int   `json:"start"`
	End      int   `json:"end"`
	Entities []int `json:"entities"`
}

// Payload holds the result of one stage. Only the fields owned by the stage
// are populated; see Fields.
type Payload struct {
	Tokens    []Token   `json:"tokens,omitempty"`
	Sentences []int     `json:"sentences,omitempty"`
	PosTags   []string  `json:"postags,omitempty"`
	Entities  []Entity  `json:"entities,omitempty"`
	Segments  []Segment `json:"segments,omitempty"`
}

// Document is a corpus document with every annotation computed so far.
type Document struct {
	ID         string
	Identifier string
	Title      string
	Text       string
	Metadata   map[string]string
	CreatedAt  time.Time
	Version    int64
	Done       map[Stage]time.Time

	Tokens    []Token
	Sentences []int
	PosTags   []string
	Entities  []Entity
	Segments  []Segment
}

// HasStage reports whether stage is recorded as complete.
func (d *Document) HasStage(stage Stage) bool {
	if d == nil || d.Done == nil {
		return false
	}
	_, ok := d.Done[stage]
	return ok
}

// MissingPrerequisites returns the stages in prereqs that are not complete.
func (d *Document) MissingPrerequisites(prereqs []Stage) []Stage {
	var missing []Stage
	for _, p := range prereqs {
		if !d.HasStage(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// Apply copies the stage-owned fields of payload onto the document and marks
// the stage done at the given time.
func (d *Document) Apply(stage Stage, payload Payload, at time.Time) {
	switch stage {
	case StageTokenize:
		d.Tokens = payload.Tokens
		d.Sentences = payload.Sentences
	case StagePOSTag:
		d.PosTags = payload.PosTags
	case StageNER:
		d.Entities = payload.Entities
	case StageSegmentation:
		d.Segments = payload.Segments
	}
	if d.Done == nil {
		d.Done = make(map[Stage]time.Time)
	}
	d.Done[stage] = at
}

// TokenTexts returns the token strings in order.
func (d *Document) TokenTexts() []string {
	out := make([]string, len(d.Tokens))
	for i, tok := range d.Tokens {
		out[i] = tok.Text
	}
	return out
}

// SpanText joins the tokens in [start,end) with single spaces.
func (d *Document) SpanText(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(d.Tokens) {
		end = len(d.Tokens)
	}
	if start >= end {
		return ""
	}
	parts := make([]string, 0, end-start)
	for _, tok := range d.Tokens[start:end] {
		parts = append(parts, tok.Text)
	}
	return strings.Join(parts, " ")
}

// SentenceBounds returns the [start,end) token ranges of every sentence.
func (d *Document) SentenceBounds() [][2]int {
	if len(d.Sentences) == 0 {
		return nil
	}
	bounds := make([][2]int, 0, len(d.Sentences))
	for i, start := range d.Sentences {
		end := len(d.Tokens)
		if i+1 < len(d.Sentences) {
			end = d.Sentences[i+1]
		}
		if end <= start {
			continue
		}
		bounds = append(bounds, [2]int{start, end})
	}
	return bounds
}
