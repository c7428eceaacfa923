package annotation

import (
	"errors"
	"testing"
)

func tokenizedDoc() *Document {
	return &Document{
		Text:      "Ada Lovelace met Babbage.",
		Tokens:    []Token{{"Ada", 0}, {"Lovelace", 4}, {"met", 13}, {"Babbage", 17}, {".", 24}},
		Sentences: []int{0, 5},
	}
}

func TestValidateTokenize(t *testing.T) {
	doc := &Document{Text: "Ada met Babbage."}
	good := Payload{
		Tokens:    []Token{{"Ada", 0}, {"met", 4}, {"Babbage", 8}, {".", 15}},
		Sentences: []int{0, 4},
	}
	if err := Validate(StageTokenize, doc, good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name      string
		sentences []int
	}{
		{"not starting at zero", []int{1, 4}},
		{"not ending at token count", []int{0, 3}},
		{"unordered", []int{0, 3, 2, 4}},
		{"duplicates", []int{0, 2, 2, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := good
			bad.Sentences = tt.sentences
			if err := Validate(StageTokenize, doc, bad); !errors.Is(err, ErrInvalidPayload) {
				t.Fatalf("expected ErrInvalidPayload, got %v", err)
			}
		})
	}

	if err := Validate(StageTokenize, doc, Payload{}); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected error for empty token list, got %v", err)
	}
}

func TestValidatePOSTagCardinality(t *testing.T) {
	doc := tokenizedDoc()
	if err := Validate(StagePOSTag, doc, Payload{PosTags: []string{"NNP", "NNP", "VBD", "NNP", "."}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(StagePOSTag, doc, Payload{PosTags: []string{"NNP"}}); err == nil {
		t.Fatal("expected cardinality error")
	}
}

func TestValidateEntities(t *testing.T) {
	doc := tokenizedDoc()
	ok := Payload{Entities: []Entity{{Start: 0, End: 2, Kind: "person"}, {Start: 3, End: 4, Kind: "person"}}}
	if err := Validate(StageNER, doc, ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	overlapping := Payload{Entities: []Entity{{Start: 0, End: 2, Kind: "person"}, {Start: 1, End: 3, Kind: "org"}}}
	if err := Validate(StageNER, doc, overlapping); err == nil {
		t.Fatal("expected overlap error")
	}
	outside := Payload{Entities: []Entity{{Start: 4, End: 9, Kind: "person"}}}
	if err := Validate(StageNER, doc, outside); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestEncodeKeepsOnlyStageFields(t *testing.T) {
	payload := Payload{PosTags: []string{"NN"}, Entities: []Entity{{Start: 0, End: 1, Kind: "person"}}}
	raw, err := Encode(StagePOSTag, payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(StagePOSTag, raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded.PosTags) != 1 || len(decoded.Entities) != 0 {
		t.Fatalf("unexpected decoded payload %+v", decoded)
	}
	if _, err := Decode(StageNER, ""); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestSentenceBounds(t *testing.T) {
	doc := &Document{Tokens: make([]Token, 7), Sentences: []int{0, 3, 7}}
	bounds := doc.SentenceBounds()
	if len(bounds) != 2 || bounds[0] != [2]int{0, 3} || bounds[1] != [2]int{3, 7} {
		t.Fatalf("unexpected bounds %v", bounds)
	}
}
