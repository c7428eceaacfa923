package annotation

import (
	"encoding/json"
	"fmt"
)

// Fields returns the payload restricted to the fields owned by stage.
func Fields(stage Stage, payload Payload) Payload {
	switch stage {
	case StageTokenize:
		return Payload{Tokens: payload.Tokens, Sentences: payload.Sentences}
	case StagePOSTag:
		return Payload{PosTags: payload.PosTags}
	case StageNER:
		return Payload{Entities: payload.Entities}
	case StageSegmentation:
		return Payload{Segments: payload.Segments}
	default:
		return Payload{}
	}
}

// Encode serializes the stage-owned part of payload for storage.
func Encode(stage Stage, payload Payload) (string, error) {
	data, err := json.Marshal(Fields(stage, payload))
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", stage, err)
	}
	return string(data), nil
}

// Decode parses a stored payload for stage.
func Decode(stage Stage, raw string) (Payload, error) {
	var payload Payload
	if raw == "" {
		return payload, fmt.Errorf("decode %s payload: empty", stage)
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", stage, err)
	}
	return Fields(stage, payload), nil
}
