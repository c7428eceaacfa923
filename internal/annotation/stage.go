package annotation

import (
	"fmt"
	"strings"
)

// Stage names one preprocessing step. The set is fixed and totally ordered;
// the order defines the default prerequisite chain.
type Stage string

const (
	StageTokenize     Stage = "tokenize-sentence-split"
	StagePOSTag       Stage = "pos-tag"
	StageNER          Stage = "named-entity-recognition"
	StageSegmentation Stage = "syntactic-segmentation"
)

var allStages = []Stage{
	StageTokenize,
	StagePOSTag,
	StageNER,
	StageSegmentation,
}

var stageRank = func() map[Stage]int {
	ranks := make(map[Stage]int, len(allStages))
	for i, s := range allStages {
		ranks[s] = i
	}
	return ranks
}()

// Stages returns every stage in prerequisite order.
func Stages() []Stage {
	out := make([]Stage, len(allStages))
	copy(out, allStages)
	return out
}

// ParseStage converts user input into a Stage. Underscores and case are
// tolerated so "POS_TAG" resolves to StagePOSTag.
func ParseStage(raw string) (Stage, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	candidate := Stage(normalized)
	if _, ok := stageRank[candidate]; ok {
		return candidate, nil
	}
	return "", fmt.Errorf("unknown stage %q", raw)
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageRank[s]
	return ok
}

// Rank returns the position of s in the stage order, or -1 when unknown.
func (s Stage) Rank() int {
	if rank, ok := stageRank[s]; ok {
		return rank
	}
	return -1
}

// Before reports whether s comes strictly before other in the stage order.
func (s Stage) Before(other Stage) bool {
	return s.Valid() && other.Valid() && s.Rank() < other.Rank()
}

// DefaultPrerequisites returns every stage ordered before s.
func (s Stage) DefaultPrerequisites() []Stage {
	rank := s.Rank()
	if rank <= 0 {
		return nil
	}
	out := make([]Stage, rank)
	copy(out, allStages[:rank])
	return out
}

// Dependents returns s and every stage ordered after it.
func (s Stage) Dependents() []Stage {
	rank := s.Rank()
	if rank < 0 {
		return nil
	}
	out := make([]Stage, len(allStages)-rank)
	copy(out, allStages[rank:])
	return out
}

func (s Stage) String() string {
	return string(s)
}
