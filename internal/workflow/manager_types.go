package workflow

import (
	"ieprep/internal/annotation"
	"ieprep/internal/stage"
)

// StageSet bundles the concrete stage runners the manager orchestrates.
// Nil entries are skipped.
type StageSet struct {
	Tokenizer stage.Runner
	Tagger    stage.Runner
	// Recognizers feed named-entity recognition in priority order.
	Recognizers []stage.Recognizer
	Segmenter   stage.Runner
}

// DocumentState is the per-document lifecycle within one stage.
type DocumentState string

const (
	StatePendingPrerequisite DocumentState = "pending-prerequisite"
	StateReady               DocumentState = "ready"
	StateRunning             DocumentState = "running"
	StateDone                DocumentState = "done"
	StateAlreadyDone         DocumentState = "already-done"
	StateSkippedFailure      DocumentState = "skipped-recoverable-failure"
)

// DocumentObserver is notified of every document state change.
type DocumentObserver func(stage annotation.Stage, documentID string, state DocumentState)

type pipelineStage struct {
	stage       annotation.Stage
	prereqs     []annotation.Stage
	runner      stage.Runner
	recognizers []stage.Recognizer
}

func (p pipelineStage) name() string {
	return string(p.stage)
}

// runnerCount is the number of components backing the stage.
func (p pipelineStage) runnerCount() int {
	if p.runner != nil {
		return 1
	}
	return len(p.recognizers)
}
