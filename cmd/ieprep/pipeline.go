package main

import (
	"log/slog"

	"ieprep/internal/config"
	"ieprep/internal/corpus"
	"ieprep/internal/gazetteer"
	"ieprep/internal/progress"
	"ieprep/internal/recognizer"
	"ieprep/internal/segmenter"
	"ieprep/internal/services"
	"ieprep/internal/stage"
	"ieprep/internal/tagger"
	"ieprep/internal/tokenizer"
	"ieprep/internal/workflow"
)

// buildStageSet constructs the configured runners.
func buildStageSet(cfg *config.Config) (workflow.StageSet, error) {
	tag, err := tagger.FromConfig(cfg.Tagger)
	if err != nil {
		return workflow.StageSet{}, err
	}
	kinds, err := gazetteer.ParseKinds(cfg.Entities.CustomKinds)
	if err != nil {
		return workflow.StageSet{}, services.Wrap(services.ErrConfiguration, "entities", "parse kinds", "", err)
	}
	dict := gazetteer.New(kinds)
	if cfg.Entities.GazetteerPath != "" {
		dict, err = gazetteer.Load(cfg.Entities.GazetteerPath, kinds)
		if err != nil {
			return workflow.StageSet{}, services.Wrap(services.ErrConfiguration, "entities", "load gazetteer", "", err)
		}
	}
	recognizers := []stage.Recognizer{recognizer.NewLiteral(dict)}
	if cfg.StatisticalNER.Enabled {
		statistical, err := recognizer.NewStatistical(cfg.StatisticalNER, kinds)
		if err != nil {
			return workflow.StageSet{}, err
		}
		recognizers = append(recognizers, statistical)
	}
	seg, err := segmenter.New(cfg.Segmentation)
	if err != nil {
		return workflow.StageSet{}, err
	}
	return workflow.StageSet{
		Tokenizer:   tokenizer.New(cfg.Tokenizer.Abbreviations),
		Tagger:      tag,
		Recognizers: recognizers,
		Segmenter:   seg,
	}, nil
}

// buildManager wires the configured runners over store.
func buildManager(cfg *config.Config, store *corpus.Store, logger *slog.Logger, opts ...workflow.ManagerOption) (*workflow.Manager, error) {
	set, err := buildStageSet(cfg)
	if err != nil {
		return nil, err
	}
	tracker := progress.New(store, progress.WithBatchSize(cfg.Pipeline.BatchSize))
	mgr := workflow.NewManager(cfg, store, tracker, logger, opts...)
	if err := mgr.ConfigureStages(set); err != nil {
		return nil, err
	}
	return mgr, nil
}
