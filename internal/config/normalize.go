package config

import (
	"fmt"
	"os"
	"strings"

	"ieprep/internal/annotation"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizePipeline(); err != nil {
		return err
	}
	c.normalizeTokenizer()
	c.normalizeTagger()
	if err := c.normalizeEntities(); err != nil {
		return err
	}
	c.normalizeStatisticalNER()
	c.normalizeSegmentation()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CorpusDir) == "" {
		c.Paths.CorpusDir = defaultCorpusDir
	}
	if c.Paths.CorpusDir, err = expandPath(c.Paths.CorpusDir); err != nil {
		return fmt.Errorf("paths.corpus_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePipeline() error {
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = defaultWorkers
	}
	if c.Pipeline.BatchSize == 0 {
		c.Pipeline.BatchSize = defaultBatchSize
	}
	if len(c.Pipeline.Stages) == 0 {
		return nil
	}
	stages := make([]string, 0, len(c.Pipeline.Stages))
	seen := make(map[annotation.Stage]struct{}, len(c.Pipeline.Stages))
	for _, raw := range c.Pipeline.Stages {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		stage, err := annotation.ParseStage(raw)
		if err != nil {
			return fmt.Errorf("pipeline.stages: %w", err)
		}
		if _, ok := seen[stage]; ok {
			continue
		}
		seen[stage] = struct{}{}
		stages = append(stages, string(stage))
	}
	c.Pipeline.Stages = stages
	return nil
}

func (c *Config) normalizeTokenizer() {
	if c.Tokenizer.Abbreviations == nil {
		c.Tokenizer.Abbreviations = append([]string(nil), defaultAbbreviations...)
		return
	}
	abbrevs := make([]string, 0, len(c.Tokenizer.Abbreviations))
	for _, value := range c.Tokenizer.Abbreviations {
		value = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(value), "."))
		if value != "" {
			abbrevs = append(abbrevs, value)
		}
	}
	c.Tokenizer.Abbreviations = abbrevs
}

func (c *Config) normalizeTagger() {
	c.Tagger.Backend = strings.ToLower(strings.TrimSpace(c.Tagger.Backend))
	if c.Tagger.Backend == "" {
		c.Tagger.Backend = defaultTaggerBackend
	}
	c.Tagger.Command = strings.TrimSpace(c.Tagger.Command)
	if c.Tagger.TimeoutSeconds == 0 {
		c.Tagger.TimeoutSeconds = defaultTaggerTimeout
	}
}

func (c *Config) normalizeEntities() error {
	kinds := c.Entities.CustomKinds
	if len(kinds) == 0 {
		if value, ok := os.LookupEnv(customKindsEnv); ok {
			kinds = strings.Split(value, ",")
		}
	}
	normalized := make([]string, 0, len(kinds))
	for _, raw := range kinds {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		normalized = append(normalized, raw)
	}
	c.Entities.CustomKinds = normalized

	if strings.TrimSpace(c.Entities.GazetteerPath) != "" {
		path, err := expandPath(strings.TrimSpace(c.Entities.GazetteerPath))
		if err != nil {
			return fmt.Errorf("entities.gazetteer_path: %w", err)
		}
		c.Entities.GazetteerPath = path
	}
	return nil
}

func (c *Config) normalizeStatisticalNER() {
	c.StatisticalNER.Command = strings.TrimSpace(c.StatisticalNER.Command)
	if c.StatisticalNER.TimeoutSeconds == 0 {
		c.StatisticalNER.TimeoutSeconds = defaultStatisticalNERTimeout
	}
}

func (c *Config) normalizeSegmentation() {
	c.Segmentation.Mode = strings.ToLower(strings.TrimSpace(c.Segmentation.Mode))
	if c.Segmentation.Mode == "" {
		c.Segmentation.Mode = defaultSegmentationMode
	}
	if c.Segmentation.ContextDistance == 0 {
		c.Segmentation.ContextDistance = defaultContextDistance
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
