package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateTagger(); err != nil {
		return err
	}
	if err := c.validateEntities(); err != nil {
		return err
	}
	if err := c.validateStatisticalNER(); err != nil {
		return err
	}
	if err := c.validateSegmentation(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePipeline() error {
	if err := ensurePositiveMap(map[string]int{
		"pipeline.workers":    c.Pipeline.Workers,
		"pipeline.batch_size": c.Pipeline.BatchSize,
	}); err != nil {
		return err
	}
	if c.Pipeline.MaxConsecutiveFailures < 0 {
		return errors.New("pipeline.max_consecutive_failures must not be negative")
	}
	return nil
}

func (c *Config) validateTagger() error {
	switch c.Tagger.Backend {
	case TaggerBuiltin:
	case TaggerCommand:
		if c.Tagger.Command == "" {
			return errors.New("tagger.command must be set when tagger.backend is \"command\"")
		}
	default:
		return fmt.Errorf("tagger.backend must be %q or %q, got %q", TaggerBuiltin, TaggerCommand, c.Tagger.Backend)
	}
	if c.Tagger.TimeoutSeconds <= 0 {
		return errors.New("tagger.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateEntities() error {
	seen := make(map[string]struct{}, len(c.Entities.CustomKinds))
	for _, raw := range c.Entities.CustomKinds {
		id, label, ok := strings.Cut(raw, ":")
		id = strings.TrimSpace(id)
		if !ok || id == "" || strings.TrimSpace(label) == "" {
			return fmt.Errorf("entities.custom_kinds: %q must use id:Label form", raw)
		}
		key := strings.ToUpper(id)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("entities.custom_kinds: duplicate kind %q", id)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (c *Config) validateStatisticalNER() error {
	if !c.StatisticalNER.Enabled {
		return nil
	}
	if c.StatisticalNER.Command == "" {
		return errors.New("statistical_ner.command must be set when statistical_ner.enabled is true")
	}
	if c.StatisticalNER.TimeoutSeconds <= 0 {
		return errors.New("statistical_ner.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSegmentation() error {
	switch c.Segmentation.Mode {
	case SegmentationSyntactic, SegmentationContextual:
	default:
		return fmt.Errorf("segmentation.mode must be %q or %q, got %q", SegmentationSyntactic, SegmentationContextual, c.Segmentation.Mode)
	}
	if c.Segmentation.ContextDistance <= 0 {
		return errors.New("segmentation.context_distance must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
