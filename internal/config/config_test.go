package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ieprep/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("IEPREP_CUSTOM_ENTITY_KINDS", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCorpus := filepath.Join(tempHome, ".local", "share", "ieprep", "corpora")
	if cfg.Paths.CorpusDir != wantCorpus {
		t.Fatalf("unexpected corpus dir: got %q want %q", cfg.Paths.CorpusDir, wantCorpus)
	}
	if cfg.Pipeline.Workers != 1 {
		t.Fatalf("expected one worker by default, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.BatchSize != config.Default().Pipeline.BatchSize {
		t.Fatalf("unexpected batch size: %d", cfg.Pipeline.BatchSize)
	}
	if cfg.Tagger.Backend != config.TaggerBuiltin {
		t.Fatalf("expected builtin tagger, got %q", cfg.Tagger.Backend)
	}
	if cfg.StatisticalNER.Enabled {
		t.Fatal("expected statistical NER disabled by default")
	}
	if cfg.Segmentation.Mode != config.SegmentationSyntactic {
		t.Fatalf("expected syntactic segmentation, got %q", cfg.Segmentation.Mode)
	}
	if len(cfg.Tokenizer.Abbreviations) == 0 {
		t.Fatal("expected default abbreviations")
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "ieprep.toml")
	content := `
[paths]
corpus_dir = "` + filepath.ToSlash(filepath.Join(tempDir, "corpora")) + `"

[pipeline]
workers = 4
batch_size = 25
stages = ["POS_TAG", "tokenize-sentence-split", "pos-tag"]

[tagger]
backend = "Command"
command = "my-tagger"

[segmentation]
mode = "contextual"
context_distance = 8
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.CorpusDir != filepath.Join(tempDir, "corpora") {
		t.Fatalf("unexpected corpus dir: %q", cfg.Paths.CorpusDir)
	}
	if cfg.Pipeline.Workers != 4 || cfg.Pipeline.BatchSize != 25 {
		t.Fatalf("unexpected pipeline: %+v", cfg.Pipeline)
	}
	want := []string{"pos-tag", "tokenize-sentence-split"}
	if strings.Join(cfg.Pipeline.Stages, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected stages: %v", cfg.Pipeline.Stages)
	}
	if cfg.Tagger.Backend != config.TaggerCommand || cfg.Tagger.Command != "my-tagger" {
		t.Fatalf("unexpected tagger: %+v", cfg.Tagger)
	}
	if cfg.Segmentation.Mode != config.SegmentationContextual || cfg.Segmentation.ContextDistance != 8 {
		t.Fatalf("unexpected segmentation: %+v", cfg.Segmentation)
	}
}

func TestCustomKindsFallBackToEnv(t *testing.T) {
	t.Setenv("IEPREP_CUSTOM_ENTITY_KINDS", "DISEASE:Disease, SYMPTOM:Symptom ,")
	configPath := filepath.Join(t.TempDir(), "missing.toml")

	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if len(cfg.Entities.CustomKinds) != 2 {
		t.Fatalf("expected 2 custom kinds, got %v", cfg.Entities.CustomKinds)
	}
	if cfg.Entities.CustomKinds[1] != "SYMPTOM:Symptom" {
		t.Fatalf("unexpected custom kind: %q", cfg.Entities.CustomKinds[1])
	}
}

func TestCustomKindsFileWinsOverEnv(t *testing.T) {
	t.Setenv("IEPREP_CUSTOM_ENTITY_KINDS", "DISEASE:Disease")
	configPath := filepath.Join(t.TempDir(), "ieprep.toml")
	if err := os.WriteFile(configPath, []byte("[entities]\ncustom_kinds = [\"DRUG:Drug\"]\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Entities.CustomKinds) != 1 || cfg.Entities.CustomKinds[0] != "DRUG:Drug" {
		t.Fatalf("expected file kinds to win, got %v", cfg.Entities.CustomKinds)
	}
}

func TestLoadRejectsUnknownStage(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ieprep.toml")
	if err := os.WriteFile(configPath, []byte("[pipeline]\nstages = [\"parse\"]\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown stage")
	}
}

func TestCreateSample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if cfg.Segmentation.Mode != config.SegmentationSyntactic {
		t.Fatalf("unexpected sample segmentation mode: %q", cfg.Segmentation.Mode)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat sample: %v", err)
		}
		if info.Mode().Perm() != 0o644 {
			t.Fatalf("unexpected sample permissions: %v", info.Mode().Perm())
		}
	}

	loaded, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not validate: %v", err)
	}
	if !exists || loaded.Pipeline.Workers != 1 {
		t.Fatalf("unexpected loaded sample: exists=%v workers=%d", exists, loaded.Pipeline.Workers)
	}
}

func TestCorpusPath(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.CorpusDir = "/var/lib/ieprep"

	got, err := cfg.CorpusPath("News Wire")
	if err != nil {
		t.Fatalf("CorpusPath returned error: %v", err)
	}
	if got != filepath.Join("/var/lib/ieprep", "news_wire.db") {
		t.Fatalf("unexpected corpus path: %q", got)
	}

	explicit := filepath.Join(t.TempDir(), "custom.db")
	got, err = cfg.CorpusPath(explicit)
	if err != nil {
		t.Fatalf("CorpusPath returned error: %v", err)
	}
	if got != explicit {
		t.Fatalf("expected explicit path kept, got %q", got)
	}

	if _, err := cfg.CorpusPath("  "); err == nil {
		t.Fatal("expected error for empty corpus name")
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "zero workers",
			mutate: func(c *config.Config) { c.Pipeline.Workers = 0 },
			want:   "pipeline.workers",
		},
		{
			name:   "negative escalation",
			mutate: func(c *config.Config) { c.Pipeline.MaxConsecutiveFailures = -1 },
			want:   "pipeline.max_consecutive_failures",
		},
		{
			name:   "unknown tagger",
			mutate: func(c *config.Config) { c.Tagger.Backend = "remote" },
			want:   "tagger.backend",
		},
		{
			name:   "command tagger without command",
			mutate: func(c *config.Config) { c.Tagger.Backend = config.TaggerCommand },
			want:   "tagger.command",
		},
		{
			name:   "statistical ner without command",
			mutate: func(c *config.Config) { c.StatisticalNER.Enabled = true },
			want:   "statistical_ner.command",
		},
		{
			name:   "malformed custom kind",
			mutate: func(c *config.Config) { c.Entities.CustomKinds = []string{"DISEASE"} },
			want:   "id:Label",
		},
		{
			name:   "duplicate custom kind",
			mutate: func(c *config.Config) { c.Entities.CustomKinds = []string{"drug:Drug", "DRUG:Medicine"} },
			want:   "duplicate",
		},
		{
			name:   "unknown segmentation mode",
			mutate: func(c *config.Config) { c.Segmentation.Mode = "paragraph" },
			want:   "segmentation.mode",
		},
		{
			name:   "bad log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error to mention %q, got %v", tt.want, err)
			}
		})
	}
}
