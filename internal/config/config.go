package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"ieprep/internal/textutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CorpusDir string `toml:"corpus_dir"`
	LogDir    string `toml:"log_dir"`
}

// Pipeline controls orchestration behaviour.
type Pipeline struct {
	// Workers is the number of documents processed concurrently within one
	// stage. Stages themselves always run one after another.
	Workers int `toml:"workers"`
	// BatchSize is the page size used when listing documents that need a stage.
	BatchSize int `toml:"batch_size"`
	// MaxConsecutiveFailures escalates a run of recoverable failures within a
	// stage to a fatal error. Zero disables escalation.
	MaxConsecutiveFailures int `toml:"max_consecutive_failures"`
	// Stages limits the run to the listed stages. Empty means all stages.
	Stages []string `toml:"stages"`
}

// Tokenizer configures the built-in tokenizer and sentence splitter.
type Tokenizer struct {
	Abbreviations []string `toml:"abbreviations"`
}

// Tagger configures the part-of-speech tagging backend.
type Tagger struct {
	// Backend is "builtin" or "command".
	Backend        string   `toml:"backend"`
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Entities configures entity kinds and the literal recognizer dictionary.
type Entities struct {
	// CustomKinds extends the base kinds; entries use "id:Label" form.
	CustomKinds   []string `toml:"custom_kinds"`
	GazetteerPath string   `toml:"gazetteer_path"`
}

// StatisticalNER configures the external statistical recognizer.
type StatisticalNER struct {
	Enabled        bool     `toml:"enabled"`
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Segmentation configures how segments are built.
type Segmentation struct {
	// Mode is "syntactic" or "contextual".
	Mode            string `toml:"mode"`
	ContextDistance int    `toml:"context_distance"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for ieprep.
//
// Configuration sections by subsystem:
//   - Paths: corpus databases and logs
//   - Pipeline: orchestration limits and stage selection
//   - Tokenizer: sentence splitting abbreviations
//   - Tagger: POS tagging backend
//   - Entities: entity kinds and gazetteer for the literal recognizer
//   - StatisticalNER: external statistical recognizer
//   - Segmentation: segment building mode
//   - Logging: log format and level
type Config struct {
	Paths          Paths          `toml:"paths"`
	Pipeline       Pipeline       `toml:"pipeline"`
	Tokenizer      Tokenizer      `toml:"tokenizer"`
	Tagger         Tagger         `toml:"tagger"`
	Entities       Entities       `toml:"entities"`
	StatisticalNER StatisticalNER `toml:"statistical_ner"`
	Segmentation   Segmentation   `toml:"segmentation"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ieprep/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ieprep.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the corpus and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CorpusDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CorpusPath resolves a corpus name to its SQLite database path. Names that
// already look like paths (a separator or a .db suffix) are used as given;
// bare names live under paths.corpus_dir.
func (c *Config) CorpusPath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("corpus name is required")
	}
	if strings.ContainsRune(name, os.PathSeparator) || strings.HasSuffix(name, ".db") {
		return expandPath(name)
	}
	return filepath.Join(c.Paths.CorpusDir, textutil.SanitizeToken(name)+".db"), nil
}

// EnabledStages returns the configured stage filter as a set. An empty set
// means every stage is enabled.
func (c *Config) EnabledStages() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Pipeline.Stages))
	for _, s := range c.Pipeline.Stages {
		set[s] = struct{}{}
	}
	return set
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
