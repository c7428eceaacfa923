package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ieprep/internal/annotation"
	"ieprep/internal/workflow"
)

type cliEnv struct {
	base       string
	configPath string
}

func setupCLI(t *testing.T) *cliEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("IEPREP_CUSTOM_ENTITY_KINDS", "")

	gazetteer := filepath.Join(base, "gazetteer.yaml")
	writeFile(t, gazetteer, strings.Join([]string{
		"entities:",
		"  - kind: person",
		"    canonical: Ada Lovelace",
		"  - kind: person",
		"    canonical: Charles Babbage",
		"  - kind: location",
		"    canonical: London",
	}, "\n"))

	configPath := filepath.Join(base, "ieprep.toml")
	writeFile(t, configPath, fmt.Sprintf(`[paths]
corpus_dir = %q
log_dir = %q

[pipeline]
batch_size = 2

[entities]
gazetteer_path = %q

[logging]
level = "error"
`, filepath.Join(base, "corpora"), filepath.Join(base, "logs"), gazetteer))

	return &cliEnv{base: base, configPath: configPath}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func (e *cliEnv) status(t *testing.T, name string) corpusStatus {
	t.Helper()
	out, err := e.run(t, "status", name, "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var status corpusStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status %q: %v", out, err)
	}
	return status
}

func (e *cliEnv) doc(t *testing.T, name, content string) string {
	t.Helper()
	return writeFile(t, filepath.Join(e.base, "docs", name), content)
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func doneCounts(status corpusStatus) map[annotation.Stage]int {
	out := make(map[annotation.Stage]int, len(status.Stages))
	for _, s := range status.Stages {
		out[s.Stage] = s.Done
	}
	return out
}

func TestPreprocessLifecycle(t *testing.T) {
	env := setupCLI(t)
	first := env.doc(t, "one.txt", "Ada Lovelace met Charles Babbage in London. They wrote notes.")
	second := env.doc(t, "two.html", "<html><title>Two</title><body><p>London is large.</p></body></html>")

	out, err := env.run(t, "add", "news", first, second)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "2 added, 0 already present, 0 failed")

	out, err = env.run(t, "add", "news", first)
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	requireContains(t, out, "1 already present")

	status := env.status(t, "news")
	if status.Documents != 2 || status.Stages[0].Pending != 2 {
		t.Fatalf("unexpected status before run: %+v", status)
	}

	out, err = env.run(t, "preprocess", "news")
	if err != nil {
		t.Fatalf("preprocess: %v\n%s", err, out)
	}
	requireContains(t, out, "Completed")

	status = env.status(t, "news")
	for _, s := range annotation.Stages() {
		if doneCounts(status)[s] != 2 {
			t.Fatalf("stage %s not complete: %+v", s, status)
		}
	}
	if status.Entities != 3 {
		t.Fatalf("expected 3 registered entities, got %d", status.Entities)
	}

	out, err = env.run(t, "preprocess", "news", "--json")
	if err != nil {
		t.Fatalf("second preprocess: %v", err)
	}
	var report workflow.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	for _, s := range report.Stages {
		if s.Attempted != 0 {
			t.Fatalf("second run should not attempt any document, got %+v", s)
		}
	}

	out, err = env.run(t, "reset", "news", "pos_tag")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	requireContains(t, out, "(6 records removed)")
	done := doneCounts(env.status(t, "news"))
	if done[annotation.StageTokenize] != 2 || done[annotation.StagePOSTag] != 0 || done[annotation.StageSegmentation] != 0 {
		t.Fatalf("unexpected counts after reset: %v", done)
	}
}

func TestPreprocessStrictMode(t *testing.T) {
	env := setupCLI(t)
	good := env.doc(t, "good.txt", "Ada Lovelace lived in London.")
	empty := env.doc(t, "empty.txt", "   ")
	if _, err := env.run(t, "add", "mixed", good, empty); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := env.run(t, "preprocess", "mixed")
	if err != nil {
		t.Fatalf("preprocess without strict should succeed: %v", err)
	}
	requireContains(t, out, "FAILED "+string(annotation.StageTokenize))

	_, err = env.run(t, "preprocess", "mixed", "--strict")
	if err == nil {
		t.Fatal("expected strict mode to fail")
	}
	if code := exitCode(err); code != exitFailures {
		t.Fatalf("expected exit code %d, got %d", exitFailures, code)
	}
}

func TestStagesAndCheck(t *testing.T) {
	env := setupCLI(t)

	out, err := env.run(t, "stages")
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	for _, s := range annotation.Stages() {
		requireContains(t, out, string(s))
	}
	requireContains(t, out, "ready")

	if _, err := env.run(t, "add", "news", env.doc(t, "a.txt", "Hello.")); err != nil {
		t.Fatalf("add: %v", err)
	}
	out, err = env.run(t, "check", "news")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "Corpus news")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLI(t)

	out, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
}

func TestResetRejectsUnknownStage(t *testing.T) {
	env := setupCLI(t)
	if _, err := env.run(t, "reset", "news", "parse"); err == nil {
		t.Fatal("expected unknown stage error")
	}
}

func TestExitCode(t *testing.T) {
	if code := exitCode(errors.New("boom")); code != exitFatal {
		t.Fatalf("plain error code = %d", code)
	}
	wrapped := fmt.Errorf("outer: %w", &exitError{code: exitFailures, err: errors.New("inner")})
	if code := exitCode(wrapped); code != exitFailures {
		t.Fatalf("wrapped code = %d", code)
	}
}
