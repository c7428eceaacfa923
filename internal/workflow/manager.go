package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"ieprep/internal/annotation"
	"ieprep/internal/config"
	"ieprep/internal/logging"
	"ieprep/internal/progress"
	"ieprep/internal/services"
	"ieprep/internal/stage"
)

// DocumentLoader fetches a document with every completed annotation.
// corpus.Store satisfies it.
type DocumentLoader interface {
	GetDocument(ctx context.Context, id string) (*annotation.Document, error)
}

// Manager coordinates stage execution over the corpus.
type Manager struct {
	cfg     *config.Config
	store   DocumentLoader
	tracker *progress.Tracker
	logger  *slog.Logger

	workers     int
	maxFailures int
	observer    DocumentObserver
	now         func() time.Time

	mu     sync.RWMutex
	stages map[annotation.Stage]pipelineStage
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithWorkers overrides pipeline.workers.
func WithWorkers(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithDocumentObserver registers a callback for document state changes.
func WithDocumentObserver(fn DocumentObserver) ManagerOption {
	return func(m *Manager) {
		m.observer = fn
	}
}

// WithClock overrides the time source used for report timestamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store DocumentLoader, tracker *progress.Tracker, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:     cfg,
		store:   store,
		tracker: tracker,
		logger:  logging.NewComponentLogger(logger, "workflow"),
		workers: 1,
		now:     time.Now,
		stages:  make(map[annotation.Stage]pipelineStage),
	}
	if cfg != nil {
		if cfg.Pipeline.Workers > 0 {
			m.workers = cfg.Pipeline.Workers
		}
		m.maxFailures = cfg.Pipeline.MaxConsecutiveFailures
	}
	for _, opt := range opts {
		opt(m)
	}
	if aware, ok := store.(stage.LoggerAware); ok {
		aware.SetLogger(logger)
	}
	return m
}

// Register adds a runner for its stage. Nil prerequisites default to every
// earlier stage. Every prerequisite must precede the stage and already be
// registered.
func (m *Manager) Register(runner stage.Runner) error {
	if runner == nil {
		return errors.New("register: nil runner")
	}
	return m.add(pipelineStage{stage: runner.Stage(), prereqs: runner.Prerequisites(), runner: runner})
}

// RegisterRecognizers backs named-entity recognition with recognizers whose
// outputs are merged. Earlier recognizers win span conflicts.
func (m *Manager) RegisterRecognizers(target annotation.Stage, prereqs []annotation.Stage, recognizers ...stage.Recognizer) error {
	if target != annotation.StageNER {
		return services.Wrap(services.ErrConfiguration, string(target), "register",
			"recognizers can only back "+string(annotation.StageNER), nil)
	}
	recognizers = slices.DeleteFunc(slices.Clone(recognizers), func(r stage.Recognizer) bool { return r == nil })
	if len(recognizers) == 0 {
		return services.Wrap(services.ErrConfiguration, string(target), "register", "no recognizers", nil)
	}
	seen := make(map[string]struct{}, len(recognizers))
	for _, r := range recognizers {
		if _, dup := seen[r.Source()]; dup {
			return services.Wrap(services.ErrConfiguration, string(target), "register",
				fmt.Sprintf("duplicate recognizer %q", r.Source()), nil)
		}
		seen[r.Source()] = struct{}{}
	}
	return m.add(pipelineStage{stage: target, prereqs: prereqs, recognizers: recognizers})
}

// ConfigureStages registers every non-nil runner of set in stage order.
func (m *Manager) ConfigureStages(set StageSet) error {
	if set.Tokenizer != nil {
		if err := m.Register(set.Tokenizer); err != nil {
			return err
		}
	}
	if set.Tagger != nil {
		if err := m.Register(set.Tagger); err != nil {
			return err
		}
	}
	if len(set.Recognizers) > 0 {
		if err := m.RegisterRecognizers(annotation.StageNER, nil, set.Recognizers...); err != nil {
			return err
		}
	}
	if set.Segmenter != nil {
		if err := m.Register(set.Segmenter); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) add(ps pipelineStage) error {
	if ps.prereqs == nil {
		ps.prereqs = ps.stage.DefaultPrerequisites()
	}
	if err := stage.CheckPrerequisites(ps.stage, ps.prereqs); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.stages[ps.stage]; exists {
		return services.Wrap(services.ErrConfiguration, ps.name(), "register", "stage already registered", nil)
	}
	for _, p := range ps.prereqs {
		if _, ok := m.stages[p]; !ok {
			return services.Wrap(services.ErrConfiguration, ps.name(), "register",
				fmt.Sprintf("prerequisite %q is not registered", p), nil)
		}
	}
	ps.prereqs = slices.Clone(ps.prereqs)
	m.stages[ps.stage] = ps
	return nil
}

// Stages returns the registered stages in execution order.
func (m *Manager) Stages() []annotation.Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]annotation.Stage, 0, len(m.stages))
	for _, s := range annotation.Stages() {
		if _, ok := m.stages[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Prerequisites returns the registered prerequisites of s.
func (m *Manager) Prerequisites(s annotation.Stage) []annotation.Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.stages[s].prereqs)
}

// activeStages returns the stages to run, honouring pipeline.stages.
func (m *Manager) activeStages() []pipelineStage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var enabled map[string]struct{}
	if m.cfg != nil {
		enabled = m.cfg.EnabledStages()
	}
	out := make([]pipelineStage, 0, len(m.stages))
	for _, s := range annotation.Stages() {
		ps, ok := m.stages[s]
		if !ok {
			continue
		}
		if len(enabled) > 0 {
			if _, on := enabled[string(s)]; !on {
				continue
			}
		}
		out = append(out, ps)
	}
	return out
}

// HealthChecks returns the health of every registered runner and recognizer.
// Components that cannot check themselves are reported ready.
func (m *Manager) HealthChecks(ctx context.Context) []stage.Health {
	var results []stage.Health
	for _, ps := range m.activeStages() {
		if ps.runner != nil {
			results = append(results, checkHealth(ctx, ps.name(), ps.runner))
			continue
		}
		for _, r := range ps.recognizers {
			results = append(results, checkHealth(ctx, ps.name()+"/"+r.Source(), r))
		}
	}
	return results
}

func checkHealth(ctx context.Context, name string, component any) stage.Health {
	checker, ok := component.(stage.HealthChecker)
	if !ok {
		return stage.Healthy(name)
	}
	health := checker.HealthCheck(ctx)
	if health.Name == "" {
		health.Name = name
	}
	return health
}
