package tagger

import (
	"context"
	"fmt"
	"log/slog"

	"ieprep/internal/annotation"
	"ieprep/internal/config"
	"ieprep/internal/logging"
	"ieprep/internal/services"
	"ieprep/internal/services/annotator"
	"ieprep/internal/stage"
)

// Backend assigns one tag per token of doc.
type Backend interface {
	Name() string
	Tag(ctx context.Context, doc *annotation.Document) ([]string, error)
}

// Runner adapts a Backend to the stage runner contract.
type Runner struct {
	backend Backend
	logger  *slog.Logger
}

// New wraps backend as a pos-tag runner.
func New(backend Backend) *Runner {
	return &Runner{backend: backend, logger: logging.NewNop()}
}

// FromConfig builds the runner selected by cfg.Backend.
func FromConfig(cfg config.Tagger, opts ...annotator.Option) (*Runner, error) {
	switch cfg.Backend {
	case "", config.TaggerBuiltin:
		return New(Builtin{}), nil
	case config.TaggerCommand:
		client, err := annotator.New(string(annotation.StagePOSTag), cfg.Command, cfg.Args, cfg.TimeoutSeconds, opts...)
		if err != nil {
			return nil, err
		}
		return New(&Command{client: client}), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, string(annotation.StagePOSTag), "configure",
			fmt.Sprintf("unknown tagger backend %q", cfg.Backend), nil)
	}
}

func (r *Runner) Stage() annotation.Stage { return annotation.StagePOSTag }

func (r *Runner) Prerequisites() []annotation.Stage {
	return []annotation.Stage{annotation.StageTokenize}
}

// SetLogger implements stage.LoggerAware.
func (r *Runner) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Backend returns the active backend name.
func (r *Runner) Backend() string {
	return r.backend.Name()
}

func (r *Runner) Run(ctx context.Context, doc *annotation.Document) (annotation.Payload, error) {
	if err := stage.RequireTokens(r.Stage(), doc); err != nil {
		return annotation.Payload{}, err
	}
	tags, err := r.backend.Tag(ctx, doc)
	if err != nil {
		return annotation.Payload{}, err
	}
	if len(tags) != len(doc.Tokens) {
		return annotation.Payload{}, services.Wrap(services.ErrExternalTool, string(r.Stage()), "tag",
			fmt.Sprintf("%s returned %d tags for %d tokens", r.backend.Name(), len(tags), len(doc.Tokens)), nil)
	}
	r.logger.Debug("tagged document", logging.String("backend", r.backend.Name()), logging.Int("tokens", len(tags)))
	return annotation.Payload{PosTags: tags}, nil
}

// HealthCheck implements stage.HealthChecker.
func (r *Runner) HealthCheck(ctx context.Context) stage.Health {
	if checker, ok := r.backend.(stage.HealthChecker); ok {
		return checker.HealthCheck(ctx)
	}
	return stage.Healthy(string(r.Stage()))
}

// Command tags through an external annotator process.
type Command struct {
	client *annotator.Client
}

func (c *Command) Name() string { return config.TaggerCommand }

func (c *Command) Tag(ctx context.Context, doc *annotation.Document) ([]string, error) {
	resp, err := c.client.Annotate(ctx, annotator.Request{
		Task:       annotator.TaskPOSTag,
		DocumentID: doc.ID,
		Text:       doc.Text,
		Tokens:     doc.TokenTexts(),
		Sentences:  doc.Sentences,
	})
	if err != nil {
		return nil, err
	}
	return resp.PosTags, nil
}

func (c *Command) HealthCheck(ctx context.Context) stage.Health {
	return c.client.HealthCheck(ctx)
}
