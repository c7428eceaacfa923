package recognizer

import (
	"context"
	"log/slog"

	"ieprep/internal/annotation"
	"ieprep/internal/config"
	"ieprep/internal/gazetteer"
	"ieprep/internal/logging"
	"ieprep/internal/services/annotator"
	"ieprep/internal/stage"
)

// SourceStatistical names the external model recognizer.
const SourceStatistical = "statistical"

// Statistical asks an external model for entity spans.
type Statistical struct {
	client *annotator.Client
	kinds  *gazetteer.Kinds
	logger *slog.Logger
}

// NewStatistical builds the recognizer from cfg. Spans of kinds not in kinds
// are discarded.
func NewStatistical(cfg config.StatisticalNER, kinds *gazetteer.Kinds, opts ...annotator.Option) (*Statistical, error) {
	client, err := annotator.New(SourceStatistical, cfg.Command, cfg.Args, cfg.TimeoutSeconds, opts...)
	if err != nil {
		return nil, err
	}
	return &Statistical{client: client, kinds: kinds, logger: logging.NewNop()}, nil
}

func (s *Statistical) Source() string { return SourceStatistical }

// SetLogger implements stage.LoggerAware.
func (s *Statistical) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *Statistical) Recognize(ctx context.Context, doc *annotation.Document) ([]annotation.Entity, error) {
	if err := stage.RequireTokens(annotation.StageNER, doc); err != nil {
		return nil, err
	}
	resp, err := s.client.Annotate(ctx, annotator.Request{
		Task:       annotator.TaskEntities,
		DocumentID: doc.ID,
		Text:       doc.Text,
		Tokens:     doc.TokenTexts(),
		Sentences:  doc.Sentences,
		PosTags:    doc.PosTags,
	})
	if err != nil {
		return nil, err
	}
	out := make([]annotation.Entity, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		if e.Start < 0 || e.End <= e.Start || e.End > len(doc.Tokens) {
			s.logger.Debug("discarding entity outside document",
				logging.Int("start", e.Start),
				logging.Int("end", e.End),
				logging.Int("tokens", len(doc.Tokens)),
			)
			continue
		}
		kind, ok := s.kinds.Lookup(e.Kind)
		if !ok {
			s.logger.Debug("discarding entity of unknown kind",
				logging.String("kind", e.Kind),
				logging.Int("start", e.Start),
				logging.Int("end", e.End),
			)
			continue
		}
		out = append(out, annotation.Entity{
			Start:      e.Start,
			End:        e.End,
			Kind:       kind.ID,
			Key:        e.Key,
			Alias:      doc.SpanText(e.Start, e.End),
			Confidence: e.Confidence,
		})
	}
	return out, nil
}

// HealthCheck implements stage.HealthChecker.
func (s *Statistical) HealthCheck(ctx context.Context) stage.Health {
	return s.client.HealthCheck(ctx)
}
