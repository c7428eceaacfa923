package segmenter

import (
	"context"
	"fmt"
	"log/slog"

	"ieprep/internal/annotation"
	"ieprep/internal/config"
	"ieprep/internal/logging"
	"ieprep/internal/services"
	"ieprep/internal/stage"
)

// Runner produces segments from sentence boundaries and entities.
type Runner struct {
	mode     string
	distance int
	logger   *slog.Logger
}

// New builds a runner from cfg.
func New(cfg config.Segmentation) (*Runner, error) {
	switch cfg.Mode {
	case "", config.SegmentationSyntactic:
		return &Runner{mode: config.SegmentationSyntactic, logger: logging.NewNop()}, nil
	case config.SegmentationContextual:
		if cfg.ContextDistance <= 0 {
			return nil, services.Wrap(services.ErrConfiguration, string(annotation.StageSegmentation), "configure",
				"context_distance must be positive", nil)
		}
		return &Runner{mode: cfg.Mode, distance: cfg.ContextDistance, logger: logging.NewNop()}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, string(annotation.StageSegmentation), "configure",
			fmt.Sprintf("unknown segmentation mode %q", cfg.Mode), nil)
	}
}

func (r *Runner) Stage() annotation.Stage { return annotation.StageSegmentation }

func (r *Runner) Prerequisites() []annotation.Stage { return nil }

// Mode returns the active segmentation mode.
func (r *Runner) Mode() string { return r.mode }

// SetLogger implements stage.LoggerAware.
func (r *Runner) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

func (r *Runner) Run(ctx context.Context, doc *annotation.Document) (annotation.Payload, error) {
	if err := stage.RequireTokens(r.Stage(), doc); err != nil {
		return annotation.Payload{}, err
	}
	if err := ctx.Err(); err != nil {
		return annotation.Payload{}, err
	}
	var segments []annotation.Segment
	if r.mode == config.SegmentationContextual {
		segments = Contextual(doc, r.distance)
	} else {
		segments = Syntactic(doc)
	}
	r.logger.Debug("segmented document",
		logging.String("mode", r.mode),
		logging.Int("segments", len(segments)),
		logging.Int("entities", len(doc.Entities)),
	)
	return annotation.Payload{Segments: segments}, nil
}

// Syntactic returns every sentence in which at least two entities start.
func Syntactic(doc *annotation.Document) []annotation.Segment {
	var out []annotation.Segment
	for _, bounds := range doc.SentenceBounds() {
		if seg := buildSegment(doc.Entities, bounds[0], bounds[1]); len(seg.Entities) >= 2 {
			out = append(out, seg)
		}
	}
	return out
}

// Contextual returns a window around every pair of consecutive entities that
// are less than distance tokens apart. The window is padded by distance on
// both sides, reaches a third entity when that one is also close, and grows
// so it never cuts an entity. A window ending where the previous one ended
// and starting no earlier is skipped.
func Contextual(doc *annotation.Document, distance int) []annotation.Segment {
	var out []annotation.Segment
	entities := doc.Entities
	n := len(entities)
	lastStart, lastEnd := -1, -1
	for i := 0; i+1 < n; i++ {
		for entities[i+1].Start-entities[i].End >= distance {
			i++
			if i+1 == n {
				return out
			}
		}
		left, right := entities[i], entities[i+1]
		if i+2 < n && entities[i+2].Start-right.End < distance {
			right = entities[i+2]
		}

		start := max(0, left.Start-distance)
		end := min(right.End+distance, len(doc.Tokens))
		for j := i; j >= 0 && entities[j].End > start; j-- {
			start = min(start, entities[j].Start)
		}
		for j := i; j < n && entities[j].Start < end; j++ {
			end = max(end, entities[j].End)
		}

		if end != lastEnd || start < lastStart {
			out = append(out, buildSegment(entities, start, end))
		}
		lastStart, lastEnd = start, end
	}
	return out
}

// buildSegment collects the entities that start inside [start,end).
func buildSegment(entities []annotation.Entity, start, end int) annotation.Segment {
	seg := annotation.Segment{Start: start, End: end}
	for idx, e := range entities {
		if e.Start >= start && e.Start < end {
			seg.Entities = append(seg.Entities, idx)
		}
	}
	return seg
}
