// Package pipeline composes repository analysis, template selection and
// document writing into the staged producer behind a generation session.
//
// Pipeline implements [scribe.Generator]: it reports canonical per-stage
// progress with non-decreasing fractions, maps collaborator failures onto
// the session error taxonomy, and stops as soon as the session context is
// cancelled.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/scribehq/scribe"
	"github.com/scribehq/scribe/cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Analysis summarizes a repository for the writer prompt.
type Analysis struct {
	Languages  map[string]int    `json:"languages"`
	FileCount  int               `json:"file_count"`
	TreeSample []string          `json:"tree_sample"`
	KeyFiles   map[string]string `json:"key_files"`
}

// Analyzer produces an Analysis for a repository reference.
type Analyzer interface {
	Analyze(ctx context.Context, targetRef string) (Analysis, error)
}

// TemplateSource resolves a template id to template markdown.
type TemplateSource interface {
	Template(ctx context.Context, id int) (string, error)
}

// Prompt is the writer's input: everything known about the session.
type Prompt struct {
	TargetRef string
	Title     string
	Template  string
	Analysis  Analysis
}

// Writer turns a prompt into the final document, emitting chunks as they
// stream in so the pipeline can report generation progress.
type Writer interface {
	Write(ctx context.Context, p Prompt, emit func(chunk string)) (string, error)
}

// Interface compliance check.
var _ scribe.Generator = (*Pipeline)(nil)

// Pipeline is the reference [scribe.Generator].
type Pipeline struct {
	analyzer  Analyzer
	templates TemplateSource
	writer    Writer
	cache     cache.Cache
	cacheTTL  time.Duration
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithCache caches analysis results under "scan:<targetRef>" for ttl.
// Cache failures degrade to misses and never fail a session.
func WithCache(c cache.Cache, ttl time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// WithLogger sets the pipeline logger. Default discards.
func WithLogger(l zerolog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a Pipeline. templates may be nil when every request uses the
// built-in default template.
func New(a Analyzer, t TemplateSource, w Writer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		analyzer:  a,
		templates: t,
		writer:    w,
		logger:    zerolog.Nop(),
		tracer:    otel.Tracer("scribe/pipeline"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Canonical stage milestones. Generation creeps from its milestone toward
// the ceiling as writer chunks arrive; 1.0 is reserved for the last
// progress envelope before the terminal frame.
const (
	fracInit       = 0.0
	fracAnalysis   = 0.3
	fracTemplate   = 0.5
	fracGeneration = 0.6
	fracCeiling    = 0.99
)

// Generate implements scribe.Generator.
func (p *Pipeline) Generate(ctx context.Context, req scribe.Request, report func(scribe.Progress)) (string, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.generate",
		trace.WithAttributes(attribute.String("target_ref", req.TargetRef)))
	defer span.End()

	emit := func(stage scribe.Stage, fraction float64, message string) {
		report(scribe.Progress{
			Stage:     stage,
			Message:   message,
			Fraction:  fraction,
			Timestamp: time.Now(),
		})
	}

	emit(scribe.StageInit, fracInit, "Starting repository analysis...")

	analysis, err := p.analyze(ctx, req.TargetRef)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	emit(scribe.StageAnalysis, fracAnalysis, "Analyzing repository structure...")

	emit(scribe.StageTemplate, fracTemplate, "Fetching template...")
	tmpl, err := p.template(ctx, req.TemplateID)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	emit(scribe.StageGeneration, fracGeneration, "Generating document content...")
	fraction := fracGeneration
	artifact, err := p.write(ctx, Prompt{
		TargetRef: req.TargetRef,
		Title:     req.Title,
		Template:  tmpl,
		Analysis:  analysis,
	}, func(string) {
		if fraction < fracCeiling {
			fraction = min(fraction+0.01, fracCeiling)
			emit(scribe.StageGeneration, fraction, "Generating document content...")
		}
	})
	if err != nil {
		return "", err
	}
	return artifact, nil
}

// analyze resolves the repository summary, consulting the cache first.
func (p *Pipeline) analyze(ctx context.Context, targetRef string) (Analysis, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.analyze")
	defer span.End()

	key := "scan:" + targetRef
	if p.cache != nil {
		if b, ok := p.cache.Get(ctx, key); ok {
			var a Analysis
			if err := json.Unmarshal(b, &a); err == nil {
				span.SetAttributes(attribute.Bool("cache_hit", true))
				return a, nil
			}
			// A corrupt entry is a miss.
			p.logger.Warn().Str("key", key).Msg("discarding corrupt cache entry")
		}
	}

	a, err := p.analyzer.Analyze(ctx, targetRef)
	if err != nil {
		return Analysis{}, analysisError(err)
	}
	if p.cache != nil {
		if b, err := json.Marshal(a); err == nil {
			p.cache.Set(ctx, key, b, p.cacheTTL)
		}
	}
	return a, nil
}

func (p *Pipeline) template(ctx context.Context, id *int) (string, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.template")
	defer span.End()

	if id == nil {
		return DefaultTemplate, nil
	}
	if p.templates == nil {
		return "", &scribe.SessionError{
			Kind:      scribe.KindValidation,
			Message:   fmt.Sprintf("unknown template %d", *id),
			Timestamp: time.Now(),
		}
	}
	tmpl, err := p.templates.Template(ctx, *id)
	if err != nil {
		return "", sessionError(err, scribe.KindInternal, "template fetch failed")
	}
	return tmpl, nil
}

func (p *Pipeline) write(ctx context.Context, prompt Prompt, emit func(string)) (string, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.write")
	defer span.End()

	artifact, err := p.writer.Write(ctx, prompt, emit)
	if err != nil {
		p.logger.Error().Err(err).Str("target_ref", prompt.TargetRef).Msg("writer failed")
		return "", sessionError(err, scribe.KindAnalysis, "document generation failed")
	}
	return artifact, nil
}

// analysisError maps an analyzer failure onto the taxonomy. Analyzers
// report repository access problems as a *scribe.SessionError themselves;
// everything else is an analysis failure.
func analysisError(err error) error {
	return sessionError(err, scribe.KindAnalysis, "repository analysis failed")
}

// sessionError passes a *scribe.SessionError through unchanged and wraps
// any other error under kind with a caller-safe message.
func sessionError(err error, kind scribe.ErrorKind, message string) error {
	var se *scribe.SessionError
	if errors.As(err, &se) {
		return se
	}
	return &scribe.SessionError{
		Kind:      kind,
		Message:   fmt.Sprintf("%s: %v", message, err),
		Timestamp: time.Now(),
	}
}
