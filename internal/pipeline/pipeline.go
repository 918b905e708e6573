package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/resonance/internal/finalize"
	"github.com/ppiankov/resonance/internal/manifest"
	"github.com/ppiankov/resonance/internal/model"
	"github.com/ppiankov/resonance/internal/score"
	"github.com/ppiankov/resonance/internal/store"
	"github.com/ppiankov/resonance/internal/validate"
)

// Pipeline runs claims through verification, finalization and manifest building
type Pipeline struct {
	verifier   *validate.Verifier
	finalizer  *finalize.Finalizer
	manifests  *manifest.Builder
	repository store.Repository
	renderer   *Renderer
	config     *model.Config
	logger     *zap.Logger
	now        func() time.Time
}

// Options are the collaborators a pipeline writes through. All are optional.
type Options struct {
	Persister  store.Persister
	Repository store.Repository
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	return &Pipeline{
		verifier: validate.NewVerifier(
			score.NewScorer(cfg.Anchor),
			cfg.Thresholds,
			cfg.Concurrency.VerifyWorkers,
			logger,
		),
		finalizer: finalize.NewFinalizer(cfg.Anchor,
			finalize.WithClock(now),
			finalize.WithPersister(opts.Persister),
			finalize.WithWorkers(cfg.Concurrency.FinalizeWorkers),
			finalize.WithLogger(logger),
		),
		manifests:  manifest.NewBuilder(cfg.Anchor).WithClock(now),
		repository: opts.Repository,
		renderer:   NewRenderer(cfg.Output.IncludeFooter),
		config:     cfg,
		logger:     logger,
		now:        now,
	}
}

// Report is the complete result of one pipeline run
type Report struct {
	GeneratedAt  time.Time             `json:"generated_at"`
	Anchor       model.Anchor          `json:"anchor"`
	Thresholds   model.Thresholds      `json:"thresholds"`
	Verification model.BatchResult     `json:"verification"`
	Finalization model.FinalizeOutcome `json:"finalization"`
	Manifest     model.Manifest        `json:"manifest"`
}

// Verify classifies claims without finalizing them
func (p *Pipeline) Verify(ctx context.Context, claims []model.ClaimInput) (model.BatchResult, error) {
	return p.verifier.VerifyAll(ctx, claims)
}

// Run verifies claims, finalizes the verified ones and summarizes the
// finalized records in a manifest. Per-claim failures end up in the
// report; only cancellation and manifest signing errors are returned.
func (p *Pipeline) Run(ctx context.Context, claims []model.ClaimInput) (*Report, error) {
	// 1. Verify
	verification, err := p.verifier.VerifyAll(ctx, claims)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	// 2. Finalize verified claims
	finalization := p.finalizer.BatchFinalize(ctx, verification.Verified, p.repository)

	// 3. Build the manifest over what was finalized
	records := make([]model.FinalizedRecord, 0, len(finalization.Successful))
	for _, s := range finalization.Successful {
		records = append(records, s.Record)
	}
	m, err := p.manifests.Build(records)
	if err != nil {
		return nil, fmt.Errorf("build manifest: %w", err)
	}

	p.logger.Info("pipeline complete",
		zap.Int("claims", verification.Total),
		zap.Int("verified", len(verification.Verified)),
		zap.Int("finalized", finalization.Summary.Succeeded),
		zap.String("session", m.Session.ID))

	return &Report{
		GeneratedAt:  p.now().UTC(),
		Anchor:       p.config.Anchor,
		Thresholds:   p.config.Thresholds,
		Verification: verification,
		Finalization: finalization,
		Manifest:     m,
	}, nil
}

// RenderReport renders the report to the specified outputs
func (p *Pipeline) RenderReport(report *Report, jsonPath string, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	return nil
}

// Renderer returns the pipeline's renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}
