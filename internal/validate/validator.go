package validate

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ppiankov/resonance/internal/model"
	"github.com/ppiankov/resonance/internal/score"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Verifier validates, scores and classifies claims concurrently
type Verifier struct {
	scorer     *score.Scorer
	thresholds model.Thresholds
	maxWorkers int
	logger     *zap.Logger
}

// NewVerifier creates a new verifier
func NewVerifier(scorer *score.Scorer, thresholds model.Thresholds, maxWorkers int, logger *zap.Logger) *Verifier {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Verifier{
		scorer:     scorer,
		thresholds: thresholds,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// Thresholds returns the thresholds this verifier classifies against
func (v *Verifier) Thresholds() model.Thresholds {
	return v.thresholds
}

// Verify runs structural validation, scoring and classification for one claim
func (v *Verifier) Verify(in model.ClaimInput) model.ClassifiedClaim {
	raw, errs := model.NewRawClaim(in)
	if len(errs) > 0 {
		return StructuralFailure(in, errs)
	}

	scored, err := v.scorer.Score(raw)
	if err != nil {
		// CheckStructure admits only finite inputs, so this is unreachable in practice
		return StructuralFailure(in, []model.StructuralError{{Field: "claim", Reason: err.Error()}})
	}

	return Classify(scored, v.thresholds)
}

// VerifyAll verifies every claim independently. Claims share no state, so
// they run in parallel up to maxWorkers; results keep input order.
func (v *Verifier) VerifyAll(ctx context.Context, claims []model.ClaimInput) (model.BatchResult, error) {
	results := make([]model.ClassifiedClaim, len(claims))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.maxWorkers)

	for i := range claims {
		idx := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[idx] = v.Verify(claims[idx])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return model.BatchResult{}, fmt.Errorf("verify claims: %w", err)
	}

	batch := Summarize(results)
	v.logger.Debug("verified claims",
		zap.Int("total", batch.Total),
		zap.Int("verified", len(batch.Verified)),
		zap.Int("flagged", len(batch.Flagged)),
		zap.Int("critical", len(batch.Critical)),
		zap.Int("structural_error", len(batch.StructuralError)),
	)
	return batch, nil
}

// Summarize groups classified claims by status and computes percentage rates
func Summarize(results []model.ClassifiedClaim) model.BatchResult {
	batch := model.BatchResult{
		Total:           len(results),
		Results:         results,
		Verified:        []model.ClassifiedClaim{},
		Flagged:         []model.ClassifiedClaim{},
		Critical:        []model.ClassifiedClaim{},
		StructuralError: []model.ClassifiedClaim{},
	}

	for _, r := range results {
		switch r.Status {
		case model.StatusVerified:
			batch.Verified = append(batch.Verified, r)
		case model.StatusFlagged:
			batch.Flagged = append(batch.Flagged, r)
		case model.StatusCritical:
			batch.Critical = append(batch.Critical, r)
		case model.StatusStructuralError:
			batch.StructuralError = append(batch.StructuralError, r)
		}
	}

	if batch.Total > 0 {
		total := float64(batch.Total)
		batch.Rates = model.Rates{
			Verified:        float64(len(batch.Verified)) / total * 100,
			Flagged:         float64(len(batch.Flagged)) / total * 100,
			Critical:        float64(len(batch.Critical)) / total * 100,
			StructuralError: float64(len(batch.StructuralError)) / total * 100,
		}
	}

	return batch
}
