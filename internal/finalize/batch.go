package finalize

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ppiankov/resonance/internal/model"
	"github.com/ppiankov/resonance/internal/store"
	"github.com/ppiankov/resonance/internal/worker"
)

// BatchFinalize finalizes claims concurrently, persists each record's
// canonical bytes and saves it into repo (which may be nil). A failing node
// is reported in the outcome and never stops its siblings. Results keep
// input order.
func (f *Finalizer) BatchFinalize(ctx context.Context, claims []model.ClassifiedClaim, repo store.Repository) model.FinalizeOutcome {
	outcome := model.FinalizeOutcome{
		Successful: []model.FinalizeSuccess{},
		Failed:     []model.FinalizeFailure{},
	}

	var nodeFinalizer worker.NodeFinalizer = f
	if repo != nil {
		nodeFinalizer = &savingFinalizer{finalizer: f, repo: repo}
	}

	results := worker.NewBatchProcessor(nodeFinalizer, f.workers).ProcessClaims(ctx, claims)
	for _, res := range results {
		if res.Error != nil {
			failure := failureFor(res.Claim, res.Error)
			f.logger.Warn("finalize failed",
				zap.String("node_id", failure.NodeID),
				zap.String("claim_id", failure.ClaimID),
				zap.String("stage", failure.Stage),
				zap.Error(res.Error))
			outcome.Failed = append(outcome.Failed, failure)
			continue
		}
		outcome.Successful = append(outcome.Successful, res.Success)
	}

	outcome.Summary = summarize(len(claims), len(outcome.Successful), len(outcome.Failed))
	f.logger.Info("batch finalized",
		zap.Int("total", outcome.Summary.Total),
		zap.Int("succeeded", outcome.Summary.Succeeded),
		zap.Int("failed", outcome.Summary.Failed))
	return outcome
}

// savingFinalizer saves every persisted record into a repository
type savingFinalizer struct {
	finalizer *Finalizer
	repo      store.Repository
}

func (s *savingFinalizer) FinalizeAndPersist(ctx context.Context, claim model.ClassifiedClaim) (model.FinalizeSuccess, error) {
	success, err := s.finalizer.FinalizeAndPersist(ctx, claim)
	if err != nil {
		return model.FinalizeSuccess{}, err
	}
	if err := s.repo.Save(ctx, success.Record); err != nil {
		return model.FinalizeSuccess{}, &model.FinalizationError{NodeID: claim.NodeID, Stage: model.StageStore, Err: err}
	}
	return success, nil
}

func failureFor(claim model.ClassifiedClaim, err error) model.FinalizeFailure {
	failure := model.FinalizeFailure{
		NodeID:  claim.NodeID,
		ClaimID: claim.ClaimID,
		Stage:   model.StageUnknown,
		Error:   err.Error(),
	}

	var fe *model.FinalizationError
	switch {
	case errors.As(err, &fe):
		failure.Stage = fe.Stage
		failure.Error = fe.Err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		failure.Stage = model.StageCancelled
	}
	return failure
}

func summarize(total, succeeded, failed int) model.FinalizeSummary {
	summary := model.FinalizeSummary{Total: total, Succeeded: succeeded, Failed: failed}
	if total > 0 {
		summary.SuccessRate = float64(succeeded) / float64(total) * 100
	}
	return summary
}
