package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/ppiankov/resonance/internal/model"
)

// NodeFinalizer finalizes and persists one classified claim
type NodeFinalizer interface {
	FinalizeAndPersist(ctx context.Context, claim model.ClassifiedClaim) (model.FinalizeSuccess, error)
}

// FinalizeJob finalizes one claim of a batch
type FinalizeJob struct {
	Index     int
	Claim     model.ClassifiedClaim
	Finalizer NodeFinalizer
}

// Execute runs the finalizer. A panic is recovered into a FinalizationError
// so that sibling jobs keep running.
func (j *FinalizeJob) Execute(ctx context.Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = &FinalizeResult{
				Index: j.Index,
				Claim: j.Claim,
				Error: &model.FinalizationError{
					NodeID: j.Claim.NodeID,
					Stage:  model.StagePanic,
					Err:    fmt.Errorf("%v\n%s", r, debug.Stack()),
				},
			}
		}
	}()

	if err := ctx.Err(); err != nil {
		return &FinalizeResult{Index: j.Index, Claim: j.Claim, Error: err}
	}

	success, err := j.Finalizer.FinalizeAndPersist(ctx, j.Claim)
	return &FinalizeResult{
		Index:   j.Index,
		Claim:   j.Claim,
		Success: success,
		Error:   err,
	}
}

// FinalizeResult is the outcome of one FinalizeJob
type FinalizeResult struct {
	Index   int
	Claim   model.ClassifiedClaim
	Success model.FinalizeSuccess
	Error   error
}

// GetError returns the error from the finalize result
func (r *FinalizeResult) GetError() error {
	return r.Error
}

// BatchProcessor finalizes claims concurrently
type BatchProcessor struct {
	finalizer   NodeFinalizer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(finalizer NodeFinalizer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		finalizer:   finalizer,
		concurrency: concurrency,
	}
}

// ProcessClaims finalizes every claim and returns one result per claim in
// input order. Claims left unprocessed because ctx ended carry ctx's error.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []model.ClassifiedClaim) []*FinalizeResult {
	if len(claims) == 0 {
		return []*FinalizeResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, claim := range claims {
		job := &FinalizeJob{
			Index:     i,
			Claim:     claim,
			Finalizer: b.finalizer,
		}
		if err := pool.Submit(job); err != nil {
			break
		}
	}

	results := pool.Wait()

	out := make([]*FinalizeResult, len(claims))
	for _, result := range results {
		fr := result.(*FinalizeResult)
		out[fr.Index] = fr
	}
	for i := range out {
		if out[i] == nil {
			err := ctx.Err()
			if err == nil {
				err = ErrPoolClosed
			}
			out[i] = &FinalizeResult{Index: i, Claim: claims[i], Error: err}
		}
	}

	return out
}

// ReadClaimsFromFile reads claims from a JSON array or from JSON lines.
// In JSON lines mode blank lines and lines starting with # are skipped.
// Claims repeating an earlier claim_id are dropped.
func ReadClaimsFromFile(filePath string) ([]model.ClaimInput, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseClaims(data)
}

// ParseClaims decodes claims the way ReadClaimsFromFile does
func ParseClaims(data []byte) ([]model.ClaimInput, error) {
	trimmed := bytes.TrimSpace(data)

	var claims []model.ClaimInput
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &claims); err != nil {
			return nil, fmt.Errorf("decode claims: %w", err)
		}
		return dedupe(claims), nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var claim model.ClaimInput
		if err := json.Unmarshal([]byte(line), &claim); err != nil {
			return nil, fmt.Errorf("decode claim on line %d: %w", lineNo, err)
		}
		claims = append(claims, claim)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan claims: %w", err)
	}

	return dedupe(claims), nil
}

// dedupe keeps the first claim per claim_id; claims without an id are kept
// so that validation can report them
func dedupe(claims []model.ClaimInput) []model.ClaimInput {
	seen := make(map[string]bool)
	out := make([]model.ClaimInput, 0, len(claims))
	for _, c := range claims {
		if c.ClaimID != "" {
			if seen[c.ClaimID] {
				continue
			}
			seen[c.ClaimID] = true
		}
		out = append(out, c)
	}
	return out
}
