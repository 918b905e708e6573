package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/resonance/internal/model"
	"github.com/ppiankov/resonance/internal/pipeline"
	"github.com/ppiankov/resonance/internal/worker"
)

var (
	outJSON     string
	outMD       string
	noFooter    bool
	cmdTimeout  time.Duration
	concurrency int
)

const defaultTimeout = 5 * time.Minute

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <claims-file>",
	Short: "Score and classify claims without finalizing them",
	Long: `Verify reads claims from a JSON array or JSON-lines file, scores each
one and classifies it as verified, flagged, critical or structural_error.

Nothing is signed or stored. Use 'resonance finalize' to seal verified claims.

Example:
  resonance verify claims.jsonl
  resonance verify claims.json --json verdicts.json`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&outJSON, "json", "", "write the batch result as JSON to this path")
	verifyCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	verifyCmd.Flags().DurationVar(&cmdTimeout, "timeout", defaultTimeout, "overall timeout")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.VerifyWorkers = concurrency
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	claims, err := worker.ReadClaimsFromFile(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	p := pipeline.NewPipeline(cfg, pipeline.Options{Logger: logger})
	result, err := p.Verify(ctx, claims)
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	for _, c := range result.Results {
		fmt.Fprintln(os.Stderr, verdictLine(c))
	}
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:       %d claims\n", result.Total)
	fmt.Fprintf(os.Stderr, "  Verified:    %d (%.1f%%)\n", len(result.Verified), result.Rates.Verified)
	fmt.Fprintf(os.Stderr, "  Flagged:     %d (%.1f%%)\n", len(result.Flagged), result.Rates.Flagged)
	fmt.Fprintf(os.Stderr, "  Critical:    %d (%.1f%%)\n", len(result.Critical), result.Rates.Critical)
	fmt.Fprintf(os.Stderr, "  Structural:  %d (%.1f%%)\n", len(result.StructuralError), result.Rates.StructuralError)

	if outJSON != "" {
		if err := writeJSON(outJSON, result); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "\n✓ Wrote JSON: %s\n", outJSON)
	}
	return nil
}

// verdictLine formats one classified claim for the console
func verdictLine(c model.ClassifiedClaim) string {
	mark := "✓"
	if !c.Verified() {
		mark = "✗"
	}
	line := fmt.Sprintf("%s %s [%s/%s]", mark, c.NodeID, c.Status, c.Severity)
	if c.NodeID == "" {
		line = fmt.Sprintf("%s claim %s [%s/%s]", mark, c.ClaimID, c.Status, c.Severity)
	}
	if c.Scored != nil {
		line += fmt.Sprintf(" natiq=%.4f composite=%.2f", c.Scored.NatiqScore, c.Scored.Composite)
	}
	if len(c.Flags) > 0 {
		line += ": " + strings.Join(c.Flags, "; ")
	}
	return line
}

// writeJSON writes v as indented JSON
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
