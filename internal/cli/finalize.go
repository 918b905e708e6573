package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/resonance/internal/pipeline"
	"github.com/ppiankov/resonance/internal/worker"
)

var (
	manifestOut string
	noStore     bool
	noCache     bool
)

// finalizeCmd represents the finalize command
var finalizeCmd = &cobra.Command{
	Use:   "finalize <claims-file>",
	Short: "Verify claims and seal the verified ones into signed records",
	Long: `Finalize verifies every claim in the file, then anchors, locks,
fields and signs each verified claim concurrently:
- Canonical record bytes are persisted, content-addressed, to the local store
- Records are saved to the repository keyed by master signature
- A signed manifest summarizes the session

A failing node is reported and never stops the rest of the batch.

Example:
  resonance finalize claims.jsonl
  resonance finalize claims.jsonl --manifest manifest.json --md report.md
  resonance finalize claims.jsonl --no-store --json report.json`,
	Args: cobra.ExactArgs(1),
	RunE: runFinalize,
}

func init() {
	rootCmd.AddCommand(finalizeCmd)

	finalizeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON report path (optional)")
	finalizeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown report path (optional)")
	finalizeCmd.Flags().StringVar(&manifestOut, "manifest", "", "write the signed manifest to this path (optional)")
	finalizeCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of nodes finalized at once (default from config)")
	finalizeCmd.Flags().DurationVar(&cmdTimeout, "timeout", defaultTimeout, "overall timeout")
	finalizeCmd.Flags().BoolVar(&noStore, "no-store", false, "finalize without persisting records")
	finalizeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the persisted-locator cache")
	finalizeCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runFinalize(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.FinalizeWorkers = concurrency
	}
	cfg.Cache.Enabled = cfg.Cache.Enabled && !noCache
	cfg.Output.IncludeFooter = cfg.Output.IncludeFooter && !noFooter

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Resonance Finalization\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Anchor:       %s (%.4f, %.4f)\n", cfg.Anchor.Name,
		cfg.Anchor.Coordinates.Lat, cfg.Anchor.Coordinates.Lon)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.FinalizeWorkers)
	if noStore {
		fmt.Fprintf(os.Stderr, "  Store:        disabled\n")
	} else {
		fmt.Fprintf(os.Stderr, "  Store:        %s\n", cfg.Store.Path)
	}
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", cmdTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	claims, err := worker.ReadClaimsFromFile(file)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d claims\n\n", len(claims))

	opts := pipeline.Options{}
	if !noStore {
		stores, err := pipeline.OpenStores(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = stores.Close() }()
		opts = stores.Options()
	}
	opts.Logger = logger

	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()

	p := pipeline.NewPipeline(cfg, opts)
	report, err := p.Run(ctx, claims)
	if err != nil {
		return fmt.Errorf("finalize failed: %w", err)
	}

	for _, s := range report.Finalization.Successful {
		fmt.Fprintf(os.Stderr, "✓ %s  locked=%.6f  field=%.6f  %s\n",
			s.Record.NodeID, s.Record.Lock.Locked, s.Record.Field.Strength, s.Record.MasterSignature)
	}

	if err := p.RenderReport(report, outJSON, outMD, cfg.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	if manifestOut != "" {
		if err := writeJSON(manifestOut, report.Manifest); err != nil {
			return err
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Finalization Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	p.Renderer().RenderSummary(os.Stderr, report)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
