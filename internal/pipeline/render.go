package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Renderer writes pipeline reports as JSON, Markdown or a console summary
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// RenderMarkdown writes the report as a Markdown document
func (r *Renderer) RenderMarkdown(report *Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := r.WriteMarkdown(f, report); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteMarkdown writes the Markdown form of the report to w
func (r *Renderer) WriteMarkdown(w io.Writer, report *Report) error {
	var b strings.Builder

	v := report.Verification
	b.WriteString("# Resonance Report\n\n")
	fmt.Fprintf(&b, "- **Generated:** %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- **Anchor:** %s (%.4f, %.4f)\n", report.Anchor.Name,
		report.Anchor.Coordinates.Lat, report.Anchor.Coordinates.Lon)
	fmt.Fprintf(&b, "- **Session:** `%s`\n\n", report.Manifest.Session.ID)

	b.WriteString("## Verification\n\n")
	b.WriteString("| Status | Count | Rate |\n|---|---:|---:|\n")
	fmt.Fprintf(&b, "| verified | %d | %.1f%% |\n", len(v.Verified), v.Rates.Verified)
	fmt.Fprintf(&b, "| flagged | %d | %.1f%% |\n", len(v.Flagged), v.Rates.Flagged)
	fmt.Fprintf(&b, "| critical | %d | %.1f%% |\n", len(v.Critical), v.Rates.Critical)
	fmt.Fprintf(&b, "| structural_error | %d | %.1f%% |\n\n", len(v.StructuralError), v.Rates.StructuralError)

	if len(v.Results) > 0 {
		b.WriteString("### Claims\n\n")
		b.WriteString("| Claim | Node | Status | Severity | NATIQ | Composite | Flags |\n")
		b.WriteString("|---|---|---|---|---:|---:|---|\n")
		for _, c := range v.Results {
			natiq, composite := "-", "-"
			if c.Scored != nil {
				natiq = fmt.Sprintf("%.4f", c.Scored.NatiqScore)
				composite = fmt.Sprintf("%.2f", c.Scored.Composite)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
				mdCell(c.ClaimID), mdCell(c.NodeID), c.Status, c.Severity, natiq, composite,
				mdCell(strings.Join(c.Flags, ", ")))
		}
		b.WriteString("\n")
	}

	f := report.Finalization
	b.WriteString("## Finalization\n\n")
	fmt.Fprintf(&b, "%d of %d verified claims finalized (%.1f%%).\n\n",
		f.Summary.Succeeded, f.Summary.Total, f.Summary.SuccessRate)

	if len(f.Successful) > 0 {
		b.WriteString("| Node | Locked | Field strength | Stability | Master signature |\n")
		b.WriteString("|---|---:|---:|---:|---|\n")
		for _, s := range f.Successful {
			rec := s.Record
			fmt.Fprintf(&b, "| %s | %.6f | %.6f | %.6f | `%s` |\n",
				mdCell(rec.NodeID), rec.Lock.Locked, rec.Field.Strength, rec.Field.Stability, shortSig(rec.MasterSignature))
		}
		b.WriteString("\n")
	}

	if len(f.Failed) > 0 {
		b.WriteString("### Failures\n\n")
		b.WriteString("| Node | Stage | Error |\n|---|---|---|\n")
		for _, fail := range f.Failed {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", mdCell(fail.NodeID), fail.Stage, mdCell(fail.Error))
		}
		b.WriteString("\n")
	}

	m := report.Manifest
	b.WriteString("## Manifest\n\n")
	fmt.Fprintf(&b, "- **Entries:** %d\n", m.Stats.Count)
	fmt.Fprintf(&b, "- **Total field strength:** %.6f\n", m.Stats.TotalFieldStrength)
	fmt.Fprintf(&b, "- **Mean locked score:** %.6f\n", m.Stats.MeanLockedScore)
	fmt.Fprintf(&b, "- **Signature:** `%s`\n", m.Signature)

	if r.includeFooter {
		b.WriteString("\n---\n\n")
		b.WriteString("*Generated by resonance. Records are signed with SHA-256 over canonical JSON; ")
		b.WriteString("run `resonance check` to verify a record or manifest.*\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderSummary writes a short console summary
func (r *Renderer) RenderSummary(w io.Writer, report *Report) {
	v := report.Verification
	f := report.Finalization

	fmt.Fprintf(w, "\nClaims:       %d\n", v.Total)
	fmt.Fprintf(w, "  Verified:   %d (%.1f%%)\n", len(v.Verified), v.Rates.Verified)
	fmt.Fprintf(w, "  Flagged:    %d (%.1f%%)\n", len(v.Flagged), v.Rates.Flagged)
	fmt.Fprintf(w, "  Critical:   %d (%.1f%%)\n", len(v.Critical), v.Rates.Critical)
	fmt.Fprintf(w, "  Structural: %d (%.1f%%)\n", len(v.StructuralError), v.Rates.StructuralError)
	fmt.Fprintf(w, "Finalized:    %d/%d (%.1f%%)\n", f.Summary.Succeeded, f.Summary.Total, f.Summary.SuccessRate)
	for _, fail := range f.Failed {
		fmt.Fprintf(w, "  ✗ %s [%s]: %s\n", fail.NodeID, fail.Stage, fail.Error)
	}
	fmt.Fprintf(w, "Manifest:     %s\n", shortSig(report.Manifest.Signature))
}

func shortSig(sig string) string {
	if len(sig) > 16 {
		return sig[:16]
	}
	return sig
}

func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
