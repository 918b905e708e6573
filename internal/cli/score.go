package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/resonance/internal/anchor"
	"github.com/ppiankov/resonance/internal/model"
	"github.com/ppiankov/resonance/internal/score"
)

var (
	scoreHarmonics []float64
	scoreCoords    []float64
	scoreDrift     float64
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute the NATIQ composite for raw inputs",
	Long: `Score computes the NATIQ composite (0-100) and its components
for a set of harmonic amplitudes, a coordinate pair and a drift value,
without classifying or finalizing anything.

Example:
  resonance score --harmonics 1,0.5,0.333 --coords 48.8566,2.3522 --drift 0.2`,
	Args: cobra.NoArgs,
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().Float64SliceVar(&scoreHarmonics, "harmonics", nil, "harmonic amplitudes, comma separated")
	scoreCmd.Flags().Float64SliceVar(&scoreCoords, "coords", nil, "latitude,longitude")
	scoreCmd.Flags().Float64Var(&scoreDrift, "drift", 0, "drift value in [0,1]")
	_ = scoreCmd.MarkFlagRequired("harmonics")
	_ = scoreCmd.MarkFlagRequired("coords")
}

// scoreOutput is the JSON printed by the score command
type scoreOutput struct {
	Composite    float64                 `json:"composite_score"`
	Harmonic     float64                 `json:"harmonic"`
	Alignment    float64                 `json:"alignment"`
	Drift        float64                 `json:"drift"`
	Compensation model.DriftCompensation `json:"drift_compensation"`
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	composite, err := score.ScoreComposite(scoreHarmonics, scoreCoords, scoreDrift)
	if err != nil {
		return fmt.Errorf("score failed: %w", err)
	}

	// inputs were validated by ScoreComposite
	harmonic, _ := score.WeightHarmonics(scoreHarmonics)
	alignment, _ := score.Alignment(scoreCoords)
	drift, _ := score.NormalizeDrift(scoreDrift)

	out := scoreOutput{
		Composite: composite,
		Harmonic:  harmonic,
		Alignment: alignment,
		Drift:     drift,
		Compensation: anchor.DriftCompensation(
			model.Coordinates{Lat: scoreCoords[0], Lon: scoreCoords[1]},
			cfg.Anchor.Coordinates,
		),
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
