package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/resonance/internal/store"
)

var recordsJSON string

// recordsCmd represents the records command
var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List finalized records in the local store",
	Long: `Records lists every finalized record in the local store in the
order it was saved.

Example:
  resonance records
  resonance records --json records.json`,
	Args: cobra.NoArgs,
	RunE: runRecords,
}

func init() {
	rootCmd.AddCommand(recordsCmd)

	recordsCmd.Flags().StringVar(&recordsJSON, "json", "", "write the records as JSON to this path")
}

func runRecords(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	records, err := db.Repository().List(ctx)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, rec := range records {
		fmt.Fprintf(out, "%s  %-20s  locked=%.6f  %s\n",
			rec.FinalizedAt.Format("2006-01-02T15:04:05Z"), rec.NodeID, rec.Lock.Locked, rec.MasterSignature)
	}
	fmt.Fprintf(out, "%d records in %s\n", len(records), cfg.Store.Path)

	if recordsJSON != "" {
		return writeJSON(recordsJSON, records)
	}
	return nil
}
