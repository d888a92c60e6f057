package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docaudit/internal/pipeline"
)

var (
	ingestTenant int64
	ingestTitle  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Parse, chunk and store documents",
	Long:  `Runs each file through the ingestion pipeline in-process and prints the resulting document.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().Int64Var(&ingestTenant, "tenant", 0, "tenant that owns the documents (required)")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title (default: parsed title)")
	ingestCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestTenant <= 0 {
		return fmt.Errorf("--tenant must be positive")
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	w := pipeline.NewWorker(a.store, a.log, pipeline.WorkerConfigFrom(a.cfg))
	var failed int
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		job := pipeline.NewUploadJob(ingestTenant, path, ingestTitle, data)
		w.Process(cmd.Context(), job)

		snap := job.Snapshot()
		switch snap.Status {
		case pipeline.StatusCompleted:
			cmd.Printf("%s: document %d, %d chunks\n", path, snap.DocumentID, snap.Progress.ChunksStored)
		case pipeline.StatusDupSkipped:
			cmd.Printf("%s: duplicate of document %d\n", path, snap.DocumentID)
		default:
			failed++
			cmd.Printf("%s: %s during %s %v\n", path, snap.Status, snap.Phase, snap.Progress.Errors)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}
