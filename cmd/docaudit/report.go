package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docaudit/internal/report"
)

var (
	reportTitle  string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Render a completed run's report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportTitle, "title", "", "report title, also used for the file name (required)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", report.DefaultFormat,
		"output format: "+strings.Join(report.Formats(), ", "))
	reportCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	runID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := report.NewBuilder(a.store, a.cfg.StorageDir, a.log).Build(cmd.Context(), runID, reportTitle, reportFormat)
	if err != nil {
		return err
	}
	cmd.Printf("Report %d written to %s\n", rep.ID, rep.OutputPath)
	cmd.Printf("sha256 %s\n", rep.ContentHash)
	return nil
}
