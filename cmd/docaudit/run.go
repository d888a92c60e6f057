package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docaudit/internal/compliance"
	"github.com/dgallion1/docaudit/internal/rationale"
)

var (
	runTenant     int64
	runReportType string
)

var runCmd = &cobra.Command{
	Use:   "run [requirements-file]",
	Short: "Evaluate a requirement list",
	Long: `Evaluates every requirement in a YAML or JSON file ("-" reads stdin)
against the tenant's documents and the regulatory corpus.

The file is either a list of requirement strings or a mapping:

  report_type: FFIEC051
  requirements:
    - total assets
    - tier 1 capital`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().Int64Var(&runTenant, "tenant", 0, "tenant to evaluate")
	runCmd.Flags().StringVar(&runReportType, "report-type", "", "report type label (overrides the file)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	rf, err := compliance.LoadRequirements(r)
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	capability, claude := rationale.New(a.cfg, a.log)
	if claude != nil {
		defer claude.Close()
	}
	engine := compliance.NewEngine(a.store, capability, compliance.OptionsFrom(a.cfg), a.log)

	out, err := engine.StartRun(cmd.Context(), rf.Request(runTenant, runReportType))
	if err != nil {
		return err
	}

	cmd.Printf("Run %d (%s) %s\n\n", out.Run.ID, out.Run.ReportType, out.Run.Status)
	for _, rr := range out.Results {
		cmd.Printf("  %-8s %s (%d evidence)\n", rr.Result.Status, rr.Result.RequirementID, len(rr.Evidence))
	}
	cmd.Println()
	cmd.Printf("Build a report with: docaudit report %d --title %q\n", out.Run.ID, fmt.Sprintf("%s run %d", out.Run.ReportType, out.Run.ID))
	return nil
}
