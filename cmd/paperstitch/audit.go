package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperstitch/paperstitch/internal/services"
)

var (
	auditPeriods []string
	auditReport  string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Cross-check page artifacts against source page counts",
	Long: `Compare the page artifacts under <mmd_root> with the true page count
of every source PDF under <pdf_root>.

Each source document is COMPLETE when exactly pages 1..N exist,
INCOMPLETE when pages are missing or unexpected extras appear, and
MISSING when no artifact exists at all. The audit never gates
reconstruction; it reports discrepancies for operator review.

Examples:
  paperstitch audit
  paperstitch audit --periods 2310 --report audit.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reportPath := auditReport
		if reportPath == "" {
			reportPath = cfg.Audit.ReportPath
		}

		auditor, err := services.NewAuditor(services.AuditorConfig{
			PDFRoot:    cfg.PDFRoot,
			MMDRoot:    cfg.MMDRoot,
			Periods:    auditPeriods,
			Workers:    cfg.Workers,
			ReportPath: reportPath,
		})
		if err != nil {
			return err
		}

		summary, err := auditor.Process(cmd.Context())
		if err != nil {
			return err
		}

		complete, incomplete, missing := summary.Counts()
		fmt.Printf("Complete conversions: %d\n", complete)
		fmt.Printf("Incomplete conversions: %d\n", incomplete)
		fmt.Printf("Missing conversions: %d\n", missing)

		if incomplete > 0 {
			fmt.Println("\nIncomplete conversions:")
			for _, report := range summary.Incomplete {
				fmt.Printf("  %s: expected %d pages, observed %d, missing %v\n",
					report.DocumentID, report.ExpectedPageCount, len(report.ObservedPages), report.MissingPages)
			}
		}
		if missing > 0 {
			fmt.Println("\nMissing conversions:")
			for _, report := range summary.Missing {
				fmt.Printf("  %s: no page artifacts found (source has %d pages)\n",
					report.DocumentID, report.ExpectedPageCount)
			}
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().StringSliceVar(&auditPeriods, "periods", nil, "periods to audit (default: every period under pdf_root)")
	auditCmd.Flags().StringVar(&auditReport, "report", "", "write the machine-readable JSON report to this path")

	rootCmd.AddCommand(auditCmd)
}
