package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperstitch/paperstitch/internal/services"
)

var reconstructPeriods []string

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct",
	Short: "Stitch page artifacts into whole documents",
	Long: `Rebuild full-text documents from the per-page markdown artifacts
under <mmd_root> and write them to <output_root>/<period>/.

A document is reconstructed only when its first page carries more than
one heading and mentions an abstract, and a references heading was seen
on some page. The author block is stripped from the first page and
everything from the references heading onward is dropped.

Examples:
  paperstitch reconstruct
  paperstitch reconstruct --periods 2310`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reconstructor, err := services.NewReconstructor(services.ReconstructorConfig{
			MMDRoot:    cfg.MMDRoot,
			OutputRoot: cfg.OutputRoot,
			Periods:    reconstructPeriods,
			Workers:    cfg.Workers,
		})
		if err != nil {
			return err
		}

		results, err := reconstructor.Process(cmd.Context())
		if err != nil {
			return err
		}

		var valid, invalid, written, excluded int
		for _, result := range results {
			fmt.Printf("Period %s: %d valid, %d invalid, %d reconstructed, %d excluded\n",
				result.Period, result.ValidCount, result.DocumentCount-result.ValidCount,
				result.WrittenCount, result.ExcludedCount)
			valid += result.ValidCount
			invalid += result.DocumentCount - result.ValidCount
			written += result.WrittenCount
			excluded += result.ExcludedCount
		}
		if len(results) > 1 {
			fmt.Printf("Total: %d valid, %d invalid, %d reconstructed, %d excluded\n",
				valid, invalid, written, excluded)
		}
		return nil
	},
}

func init() {
	reconstructCmd.Flags().StringSliceVar(&reconstructPeriods, "periods", nil, "periods to reconstruct (default: every period under mmd_root)")

	rootCmd.AddCommand(reconstructCmd)
}
