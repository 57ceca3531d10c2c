package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperstitch/paperstitch/internal/services"
)

var (
	ocrPeriods   []string
	ocrOverwrite bool
)

var ocrCmd = &cobra.Command{
	Use:   "ocr",
	Short: "Transcribe source PDF pages into markdown artifacts",
	Long: `Convert every source PDF under <pdf_root> into per-page markdown
artifacts under <mmd_root>, one <documentID>_<pageNumber>.mmd file per
page.

Each document is optimized, split into single-page PDFs, staged to the
configured GCS bucket, and transcribed page by page by the configured
Vertex AI model. Conversion state is tracked in Firestore, so completed
documents and existing page artifacts are skipped on rerun unless
--overwrite is given.

Requires gcp.project_id and gcp.staging_bucket to be configured.

Examples:
  paperstitch ocr
  paperstitch ocr --periods 2310,2311
  paperstitch ocr --overwrite`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		converter, err := services.NewConverter(ctx, services.ConverterConfig{
			ProjectID:     cfg.GCP.ProjectID,
			Region:        cfg.GCP.Region,
			ModelName:     cfg.GCP.Model,
			StagingBucket: cfg.GCP.StagingBucket,
			Collection:    cfg.GCP.Collection,
			PDFRoot:       cfg.PDFRoot,
			MMDRoot:       cfg.MMDRoot,
			Periods:       ocrPeriods,
			Workers:       cfg.Workers,
			Overwrite:     ocrOverwrite,
		})
		if err != nil {
			return err
		}
		defer converter.Close()

		result, err := converter.Process(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Converted %d documents, %d skipped, %d failed\n",
			result.Processed, result.Skipped, result.Failed)
		return nil
	},
}

func init() {
	ocrCmd.Flags().StringSliceVar(&ocrPeriods, "periods", nil, "periods to convert (default: every period under pdf_root)")
	ocrCmd.Flags().BoolVar(&ocrOverwrite, "overwrite", false, "reconvert documents and pages that already have artifacts")

	rootCmd.AddCommand(ocrCmd)
}
