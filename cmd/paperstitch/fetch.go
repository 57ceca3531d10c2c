package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperstitch/paperstitch/internal/services"
)

var (
	fetchManifest string
	fetchKeepTars bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download archive tars and extract their PDFs",
	Long: `Download every archive tar an XML manifest lists and unpack the PDF
members into <pdf_root>/<period>/, where the period comes from the
archive name (arXiv_pdf_23_10_1.tar lands in 2310).

Archives download from the configured GCS mirror; set
fetch.billing_project when the mirror is requester-pays. Tars are
deleted after extraction unless --keep-tars is given.

Examples:
  paperstitch fetch -m arXiv_pdf_manifest.xml
  paperstitch fetch -m manifest.xml --keep-tars`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		fetcher, err := services.NewFetcher(ctx, services.FetcherConfig{
			ManifestPath:   fetchManifest,
			ArchiveBucket:  cfg.Fetch.ArchiveBucket,
			BillingProject: cfg.Fetch.BillingProject,
			PDFRoot:        cfg.PDFRoot,
			TarDir:         cfg.Fetch.TarDir,
			KeepTars:       fetchKeepTars || cfg.Fetch.KeepTars,
			Workers:        cfg.Workers,
		})
		if err != nil {
			return err
		}
		defer fetcher.Close()

		result, err := fetcher.Process(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Extracted %d archives (%d PDFs), %d failed\n",
			result.ArchivesExtracted, result.PDFsExtracted, result.Failed)
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchManifest, "manifest", "m", "", "XML manifest listing the archive tars (required)")
	fetchCmd.MarkFlagRequired("manifest")
	fetchCmd.Flags().BoolVar(&fetchKeepTars, "keep-tars", false, "keep downloaded tars after extraction")

	rootCmd.AddCommand(fetchCmd)
}
