package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paperstitch/paperstitch/internal/services"
)

var metadataOut string

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Build a bibliographic CSV catalog for reconstructed documents",
	Long: `Look up every reconstructed document id against the metadata API and
write one CSV row per document: id, title, abstract, authors,
published_date, link.

Requests are paced (metadata.request_interval, default 3s) to respect
the API's rate limits. Lookups that fail are logged and skipped.

Examples:
  paperstitch metadata
  paperstitch metadata --out catalog.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		csvPath := metadataOut
		if csvPath == "" {
			csvPath = cfg.Metadata.CSVPath
		}

		catalog, err := services.NewCatalog(services.CatalogConfig{
			OutputRoot:      cfg.OutputRoot,
			CSVPath:         csvPath,
			BaseURL:         cfg.Metadata.BaseURL,
			RequestInterval: cfg.Metadata.RequestInterval,
		})
		if err != nil {
			return err
		}

		result, err := catalog.Process(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Wrote metadata for %d documents (%d skipped) to %s\n",
			result.Fetched, result.Skipped, csvPath)
		return nil
	},
}

func init() {
	metadataCmd.Flags().StringVar(&metadataOut, "out", "", "catalog CSV path (default: metadata.csv_path from config)")

	rootCmd.AddCommand(metadataCmd)
}
