package main

import (
	"github.com/spf13/cobra"

	"github.com/paperstitch/paperstitch/internal/config"
	"github.com/paperstitch/paperstitch/version"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "paperstitch",
	Short: "Rebuild full-text documents from page-level OCR output",
	Long: `Paperstitch turns archives of scholarly PDFs into clean full-text
markdown documents.

The pipeline stages:
  - fetch       download archive tars and unpack their PDFs by period
  - ocr         transcribe each PDF page into a markdown artifact
  - reconstruct stitch page artifacts into whole documents
  - audit       cross-check artifacts against source page counts
  - metadata    build a bibliographic CSV catalog for the results
  - serve       run a read-only conversion progress server

Each stage reads and writes the same period-sharded directory layout,
so stages can run independently and be rerun safely.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.paperstitch/config.yaml)",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		return err
	}

	rootCmd.AddCommand(versionCmd)
}
