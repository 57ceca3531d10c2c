package main

import (
	"github.com/spf13/cobra"

	"github.com/paperstitch/paperstitch/internal/services"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the conversion progress server",
	Long: `Start a read-only HTTP server reporting conversion progress.

The server provides:
  /           HTML progress page
  /stats.json the same numbers as JSON
  /healthz    liveness probe

Progress is computed on every request from the source documents under
<pdf_root> and the page artifacts under <mmd_root>; the server never
writes to either.

Examples:
  paperstitch serve
  paperstitch serve --port 9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		host := serveHost
		if host == "" {
			host = cfg.Serve.Host
		}
		port := servePort
		if port == "" {
			port = cfg.Serve.Port
		}

		status, err := services.NewStatus(services.StatusConfig{
			PDFRoot: cfg.PDFRoot,
			MMDRoot: cfg.MMDRoot,
			Host:    host,
			Port:    port,
		})
		if err != nil {
			return err
		}

		// Blocks until the context is cancelled.
		return status.Start(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "host to bind to (default: serve.host from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default: serve.port from config)")

	rootCmd.AddCommand(serveCmd)
}
