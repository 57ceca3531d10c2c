package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paperstitch/paperstitch/internal/index"
	"github.com/paperstitch/paperstitch/internal/models"
)

// StatusConfig holds configuration for the progress server.
type StatusConfig struct {
	// PDFRoot holds the source documents being converted.
	PDFRoot string
	// MMDRoot holds the page artifacts written so far.
	MMDRoot string
	// Host is the address to bind to. Defaults to 0.0.0.0.
	Host string
	// Port is the port to listen on. Defaults to 8005.
	Port string
}

// Status serves a read-only progress view over the conversion run: an
// HTML page, a JSON equivalent, and a liveness probe. It never writes
// to the directories it watches.
type Status struct {
	config     StatusConfig
	startTime  time.Time
	mux        *http.ServeMux
	httpServer *http.Server
	tmpl       *template.Template
}

// NewStatus creates a new progress server.
func NewStatus(config StatusConfig) (*Status, error) {
	if config.PDFRoot == "" || config.MMDRoot == "" {
		return nil, fmt.Errorf("pdf root and mmd root must be set")
	}
	if config.Host == "" {
		config.Host = "0.0.0.0"
	}
	if config.Port == "" {
		config.Port = "8005"
	}

	s := &Status{
		config:    config,
		startTime: time.Now(),
		tmpl:      template.Must(template.New("status").Parse(statusPageTemplate)),
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /{$}", s.handleStatusPage)
	s.mux.HandleFunc("GET /stats.json", s.handleStats)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(config.Host, config.Port),
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

// Start runs the server until the context is cancelled, then shuts it
// down gracefully.
func (s *Status) Start(ctx context.Context) error {
	slog.Info("Status server starting.", "addr", s.httpServer.Addr, "pdfRoot", s.config.PDFRoot, "mmdRoot", s.config.MMDRoot)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received.")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("status server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down status server: %w", err)
	}
	slog.Info("Status server stopped.")
	return nil
}

// snapshot computes the current progress from the directory layout.
func (s *Status) snapshot() (*models.ProgressStatus, error) {
	total, err := countSourceDocuments(s.config.PDFRoot)
	if err != nil {
		return nil, err
	}

	periods, converted, err := scanArtifacts(s.config.MMDRoot)
	if err != nil {
		return nil, err
	}

	status := &models.ProgressStatus{
		TotalDocuments:     total,
		ConvertedDocuments: converted,
		RemainingDocuments: total - converted,
		Elapsed:            formatElapsed(time.Since(s.startTime)),
		Periods:            periods,
	}
	if total > 0 {
		status.Percentage = float64(converted) / float64(total) * 100
	}
	return status, nil
}

// countSourceDocuments counts the source PDFs across every period
// directory.
func countSourceDocuments(pdfRoot string) (int, error) {
	periods, err := index.Periods(pdfRoot)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, period := range periods {
		entries, err := os.ReadDir(filepath.Join(pdfRoot, period))
		if err != nil {
			return 0, fmt.Errorf("failed to read period directory %s: %w", period, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".pdf") {
				total++
			}
		}
	}
	return total, nil
}

// scanArtifacts tallies page artifacts per period and the distinct
// documents they belong to. A missing artifact root just means the
// conversion has not started yet.
func scanArtifacts(mmdRoot string) ([]models.PeriodProgress, int, error) {
	periods, err := index.Periods(mmdRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, err
	}

	progress := make([]models.PeriodProgress, 0, len(periods))
	converted := 0
	for _, period := range periods {
		snap, err := index.ScanNames(mmdRoot, period)
		if err != nil {
			return nil, 0, err
		}
		artifacts := 0
		for _, doc := range snap.Documents {
			artifacts += len(doc.Pages)
		}
		progress = append(progress, models.PeriodProgress{
			Period:        period,
			Documents:     len(snap.Documents),
			PageArtifacts: artifacts,
		})
		converted += len(snap.Documents)
	}
	return progress, converted, nil
}

// formatElapsed renders a duration the way the status page shows it.
func formatElapsed(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%d days, %d hours, and %d minutes", days, hours, minutes)
}

func (s *Status) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	status, err := s.snapshot()
	if err != nil {
		slog.Error("Failed to compute progress", "error", err)
		http.Error(w, "failed to compute progress", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, status); err != nil {
		slog.Error("Failed to render status page", "error", err)
	}
}

func (s *Status) handleStats(w http.ResponseWriter, r *http.Request) {
	status, err := s.snapshot()
	if err != nil {
		slog.Error("Failed to compute progress", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute progress"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Status) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthStatus{Status: "ok"})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

const statusPageTemplate = `<html>
    <head>
        <title>Conversion Progress</title>
        <style>
            body {
                font-family: Arial, sans-serif;
                margin: 40px;
                line-height: 1.6;
            }
            h1, h2 {
                color: #2c3e50;
            }
            p {
                margin: 10px 0;
            }
            .progress-bar {
                width: 100%;
                background-color: #f0f0f0;
                padding: 3px;
                border-radius: 3px;
                box-shadow: inset 0 1px 3px rgba(0, 0, 0, .2);
            }
            .progress {
                width: {{printf "%.2f" .Percentage}}%;
                height: 20px;
                background-color: #4CAF50;
                border-radius: 3px;
            }
        </style>
    </head>
    <body>
        <h1>Conversion Progress</h1>
        <div class="progress-bar">
            <div class="progress"></div>
        </div>
        <p>Total source documents: {{.TotalDocuments}}</p>
        <p>Converted documents: {{.ConvertedDocuments}}</p>
        <p>Remaining documents: {{.RemainingDocuments}}</p>
        <p>Completion: {{printf "%.2f" .Percentage}}%</p>
        <p>Time elapsed: {{.Elapsed}}</p>

        <h2>Progress by Period</h2>
        {{range .Periods}}<p>Period {{.Period}}: {{.Documents}} documents, {{.PageArtifacts}} page artifacts</p>
        {{end}}
    </body>
</html>
`
