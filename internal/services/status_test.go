package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paperstitch/paperstitch/internal/models"
)

func writeSourcePDF(t *testing.T, root, period, name string) {
	t.Helper()
	dir := filepath.Join(root, period)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestStatus(t *testing.T, pdfRoot, mmdRoot string) *Status {
	t.Helper()
	s, err := NewStatus(StatusConfig{PDFRoot: pdfRoot, MMDRoot: mmdRoot})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "0 days, 0 hours, and 0 minutes"},
		{"minutes only", 12 * time.Minute, "0 days, 0 hours, and 12 minutes"},
		{"hour and a half", 90 * time.Minute, "0 days, 1 hours, and 30 minutes"},
		{"multi day", 49*time.Hour + 5*time.Minute, "2 days, 1 hours, and 5 minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatElapsed(tt.d); got != tt.want {
				t.Errorf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestStatusSnapshot(t *testing.T) {
	pdfRoot, mmdRoot := t.TempDir(), t.TempDir()
	writeSourcePDF(t, pdfRoot, "2310", "2310.00001.pdf")
	writeSourcePDF(t, pdfRoot, "2310", "2310.00002.pdf")
	writeSourcePDF(t, pdfRoot, "2311", "2311.00005.pdf")

	writePage(t, mmdRoot, "2310", "2310.00001_1.mmd", "# A")
	writePage(t, mmdRoot, "2310", "2310.00001_2.mmd", "body")
	writePage(t, mmdRoot, "2311", "2311.00005_1.mmd", "# B")

	s := newTestStatus(t, pdfRoot, mmdRoot)
	status, err := s.snapshot()
	if err != nil {
		t.Fatalf("snapshot() error = %v", err)
	}

	if status.TotalDocuments != 3 {
		t.Errorf("totalDocuments = %d, want 3", status.TotalDocuments)
	}
	if status.ConvertedDocuments != 2 {
		t.Errorf("convertedDocuments = %d, want 2", status.ConvertedDocuments)
	}
	if status.RemainingDocuments != 1 {
		t.Errorf("remainingDocuments = %d, want 1", status.RemainingDocuments)
	}
	if status.Percentage < 66.6 || status.Percentage > 66.7 {
		t.Errorf("percentage = %f, want about 66.67", status.Percentage)
	}

	if len(status.Periods) != 2 {
		t.Fatalf("periods = %+v, want 2 entries", status.Periods)
	}
	first := status.Periods[0]
	if first.Period != "2310" || first.Documents != 1 || first.PageArtifacts != 2 {
		t.Errorf("period 2310 = %+v, want 1 document with 2 artifacts", first)
	}
	second := status.Periods[1]
	if second.Period != "2311" || second.Documents != 1 || second.PageArtifacts != 1 {
		t.Errorf("period 2311 = %+v, want 1 document with 1 artifact", second)
	}
}

func TestStatusSnapshotBeforeConversionStarts(t *testing.T) {
	pdfRoot := t.TempDir()
	writeSourcePDF(t, pdfRoot, "2310", "2310.00001.pdf")

	s := newTestStatus(t, pdfRoot, filepath.Join(t.TempDir(), "missing"))
	status, err := s.snapshot()
	if err != nil {
		t.Fatalf("snapshot() error = %v", err)
	}
	if status.ConvertedDocuments != 0 || status.RemainingDocuments != 1 {
		t.Errorf("status = %+v, want nothing converted", status)
	}
	if status.Percentage != 0 {
		t.Errorf("percentage = %f, want 0", status.Percentage)
	}
}

func TestStatusEndpoints(t *testing.T) {
	pdfRoot, mmdRoot := t.TempDir(), t.TempDir()
	writeSourcePDF(t, pdfRoot, "2310", "2310.00001.pdf")
	writePage(t, mmdRoot, "2310", "2310.00001_1.mmd", "# A")

	s := newTestStatus(t, pdfRoot, mmdRoot)
	server := httptest.NewServer(s.mux)
	defer server.Close()

	resp, err := http.Get(server.URL + "/stats.json")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/stats.json status = %d", resp.StatusCode)
	}
	var status models.ProgressStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode /stats.json: %v", err)
	}
	if status.TotalDocuments != 1 || status.ConvertedDocuments != 1 {
		t.Errorf("stats = %+v, want 1/1", status)
	}

	resp, err = http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var health models.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" {
		t.Errorf("health = %+v", health)
	}

	resp, err = http.Get(server.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	page := string(body)
	if !strings.Contains(page, "Conversion Progress") {
		t.Error("status page missing title")
	}
	if !strings.Contains(page, "Period 2310") {
		t.Error("status page missing period breakdown")
	}

	resp, err = http.Get(server.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", resp.StatusCode)
	}
}
