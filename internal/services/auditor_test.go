package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/paperstitch/paperstitch/internal/models"
)

func TestAudit(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		observed    []int
		wantStatus  models.CompletenessStatus
		wantMissing []int
	}{
		{
			name:        "gap in the middle",
			count:       5,
			observed:    []int{1, 2, 4, 5},
			wantStatus:  models.StatusIncomplete,
			wantMissing: []int{3},
		},
		{
			name:       "exact match",
			count:      3,
			observed:   []int{1, 2, 3},
			wantStatus: models.StatusComplete,
		},
		{
			name:       "no artifacts at all",
			count:      4,
			observed:   nil,
			wantStatus: models.StatusMissing,
		},
		{
			name:       "extra page beyond the count",
			count:      3,
			observed:   []int{1, 2, 3, 7},
			wantStatus: models.StatusIncomplete,
		},
		{
			name:        "tail truncated",
			count:       6,
			observed:    []int{1, 2, 3},
			wantStatus:  models.StatusIncomplete,
			wantMissing: []int{4, 5, 6},
		},
		{
			name:       "duplicate observations collapse",
			count:      3,
			observed:   []int{1, 1, 2, 2, 3},
			wantStatus: models.StatusComplete,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := map[string]int{"doc": tt.count}
			observed := map[string][]int{}
			if tt.observed != nil {
				observed["doc"] = tt.observed
			}

			summary := Audit(counts, observed)
			var report models.CompletenessReport
			switch tt.wantStatus {
			case models.StatusComplete:
				if len(summary.Complete) != 1 {
					t.Fatalf("summary = %+v, want one complete entry", summary)
				}
				report = summary.Complete[0]
			case models.StatusIncomplete:
				if len(summary.Incomplete) != 1 {
					t.Fatalf("summary = %+v, want one incomplete entry", summary)
				}
				report = summary.Incomplete[0]
			case models.StatusMissing:
				if len(summary.Missing) != 1 {
					t.Fatalf("summary = %+v, want one missing entry", summary)
				}
				report = summary.Missing[0]
			}

			if report.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", report.Status, tt.wantStatus)
			}
			if report.ExpectedPageCount != tt.count {
				t.Errorf("expectedPageCount = %d, want %d", report.ExpectedPageCount, tt.count)
			}
			if len(report.MissingPages) != len(tt.wantMissing) {
				t.Fatalf("missingPages = %v, want %v", report.MissingPages, tt.wantMissing)
			}
			for i := range tt.wantMissing {
				if report.MissingPages[i] != tt.wantMissing[i] {
					t.Errorf("missingPages = %v, want %v", report.MissingPages, tt.wantMissing)
				}
			}
		})
	}
}

func TestAuditSortsDocumentIDs(t *testing.T) {
	counts := map[string]int{"zeta": 1, "alpha": 1, "mid": 1}
	observed := map[string][]int{
		"zeta":  {1},
		"alpha": {1},
		"mid":   {1},
	}
	summary := Audit(counts, observed)
	if len(summary.Complete) != 3 {
		t.Fatalf("got %d complete, want 3", len(summary.Complete))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, report := range summary.Complete {
		if report.DocumentID != want[i] {
			t.Errorf("complete[%d] = %s, want %s", i, report.DocumentID, want[i])
		}
	}
}

func TestAuditorCollectObservedUnionsPeriods(t *testing.T) {
	mmdRoot := t.TempDir()
	writePage(t, mmdRoot, "2310", "doc_1.mmd", "page one")
	writePage(t, mmdRoot, "2310", "doc_2.mmd", "page two")
	writePage(t, mmdRoot, "2311", "doc_3.mmd", "page three strayed into the next bucket")

	a, err := NewAuditor(AuditorConfig{PDFRoot: t.TempDir(), MMDRoot: mmdRoot})
	if err != nil {
		t.Fatal(err)
	}
	observed, err := a.collectObserved()
	if err != nil {
		t.Fatalf("collectObserved: %v", err)
	}
	if len(observed["doc"]) != 3 {
		t.Errorf("observed pages = %v, want three entries", observed["doc"])
	}
}

func TestAuditorSkipsUnreadablePDF(t *testing.T) {
	pdfRoot := t.TempDir()
	dir := filepath.Join(pdfRoot, "2310")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.pdf"), []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := NewAuditor(AuditorConfig{PDFRoot: pdfRoot, MMDRoot: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	counts, err := a.CollectPageCounts(context.Background())
	if err != nil {
		t.Fatalf("CollectPageCounts: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("counts = %v, want unreadable PDF excluded", counts)
	}
}

func TestAuditorWritesReport(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "audit.json")
	a, err := NewAuditor(AuditorConfig{
		PDFRoot:    t.TempDir(),
		MMDRoot:    t.TempDir(),
		ReportPath: reportPath,
	})
	if err != nil {
		t.Fatal(err)
	}

	summary := Audit(
		map[string]int{"doc": 2},
		map[string][]int{"doc": {1}},
	)
	if err := a.writeReport(summary); err != nil {
		t.Fatalf("writeReport: %v", err)
	}

	raw, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	var decoded models.AuditSummary
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if len(decoded.Incomplete) != 1 || decoded.Incomplete[0].MissingPages[0] != 2 {
		t.Errorf("decoded report = %+v, want doc incomplete missing page 2", decoded)
	}
}
