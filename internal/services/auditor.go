package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/paperstitch/paperstitch/internal/index"
	"github.com/paperstitch/paperstitch/internal/models"
)

// AuditorConfig holds configuration for the completeness audit.
type AuditorConfig struct {
	// PDFRoot holds the source documents, one period subdirectory per
	// archive, named <documentID>.pdf.
	PDFRoot string
	// MMDRoot holds the page artifacts the conversion stage produced.
	MMDRoot string
	// Periods restricts which PDF period directories are audited. The
	// observed side always spans every period, since a document's pages
	// may land in a different bucket than its source.
	Periods []string
	// Workers caps concurrent page-count reads.
	Workers int
	// ReportPath, when set, receives the full audit summary as JSON.
	ReportPath string
}

// Auditor cross-checks produced page artifacts against the true page
// counts of the source PDFs. It reconstructs nothing and is safe to
// re-run at any time.
type Auditor struct {
	config AuditorConfig
}

// NewAuditor creates a new Auditor instance.
func NewAuditor(config AuditorConfig) (*Auditor, error) {
	if config.PDFRoot == "" || config.MMDRoot == "" {
		return nil, fmt.Errorf("pdf root and mmd root must be set")
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	return &Auditor{config: config}, nil
}

// Process runs the audit end to end: collect true page counts, collect
// observed artifact pages, classify, and optionally persist the report.
func (a *Auditor) Process(ctx context.Context) (*models.AuditSummary, error) {
	pageCounts, err := a.CollectPageCounts(ctx)
	if err != nil {
		return nil, err
	}
	observed, err := a.collectObserved()
	if err != nil {
		return nil, err
	}

	summary := Audit(pageCounts, observed)
	complete, incomplete, missing := summary.Counts()
	slog.Info("Audit complete.", "complete", complete, "incomplete", incomplete, "missing", missing)

	if a.config.ReportPath != "" {
		if err := a.writeReport(summary); err != nil {
			return nil, err
		}
		slog.Info("Wrote audit report.", "path", a.config.ReportPath)
	}
	return summary, nil
}

// CollectPageCounts reads the true page count of every source PDF.
// Unreadable PDFs are excluded from the audit with a logged warning.
func (a *Auditor) CollectPageCounts(ctx context.Context) (map[string]int, error) {
	periods := a.config.Periods
	if len(periods) == 0 {
		var err error
		periods, err = index.Periods(a.config.PDFRoot)
		if err != nil {
			return nil, err
		}
	}

	counts := make(map[string]int)
	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Workers)

	for _, period := range periods {
		dir := filepath.Join(a.config.PDFRoot, period)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				slog.Warn("Period directory does not exist, skipping.", "path", dir)
				continue
			}
			return nil, fmt.Errorf("failed to read period directory %s: %w", dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pdf") {
				continue
			}
			id := strings.TrimSuffix(entry.Name(), ".pdf")
			path := filepath.Join(dir, entry.Name())

			g.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return err
				}
				count, err := api.PageCountFile(path)
				if err != nil {
					slog.Warn("Failed to read source page count, excluding from audit.", "documentId", id, "error", err)
					return nil
				}
				mu.Lock()
				counts[id] = count
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// collectObserved unions the observed artifact page numbers for each
// document across every period directory.
func (a *Auditor) collectObserved() (map[string][]int, error) {
	periods, err := index.Periods(a.config.MMDRoot)
	if err != nil {
		return nil, err
	}

	observed := make(map[string][]int)
	for _, period := range periods {
		snap, err := index.ScanNames(a.config.MMDRoot, period)
		if err != nil {
			return nil, err
		}
		for id, doc := range snap.Documents {
			for n := range doc.Pages {
				observed[id] = append(observed[id], n)
			}
		}
	}
	return observed, nil
}

// Audit classifies every document with a known true page count against
// the observed artifact pages. Complete means the observed set is
// exactly {1..count}; anything else is incomplete, reporting the
// expected pages absent from the observed set in ascending order.
// Documents with no observed pages at all are missing.
func Audit(pageCounts map[string]int, observed map[string][]int) *models.AuditSummary {
	ids := make([]string, 0, len(pageCounts))
	for id := range pageCounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	summary := &models.AuditSummary{}
	for _, id := range ids {
		count := pageCounts[id]
		report := models.CompletenessReport{DocumentID: id, ExpectedPageCount: count}

		pages := observed[id]
		if len(pages) == 0 {
			report.Status = models.StatusMissing
			summary.Missing = append(summary.Missing, report)
			continue
		}

		seen := make(map[int]bool, len(pages))
		for _, n := range pages {
			seen[n] = true
		}
		obs := make([]int, 0, len(seen))
		for n := range seen {
			obs = append(obs, n)
		}
		sort.Ints(obs)
		report.ObservedPages = obs

		var missing []int
		for n := 1; n <= count; n++ {
			if !seen[n] {
				missing = append(missing, n)
			}
		}

		if len(missing) == 0 && len(seen) == count {
			report.Status = models.StatusComplete
			summary.Complete = append(summary.Complete, report)
			continue
		}
		report.Status = models.StatusIncomplete
		report.MissingPages = missing
		summary.Incomplete = append(summary.Incomplete, report)
	}
	return summary
}

func (a *Auditor) writeReport(summary *models.AuditSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode audit report: %w", err)
	}
	if err := os.WriteFile(a.config.ReportPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write audit report: %w", err)
	}
	return nil
}
