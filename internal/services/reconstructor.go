package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/paperstitch/paperstitch/internal/index"
	"github.com/paperstitch/paperstitch/internal/mmd"
	"github.com/paperstitch/paperstitch/internal/models"
)

// ReconstructorConfig holds configuration for the reconstruction service.
type ReconstructorConfig struct {
	// MMDRoot is the directory holding page artifacts, one period
	// subdirectory per source archive.
	MMDRoot string
	// OutputRoot is where reconstructed documents are written, mirroring
	// the period layout of MMDRoot.
	OutputRoot string
	// Periods restricts the run to the named periods. Empty means every
	// period directory found under MMDRoot.
	Periods []string
	// Workers caps how many periods are reconstructed concurrently.
	Workers int
}

// Reconstructor stitches page artifacts back into whole documents,
// stripping author blocks and trailing reference material on the way.
type Reconstructor struct {
	config ReconstructorConfig
}

// ReconstructionResult summarizes one period's reconstruction run.
type ReconstructionResult struct {
	Period        string
	DocumentCount int
	ValidCount    int
	WrittenCount  int
	// ExcludedCount is the number of valid documents skipped because no
	// references page was ever observed or no page content survived.
	ExcludedCount int
}

// NewReconstructor creates a new Reconstructor instance.
func NewReconstructor(config ReconstructorConfig) (*Reconstructor, error) {
	if config.MMDRoot == "" || config.OutputRoot == "" {
		return nil, fmt.Errorf("mmd root and output root must be set")
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	return &Reconstructor{config: config}, nil
}

// Process reconstructs every configured period. Periods share nothing
// and write to disjoint output directories, so they run concurrently.
func (r *Reconstructor) Process(ctx context.Context) ([]ReconstructionResult, error) {
	periods := r.config.Periods
	if len(periods) == 0 {
		var err error
		periods, err = index.Periods(r.config.MMDRoot)
		if err != nil {
			return nil, err
		}
	}
	if len(periods) == 0 {
		slog.Warn("No period directories found.", "root", r.config.MMDRoot)
		return nil, nil
	}

	results := make([]*ReconstructionResult, len(periods))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)

	for i, period := range periods {
		g.Go(func() error {
			result, err := r.ProcessPeriod(gCtx, period)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]ReconstructionResult, 0, len(results))
	for _, result := range results {
		out = append(out, *result)
	}
	return out, nil
}

// ProcessPeriod reconstructs every valid document of one period.
func (r *Reconstructor) ProcessPeriod(ctx context.Context, period string) (*ReconstructionResult, error) {
	logCtx := slog.With("period", period)
	logCtx.Info("Starting reconstruction.")

	// --- 1. Index the period's page artifacts ---
	snap, err := index.Scan(r.config.MMDRoot, period)
	if err != nil {
		return nil, fmt.Errorf("failed to index period %s: %w", period, err)
	}

	result := &ReconstructionResult{
		Period:        period,
		DocumentCount: len(snap.Documents),
	}

	// --- 2. Apply the structural gate ---
	valid := snap.ValidDocuments()
	result.ValidCount = len(valid)
	logCtx.Info("Classified documents.", "documentCount", result.DocumentCount, "validCount", result.ValidCount)
	if len(valid) == 0 {
		logCtx.Warn("No valid documents to reconstruct.")
		return result, nil
	}

	outDir := filepath.Join(r.config.OutputRoot, period)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}

	// --- 3. Stitch each document and write it out ---
	for _, doc := range valid {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		// Reconstruction is only defined once a references page is known;
		// without one there is no back matter boundary to cut at.
		if doc.ReferencesPage == 0 {
			logCtx.Info("Excluding document without a references page.", "documentId", doc.DocumentID)
			result.ExcludedCount++
			continue
		}

		reconstructed, survivors := r.reconstructDocument(doc)
		if survivors == 0 {
			logCtx.Warn("No surviving pages, skipping document.", "documentId", doc.DocumentID)
			result.ExcludedCount++
			continue
		}

		outPath := filepath.Join(outDir, reconstructed.DocumentID+index.ArtifactExt)
		if err := os.WriteFile(outPath, []byte(reconstructed.Content), 0o644); err != nil {
			logCtx.Error("Failed to write reconstructed document", "error", err, "documentId", doc.DocumentID)
			return result, fmt.Errorf("failed to write %s: %w", outPath, err)
		}
		result.WrittenCount++
	}

	logCtx.Info("Reconstruction complete.", "writtenCount", result.WrittenCount)
	return result, nil
}

// reconstructDocument applies the page rules in ascending page order
// and returns the stitched document along with the number of
// contributing pages. Pages that cannot be read are treated as absent.
func (r *Reconstructor) reconstructDocument(doc *models.Document) (*models.ReconstructedDocument, int) {
	pages := make([]int, 0, len(doc.Pages))
	for n := range doc.Pages {
		pages = append(pages, n)
	}
	sort.Ints(pages)

	var parts []string
	for _, n := range pages {
		raw, err := os.ReadFile(doc.Pages[n])
		if err != nil {
			slog.Warn("Failed to read page artifact, treating as absent.", "documentId", doc.DocumentID, "pageNumber", n, "error", err)
			continue
		}
		text := string(raw)

		switch {
		case n == 1:
			// The first page always loses its author block, even when it
			// doubles as the references page.
			parts = append(parts, mmd.StripAuthors(text))
		case doc.ReferencesPage != 0 && n == doc.ReferencesPage:
			if mmd.OpensWithReferences(text) {
				// Nothing precedes the bibliography on this page.
				continue
			}
			parts = append(parts, mmd.TrimReferences(text))
		case doc.ReferencesPage != 0 && n > doc.ReferencesPage:
			continue
		default:
			parts = append(parts, text)
		}
	}

	reconstructed := &models.ReconstructedDocument{
		DocumentID: doc.DocumentID,
		Period:     doc.Period,
		Content:    strings.Join(parts, "\n"),
	}
	return reconstructed, len(parts)
}
