// Package index builds an in-memory catalog of the page artifacts
// found in a period directory. Scanning derives the structural signals
// reconstruction relies on, so every artifact is read exactly once up
// front and page text is never held beyond the file being scanned.
package index

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/paperstitch/paperstitch/internal/mmd"
	"github.com/paperstitch/paperstitch/internal/models"
)

// ArtifactExt is the extension page transcriptions are written with.
const ArtifactExt = ".mmd"

// Snapshot is the scan result for one period directory.
type Snapshot struct {
	Period    string
	Documents map[string]*models.Document
}

// ParsePageName splits an artifact filename of the form
// <documentID>_<pageNumber>.mmd on its last underscore. Document IDs
// may themselves contain underscores, so only the final segment is
// taken as the page number.
func ParsePageName(name string) (string, int, error) {
	stem := strings.TrimSuffix(name, ArtifactExt)
	i := strings.LastIndex(stem, "_")
	if i < 0 {
		return "", 0, fmt.Errorf("no page separator in %q", name)
	}
	id, pageStr := stem[:i], stem[i+1:]
	page, err := strconv.Atoi(pageStr)
	if err != nil {
		return "", 0, fmt.Errorf("bad page number in %q: %w", name, err)
	}
	if id == "" {
		return "", 0, fmt.Errorf("empty document id in %q", name)
	}
	return id, page, nil
}

// Scan indexes the period directory under root, reading every artifact
// to derive document signals. A missing directory is not an error; it
// yields an empty snapshot.
func Scan(root, period string) (*Snapshot, error) {
	return scan(root, period, true)
}

// ScanNames indexes artifact names only, without reading contents.
// Completeness auditing needs page numbers, not signals.
func ScanNames(root, period string) (*Snapshot, error) {
	return scan(root, period, false)
}

func scan(root, period string, readContents bool) (*Snapshot, error) {
	logCtx := slog.With("period", period)
	snap := &Snapshot{
		Period:    period,
		Documents: make(map[string]*models.Document),
	}

	dir := filepath.Join(root, period)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logCtx.Warn("Period directory does not exist, skipping.", "path", dir)
			return snap, nil
		}
		return nil, fmt.Errorf("failed to read period directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ArtifactExt) {
			continue
		}
		name := entry.Name()

		id, page, err := ParsePageName(name)
		if err != nil {
			logCtx.Warn("Skipping artifact with unexpected name.", "file", name, "error", err)
			continue
		}

		path := filepath.Join(dir, name)
		doc, ok := snap.Documents[id]
		if !ok {
			doc = &models.Document{
				DocumentID: id,
				Period:     period,
				Pages:      make(map[int]string),
			}
			snap.Documents[id] = doc
		}
		doc.Pages[page] = path

		if !readContents {
			continue
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			logCtx.Warn("Failed to read page artifact, treating as absent.", "file", name, "error", err)
			delete(doc.Pages, page)
			continue
		}
		text := string(raw)

		if page == 1 {
			doc.HasHeadingStructure = len(mmd.Headings(text)) > 1
			doc.HasAbstract = mmd.HasAbstract(text)
		}
		if mmd.HasReferencesHeading(text) {
			if doc.ReferencesPage == 0 || page < doc.ReferencesPage {
				doc.ReferencesPage = page
			}
		}
	}

	logCtx.Info("Scanned period directory.", "documentCount", len(snap.Documents))
	return snap, nil
}

// Periods lists the period subdirectories of root, sorted ascending.
// An unreadable root means there is nothing to process at all, which
// is the one condition callers treat as fatal.
func Periods(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read root directory %s: %w", root, err)
	}
	var periods []string
	for _, entry := range entries {
		if entry.IsDir() {
			periods = append(periods, entry.Name())
		}
	}
	sort.Strings(periods)
	return periods, nil
}

// SortedIDs returns every document ID in the snapshot, ascending.
func (s *Snapshot) SortedIDs() []string {
	ids := make([]string, 0, len(s.Documents))
	for id := range s.Documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ValidDocuments returns the documents passing the structural gate,
// ordered by ID so runs are deterministic.
func (s *Snapshot) ValidDocuments() []*models.Document {
	var docs []*models.Document
	for _, id := range s.SortedIDs() {
		if doc := s.Documents[id]; doc.Valid() {
			docs = append(docs, doc)
		}
	}
	return docs
}
