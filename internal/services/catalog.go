package services

import (
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/paperstitch/paperstitch/internal/index"
	"github.com/paperstitch/paperstitch/internal/models"
)

// CatalogConfig holds configuration for the metadata catalog service.
type CatalogConfig struct {
	// OutputRoot holds the reconstructed documents whose ids are
	// looked up.
	OutputRoot string
	// CSVPath is the catalog file to write. Reruns start it over.
	CSVPath string
	// BaseURL is the catalog API host. Defaults to the public arXiv
	// export endpoint.
	BaseURL string
	// RequestInterval spaces successive API calls. Defaults to 3s per
	// the arXiv rate limit guidance.
	RequestInterval time.Duration
}

// Catalog looks up bibliographic metadata for every reconstructed
// document and appends it to a CSV catalog.
type Catalog struct {
	httpClient *http.Client
	config     CatalogConfig
}

// CatalogResult summarizes one catalog run.
type CatalogResult struct {
	Fetched int
	Skipped int
}

var catalogHeader = []string{"id", "title", "abstract", "authors", "published_date", "link"}

// NewCatalog creates a new Catalog instance.
func NewCatalog(config CatalogConfig) (*Catalog, error) {
	if config.OutputRoot == "" {
		return nil, fmt.Errorf("output root must be set")
	}
	if config.CSVPath == "" {
		return nil, fmt.Errorf("csv path must be set")
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://export.arxiv.org"
	}
	if config.RequestInterval <= 0 {
		config.RequestInterval = 3 * time.Second
	}
	return &Catalog{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		config:     config,
	}, nil
}

// Process fetches metadata for every reconstructed document id, one
// paced request at a time. Lookups that fail are logged and skipped.
func (c *Catalog) Process(ctx context.Context) (*CatalogResult, error) {
	ids, err := collectDocumentIDs(c.config.OutputRoot)
	if err != nil {
		return nil, err
	}
	result := &CatalogResult{}
	if len(ids) == 0 {
		slog.Warn("No reconstructed documents found.", "root", c.config.OutputRoot)
		return result, nil
	}
	slog.Info("Starting metadata catalog.", "documentCount", len(ids))

	csvFile, err := os.Create(c.config.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog %s: %w", c.config.CSVPath, err)
	}
	defer csvFile.Close()

	writer := csv.NewWriter(csvFile)
	if err := writer.Write(catalogHeader); err != nil {
		return nil, fmt.Errorf("failed to write catalog header: %w", err)
	}

	for i, id := range ids {
		if i > 0 {
			select {
			case <-time.After(c.config.RequestInterval):
			case <-ctx.Done():
				writer.Flush()
				return result, ctx.Err()
			}
		}

		entry, err := c.fetchMetadata(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				writer.Flush()
				return result, ctx.Err()
			}
			slog.Warn("Failed to fetch metadata, skipping document.", "documentId", id, "error", err)
			result.Skipped++
			continue
		}

		if err := writer.Write(catalogRow(id, entry)); err != nil {
			return result, fmt.Errorf("failed to write catalog row for %s: %w", id, err)
		}
		result.Fetched++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return result, fmt.Errorf("failed to flush catalog: %w", err)
	}

	slog.Info("Metadata catalog complete.", "fetched", result.Fetched, "skipped", result.Skipped, "path", c.config.CSVPath)
	return result, nil
}

// fetchMetadata queries the catalog API for one document id and
// returns the feed's first entry.
func (c *Catalog) fetchMetadata(ctx context.Context, id string) (*models.Entry, error) {
	queryURL := fmt.Sprintf("%s/api/query?id_list=%s", strings.TrimSuffix(c.config.BaseURL, "/"), url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", id, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog for %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned %s for %s", resp.Status, id)
	}

	var feed models.Feed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode feed for %s: %w", id, err)
	}
	if len(feed.Entries) == 0 {
		return nil, fmt.Errorf("no entry in feed for %s", id)
	}
	return &feed.Entries[0], nil
}

func catalogRow(id string, entry *models.Entry) []string {
	authors := make([]string, 0, len(entry.Authors))
	for _, author := range entry.Authors {
		authors = append(authors, author.Name)
	}
	link := ""
	if len(entry.Links) > 0 {
		link = entry.Links[0].Href
	}
	return []string{
		id,
		strings.TrimSpace(entry.Title),
		strings.TrimSpace(entry.Summary),
		strings.Join(authors, ", "),
		strings.TrimSpace(entry.Published),
		link,
	}
}

// collectDocumentIDs walks the reconstructed output tree and returns
// the sorted distinct artifact stems.
func collectDocumentIDs(root string) ([]string, error) {
	seen := make(map[string]struct{})
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), index.ArtifactExt) {
			return nil
		}
		seen[strings.TrimSuffix(d.Name(), index.ArtifactExt)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk output root %s: %w", root, err)
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
