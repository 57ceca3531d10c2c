package services

import (
	"archive/tar"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"

	"github.com/paperstitch/paperstitch/internal/gcp"
	"github.com/paperstitch/paperstitch/internal/models"
)

// FetcherConfig holds configuration for the archive retrieval service.
type FetcherConfig struct {
	// ManifestPath is the local XML manifest listing the archives.
	ManifestPath string
	// ArchiveBucket is the GCS bucket mirroring the archive tars.
	ArchiveBucket string
	// BillingProject is charged for requester-pays downloads. Optional.
	BillingProject string
	// PDFRoot receives the extracted documents, one period per directory.
	PDFRoot string
	// TarDir is where archives land before extraction. Defaults to
	// <PDFRoot>/archives.
	TarDir string
	// KeepTars leaves the downloaded archives in place after extraction.
	KeepTars bool
	// Workers caps concurrent archive downloads.
	Workers int
}

// Fetcher downloads the archive tars named by a manifest and unpacks
// their PDF members into the period layout the rest of the pipeline
// reads.
type Fetcher struct {
	storageClient *storage.Client
	config        FetcherConfig
}

// FetchResult summarizes one retrieval run.
type FetchResult struct {
	// ArchivesExtracted counts tars fully downloaded and unpacked.
	ArchivesExtracted int
	// PDFsExtracted counts individual documents written.
	PDFsExtracted int
	// Failed counts archives that could not be retrieved or unpacked.
	Failed int
}

// NewFetcher creates a new Fetcher instance.
func NewFetcher(ctx context.Context, config FetcherConfig) (*Fetcher, error) {
	if config.ManifestPath == "" {
		return nil, fmt.Errorf("manifest path must be set")
	}
	if config.ArchiveBucket == "" {
		return nil, fmt.Errorf("archive bucket must be set")
	}
	if config.PDFRoot == "" {
		return nil, fmt.Errorf("pdf root must be set")
	}
	if config.TarDir == "" {
		config.TarDir = filepath.Join(config.PDFRoot, "archives")
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Fetcher{storageClient: storageClient, config: config}, nil
}

// Close releases the storage client.
func (f *Fetcher) Close() error {
	return f.storageClient.Close()
}

// Process downloads and extracts every archive the manifest lists.
// Archive failures are logged and counted but never stop the run.
func (f *Fetcher) Process(ctx context.Context) (*FetchResult, error) {
	manifest, err := parseManifest(f.config.ManifestPath)
	if err != nil {
		return nil, err
	}
	slog.Info("Parsed archive manifest.", "archiveCount", len(manifest.Files), "timestamp", manifest.Timestamp)

	if err := os.MkdirAll(f.config.TarDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory %s: %w", f.config.TarDir, err)
	}

	result := &FetchResult{}
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(f.config.Workers)

	for _, file := range manifest.Files {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			pdfCount, err := f.fetchArchive(gCtx, file)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Error("Failed to process archive", "archive", file.Filename, "error", err)
				result.Failed++
				return nil
			}
			result.ArchivesExtracted++
			result.PDFsExtracted += pdfCount
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	slog.Info("Fetch complete.", "archivesExtracted", result.ArchivesExtracted, "pdfsExtracted", result.PDFsExtracted, "failed", result.Failed)
	return result, nil
}

// fetchArchive downloads one tar, verifies it, and unpacks its PDF
// members into the archive's period directory.
func (f *Fetcher) fetchArchive(ctx context.Context, file models.ManifestFile) (int, error) {
	period, err := periodFromArchiveName(file.Filename)
	if err != nil {
		return 0, err
	}
	logCtx := slog.With("archive", file.Filename, "period", period)

	// --- 1. Download the tar ---
	bucket := f.storageClient.Bucket(f.config.ArchiveBucket)
	if f.config.BillingProject != "" {
		bucket = bucket.UserProject(f.config.BillingProject)
	}
	tarPath := filepath.Join(f.config.TarDir, filepath.Base(file.Filename))
	logCtx.Info("Downloading archive.", "size", file.Size)
	if err := gcp.DownloadObject(ctx, bucket, file.Filename, tarPath); err != nil {
		return 0, err
	}

	// --- 2. Verify against the manifest checksum ---
	if file.MD5Sum != "" {
		if err := verifyChecksum(tarPath, file.MD5Sum); err != nil {
			return 0, err
		}
	}

	// --- 3. Unpack the PDF members ---
	destDir := filepath.Join(f.config.PDFRoot, period)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create period directory %s: %w", destDir, err)
	}
	pdfCount, err := extractArchive(tarPath, destDir)
	if err != nil {
		return 0, err
	}
	logCtx.Info("Extracted archive.", "pdfCount", pdfCount)

	if !f.config.KeepTars {
		if err := os.Remove(tarPath); err != nil {
			logCtx.Warn("Failed to delete archive after extraction.", "error", err)
		}
	}
	return pdfCount, nil
}

func parseManifest(path string) (*models.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	var manifest models.Manifest
	if err := xml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &manifest, nil
}

// periodFromArchiveName derives the period directory from an archive
// name like pdf/arXiv_pdf_23_10_1.tar: the two digit groups join to
// the period, here 2310.
func periodFromArchiveName(filename string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(filename), ".tar")
	parts := strings.Split(stem, "_")
	if len(parts) != 5 || !isDigits(parts[2]) || !isDigits(parts[3]) {
		return "", fmt.Errorf("unexpected archive name %q", filename)
	}
	return parts[2] + parts[3], nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func verifyChecksum(path, wantHex string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for checksum: %w", path, err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return fmt.Errorf("failed to hash %s: %w", path, err)
	}
	got := hex.EncodeToString(hash.Sum(nil))
	if !strings.EqualFold(got, wantHex) {
		return fmt.Errorf("checksum mismatch for %s: got %s, want %s", path, got, wantHex)
	}
	return nil
}

// extractArchive writes every regular .pdf member of the tar into
// destDir. Member paths are flattened to their base name so the
// extracted layout is always <period>/<documentID>.pdf regardless of
// how the archive nests its contents.
func extractArchive(tarPath, destDir string) (int, error) {
	file, err := os.Open(tarPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive %s: %w", tarPath, err)
	}
	defer file.Close()

	extracted := 0
	reader := tar.NewReader(file)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return extracted, fmt.Errorf("failed to read archive %s: %w", tarPath, err)
		}
		if header.Typeflag != tar.TypeReg || !strings.HasSuffix(header.Name, ".pdf") {
			continue
		}

		destPath := filepath.Join(destDir, filepath.Base(header.Name))
		out, err := os.Create(destPath)
		if err != nil {
			return extracted, fmt.Errorf("failed to create %s: %w", destPath, err)
		}
		if _, err := io.Copy(out, reader); err != nil {
			out.Close()
			return extracted, fmt.Errorf("failed to extract %s: %w", header.Name, err)
		}
		if err := out.Close(); err != nil {
			return extracted, fmt.Errorf("failed to finalize %s: %w", destPath, err)
		}

		extracted++
		if extracted%100 == 0 {
			slog.Info("Extraction progress.", "archive", filepath.Base(tarPath), "extracted", extracted)
		}
	}
	return extracted, nil
}
