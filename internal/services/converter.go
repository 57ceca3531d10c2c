package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"cloud.google.com/go/vertexai/genai"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"

	"github.com/paperstitch/paperstitch/internal/gcp"
	"github.com/paperstitch/paperstitch/internal/index"
	"github.com/paperstitch/paperstitch/internal/models"
)

// ConverterConfig holds configuration for the page conversion service.
type ConverterConfig struct {
	ProjectID     string
	Region        string
	ModelName     string
	StagingBucket string
	Collection    string
	// PDFRoot holds the source documents by period.
	PDFRoot string
	// MMDRoot receives one markdown artifact per converted page.
	MMDRoot string
	// Periods restricts the run. Empty means every period under PDFRoot.
	Periods []string
	// Workers caps concurrent page conversions within one document.
	Workers int
	// Overwrite reconverts pages whose artifact already exists.
	Overwrite bool
}

// Converter turns each page of a source PDF into a markdown artifact
// named <documentID>_<pageNumber>.mmd under the document's period
// directory. Every conversion job is tracked as a Firestore record.
type Converter struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	vertexClient    *gcp.VertexClient
	config          ConverterConfig
}

// ConversionResult summarizes one conversion run across all periods.
type ConversionResult struct {
	Processed int
	Skipped   int
	Failed    int
}

// NewConverter creates a new Converter instance with all clients ready.
func NewConverter(ctx context.Context, config ConverterConfig) (*Converter, error) {
	if config.ProjectID == "" {
		return nil, fmt.Errorf("project id must be set")
	}
	if config.StagingBucket == "" {
		return nil, fmt.Errorf("staging bucket must be set")
	}
	if config.PDFRoot == "" || config.MMDRoot == "" {
		return nil, fmt.Errorf("pdf root and mmd root must be set")
	}
	if config.Region == "" {
		config.Region = "us-central1"
	}
	if config.ModelName == "" {
		config.ModelName = "gemini-1.5-pro"
	}
	if config.Collection == "" {
		config.Collection = "conversions"
	}
	if config.Workers <= 0 {
		config.Workers = 10
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.Region, config.ModelName)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	c := &Converter{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		vertexClient:    vertexClient,
		config:          config,
	}
	slog.Info("Converter initialized.", "model", config.ModelName, "stagingBucket", config.StagingBucket)
	return c, nil
}

// Close releases every client the converter holds.
func (c *Converter) Close() error {
	var firstErr error
	if err := c.vertexClient.Close(); err != nil {
		firstErr = err
	}
	if err := c.firestoreClient.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.storageClient.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Process converts every source document in the configured periods.
// Document failures are isolated: a bad PDF or a refused page fails
// that document's record and the run moves on.
func (c *Converter) Process(ctx context.Context) (*ConversionResult, error) {
	periods := c.config.Periods
	if len(periods) == 0 {
		var err error
		periods, err = index.Periods(c.config.PDFRoot)
		if err != nil {
			return nil, err
		}
	}

	result := &ConversionResult{}
	for _, period := range periods {
		dir := filepath.Join(c.config.PDFRoot, period)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				slog.Warn("Period directory does not exist, skipping.", "path", dir)
				continue
			}
			return result, fmt.Errorf("failed to read period directory %s: %w", dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pdf") {
				continue
			}
			if err := ctx.Err(); err != nil {
				return result, err
			}

			id := strings.TrimSuffix(entry.Name(), ".pdf")
			skipped, err := c.convertDocument(ctx, period, id, filepath.Join(dir, entry.Name()))
			switch {
			case err != nil:
				result.Failed++
			case skipped:
				result.Skipped++
			default:
				result.Processed++
			}
		}
	}

	slog.Info("Conversion run complete.", "processed", result.Processed, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

// convertDocument runs the full conversion of one source PDF. The
// returned error is already recorded in Firestore and logged; callers
// only tally it.
func (c *Converter) convertDocument(ctx context.Context, period, id, pdfPath string) (bool, error) {
	logCtx := slog.With("documentId", id, "period", period)

	// --- 1. Skip documents already converted ---
	if !c.config.Overwrite {
		done, err := c.alreadyConverted(ctx, id)
		if err != nil {
			logCtx.Error("Failed to check for completed conversion", "error", err)
			return false, err
		}
		if done {
			logCtx.Info("Document already converted. Skipping.")
			return true, nil
		}
	}

	docRef, err := c.createRecord(ctx, id, period)
	if err != nil {
		logCtx.Error("Failed to create conversion record", "error", err)
		return false, err
	}
	logCtx.Info("Created conversion record in Firestore.")

	// --- 2. Optimize and split the source locally ---
	tempDir, err := os.MkdirTemp("", "paperstitch-ocr-*")
	if err != nil {
		return false, c.handleError(ctx, logCtx, docRef, "failed to create temp dir", err)
	}
	defer os.RemoveAll(tempDir)

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	if err := optimizePDF(pdfPath, optimizedPath); err != nil {
		return false, c.handleError(ctx, logCtx, docRef, "failed to validate/optimize PDF", err)
	}
	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		return false, c.handleError(ctx, logCtx, docRef, "failed to get page count", err)
	}
	if err := api.SplitFile(optimizedPath, tempDir, 1, nil); err != nil {
		return false, c.handleError(ctx, logCtx, docRef, "failed to split PDF", err)
	}
	if _, err := docRef.Update(ctx, []firestore.Update{
		{Path: "pageCount", Value: pageCount},
	}); err != nil {
		return false, c.handleError(ctx, logCtx, docRef, "failed to record page count", err)
	}
	logCtx.Info("PDF optimized and split locally.", "pageCount", pageCount)

	outDir := filepath.Join(c.config.MMDRoot, period)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return false, c.handleError(ctx, logCtx, docRef, "failed to create output directory", err)
	}

	// --- 3. Convert pages concurrently ---
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.config.Workers)

	splitBase := strings.TrimSuffix(optimizedPath, filepath.Ext(optimizedPath))
	var mu sync.Mutex
	written := 0

	for n := 1; n <= pageCount; n++ {
		localSplitPath := fmt.Sprintf("%s_%d.pdf", splitBase, n)
		eg.Go(func() error {
			wrote, err := c.convertPage(gctx, logCtx, period, id, n, localSplitPath)
			if err != nil {
				return fmt.Errorf("page %d: %w", n, err)
			}
			if wrote {
				mu.Lock()
				written++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return false, c.handleError(ctx, logCtx, docRef, "one or more pages failed to convert", err)
	}

	// --- 4. Mark the record converted ---
	if _, err := docRef.Update(ctx, []firestore.Update{
		{Path: "status", Value: models.StatusConverted},
		{Path: "pagesWritten", Value: written},
		{Path: "updatedAt", Value: time.Now()},
	}); err != nil {
		return false, c.handleError(ctx, logCtx, docRef, "failed to update status to CONVERTED", err)
	}

	logCtx.Info("Document conversion complete.", "pageCount", pageCount, "pagesWritten", written)
	return false, nil
}

// convertPage transcribes one split page. It reports whether a new
// artifact was written; pages whose artifact already exists are left
// untouched so reruns only fill gaps.
func (c *Converter) convertPage(ctx context.Context, logCtx *slog.Logger, period, id string, pageNumber int, localSplitPath string) (bool, error) {
	page := models.Page{DocumentID: id, PageNumber: pageNumber, Period: period}
	artifactPath := filepath.Join(c.config.MMDRoot, period, page.ArtifactName())
	if !c.config.Overwrite {
		if _, err := os.Stat(artifactPath); err == nil {
			logCtx.Info("Artifact already exists, skipping page.", "pageNumber", pageNumber)
			return false, nil
		}
	}

	// The model reads the page from the staging bucket.
	destObject := fmt.Sprintf("%s/%05d.pdf", id, pageNumber)
	bucket := c.storageClient.Bucket(c.config.StagingBucket)
	if err := gcp.UploadFileWithRetry(ctx, bucket, localSplitPath, destObject); err != nil {
		return false, err
	}
	pageURI := fmt.Sprintf("gs://%s/%s", c.config.StagingBucket, destObject)

	text, err := c.transcribePage(ctx, pageURI)
	if err != nil {
		return false, err
	}
	if text == "" {
		logCtx.Warn("No markdown content extracted from response. Treating as empty page.", "pageNumber", pageNumber)
	}

	// Keep a durable copy of the raw model output next to the page.
	mdObject := fmt.Sprintf("%s/%05d.md", id, pageNumber)
	if err := gcp.SaveToGCSAtomically(ctx, bucket, mdObject, text); err != nil {
		return false, err
	}

	if err := os.WriteFile(artifactPath, []byte(text), 0o644); err != nil {
		return false, fmt.Errorf("failed to write artifact %s: %w", artifactPath, err)
	}
	return true, nil
}

// transcribePage calls the conversion model on a staged page and
// extracts the markdown from its response.
func (c *Converter) transcribePage(ctx context.Context, pageURI string) (string, error) {
	prompt := genai.Text(gcp.ConversionUserPrompt)
	filePart := genai.FileData{
		MIMEType: "application/pdf",
		FileURI:  pageURI,
	}

	resp, err := c.vertexClient.ConversionModel.GenerateContent(ctx, filePart, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	text := extractMarkdown(resp)
	if isRefusal(text) {
		return "", fmt.Errorf("model response indicates refusal")
	}
	return text, nil
}

func (c *Converter) alreadyConverted(ctx context.Context, id string) (bool, error) {
	docs, err := c.firestoreClient.Collection(c.config.Collection).
		Where("documentId", "==", id).
		Where("status", "==", models.StatusConverted).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return false, fmt.Errorf("failed to query for completed conversions: %w", err)
	}
	return len(docs) > 0, nil
}

func (c *Converter) createRecord(ctx context.Context, id, period string) (*firestore.DocumentRef, error) {
	record := models.ConversionRecord{
		DocumentID: id,
		Period:     period,
		Status:     models.StatusConverting,
		CreatedAt:  time.Now(),
	}
	docRef, _, err := c.firestoreClient.Collection(c.config.Collection).Add(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversion record: %w", err)
	}
	return docRef, nil
}

func (c *Converter) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := c.updateStatus(ctx, docRef, models.StatusFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}

func (c *Converter) updateStatus(ctx context.Context, docRef *firestore.DocumentRef, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
		{Path: "updatedAt", Value: time.Now()},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	_, err := docRef.Update(ctx, updates)
	return err
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

// refusalPhrases are checked against every transcription; a match means
// the model answered about the task instead of doing it.
var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

func isRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// extractMarkdown parses the model's response and robustly extracts
// text content, stripping any code fences the model wrapped it in.
func extractMarkdown(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var content strings.Builder
	var textPartsFound int
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			content.WriteString(string(txt))
			textPartsFound++
		}
	}
	if textPartsFound > 1 {
		slog.Warn("Model response contained multiple text parts; they have been concatenated.", "textParts", textPartsFound)
	}

	contentStr := strings.TrimSpace(content.String())
	contentStr = strings.TrimPrefix(contentStr, "```markdown")
	contentStr = strings.TrimPrefix(contentStr, "```")
	contentStr = strings.TrimSuffix(contentStr, "```")
	return strings.TrimSpace(contentStr)
}
