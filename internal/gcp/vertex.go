package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Page Conversion Model Prompts ---
const ConversionSystemPrompt = "You are a document parser and markdown transcriber. Your task is to transcribe a single page of a scholarly article into Mathpix-flavoured markdown. Accuracy, detail, and information preservation are of utmost importance."
const ConversionUserPrompt = `You will be provided with a single page of a scholarly article as a PDF:

Follow these instructions to transcribe the page into markdown format:

Text: Transcribe all body text directly into markdown text, preserving paragraph breaks.
Headings: Render section headings as markdown heading lines starting with '#', matching the heading level of the original (the article title is a level-one heading).
Mathematics: Preserve all mathematical notation as LaTeX, inline math wrapped in \( \) and display math wrapped in \[ \].
Tables: Transcribe all tables into markdown tables. If a table contains merged cells, normalize the table by copying the content of the parent cells into the normalized child cells.
Figures: Replace each figure with its caption text; do not invent descriptions of the image content.
Page furniture: Ignore running heads, page numbers, journal names, and submission footers. Focus on preserving the scholarly content of the page.
Your primary goal is to maintain the integrity and completeness of the page's content in the markdown output. Transcribe only this page; never summarize or continue beyond it.`

// VertexClient holds the pre-configured generative model for page
// conversion.
type VertexClient struct {
	ConversionModel *genai.GenerativeModel
	baseClient      *genai.Client
}

// NewVertexClient creates a new client with the conversion model ready
// to use.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	conversionModel := baseClient.GenerativeModel(modelName)
	conversionModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ConversionSystemPrompt)},
	}
	conversionModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}
	// Scholarly text occasionally trips the default filters (medical or
	// security topics especially), so transcription runs unblocked.
	conversionModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexClient{
		ConversionModel: conversionModel,
		baseClient:      baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
