package services

import (
	"testing"

	"cloud.google.com/go/vertexai/genai"
)

func responseWithParts(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: parts}},
		},
	}
}

func TestExtractMarkdown(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{
			name: "plain text",
			resp: responseWithParts(genai.Text("# Title\nBody text.")),
			want: "# Title\nBody text.",
		},
		{
			name: "markdown fence",
			resp: responseWithParts(genai.Text("```markdown\n# Title\nBody text.\n```")),
			want: "# Title\nBody text.",
		},
		{
			name: "bare fence",
			resp: responseWithParts(genai.Text("```\n# Title\n```")),
			want: "# Title",
		},
		{
			name: "surrounding whitespace",
			resp: responseWithParts(genai.Text("\n\n  # Title  \n\n")),
			want: "# Title",
		},
		{
			name: "multiple text parts concatenated",
			resp: responseWithParts(genai.Text("# Tit"), genai.Text("le")),
			want: "# Title",
		},
		{
			name: "nil response",
			resp: nil,
			want: "",
		},
		{
			name: "no candidates",
			resp: &genai.GenerateContentResponse{},
			want: "",
		},
		{
			name: "nil content",
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{Content: nil}},
			},
			want: "",
		},
		{
			name: "empty parts",
			resp: responseWithParts(),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractMarkdown(tt.resp); got != tt.want {
				t.Errorf("extractMarkdown() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsRefusal(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"direct refusal", "I am unable to process this document.", true},
		{"cannot fulfill", "I cannot fulfill this request.", true},
		{"model disclaimer", "As a large language model, I do not have access to files.", true},
		{"mixed case", "I CANNOT PROVIDE the requested transcription.", true},
		{"ordinary transcription", "# Introduction\nWe present a new method.", false},
		{"empty", "", false},
		{"mentions inability of others", "The authors were not able to reproduce prior results.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRefusal(tt.text); got != tt.want {
				t.Errorf("isRefusal(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
