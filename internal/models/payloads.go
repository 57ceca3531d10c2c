package models

// These structs define the payloads served by the progress server.

// ProgressStatus is the body of the /stats.json response and the data
// behind the HTML status page. Progress is counted in documents, not
// page artifacts: a source document counts as converted once at least
// one of its page artifacts exists.
type ProgressStatus struct {
	TotalDocuments     int              `json:"totalDocuments"`
	ConvertedDocuments int              `json:"convertedDocuments"`
	RemainingDocuments int              `json:"remainingDocuments"`
	Percentage         float64          `json:"percentage"`
	Elapsed            string           `json:"elapsed"`
	Periods            []PeriodProgress `json:"periods"`
}

// PeriodProgress is the per-period artifact breakdown.
type PeriodProgress struct {
	Period string `json:"period"`
	// Documents is the number of distinct documents with at least one
	// page artifact in this period.
	Documents int `json:"documents"`
	// PageArtifacts is the raw artifact count in this period.
	PageArtifacts int `json:"pageArtifacts"`
}

// HealthStatus is the body of the /healthz response.
type HealthStatus struct {
	Status string `json:"status"`
}
