package models

// CompletenessStatus classifies the audit outcome for one document.
type CompletenessStatus string

const (
	StatusComplete   CompletenessStatus = "COMPLETE"
	StatusIncomplete CompletenessStatus = "INCOMPLETE"
	StatusMissing    CompletenessStatus = "MISSING"
)

// CompletenessReport records the audit result for a single document:
// how many pages its source PDF has, which page artifacts were
// observed, and which page numbers are absent.
type CompletenessReport struct {
	DocumentID        string             `json:"documentId"`
	Status            CompletenessStatus `json:"status"`
	ExpectedPageCount int                `json:"expectedPageCount"`
	ObservedPages     []int              `json:"observedPages,omitempty"`
	MissingPages      []int              `json:"missingPages,omitempty"`
}

// AuditSummary aggregates the per-document reports of one audit run,
// bucketed by status.
type AuditSummary struct {
	Complete   []CompletenessReport `json:"complete"`
	Incomplete []CompletenessReport `json:"incomplete"`
	Missing    []CompletenessReport `json:"missing"`
}

// Counts returns the number of reports in each bucket, in the order
// complete, incomplete, missing.
func (s *AuditSummary) Counts() (int, int, int) {
	return len(s.Complete), len(s.Incomplete), len(s.Missing)
}
