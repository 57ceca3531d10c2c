package models

import "time"

// Conversion lifecycle states recorded in Firestore.
const (
	StatusConverting = "CONVERTING"
	StatusConverted  = "CONVERTED"
	StatusFailed     = "FAILED"
)

// ConversionRecord is the main record for a document conversion job in
// Firestore. It tracks the overall status and metadata of the job.
type ConversionRecord struct {
	DocumentID   string    `firestore:"documentId,omitempty"`
	Period       string    `firestore:"period,omitempty"`
	Status       string    `firestore:"status,omitempty"`
	ErrorDetails string    `firestore:"errorDetails,omitempty"`
	PageCount    int       `firestore:"pageCount,omitempty"`
	PagesWritten int       `firestore:"pagesWritten,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt,omitempty"`
	UpdatedAt    time.Time `firestore:"updatedAt,omitempty"`
}
