package models

import "fmt"

// Page identifies a single page artifact produced by the conversion
// stage: the markdown transcription of one PDF page.
type Page struct {
	DocumentID string
	PageNumber int
	Period     string
	Path       string
}

// ArtifactName returns the on-disk filename for the page's
// transcription, <documentID>_<pageNumber>.mmd.
func (p Page) ArtifactName() string {
	return fmt.Sprintf("%s_%d.mmd", p.DocumentID, p.PageNumber)
}

// Document is the in-memory record for one source document within a
// period directory. It tracks every observed page artifact and the
// structural signals derived from the page texts.
type Document struct {
	DocumentID string
	Period     string

	// Pages maps 1-based page numbers to artifact paths on disk.
	Pages map[int]string

	// HasHeadingStructure reports whether the first page carries more
	// than one markdown heading line.
	HasHeadingStructure bool

	// HasAbstract reports whether the first page mentions an abstract.
	HasAbstract bool

	// ReferencesPage is the lowest observed page number whose text
	// contains a references heading, or 0 when none does.
	ReferencesPage int
}

// Valid reports whether the document shows enough structure to be
// reconstructed. Both signals come from the first page; a document
// whose first page was never observed fails both.
func (d *Document) Valid() bool {
	return d.HasHeadingStructure && d.HasAbstract
}

// ReconstructedDocument is the stitched full text of one valid
// document. Reruns overwrite the artifact for the same document id.
type ReconstructedDocument struct {
	DocumentID string
	Period     string
	Content    string
}
