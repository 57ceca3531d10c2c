package models

import "encoding/xml"

// Feed is the Atom envelope returned by the arXiv export API for an
// id_list query.
type Feed struct {
	XMLName xml.Name `xml:"feed"`
	Entries []Entry  `xml:"entry"`
}

// Entry is one article record inside a feed.
type Entry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []Author `xml:"author"`
	Links     []Link   `xml:"link"`
}

// Author is the name element nested inside an entry's author blocks.
type Author struct {
	Name string `xml:"name"`
}

// Link is an alternate or related URL attached to an entry.
type Link struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

// Manifest mirrors the bulk-data manifest XML that lists the source
// tar archives available for download.
type Manifest struct {
	XMLName   xml.Name       `xml:"arXivPDF"`
	Timestamp string         `xml:"timestamp"`
	Files     []ManifestFile `xml:"file"`
}

// ManifestFile describes one tar archive in the manifest.
type ManifestFile struct {
	Filename  string `xml:"filename"`
	NumItems  int    `xml:"num_items"`
	Size      int64  `xml:"size"`
	Timestamp string `xml:"timestamp"`
	YYMM      string `xml:"yymm"`
	MD5Sum    string `xml:"md5sum"`
}
