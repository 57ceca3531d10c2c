// Package mmd provides line-oriented heuristics over Mathpix Markdown
// page transcriptions. All functions treat a page as a list of lines
// and never modify text beyond dropping or reordering whole lines.
package mmd

import "strings"

// lines splits a page into lines the way the transcriptions are
// written: newline separated, with an optional trailing newline that
// does not count as an extra empty line.
func lines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func isHeading(line string) bool {
	return strings.HasPrefix(line, "#")
}

func isReferencesHeading(line string) bool {
	return isHeading(line) && strings.Contains(strings.ToLower(line), "references")
}

// Headings returns every heading line of the page, in order. A line is
// a heading when its first character is '#'; indented or mid-line
// markers do not count.
func Headings(text string) []string {
	var hs []string
	for _, line := range lines(text) {
		if isHeading(line) {
			hs = append(hs, line)
		}
	}
	return hs
}

// HasAbstract reports whether any line of the page mentions an
// abstract, case-insensitively. The match is a plain substring check,
// so prose like "this abstract idea" also counts.
func HasAbstract(text string) bool {
	for _, line := range lines(text) {
		if strings.Contains(strings.ToLower(line), "abstract") {
			return true
		}
	}
	return false
}

// HasReferencesHeading reports whether any heading line of the page
// mentions references, case-insensitively.
func HasReferencesHeading(text string) bool {
	for _, line := range lines(text) {
		if isReferencesHeading(line) {
			return true
		}
	}
	return false
}

// OpensWithReferences reports whether the page's very first line is a
// top-level references heading. Deeper heading levels ("## References")
// do not match.
func OpensWithReferences(text string) bool {
	ls := lines(text)
	if len(ls) == 0 {
		return false
	}
	return strings.HasPrefix(strings.ToLower(ls[0]), "# reference")
}

// StripAuthors removes the author block of a first page: everything
// between the first line (the title) and the abstract heading. When no
// abstract heading exists on the page, only the title survives.
func StripAuthors(text string) string {
	ls := lines(text)
	if len(ls) == 0 {
		return ""
	}
	for i, line := range ls {
		if isHeading(line) && strings.Contains(strings.ToLower(line), "abstract") {
			out := make([]string, 0, len(ls)-i+2)
			out = append(out, ls[0], "")
			out = append(out, ls[i:]...)
			return strings.Join(out, "\n")
		}
	}
	return strings.Join([]string{ls[0], ""}, "\n")
}

// TrimReferences keeps every line up to, but not including, the first
// references heading. Prose preceding the heading survives untouched.
func TrimReferences(text string) string {
	var kept []string
	for _, line := range lines(text) {
		if isReferencesHeading(line) {
			break
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
