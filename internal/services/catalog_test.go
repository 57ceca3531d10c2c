package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const atomFeedTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/%s</id>
    <title>  Title of %s  </title>
    <summary>
      Abstract of %s.
    </summary>
    <author><name>First Author</name></author>
    <author><name>Second Author</name></author>
    <published>2023-10-02T17:59:59Z</published>
    <link href="http://arxiv.org/abs/%s" rel="alternate" type="text/html"/>
    <link href="http://arxiv.org/pdf/%s" rel="related" type="application/pdf"/>
  </entry>
</feed>`

func writeReconstructed(t *testing.T, root, period, name string) {
	t.Helper()
	dir := filepath.Join(root, period)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("# Title\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectDocumentIDs(t *testing.T) {
	root := t.TempDir()
	writeReconstructed(t, root, "2310", "2310.00002.mmd")
	writeReconstructed(t, root, "2310", "2310.00001.mmd")
	writeReconstructed(t, root, "2311", "2311.00005.mmd")
	writeReconstructed(t, root, "2311", "notes.txt")

	ids, err := collectDocumentIDs(root)
	if err != nil {
		t.Fatalf("collectDocumentIDs() error = %v", err)
	}
	want := []string{"2310.00001", "2310.00002", "2311.00005"}
	if len(ids) != len(want) {
		t.Fatalf("got %d ids %v, want %v", len(ids), ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestCatalogProcess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id_list")
		if id == "2310.99999" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, atomFeedTemplate, id, id, id, id, id)
	}))
	defer server.Close()

	root := t.TempDir()
	writeReconstructed(t, root, "2310", "2310.00001.mmd")
	writeReconstructed(t, root, "2310", "2310.99999.mmd")
	writeReconstructed(t, root, "2311", "2311.00005.mmd")

	csvPath := filepath.Join(t.TempDir(), "catalog.csv")
	catalog, err := NewCatalog(CatalogConfig{
		OutputRoot:      root,
		CSVPath:         csvPath,
		BaseURL:         server.URL,
		RequestInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	result, err := catalog.Process(context.Background())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Fetched != 2 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 2 fetched and 1 skipped", result)
	}

	file, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 3 {
		t.Fatalf("catalog has %d rows, want header plus 2", len(rows))
	}
	for i, column := range catalogHeader {
		if rows[0][i] != column {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], column)
		}
	}

	first := rows[1]
	if first[0] != "2310.00001" {
		t.Errorf("first row id = %q", first[0])
	}
	if first[1] != "Title of 2310.00001" {
		t.Errorf("title not trimmed: %q", first[1])
	}
	if first[3] != "First Author, Second Author" {
		t.Errorf("authors = %q", first[3])
	}
	if first[4] != "2023-10-02T17:59:59Z" {
		t.Errorf("published = %q", first[4])
	}
	if first[5] != "http://arxiv.org/abs/2310.00001" {
		t.Errorf("link = %q, want the feed's first link", first[5])
	}

	if rows[2][0] != "2311.00005" {
		t.Errorf("second row id = %q", rows[2][0])
	}
}

func TestCatalogProcessEmptyRoot(t *testing.T) {
	catalog, err := NewCatalog(CatalogConfig{
		OutputRoot: t.TempDir(),
		CSVPath:    filepath.Join(t.TempDir(), "catalog.csv"),
	})
	if err != nil {
		t.Fatal(err)
	}

	result, err := catalog.Process(context.Background())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Fetched != 0 || result.Skipped != 0 {
		t.Errorf("result = %+v, want zero activity", result)
	}
}
