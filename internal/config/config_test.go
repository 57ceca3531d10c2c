package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("explicit missing config file should fail")
	}

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.PDFRoot != "data/pdf" {
		t.Errorf("pdf_root = %q", cfg.PDFRoot)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers = %d", cfg.Workers)
	}
	if cfg.GCP.Region != "us-central1" {
		t.Errorf("gcp.region = %q", cfg.GCP.Region)
	}
	if cfg.Fetch.ArchiveBucket != "arxiv-dataset" {
		t.Errorf("fetch.archive_bucket = %q", cfg.Fetch.ArchiveBucket)
	}
	if cfg.Metadata.RequestInterval != 3*time.Second {
		t.Errorf("metadata.request_interval = %v", cfg.Metadata.RequestInterval)
	}
	if cfg.Serve.Port != "8005" {
		t.Errorf("serve.port = %q", cfg.Serve.Port)
	}
	if cfg.Audit.ReportPath != "" {
		t.Errorf("audit.report_path = %q, want unset", cfg.Audit.ReportPath)
	}
}

func TestLoadFromFile(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	content := `
pdf_root: /srv/pdf
workers: 16
gcp:
  project_id: test-project
  staging_bucket: test-staging
metadata:
  request_interval: 250ms
serve:
  port: "9000"
`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.PDFRoot != "/srv/pdf" {
		t.Errorf("pdf_root = %q", cfg.PDFRoot)
	}
	if cfg.Workers != 16 {
		t.Errorf("workers = %d", cfg.Workers)
	}
	if cfg.GCP.ProjectID != "test-project" || cfg.GCP.StagingBucket != "test-staging" {
		t.Errorf("gcp = %+v", cfg.GCP)
	}
	// Untouched keys keep their defaults.
	if cfg.GCP.Region != "us-central1" {
		t.Errorf("gcp.region = %q", cfg.GCP.Region)
	}
	if cfg.Metadata.RequestInterval != 250*time.Millisecond {
		t.Errorf("metadata.request_interval = %v", cfg.Metadata.RequestInterval)
	}
	if cfg.Serve.Port != "9000" {
		t.Errorf("serve.port = %q", cfg.Serve.Port)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PAPERSTITCH_WORKERS", "32")
	t.Setenv("PAPERSTITCH_OUTPUT_ROOT", "/srv/out")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workers != 32 {
		t.Errorf("workers = %d, want env override", cfg.Workers)
	}
	if cfg.OutputRoot != "/srv/out" {
		t.Errorf("output_root = %q, want env override", cfg.OutputRoot)
	}
}
