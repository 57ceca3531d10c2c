package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full pipeline configuration. Every value can come from
// the config file or a PAPERSTITCH_ environment variable; flags on the
// individual commands override both.
type Config struct {
	// PDFRoot holds source documents, one period directory per archive.
	PDFRoot string `mapstructure:"pdf_root"`
	// MMDRoot holds per-page markdown artifacts in the same layout.
	MMDRoot string `mapstructure:"mmd_root"`
	// OutputRoot receives reconstructed documents.
	OutputRoot string `mapstructure:"output_root"`
	// Workers caps concurrency inside each pipeline stage.
	Workers int `mapstructure:"workers"`

	GCP      GCPConfig      `mapstructure:"gcp"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Serve    ServeConfig    `mapstructure:"serve"`
}

// GCPConfig holds the Google Cloud settings the conversion stage uses.
type GCPConfig struct {
	ProjectID     string `mapstructure:"project_id"`
	Region        string `mapstructure:"region"`
	StagingBucket string `mapstructure:"staging_bucket"`
	Collection    string `mapstructure:"collection"`
	Model         string `mapstructure:"model"`
}

// FetchConfig holds the archive retrieval settings.
type FetchConfig struct {
	ArchiveBucket  string `mapstructure:"archive_bucket"`
	BillingProject string `mapstructure:"billing_project"`
	TarDir         string `mapstructure:"tar_dir"`
	KeepTars       bool   `mapstructure:"keep_tars"`
}

// MetadataConfig holds the catalog lookup settings.
type MetadataConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	CSVPath         string        `mapstructure:"csv_path"`
	RequestInterval time.Duration `mapstructure:"request_interval"`
}

// AuditConfig holds the completeness audit settings.
type AuditConfig struct {
	// ReportPath, when set, receives the machine-readable JSON report.
	ReportPath string `mapstructure:"report_path"`
}

// ServeConfig holds the progress server settings.
type ServeConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// Load reads configuration from defaults, an optional config file, and
// PAPERSTITCH_ environment variables, in increasing precedence.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PAPERSTITCH")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.paperstitch")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pdf_root", "data/pdf")
	v.SetDefault("mmd_root", "data/mmd")
	v.SetDefault("output_root", "data/reconstructed")
	v.SetDefault("workers", 4)

	v.SetDefault("gcp.region", "us-central1")
	v.SetDefault("gcp.collection", "conversions")
	v.SetDefault("gcp.model", "gemini-1.5-pro")

	v.SetDefault("fetch.archive_bucket", "arxiv-dataset")

	v.SetDefault("metadata.base_url", "http://export.arxiv.org")
	v.SetDefault("metadata.csv_path", "arxiv_metadata.csv")
	v.SetDefault("metadata.request_interval", "3s")

	v.SetDefault("serve.host", "0.0.0.0")
	v.SetDefault("serve.port", "8005")
}
