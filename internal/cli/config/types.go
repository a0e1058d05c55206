// Package config provides configuration management for the polarbr CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	ProjectRoot string `koanf:"-"`

	RawDir       string `koanf:"raw_dir"`
	ProcessedDir string `koanf:"processed_dir"`
	OutputDir    string `koanf:"output_dir"`
	StatePath    string `koanf:"state_path"`
	// Database is the DuckDB file holding the merged panel. Empty means
	// in-memory, which disables the query command.
	Database string `koanf:"database"`

	// IdeologyPath is the party ideology classification CSV.
	IdeologyPath string `koanf:"ideology_path"`
	// CrosswalkPath maps TSE municipality codes to IBGE codes. Optional:
	// when empty, raw files are expected to carry IBGE codes already.
	CrosswalkPath string `koanf:"crosswalk_path"`

	Years []int   `koanf:"years"`
	Alpha float64 `koanf:"alpha"`

	Bootstrap     int   `koanf:"bootstrap"`
	Seed          int64 `koanf:"seed"`
	NotYetTreated bool  `koanf:"not_yet_treated"`

	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
}

// Default configuration values.
const (
	DefaultRawDir       = "data/raw"
	DefaultProcessedDir = "data/processed"
	DefaultOutputDir    = "data/output"
	DefaultStateFile    = ".polarbr/state.db"
	DefaultDatabase     = "data/processed/polarbr.duckdb"
	DefaultIdeology     = "data/raw/party_ideology_zucco_power.csv"
	DefaultAlpha        = 1.6
	DefaultBootstrap    = 1000
	DefaultSeed         = 42
	DefaultOutput       = "table"
)

// DefaultYears are the presidential elections in the study window.
var DefaultYears = []int{2010, 2014, 2018, 2022}
