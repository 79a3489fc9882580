package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const (
	iniSection       = "Config"
	defaultDelimiter = ","
)

// Config holds the settings for one scoring run.
type Config struct {
	CSVFile           string `yaml:"csv_file"`
	CSVSentenceHeader string `yaml:"csv_sentence_header"`
	ModelName         string `yaml:"model_name"`
	BatchSize         int    `yaml:"batch_size"`
	Delimiter         string `yaml:"delimiter"`
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`

	Database *DatabaseConfig `yaml:"database"`
}

// DatabaseConfig enables persistence of scored rows when present.
type DatabaseConfig struct {
	DSN   string `yaml:"dsn"`
	Debug bool   `yaml:"debug"`
}

// LoadConfig reads a run configuration from an INI file ([Config] section) or,
// when the path ends in .yaml/.yml, from a YAML file.
func LoadConfig(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		return loadINI(path)
	}
}

func loadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return finish(&cfg)
}

func loadINI(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	sec := file.Section(iniSection)
	cfg := &Config{
		CSVFile:           sec.Key("csv_file").String(),
		CSVSentenceHeader: sec.Key("csv_sentence_header").String(),
		ModelName:         sec.Key("model_name").String(),
		Delimiter:         sec.Key("delimiter").String(),
		BaseURL:           sec.Key("base_url").String(),
		APIKey:            sec.Key("api_key").String(),
	}

	if sec.HasKey("batch_size") {
		n, err := sec.Key("batch_size").Int()
		if err != nil {
			return nil, fmt.Errorf("batch_size must be an integer: %w", err)
		}
		cfg.BatchSize = n
	}

	if dbSec, err := file.GetSection("Database"); err == nil {
		cfg.Database = &DatabaseConfig{
			DSN:   dbSec.Key("dsn").String(),
			Debug: dbSec.Key("debug").MustBool(false),
		}
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if cfg.Delimiter == "" {
		cfg.Delimiter = defaultDelimiter
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.CSVFile == "" {
		return fmt.Errorf("csv_file is required")
	}
	if cfg.CSVSentenceHeader == "" {
		return fmt.Errorf("csv_sentence_header is required")
	}
	if cfg.ModelName == "" {
		return fmt.Errorf("model_name is required")
	}
	if cfg.BatchSize < 1 {
		return fmt.Errorf("batch_size must be a positive integer, got %d", cfg.BatchSize)
	}
	if utf8.RuneCountInString(cfg.Delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", cfg.Delimiter)
	}
	if cfg.Database != nil && cfg.Database.DSN == "" {
		return fmt.Errorf("database dsn is required when the Database section is set")
	}
	return nil
}
