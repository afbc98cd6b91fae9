package datachangelog

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v2"
)

// Config represents the complete compliance-mirror configuration.
type Config struct {
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Global        GlobalConfig        `yaml:"global"`
}

// GlobalConfig controls sanitization and diffing applied to every mirrored
// entity write, regardless of entity kind.
type GlobalConfig struct {
	Enabled         bool     `yaml:"enabled"`
	ExcludedFields  []string `yaml:"excluded_fields"`  // Fields never diffed/mirrored
	SensitiveFields []string `yaml:"sensitive_fields"` // Fields redacted before mirroring
}

// ElasticsearchConfig represents Elasticsearch connection and behavior configuration
type ElasticsearchConfig struct {
	Enabled            bool          `yaml:"enabled"`
	Addresses          []string      `yaml:"addresses"` // e.g., ["https://localhost:9200"]
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	APIKey             string        `yaml:"api_key"` // Alternative to username/password
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	CACert             string        `yaml:"ca_cert"`       // Path to CA certificate
	IndexPrefix        string        `yaml:"index_prefix"`  // e.g., "audit-log"
	IndexPattern       string        `yaml:"index_pattern"` // e.g., "audit-log-{domain}-{yyyy.MM}"
	NumWorkers         int           `yaml:"num_workers"`   // Number of async workers
	BulkSize           int           `yaml:"bulk_size"`     // Batch size for bulk operations
	MaxRetries         int           `yaml:"max_retries"`
	RetryDelay         time.Duration `yaml:"retry_delay"`
	FlushInterval      time.Duration `yaml:"flush_interval"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
}

// LoadConfig loads compliance-mirror configuration from YAML
func LoadConfig(configYAML []byte) (*Config, error) {
	var cfg Config

	cfg.setDefaults()

	if err := yaml.Unmarshal(configYAML, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse audit log config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid audit log config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets sensible defaults for the configuration
func (c *Config) setDefaults() {
	if c.Elasticsearch.NumWorkers == 0 {
		c.Elasticsearch.NumWorkers = 4
	}
	if c.Elasticsearch.BulkSize == 0 {
		c.Elasticsearch.BulkSize = 100
	}
	if c.Elasticsearch.MaxRetries == 0 {
		c.Elasticsearch.MaxRetries = 3
	}
	if c.Elasticsearch.RetryDelay == 0 {
		c.Elasticsearch.RetryDelay = 500 * time.Millisecond
	}
	if c.Elasticsearch.FlushInterval == 0 {
		c.Elasticsearch.FlushInterval = 2 * time.Second
	}
	if c.Elasticsearch.RequestTimeout == 0 {
		c.Elasticsearch.RequestTimeout = 10 * time.Second
	}
	if c.Elasticsearch.IndexPrefix == "" {
		c.Elasticsearch.IndexPrefix = "audit-log"
	}
	if c.Elasticsearch.IndexPattern == "" {
		c.Elasticsearch.IndexPattern = "{prefix}-{domain}-{yyyy.MM}"
	}
}

// Validate performs validation checks on the configuration
func (c *Config) Validate() error {
	if !c.Elasticsearch.Enabled {
		return nil // Elasticsearch not configured, compliance mirror disabled
	}

	if len(c.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("elasticsearch addresses must be specified")
	}

	if c.Elasticsearch.Username == "" && c.Elasticsearch.APIKey == "" {
		return fmt.Errorf("elasticsearch authentication required: username/password or api_key")
	}

	return nil
}
