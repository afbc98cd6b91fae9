// Package config loads the runtime's YAML configuration: database and
// redis connection settings, per-entity cache policy, and notification
// listener tuning. Modeled on the teacher's datachangelog.LoadConfig —
// same shape (defaults, then parse, then validate) and the same YAML
// library (gopkg.in/yaml.v2).
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/jecitDev/corebank/pkg/maincache"
)

// Config is the complete runtime configuration.
type Config struct {
	Database  DBConfig       `yaml:"database"`
	Redis     RedisConfig    `yaml:"redis"`
	Listener  ListenerConfig `yaml:"listener"`
	Caches    CachesConfig   `yaml:"caches"`
}

// DBConfig is consumed by pkg/dbConnect.ConnectSqlx.
type DBConfig struct {
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	Dbuser     string `yaml:"dbuser"`
	Dbpassword string `yaml:"dbpassword"`
	Dbname     string `yaml:"dbname"`
	Sslmode    string `yaml:"sslmode"`
}

// RedisConfig is consumed by pkg/redisConnect.ConnectRedis.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
}

// ListenerConfig tunes pkg/listener.Listener.
type ListenerConfig struct {
	MinReconnectInterval time.Duration `yaml:"min_reconnect_interval"`
	MaxReconnectInterval time.Duration `yaml:"max_reconnect_interval"`
	DrainTimeout         time.Duration `yaml:"drain_timeout"`
}

// CachesConfig declares the per-entity-kind MainCache policy. Keys are
// entity kind names (entitycore.Descriptor.EntityType).
type CachesConfig struct {
	Entities map[string]EntityCacheConfig `yaml:"entities"`
}

// EntityCacheConfig configures one entity kind's MainCache.
type EntityCacheConfig struct {
	MaxEntries     int           `yaml:"max_entries"`
	EvictionPolicy string        `yaml:"eviction_policy"` // "lru" or "fifo"
	TTL            time.Duration `yaml:"ttl"`
}

// MainCacheConfig translates this entry into a maincache.Config.
func (e EntityCacheConfig) MainCacheConfig() maincache.Config {
	policy := maincache.LRU
	if e.EvictionPolicy == "fifo" {
		policy = maincache.FIFO
	}
	return maincache.Config{
		MaxEntries:     e.MaxEntries,
		EvictionPolicy: policy,
		TTL:            e.TTL,
	}
}

// Load parses and validates configYAML.
func Load(configYAML []byte) (*Config, error) {
	var cfg Config
	cfg.setDefaults()

	if err := yaml.Unmarshal(configYAML, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	c.Database.Sslmode = "require"
	c.Listener.MinReconnectInterval = 10 * time.Second
	c.Listener.MaxReconnectInterval = time.Minute
	c.Listener.DrainTimeout = 5 * time.Second
}

// Validate performs basic structural checks.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host must be specified")
	}
	if c.Database.Dbname == "" {
		return fmt.Errorf("database dbname must be specified")
	}
	for name, ec := range c.Caches.Entities {
		if ec.EvictionPolicy != "" && ec.EvictionPolicy != "lru" && ec.EvictionPolicy != "fifo" {
			return fmt.Errorf("entity %s: eviction_policy must be lru or fifo, got %q", name, ec.EvictionPolicy)
		}
	}
	return nil
}
