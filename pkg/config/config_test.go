package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jecitDev/corebank/pkg/maincache"
)

const sampleYAML = `
database:
  host: db.internal
  port: "5432"
  dbuser: corebank
  dbpassword: secret
  dbname: corebank
caches:
  entities:
    Account:
      max_entries: 10000
      eviction_policy: lru
      ttl: 30s
`

func TestLoad_AppliesDefaultsAndParsesEntries(t *testing.T) {
	cfg, err := Load([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "require", cfg.Database.Sslmode, "sslmode default survives when unset in YAML")
	require.Contains(t, cfg.Caches.Entities, "Account")
	assert.Equal(t, 10000, cfg.Caches.Entities["Account"].MaxEntries)
}

func TestEntityCacheConfig_MainCacheConfigTranslatesPolicy(t *testing.T) {
	ec := EntityCacheConfig{MaxEntries: 5, EvictionPolicy: "fifo"}
	got := ec.MainCacheConfig()
	assert.Equal(t, maincache.FIFO, got.EvictionPolicy)
	assert.Equal(t, 5, got.MaxEntries)
}

func TestLoad_RejectsMissingDatabaseHost(t *testing.T) {
	_, err := Load([]byte("database:\n  dbname: corebank\n"))
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownEvictionPolicy(t *testing.T) {
	_, err := Load([]byte(`
database:
  host: db.internal
  dbname: corebank
caches:
  entities:
    Account:
      eviction_policy: mru
`))
	assert.Error(t, err)
}
