package datachangelog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// SetupComplianceSink initializes the compliance mirror from a YAML
// configuration file:
//  1. loads and parses the datachangelog configuration
//  2. creates the Elasticsearch repository, falling back to a mock
//     repository when Elasticsearch is unreachable or misconfigured
//  3. builds the Sanitizer from the configured sensitive-field list
//  4. returns a Sink ready to be passed to auditengine.Descriptor.Mirror
//     via Sink.MirrorFunc
func SetupComplianceSink(configFilePath string) (*Sink, error) {
	configYAML, err := loadAndProcessConfigYAML(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit config: %w", err)
	}

	auditConfig, err := LoadConfig(configYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse audit config: %w", err)
	}

	diff := NewDiffCalculator(auditConfig.Global.ExcludedFields, auditConfig.Global.SensitiveFields)

	if !auditConfig.Elasticsearch.Enabled {
		fmt.Println("[AUDIT] Elasticsearch compliance mirror is disabled in configuration")
		return NewSink(nil, nil), nil
	}

	if len(auditConfig.Elasticsearch.Addresses) == 0 {
		fmt.Println("[AUDIT] Warning: No Elasticsearch addresses configured, using mock repository")
		sink := NewSink(NewMockElasticsearchRepository(), NewSanitizer(auditConfig.Global.SensitiveFields))
		return sink.WithDiff(diff, auditConfig.Global.ExcludedFields, auditConfig.Global.SensitiveFields), nil
	}

	var repo Repository
	esRepo, err := NewElasticsearchRepository(&auditConfig.Elasticsearch)
	if err != nil {
		if strings.Contains(err.Error(), "security_exception") || strings.Contains(err.Error(), "unauthorized") {
			fmt.Printf("[AUDIT] warning: %v; continuing with elasticsearch repository\n", err)
			repo = esRepo
		} else {
			fmt.Printf("[AUDIT] warning: failed to create elasticsearch repository: %v; falling back to mock\n", err)
			repo = NewMockElasticsearchRepository()
		}
	} else {
		healthCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		healthErr := esRepo.Health(healthCtx)
		cancel()

		switch {
		case healthErr == nil:
			repo = esRepo
		case strings.Contains(healthErr.Error(), "security_exception"),
			strings.Contains(healthErr.Error(), "unauthorized"),
			strings.Contains(healthErr.Error(), "403"):
			fmt.Printf("[AUDIT] warning: %v; continuing with elasticsearch repository (index operations should still work)\n", healthErr)
			repo = esRepo
		default:
			fmt.Printf("[AUDIT] warning: elasticsearch health check failed: %v; falling back to mock\n", healthErr)
			esRepo.Close()
			repo = NewMockElasticsearchRepository()
		}
	}

	sanitizer := NewSanitizer(auditConfig.Global.SensitiveFields)
	fmt.Println("[AUDIT] compliance sink initialized")
	sink := NewSink(repo, sanitizer)
	return sink.WithDiff(diff, auditConfig.Global.ExcludedFields, auditConfig.Global.SensitiveFields), nil
}

// loadAndProcessConfigYAML loads the configuration YAML file and substitutes environment variables
func loadAndProcessConfigYAML(configFilePath string) ([]byte, error) {
	data, err := os.ReadFile(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFilePath, err)
	}

	configStr := os.ExpandEnv(string(data))

	for {
		before := configStr
		configStr = replaceEnvVariable(configStr, "ELASTIC_URL")
		configStr = replaceEnvVariable(configStr, "ELASTIC_USER")
		configStr = replaceEnvVariable(configStr, "ELASTIC_PASSWORD")
		if configStr == before {
			break
		}
	}

	return []byte(configStr), nil
}

// replaceEnvVariable replaces ${VAR_NAME} patterns with environment variable values
func replaceEnvVariable(configStr, envVarName string) string {
	pattern := "${" + envVarName + "}"
	if strings.Contains(configStr, pattern) {
		value := os.Getenv(envVarName)
		configStr = strings.ReplaceAll(configStr, pattern, value)
	}
	return configStr
}
