package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

type ConfigCache struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(sourcesDir string) *ConfigCache {
	return &ConfigCache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		sourceName := fileName[:len(fileName)-4]

		config, err := cc.LoadConfig(sourceName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "source", sourceName, "kind", config.Kind, "enabled", config.Settings.Enabled, "urls", len(config.URLs))
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(sourceName string) (*Config, error) {
	configFile := cc.getConfigFilePath(sourceName)
	sourceConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	sourceConfig.Name = sourceName

	if err := cc.validateConfig(sourceConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[sourceConfig.Name] = sourceConfig

	return sourceConfig, nil
}

func (cc *ConfigCache) GetConfig(sourceName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	sourceConfig, ok := cc.cache[sourceName]
	if !ok {
		return nil, fmt.Errorf("source config with name '%s' not found", sourceName)
	}
	return sourceConfig, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

// GetEnabledConfigs returns enabled sources ordered by name so that batches
// process them deterministically.
func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make([]*Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs = append(enabledConfigs, v)
		}
	}
	sort.Slice(enabledConfigs, func(i, j int) bool {
		return enabledConfigs[i].Name < enabledConfigs[j].Name
	})
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var sourceConfig Config
	if err := yaml.Unmarshal(data, &sourceConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if sourceConfig.Kind == "" {
		sourceConfig.Kind = KindFeed
	}
	if sourceConfig.Policy == "" {
		sourceConfig.Policy = "replace"
	}
	if len(sourceConfig.Identity) == 0 {
		sourceConfig.Identity = []string{"link", "title", "pub_date", "content_snippet"}
	}
	if sourceConfig.Settings.MaxItems == 0 {
		sourceConfig.Settings.MaxItems = 100
	}
	if sourceConfig.Settings.Timeout == 0 {
		sourceConfig.Settings.Timeout = 10
	}

	return &sourceConfig, nil
}

func (cc *ConfigCache) validateConfig(sourceConfig *Config) error {
	if sourceConfig == nil {
		return fmt.Errorf("sourceConfig is nil")
	}

	if sourceConfig.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if len(sourceConfig.URLs) == 0 {
		return fmt.Errorf("at least one source URL is required")
	}
	for i, u := range sourceConfig.URLs {
		if u == "" {
			return fmt.Errorf("source URL at index %d is empty", i)
		}
	}

	validKinds := map[Kind]bool{
		KindFeed:   true,
		KindScrape: true,
		KindPage:   true,
	}
	if !validKinds[sourceConfig.Kind] {
		return fmt.Errorf("invalid kind: %s", sourceConfig.Kind)
	}

	if sourceConfig.Kind == KindScrape {
		if sourceConfig.Selectors == nil || sourceConfig.Selectors.Article == "" {
			return fmt.Errorf("scrape sources require an article selector")
		}
		for fieldName, extraction := range map[string]*Extraction{
			"link":    sourceConfig.Selectors.Link,
			"title":   sourceConfig.Selectors.Title,
			"date":    sourceConfig.Selectors.Date,
			"content": sourceConfig.Selectors.Content,
		} {
			if extraction != nil && extraction.Nth < 0 {
				return fmt.Errorf("%s selector nth must be non-negative", fieldName)
			}
		}
	}

	validPolicies := map[string]bool{
		"replace": true,
		"append":  true,
		"merge":   true,
	}
	if !validPolicies[sourceConfig.Policy] {
		return fmt.Errorf("invalid policy: %s", sourceConfig.Policy)
	}

	validIdentityFields := map[string]bool{
		"link":            true,
		"title":           true,
		"pub_date":        true,
		"content_snippet": true,
	}
	for i, field := range sourceConfig.Identity {
		if !validIdentityFields[field] {
			return fmt.Errorf("invalid identity field at index %d: %s", i, field)
		}
	}

	nonNegativeFields := map[string]int{
		"max items": sourceConfig.Settings.MaxItems,
		"timeout":   sourceConfig.Settings.Timeout,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	validFields := map[string]bool{
		"title":           true,
		"link":            true,
		"content_snippet": true,
	}

	for i, filter := range sourceConfig.Filters {
		if !validFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(sourceName string) string {
	return filepath.Join(cc.sourcesDir, sourceName+".yml")
}
