package feed

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func validConfig() *Config {
	return &Config{
		Name:     "rbi",
		Kind:     KindFeed,
		URLs:     []string{"https://rbi.org.in/notifications_rss.xml"},
		Policy:   "replace",
		Identity: []string{"link", "title"},
		Settings: ConfigSettings{MaxItems: 100, Timeout: 10},
	}
}

func TestConfigCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "rbi.yml", `
title: "RBI"
kind: feed
urls:
  - "https://rbi.org.in/notifications_rss.xml"
  - "https://rbi.org.in/Publication_rss.xml"
policy: merge
identity: [title]
snapshot_key: "rss-feed"

settings:
  enabled: true
  max_items: 25
  timeout: 15

filters:
  - field: "title"
    excludes:
      - "corrigendum"
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 sourceConfig, got %d", configCache.GetConfigCount())
	}

	sourceConfig, err := configCache.GetConfig("rbi")
	if err != nil {
		t.Fatal(err)
	}

	if sourceConfig.Name != "rbi" {
		t.Errorf("Expected name 'rbi', got '%s'", sourceConfig.Name)
	}
	if sourceConfig.DisplayName() != "RBI" {
		t.Errorf("Expected display name 'RBI', got '%s'", sourceConfig.DisplayName())
	}
	if len(sourceConfig.URLs) != 2 {
		t.Errorf("Expected 2 URLs, got %d", len(sourceConfig.URLs))
	}
	if sourceConfig.Policy != "merge" {
		t.Errorf("Expected policy 'merge', got '%s'", sourceConfig.Policy)
	}
	if len(sourceConfig.Identity) != 1 || sourceConfig.Identity[0] != "title" {
		t.Errorf("Expected identity [title], got %v", sourceConfig.Identity)
	}
	if sourceConfig.Key() != "rss-feed" {
		t.Errorf("Expected snapshot key 'rss-feed', got '%s'", sourceConfig.Key())
	}
	if sourceConfig.Settings.MaxItems != 25 {
		t.Errorf("Expected max items 25, got %d", sourceConfig.Settings.MaxItems)
	}
	if sourceConfig.Settings.Timeout != 15 {
		t.Errorf("Expected timeout 15, got %d", sourceConfig.Settings.Timeout)
	}
	if len(sourceConfig.Filters) != 1 {
		t.Errorf("Expected 1 filter, got %d", len(sourceConfig.Filters))
	}
}

func TestConfigCacheLoadConfigWithDefaults(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "sebi.yml", `
urls: ["https://www.sebi.gov.in/sebirss.xml"]
settings:
  enabled: true
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	sourceConfig, err := configCache.GetConfig("sebi")
	if err != nil {
		t.Fatal(err)
	}

	if sourceConfig.Kind != KindFeed {
		t.Errorf("Expected default kind 'feed', got '%s'", sourceConfig.Kind)
	}
	if sourceConfig.Policy != "replace" {
		t.Errorf("Expected default policy 'replace', got '%s'", sourceConfig.Policy)
	}
	if len(sourceConfig.Identity) != 4 {
		t.Errorf("Expected default identity of 4 fields, got %v", sourceConfig.Identity)
	}
	if sourceConfig.Settings.MaxItems != 100 {
		t.Errorf("Expected default max items 100, got %d", sourceConfig.Settings.MaxItems)
	}
	if sourceConfig.Settings.Timeout != 10 {
		t.Errorf("Expected default timeout 10, got %d", sourceConfig.Settings.Timeout)
	}
	if sourceConfig.Key() != "www.sebi.gov.in_sebirss.xml" {
		t.Errorf("Expected key derived from URL, got '%s'", sourceConfig.Key())
	}
	if sourceConfig.DisplayName() != "sebi" {
		t.Errorf("Expected display name to fall back to 'sebi', got '%s'", sourceConfig.DisplayName())
	}
}

func TestConfigCacheScrapeSelectors(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "itr.yml", `
title: "Income Tax"
kind: scrape
urls: ["https://incometaxindia.gov.in/Pages/Rss.aspx"]
selectors:
  article: ".itemdiv"
  link: ".mainlink"
  title: ".mainlink"
  date:
    selector: "div"
    nth: 2
  content: ".rssLink"
settings:
  enabled: true
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	sourceConfig, err := configCache.GetConfig("itr")
	if err != nil {
		t.Fatal(err)
	}

	sel := sourceConfig.Selectors
	if sel == nil {
		t.Fatal("Expected selectors to be parsed")
	}
	if sel.Article != ".itemdiv" {
		t.Errorf("Expected article '.itemdiv', got '%s'", sel.Article)
	}
	if sel.Link == nil || sel.Link.Selector != ".mainlink" || sel.Link.Nth != 0 {
		t.Errorf("Expected scalar link selector '.mainlink', got %+v", sel.Link)
	}
	if sel.Date == nil || sel.Date.Selector != "div" || sel.Date.Nth != 2 {
		t.Errorf("Expected date selector div nth 2, got %+v", sel.Date)
	}
}

func TestConfigCacheInvalidConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "invalid.yml", `
settings:
  enabled: true
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err == nil {
		t.Error("Expected error for config without URLs")
	}
}

func TestConfigCacheEmptyDirectory(t *testing.T) {
	configCache := NewConfigCache(t.TempDir())
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 0 {
		t.Errorf("Expected 0 sourceConfigs from empty directory, got %d", configCache.GetConfigCount())
	}
}

func TestConfigCacheMissingDirectory(t *testing.T) {
	configCache := NewConfigCache(filepath.Join(t.TempDir(), "missing"))
	if err := configCache.Run(); err != nil {
		t.Errorf("Expected missing directory to be ignored, got %v", err)
	}
}

func TestConfigCacheReloadConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "test.yml", `
urls: ["https://example.com/feed.xml"]
settings:
  enabled: true
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	writeSource(t, tempDir, "test.yml", `
urls: ["https://example.com/new-feed.xml"]
settings:
  enabled: true
  max_items: 50
`)

	reloadedConfig, err := configCache.LoadConfig("test")
	if err != nil {
		t.Fatal(err)
	}

	if reloadedConfig.URLs[0] != "https://example.com/new-feed.xml" {
		t.Errorf("Expected updated URL 'https://example.com/new-feed.xml', got '%s'", reloadedConfig.URLs[0])
	}
	if reloadedConfig.Settings.MaxItems != 50 {
		t.Errorf("Expected updated max_items 50, got %d", reloadedConfig.Settings.MaxItems)
	}

	cached, err := configCache.GetConfig("test")
	if err != nil {
		t.Fatal(err)
	}
	if cached != reloadedConfig {
		t.Error("Expected reloaded config to replace the cached one")
	}

	if _, err := configCache.LoadConfig("nonexistent"); err == nil {
		t.Error("Expected error for non-existent config")
	}

	writeSource(t, tempDir, "test.yml", `invalid yaml content`)
	if _, err := configCache.LoadConfig("test"); err == nil {
		t.Error("Expected error for invalid config file")
	}
}

func TestConfigCacheGetEnabledConfigsSorted(t *testing.T) {
	tempDir := t.TempDir()

	writeSource(t, tempDir, "nse.yml", "urls: [\"https://nse.example/a.xml\"]\nsettings:\n  enabled: true\n")
	writeSource(t, tempDir, "bse.yml", "urls: [\"https://bse.example/a.html\"]\nsettings:\n  enabled: true\n")
	writeSource(t, tempDir, "dgft.yml", "urls: [\"https://dgft.example/a.html\"]\nsettings:\n  enabled: false\n")

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	enabled := configCache.GetEnabledConfigs()
	if len(enabled) != 2 {
		t.Fatalf("Expected 2 enabled configs, got %d", len(enabled))
	}
	if enabled[0].Name != "bse" || enabled[1].Name != "nse" {
		t.Errorf("Expected [bse nse], got [%s %s]", enabled[0].Name, enabled[1].Name)
	}

	allConfigs := configCache.GetConfigs()
	delete(allConfigs, "bse")
	if configCache.GetConfigCount() != 3 {
		t.Error("Modifying returned configs map affected the cache")
	}
}

// Validation tests

func TestConfigCacheValidateConfigNil(t *testing.T) {
	configCache := NewConfigCache("")
	if err := configCache.validateConfig(nil); err == nil {
		t.Error("Expected error for nil sourceConfig, got none")
	}
}

func TestConfigCacheValidateConfigRequiredFields(t *testing.T) {
	configCache := NewConfigCache("")

	sourceConfig := validConfig()
	sourceConfig.Name = ""
	if err := configCache.validateConfig(sourceConfig); err == nil {
		t.Error("Expected error for empty source name, got none")
	}

	sourceConfig = validConfig()
	sourceConfig.URLs = nil
	if err := configCache.validateConfig(sourceConfig); err == nil {
		t.Error("Expected error for missing URLs, got none")
	}

	sourceConfig = validConfig()
	sourceConfig.URLs = []string{""}
	if err := configCache.validateConfig(sourceConfig); err == nil {
		t.Error("Expected error for empty URL, got none")
	}
}

func TestConfigCacheValidateConfigEnums(t *testing.T) {
	configCache := NewConfigCache("")

	sourceConfig := validConfig()
	sourceConfig.Kind = "ftp"
	if err := configCache.validateConfig(sourceConfig); err == nil {
		t.Error("Expected error for invalid kind, got none")
	}

	sourceConfig = validConfig()
	sourceConfig.Policy = "overwrite"
	if err := configCache.validateConfig(sourceConfig); err == nil {
		t.Error("Expected error for invalid policy, got none")
	}

	sourceConfig = validConfig()
	sourceConfig.Identity = []string{"guid"}
	if err := configCache.validateConfig(sourceConfig); err == nil {
		t.Error("Expected error for invalid identity field, got none")
	}

	sourceConfig = validConfig()
	sourceConfig.Kind = KindScrape
	if err := configCache.validateConfig(sourceConfig); err == nil {
		t.Error("Expected error for scrape source without selectors, got none")
	}

	sourceConfig.Selectors = &Selectors{Article: "tr", Date: &Extraction{Selector: "td", Nth: -1}}
	if err := configCache.validateConfig(sourceConfig); err == nil {
		t.Error("Expected error for negative nth, got none")
	}

	sourceConfig.Selectors.Date.Nth = 2
	if err := configCache.validateConfig(sourceConfig); err != nil {
		t.Errorf("Expected no error for valid scrape config, got: %v", err)
	}
}

func TestConfigCacheValidateConfigNegativeValues(t *testing.T) {
	configCache := NewConfigCache("")

	sourceConfig := validConfig()
	sourceConfig.Settings.MaxItems = -1
	if err := configCache.validateConfig(sourceConfig); err == nil {
		t.Error("Expected error for negative max items, got none")
	}

	sourceConfig = validConfig()
	sourceConfig.Settings.Timeout = -1
	if err := configCache.validateConfig(sourceConfig); err == nil {
		t.Error("Expected error for negative timeout, got none")
	}
}

func TestConfigCacheValidateConfigFilters(t *testing.T) {
	configCache := NewConfigCache("")

	sourceConfig := validConfig()
	sourceConfig.Filters = []ConfigFilter{{Field: "authors", Includes: []string{"test"}}}
	if err := configCache.validateConfig(sourceConfig); err == nil {
		t.Error("Expected error for invalid filter field, got none")
	}

	sourceConfig.Filters = []ConfigFilter{{Field: "title"}}
	if err := configCache.validateConfig(sourceConfig); err == nil {
		t.Error("Expected error for filter with no includes or excludes, got none")
	}

	for _, field := range []string{"title", "link", "content_snippet"} {
		sourceConfig.Filters = []ConfigFilter{{Field: field, Includes: []string{"test"}}}
		if err := configCache.validateConfig(sourceConfig); err != nil {
			t.Errorf("Expected no error for filter field '%s', got: %v", field, err)
		}
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := map[string]string{
		"https://www.bseindia.com/corporates/announcement.html": "www.bseindia.com_corporates_announcement.html",
		"http://example.com/a?b=c":                              "example.com_a_b_c",
		"rss-feed":                                              "rss-feed",
		" padded ":                                              "padded",
	}

	for input, expected := range tests {
		if got := SanitizeKey(input); got != expected {
			t.Errorf("SanitizeKey(%q): expected '%s', got '%s'", input, expected, got)
		}
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet("  hello \n\t world  "); got != "hello world" {
		t.Errorf("Expected 'hello world', got '%s'", got)
	}

	long := make([]rune, 0, 1000)
	for i := 0; i < 1000; i++ {
		long = append(long, 'अ')
	}
	if got := []rune(Snippet(string(long))); len(got) != 800 {
		t.Errorf("Expected 800 runes, got %d", len(got))
	}
}

func TestShippedSourcesAreValid(t *testing.T) {
	cc := NewConfigCache(filepath.Join("..", "..", "sources"))
	if err := cc.Run(); err != nil {
		t.Fatalf("Expected shipped sources to load, got %v", err)
	}

	if cc.GetConfigCount() == 0 {
		t.Fatal("Expected at least one shipped source")
	}

	for name, config := range cc.GetConfigs() {
		if err := cc.validateConfig(config); err != nil {
			t.Errorf("Expected %s to be valid, got %v", name, err)
		}
	}

	rbi, err := cc.GetConfig("rbi")
	if err != nil {
		t.Fatal(err)
	}
	sebi, err := cc.GetConfig("sebi")
	if err != nil {
		t.Fatal(err)
	}
	if rbi.Key() != sebi.Key() {
		t.Errorf("Expected rbi and sebi to share a snapshot, got %s and %s", rbi.Key(), sebi.Key())
	}
}
