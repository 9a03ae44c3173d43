package feed

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Item is one announcement as read from a source, before any normalization.
// It is also the unit stored in snapshots, hence the JSON tags.
type Item struct {
	Source         string `json:"source"`
	Link           string `json:"link"`
	Title          string `json:"title"`
	PubDate        string `json:"pubDate"`
	ContentSnippet string `json:"contentSnippet"`
}

// Configuration types

type Kind string

const (
	KindFeed   Kind = "feed"
	KindScrape Kind = "scrape"
	KindPage   Kind = "page"
)

type Config struct {
	Name        string         // Derived from filename (without .yml extension)
	Title       string         `yaml:"title"`
	Kind        Kind           `yaml:"kind"`
	URLs        []string       `yaml:"urls"`
	Policy      string         `yaml:"policy"`   // replace, append or merge
	Identity    []string       `yaml:"identity"` // fields compared for dedup
	SnapshotKey string         `yaml:"snapshot_key"`
	Settings    ConfigSettings `yaml:"settings"`
	Selectors   *Selectors     `yaml:"selectors"`
	Filters     []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled  bool `yaml:"enabled"`
	MaxItems int  `yaml:"max_items"`
	Timeout  int  `yaml:"timeout"` // seconds
	Render   bool `yaml:"render"`  // render pages in headless Chrome before parsing
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// Selectors describe how a scrape source maps page markup onto items.
// Article selects one element per item; the remaining fields are looked up
// inside it and may be omitted.
type Selectors struct {
	Article string      `yaml:"article"`
	Link    *Extraction `yaml:"link"`
	Title   *Extraction `yaml:"title"`
	Date    *Extraction `yaml:"date"`
	Content *Extraction `yaml:"content"`
}

// Extraction picks the first match of Selector, or the Nth (1-based) when Nth > 0.
type Extraction struct {
	Selector string `yaml:"selector"`
	Nth      int    `yaml:"nth"`
}

func (e *Extraction) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Selector = node.Value
		e.Nth = 0
		return nil
	}

	type plain Extraction
	return node.Decode((*plain)(e))
}

// DisplayName is the value stamped into Item.Source.
func (c *Config) DisplayName() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Name
}

// Key returns the snapshot key for this source.
func (c *Config) Key() string {
	if c.SnapshotKey != "" {
		return SanitizeKey(c.SnapshotKey)
	}
	if len(c.URLs) == 1 {
		return SanitizeKey(c.URLs[0])
	}
	return SanitizeKey(c.Name)
}

// SanitizeKey strips the URL scheme and replaces anything outside
// [A-Za-z0-9._-] with an underscore.
func SanitizeKey(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

const snippetLimit = 800

// Snippet collapses whitespace and truncates s to the snippet limit in runes.
func Snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > snippetLimit {
		return string(runes[:snippetLimit])
	}
	return s
}
