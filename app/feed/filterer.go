package feed

import (
	"log/slog"
	"strings"
)

// Filterer applies a source's keyword rules. Terms match case-insensitively
// as substrings of the named field.
type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// rejection explains why an item was dropped.
type rejection struct {
	field string
	term  string // empty when no include term matched
}

func (r rejection) String() string {
	if r.term == "" {
		return "no include term in " + r.field
	}
	return "excluded term '" + r.term + "' in " + r.field
}

// Run returns the items accepted by every filter, in input order.
func (f *Filterer) Run(items []Item, sourceConfig *Config) []Item {
	if len(sourceConfig.Filters) == 0 {
		return items
	}

	kept := make([]Item, 0, len(items))
	for _, item := range items {
		if r, rejected := f.check(item, sourceConfig.Filters); rejected {
			slog.Debug("Item filtered", "source", sourceConfig.Name, "link", item.Link, "reason", r.String())
			continue
		}
		kept = append(kept, item)
	}

	return kept
}

func (f *Filterer) check(item Item, filters []ConfigFilter) (rejection, bool) {
	for _, filter := range filters {
		value := strings.ToLower(itemField(item, filter.Field))

		if term, ok := firstContained(value, filter.Excludes); ok {
			return rejection{field: filter.Field, term: term}, true
		}
		if len(filter.Includes) == 0 {
			continue
		}
		if _, ok := firstContained(value, filter.Includes); !ok {
			return rejection{field: filter.Field}, true
		}
	}

	return rejection{}, false
}

// firstContained reports the first term found in the lowercased value.
func firstContained(value string, terms []string) (string, bool) {
	for _, term := range terms {
		if strings.Contains(value, strings.ToLower(term)) {
			return term, true
		}
	}
	return "", false
}

// itemField returns the filterable value of field, or "" for unknown fields.
func itemField(item Item, field string) string {
	switch field {
	case "title":
		return item.Title
	case "link":
		return item.Link
	case "content_snippet":
		return item.ContentSnippet
	}
	return ""
}
