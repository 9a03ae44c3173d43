package feed

import (
	"testing"
)

func titles(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Title
	}
	return out
}

func TestFilterer_Run_NoFilters(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "Master Direction on KYC"},
		{Title: "Auction of Government Securities"},
	}

	result := filterer.Run(items, &Config{})

	if len(result) != 2 {
		t.Errorf("Expected 2 items, got %d", len(result))
	}
}

func TestFilterer_Run_TitleInclude(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "Circular on Margin Obligations"},
		{Title: "Press Release: Auction Result"},
		{Title: "Circular on Mutual Funds"},
	}

	sourceConfig := &Config{
		Filters: []ConfigFilter{{Field: "title", Includes: []string{"circular"}}},
	}

	result := filterer.Run(items, sourceConfig)

	if len(result) != 2 {
		t.Fatalf("Expected 2 items, got %d: %v", len(result), titles(result))
	}
	if result[0].Title != "Circular on Margin Obligations" || result[1].Title != "Circular on Mutual Funds" {
		t.Errorf("Unexpected items kept: %v", titles(result))
	}
}

func TestFilterer_Run_TitleExclude(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "Notification 12/2024"},
		{Title: "Corrigendum to Notification 12/2024"},
	}

	sourceConfig := &Config{
		Filters: []ConfigFilter{{Field: "title", Excludes: []string{"corrigendum"}}},
	}

	result := filterer.Run(items, sourceConfig)

	if len(result) != 1 || result[0].Title != "Notification 12/2024" {
		t.Errorf("Expected only the notification to pass, got %v", titles(result))
	}
}

func TestFilterer_Run_CombinedIncludeExclude(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "SEBI Circular on Stock Brokers"},
		{Title: "SEBI Circular Corrigendum"},
		{Title: "SEBI Order in the matter of XYZ"},
	}

	sourceConfig := &Config{
		Filters: []ConfigFilter{{
			Field:    "title",
			Includes: []string{"circular"},
			Excludes: []string{"corrigendum"},
		}},
	}

	result := filterer.Run(items, sourceConfig)

	if len(result) != 1 || result[0].Title != "SEBI Circular on Stock Brokers" {
		t.Errorf("Expected only the first circular, got %v", titles(result))
	}
}

func TestFilterer_Run_MultipleFields(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "Insider Trading Disclosure", Link: "https://nse.example/insider/1"},
		{Title: "Insider Trading Disclosure", Link: "https://nse.example/archive/2"},
		{Title: "Shareholding Pattern", Link: "https://nse.example/insider/3"},
	}

	sourceConfig := &Config{
		Filters: []ConfigFilter{
			{Field: "title", Includes: []string{"insider"}},
			{Field: "link", Excludes: []string{"archive"}},
		},
	}

	result := filterer.Run(items, sourceConfig)

	if len(result) != 1 || result[0].Link != "https://nse.example/insider/1" {
		t.Errorf("Expected only the first item, got %v", result)
	}
}

func TestFilterer_Run_ContentSnippetCaseInsensitive(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "a", ContentSnippet: "Applicable to ALL SCHEDULED COMMERCIAL BANKS"},
		{Title: "b", ContentSnippet: "Applicable to payment aggregators"},
	}

	sourceConfig := &Config{
		Filters: []ConfigFilter{{Field: "content_snippet", Includes: []string{"Commercial Banks"}}},
	}

	result := filterer.Run(items, sourceConfig)

	if len(result) != 1 || result[0].Title != "a" {
		t.Errorf("Expected only item 'a', got %v", titles(result))
	}
}

func TestFilterer_Run_UnknownFieldRejectsIncludes(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{{Title: "Test Article"}}

	sourceConfig := &Config{
		Filters: []ConfigFilter{{Field: "unknown_field", Includes: []string{"test"}}},
	}

	if result := filterer.Run(items, sourceConfig); len(result) != 0 {
		t.Errorf("Expected item to be dropped when using unknown field, got %d items", len(result))
	}
}

func TestFilterer_Run_PreservesOriginalData(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{{
		Source:         "RBI",
		Title:          "Test Article",
		Link:           "https://example.com/1",
		PubDate:        "12-12-2024",
		ContentSnippet: "Test content",
	}}

	sourceConfig := &Config{
		Filters: []ConfigFilter{{Field: "title", Includes: []string{"test"}}},
	}

	result := filterer.Run(items, sourceConfig)

	if len(result) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(result))
	}
	if result[0] != items[0] {
		t.Errorf("Expected item to be unchanged, got %+v", result[0])
	}
}
