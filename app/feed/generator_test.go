package feed

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/regwatch/app/database"
)

func TestGenerateRSS(t *testing.T) {
	generator := NewGenerator("https://alerts.example.com", "8080", "1.2.3")

	published := time.Date(2024, 12, 11, 18, 30, 0, 0, time.UTC)
	created := time.Date(2024, 12, 12, 6, 0, 0, 0, time.UTC)

	items := []database.Notification{
		{
			ID:             "0b8f3c4e-1111-4c2e-9e8a-000000000001",
			Source:         "SEBI",
			Title:          "Circular on Stock Brokers",
			Link:           "https://www.sebi.gov.in/legal/circulars/1.html",
			PubDate:        "12 Dec, 2024 +0530",
			PubDateUTC:     published,
			ContentSnippet: "All stock brokers are advised to comply.",
			CreatedAt:      created,
		},
		{
			ID:         "0b8f3c4e-1111-4c2e-9e8a-000000000002",
			Source:     "RBI",
			Title:      "Auction of Government Securities",
			Link:       "https://rbi.org.in/2",
			PubDateUTC: published.Add(-time.Hour),
			CreatedAt:  created,
		},
	}

	rss, err := generator.Run("RegWatch notifications", items)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	var doc struct {
		Channel struct {
			Title string `xml:"title"`
			Items []struct {
				GUID     string `xml:"guid"`
				Title    string `xml:"title"`
				Category string `xml:"category"`
				PubDate  string `xml:"pubDate"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	if err := xml.Unmarshal([]byte(rss), &doc); err != nil {
		t.Fatalf("Generated RSS is not valid XML: %v", err)
	}

	if doc.Channel.Title != "RegWatch notifications" {
		t.Errorf("Expected channel title 'RegWatch notifications', got '%s'", doc.Channel.Title)
	}
	if len(doc.Channel.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(doc.Channel.Items))
	}
	if doc.Channel.Items[0].GUID != items[0].ID {
		t.Errorf("Expected guid '%s', got '%s'", items[0].ID, doc.Channel.Items[0].GUID)
	}
	if doc.Channel.Items[0].Category != "SEBI" {
		t.Errorf("Expected category 'SEBI', got '%s'", doc.Channel.Items[0].Category)
	}
	if doc.Channel.Items[0].PubDate != published.Format(time.RFC1123Z) {
		t.Errorf("Expected pubDate '%s', got '%s'", published.Format(time.RFC1123Z), doc.Channel.Items[0].PubDate)
	}

	if !strings.Contains(rss, `<atom:link href="https://alerts.example.com/notifications.rss"`) {
		t.Error("Expected self link built from base URL")
	}
	if !strings.Contains(rss, "<generator>RegWatch/1.2.3</generator>") {
		t.Error("Expected generator element with version")
	}
	if !strings.Contains(rss, "<lastBuildDate>"+created.Format(time.RFC1123Z)+"</lastBuildDate>") {
		t.Error("Expected lastBuildDate taken from newest item")
	}
	if strings.Count(rss, "<description>") != 2 {
		t.Error("Expected empty item description to be omitted")
	}
}

func TestGenerateWithSpecialCharacters(t *testing.T) {
	generator := NewGenerator("", "8080", "dev")

	items := []database.Notification{{
		ID:             "id-1",
		Source:         "FSSAI",
		Title:          "Order <draft> & \"final\"",
		Link:           "https://fssai.gov.in/a?x=1&y=2",
		ContentSnippet: "Standards <em>revised</em>",
	}}

	rss, err := generator.Run("Feed & more", items)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(rss, "<title>Feed &amp; more</title>") {
		t.Error("Channel title should have escaped special characters")
	}
	if !strings.Contains(rss, "Order &lt;draft&gt; &amp; &#34;final&#34;") {
		t.Error("Item title should have escaped special characters")
	}
	if !strings.Contains(rss, "https://fssai.gov.in/a?x=1&amp;y=2") {
		t.Error("Item link should have escaped ampersand")
	}
	if !strings.Contains(rss, `<atom:link href="http://localhost:8080/notifications.rss"`) {
		t.Error("Expected localhost self link without base URL")
	}
}

func TestGenerateWithEmptyItems(t *testing.T) {
	generator := NewGenerator("", "8080", "dev")

	rss, err := generator.Run("Empty", nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if strings.Contains(rss, "<item>") {
		t.Error("Expected no items in empty feed")
	}
	if !strings.Contains(rss, "<lastBuildDate>") {
		t.Error("Expected lastBuildDate even without items")
	}
}
