package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses an RSS/Atom document into items stamped with source.
// Entries without a link are dropped.
func (p *Parser) Run(data []byte, source string) ([]Item, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry == nil {
			continue
		}
		item := p.normalizeItem(entry, source)
		if item.Link == "" {
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func (p *Parser) normalizeItem(entry *gofeed.Item, source string) Item {
	return Item{
		Source:         source,
		Link:           strings.TrimSpace(cmp.Or(entry.Link, linkFromGUID(entry.GUID))),
		Title:          strings.TrimSpace(entry.Title),
		PubDate:        strings.TrimSpace(cmp.Or(entry.Published, entry.Updated)),
		ContentSnippet: Snippet(plainText(cmp.Or(entry.Description, entry.Content))),
	}
}

func linkFromGUID(guid string) string {
	if strings.HasPrefix(guid, "http://") || strings.HasPrefix(guid, "https://") {
		return guid
	}
	return ""
}

// plainText strips markup from feed descriptions.
func plainText(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}
