package feed

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type Scraper struct{}

func NewScraper() *Scraper {
	return &Scraper{}
}

// Run extracts one item per element matching sel.Article. Relative links are
// resolved against pageURL and elements without a link are skipped.
func (s *Scraper) Run(r io.Reader, pageURL string, source string, sel *Selectors) ([]Item, error) {
	if sel == nil || sel.Article == "" {
		return nil, fmt.Errorf("article selector is required")
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	var items []Item
	doc.Find(sel.Article).Each(func(_ int, article *goquery.Selection) {
		link := s.extractLink(article, sel.Link, base)
		if link == "" {
			return
		}

		items = append(items, Item{
			Source:         source,
			Link:           link,
			Title:          s.extractText(article, sel.Title),
			PubDate:        s.extractText(article, sel.Date),
			ContentSnippet: Snippet(s.extractText(article, sel.Content)),
		})
	})

	return items, nil
}

func (s *Scraper) pick(article *goquery.Selection, e *Extraction) *goquery.Selection {
	if e == nil || e.Selector == "" {
		return nil
	}

	matches := article.Find(e.Selector)
	if e.Nth > 0 {
		if matches.Length() < e.Nth {
			return nil
		}
		return matches.Eq(e.Nth - 1)
	}
	if matches.Length() == 0 {
		return nil
	}
	return matches.First()
}

func (s *Scraper) extractText(article *goquery.Selection, e *Extraction) string {
	match := s.pick(article, e)
	if match == nil {
		return ""
	}
	return strings.Join(strings.Fields(match.Text()), " ")
}

func (s *Scraper) extractLink(article *goquery.Selection, e *Extraction, base *url.URL) string {
	var href string
	var ok bool

	if e == nil || e.Selector == "" {
		// Rows that are themselves anchors.
		href, ok = article.Attr("href")
	} else if match := s.pick(article, e); match != nil {
		href, ok = match.Attr("href")
		if !ok {
			href, ok = match.Find("a[href]").First().Attr("href")
		}
	}

	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}

	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
