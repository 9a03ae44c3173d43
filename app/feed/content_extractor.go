package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Run reduces a whole page to a single item whose snippet is the page's
// readable text, so any change to the text yields a different identity.
func (e *ContentExtractor) Run(data []byte, pageURL string, source string) (Item, error) {
	if len(data) == 0 {
		return Item{}, fmt.Errorf("HTML data is empty")
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return Item{}, fmt.Errorf("invalid page URL: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err != nil {
		return Item{}, fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return Item{}, fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully",
		"url", pageURL,
		"title", article.Title,
		"content_length", len(text))

	return Item{
		Source:         source,
		Link:           pageURL,
		Title:          strings.TrimSpace(cmp.Or(article.Title, pageURL)),
		ContentSnippet: Snippet(text),
	}, nil
}
